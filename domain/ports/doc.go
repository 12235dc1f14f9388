// Package ports defines the interfaces the plugin host depends on.
// Orchestration code in application/ depends on these abstractions, and the
// adapters under host/ and infrastructure/ implement them.
package ports

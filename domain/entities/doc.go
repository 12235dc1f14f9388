// Package entities provides the core domain entities of the plugin host:
// plugin records persisted in the lock file, manifests, platforms and the
// lifecycle hook vocabulary shared by the host and the guest SDK.
package entities

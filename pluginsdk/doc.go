// Package pluginsdk is the guest side of the devkit plugin ABI. A plugin is
// a Go main package compiled for wasip1 as a reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o plugin.wasm .
//
// It registers one Plugin implementation from init and leaves main empty:
//
//	type sitemap struct{ pluginsdk.Base }
//
//	func init() { pluginsdk.Register(&sitemap{}) }
//
//	func main() {}
//
// The package exports every lifecycle hook the host calls and wraps the
// devkit_host import module: platform and output directory queries,
// browser refreshes, the watched-path set, persistent state, structured
// logging and handles to host-owned configuration values.
package pluginsdk

package pluginsdk

import (
	"github.com/reglet-dev/devkit/wireformat"
)

// Platform reports the surface the session targets: "web" or "desktop".
func Platform() (string, error) {
	resp, err := invoke[wireformat.PlatformWire]("get_platform", nil)
	return resp.Platform, err
}

// OutputDirectory reports the directory the build writes into.
func OutputDirectory() (string, error) {
	resp, err := invoke[wireformat.OutputDirectoryWire]("output_directory", nil)
	return resp.Path, err
}

// RefreshBrowserPage asks every connected browser to reload. Outside serve
// mode the request is dropped by the host.
func RefreshBrowserPage() error {
	return notify("refresh_browser_page", nil)
}

// RefreshAsset asks connected browsers to swap references to oldURL for
// newURL without reloading the page.
func RefreshAsset(oldURL, newURL string) error {
	return notify("refresh_asset", wireformat.AssetRefreshWire{OldURL: oldURL, NewURL: newURL})
}

// WatchPath adds a path or glob to the session's watched set. Adding a
// path that is already watched is a no-op.
func WatchPath(path string) error {
	return notify("watch_path", wireformat.PathWire{Path: path})
}

// WatchedPaths returns a snapshot of the watched set.
func WatchedPaths() ([]string, error) {
	resp, err := invoke[wireformat.PathsWire]("watched_paths", nil)
	return resp.Paths, err
}

// RemovePath removes a path from the watched set. Removing a path that is
// not watched returns an error with type "not_found".
func RemovePath(path string) error {
	resp, err := invoke[wireformat.ResultWire]("remove_path", wireformat.PathWire{Path: path})
	if err != nil {
		return err
	}
	return resultErr("remove_path", resp)
}

// State returns the persisted state entry for key. State survives between
// sessions in the project's lock file.
func State(key string) ([]byte, bool, error) {
	resp, err := invoke[wireformat.StateEntryWire]("state_get", wireformat.StateKeyWire{Key: key})
	return resp.Value, resp.Found, err
}

// SetState stores a state entry.
func SetState(key string, val []byte) error {
	resp, err := invoke[wireformat.ResultWire]("state_set", wireformat.StateEntryWire{Key: key, Value: val})
	if err != nil {
		return err
	}
	return resultErr("state_set", resp)
}

// RemoveState deletes a state entry. A missing key is an error with type
// "not_found".
func RemoveState(key string) error {
	resp, err := invoke[wireformat.ResultWire]("state_remove", wireformat.StateKeyWire{Key: key})
	if err != nil {
		return err
	}
	return resultErr("state_remove", resp)
}

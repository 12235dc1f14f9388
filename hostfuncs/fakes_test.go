package hostfuncs

import (
	"slices"
)

type fakePaths struct {
	paths []string
}

func newFakePaths() *fakePaths { return &fakePaths{} }

func (f *fakePaths) Watch(path string) bool {
	if slices.Contains(f.paths, path) {
		return false
	}
	f.paths = append(f.paths, path)
	return true
}

func (f *fakePaths) Remove(path string) bool {
	i := slices.Index(f.paths, path)
	if i < 0 {
		return false
	}
	f.paths = slices.Delete(f.paths, i, i+1)
	return true
}

func (f *fakePaths) Paths() []string { return slices.Clone(f.paths) }

type assetRefresh struct {
	oldURL string
	newURL string
}

type fakeReloader struct {
	assets []assetRefresh
	pages  int
}

func (f *fakeReloader) ReloadPage() { f.pages++ }

func (f *fakeReloader) ReloadAsset(oldURL, newURL string) {
	f.assets = append(f.assets, assetRefresh{oldURL: oldURL, newURL: newURL})
}

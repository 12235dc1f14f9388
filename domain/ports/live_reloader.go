package ports

// LiveReloader pushes reload requests to connected browser clients.
// Both methods are fire-and-forget.
type LiveReloader interface {
	ReloadPage()
	ReloadAsset(oldURL, newURL string)
}

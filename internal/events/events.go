// Package events centralizes the Wails event name strings the bridge
// emits, so they aren't scattered as magic strings across the bridge
// package.
package events

// Lifecycle events.
const (
	AppReady = "app:ready"
)

// Download events, emitted by internal/bridge for each EventBus
// broadcast (spec §6.3's `changed` subscription).
const (
	DownloadChanged = "download:changed"
)

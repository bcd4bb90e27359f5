package constants

// Probe paths shared by router and deploy manifests.
const (
	PathHealth = "/health"
	PathReady  = "/ready"
)

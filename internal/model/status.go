package model

// Effective status values derived for a server.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

// Status source values: who last determined the effective status.
const (
	StatusSourceAgent  = "agent"
	StatusSourceManual = "manual"
)

// Confidence levels for agent-derived trust.
const (
	ConfidenceGreen  = "green"
	ConfidenceYellow = "yellow"
	ConfidenceRed    = "red"
)

// Verification key scopes.
const (
	KeyScopeServer  = "server"
	KeyScopeCluster = "cluster"
)

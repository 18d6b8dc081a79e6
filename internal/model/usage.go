package model

// UsageStats mirrors the server-side trial counters.
type UsageStats struct {
	InteractionCount int  `json:"interaction_count"`
	TrialRemaining   int  `json:"trial_remaining"`
	IsRegistered     bool `json:"is_registered"`
}

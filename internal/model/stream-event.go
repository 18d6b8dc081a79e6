package model

// StreamEvent is the closed set of events a chat turn can produce. A turn
// delivers zero or more Status/Recommendation events, at most one Message,
// an optional terminal Error, and exactly one Done.
type StreamEvent interface {
	streamEvent()
}

// StatusEvent is advisory progress text. It is never persisted.
type StatusEvent struct {
	Content string
}

// MessageMeta carries the side effects embedded in a message event.
type MessageMeta struct {
	ConversationID    string
	ExtractionSummary string
	TrialExceeded     bool
	Usage             *UsageStats
}

// MessageEvent is the prose reply of a turn.
type MessageEvent struct {
	Content string
	Meta    MessageMeta
}

// RecommendationEvent delivers one result card.
type RecommendationEvent struct {
	Item RecommendationItem
}

// ErrorEvent is a terminal stream failure, surfaced as assistant prose.
type ErrorEvent struct {
	Content string
}

// DoneEvent ends the turn. It is the only completion signal.
type DoneEvent struct{}

func (StatusEvent) streamEvent()         {}
func (MessageEvent) streamEvent()        {}
func (RecommendationEvent) streamEvent() {}
func (ErrorEvent) streamEvent()          {}
func (DoneEvent) streamEvent()           {}

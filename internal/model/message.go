package model

import "time"

// Message is one transcript entry. Content may be empty when the entry
// carries only a recommendation batch.
type Message struct {
	Role            Role
	Content         string
	Timestamp       time.Time
	Recommendations []RecommendationItem
}

// RecommendationOnly reports whether the message is a pure card batch
// with no prose.
func (m Message) RecommendationOnly() bool {
	return m.Content == "" && len(m.Recommendations) > 0
}

type Conversation struct {
	ConversationID string
	OwnerID        string
	Messages       []Message
}

func (c Conversation) Empty() bool {
	return len(c.Messages) == 0
}

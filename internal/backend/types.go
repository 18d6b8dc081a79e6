package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
)

type wireMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []wireMessage `json:"conversation_history"`
	LLMProvider         string        `json:"llm_provider,omitempty"`
	UserID              string        `json:"user_id"`
	ConversationID      string        `json:"conversation_id,omitempty"`
	IsInitialResponse   bool          `json:"is_initial_response"`
}

// streamFrame is one `data:` line of the chat stream.
type streamFrame struct {
	Type              string              `json:"type"`
	Content           string              `json:"content"`
	Data              *wireRecommendation `json:"data,omitempty"`
	ConversationID    string              `json:"conversation_id,omitempty"`
	ExtractionSummary string              `json:"extraction_summary,omitempty"`
	TrialExceeded     bool                `json:"trial_exceeded,omitempty"`
	UsageStats        *model.UsageStats   `json:"usage_stats,omitempty"`
}

type wireRecommendation struct {
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	RelevanceScore float64         `json:"relevance_score"`
	Explanation    string          `json:"explanation"`
}

func (w wireRecommendation) toModel() (model.RecommendationItem, error) {
	item := model.RecommendationItem{
		Kind:           model.RecommendationKind(w.Type),
		RelevanceScore: w.RelevanceScore,
		Explanation:    w.Explanation,
	}
	switch item.Kind {
	case model.KindEvent:
		var event model.Event
		if err := json.Unmarshal(w.Data, &event); err != nil {
			return model.RecommendationItem{}, fmt.Errorf("failed to unmarshal event payload: %w", err)
		}
		item.Event = &event
	case model.KindRestaurant:
		var restaurant model.Restaurant
		if err := json.Unmarshal(w.Data, &restaurant); err != nil {
			return model.RecommendationItem{}, fmt.Errorf("failed to unmarshal restaurant payload: %w", err)
		}
		item.Restaurant = &restaurant
	default:
		return model.RecommendationItem{}, fmt.Errorf("unknown recommendation type %q", w.Type)
	}
	return item, nil
}

type wireStoredMessage struct {
	Role            string               `json:"role"`
	Content         string               `json:"content"`
	Timestamp       *time.Time           `json:"timestamp,omitempty"`
	Recommendations []wireRecommendation `json:"recommendations,omitempty"`
}

type wireConversation struct {
	ConversationID string              `json:"conversation_id"`
	UserID         string              `json:"user_id"`
	Messages       []wireStoredMessage `json:"messages"`
}

func (w wireConversation) toModel() (model.Conversation, error) {
	conv := model.Conversation{
		ConversationID: w.ConversationID,
		OwnerID:        w.UserID,
		Messages:       make([]model.Message, 0, len(w.Messages)),
	}
	for _, wm := range w.Messages {
		msg := model.Message{
			Role:    model.ParseRole(wm.Role),
			Content: wm.Content,
		}
		if wm.Timestamp != nil {
			msg.Timestamp = *wm.Timestamp
		}
		for _, wr := range wm.Recommendations {
			item, err := wr.toModel()
			if err != nil {
				return model.Conversation{}, fmt.Errorf("conversation %s: %w", w.ConversationID, err)
			}
			msg.Recommendations = append(msg.Recommendations, item)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

// ConversationSummary is one row of the conversation list endpoint.
type ConversationSummary struct {
	ConversationID string `json:"conversation_id"`
	CreatedAt      string `json:"created_at"`
	LastMessageAt  string `json:"last_message_at"`
	MessageCount   int    `json:"message_count"`
	Preview        string `json:"preview"`
}

type createConversationRequest struct {
	UserID   string         `json:"user_id"`
	Metadata map[string]any `json:"metadata"`
}

type createConversationResponse struct {
	ConversationID string `json:"conversation_id"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type registerRequest struct {
	Token           string `json:"token"`
	AnonymousUserID string `json:"anonymous_user_id"`
}

type authResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
}

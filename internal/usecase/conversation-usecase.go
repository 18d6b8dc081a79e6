package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trackcqishibee-web/locallife-assistant/internal/backend"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
)

var ErrNoConversation = errors.New("no conversation persisted yet")

// ConversationAPI is the remote conversation record store.
type ConversationAPI interface {
	CreateConversation(ctx context.Context, userID string, metadata map[string]any) (string, error)
	GetConversation(ctx context.Context, userID, conversationID string) (model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]backend.ConversationSummary, error)
	DeleteConversation(ctx context.Context, userID, conversationID string) error
}

type recommendationInternal struct {
	Kind           string            `json:"kind"`
	Event          *model.Event      `json:"event,omitempty"`
	Restaurant     *model.Restaurant `json:"restaurant,omitempty"`
	RelevanceScore float64           `json:"relevance_score"`
	Explanation    string            `json:"explanation"`
}

type messageInternal struct {
	Role            string                   `json:"role"`
	Content         string                   `json:"content,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
	Recommendations []recommendationInternal `json:"recommendations,omitempty"`
}

type transcriptInternal struct {
	OwnerID  string            `json:"owner_id"`
	Messages []messageInternal `json:"messages"`
}

type ConversationUsecaseDeps struct {
	Store storage.Store
	API   ConversationAPI
}

// ConversationUsecase owns the locally persisted transcript and
// conversation id and reconciles them with the remote record. It is the
// only writer of those keys.
type ConversationUsecase struct {
	ConversationUsecaseDeps
	logger *slog.Logger
}

func NewConversationUsecase(deps ConversationUsecaseDeps, logger *slog.Logger) *ConversationUsecase {
	return &ConversationUsecase{
		ConversationUsecaseDeps: deps,
		logger:                  logger,
	}
}

// ConversationID returns the locally known id, empty when none exists yet.
func (c *ConversationUsecase) ConversationID(ctx context.Context) (string, error) {
	raw, err := c.Store.Get(ctx, storage.KeyConversationID)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load conversation id: %w", err)
	}
	return string(raw), nil
}

// SetConversationID persists a backend-assigned id, typically delivered in
// the first turn's message metadata.
func (c *ConversationUsecase) SetConversationID(ctx context.Context, conversationID string) error {
	known, err := c.ConversationID(ctx)
	if err != nil {
		return err
	}
	if conversationID == "" || conversationID == known {
		return nil
	}
	if err := c.Store.Set(ctx, storage.KeyConversationID, []byte(conversationID)); err != nil {
		return fmt.Errorf("failed to save conversation id: %w", err)
	}
	c.logger.Info("adopted conversation id", "conversation_id", conversationID)
	return nil
}

// SaveTranscript persists the canonical transcript.
func (c *ConversationUsecase) SaveTranscript(ctx context.Context, ownerID string, messages []model.Message) error {
	internal := transcriptInternal{
		OwnerID:  ownerID,
		Messages: make([]messageInternal, 0, len(messages)),
	}
	for _, msg := range messages {
		internal.Messages = append(internal.Messages, toMessageInternal(msg))
	}
	raw, err := json.Marshal(internal)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}
	if err := c.Store.Set(ctx, storage.KeyTranscript, raw); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// LoadLocal reads the persisted conversation without touching the backend.
func (c *ConversationUsecase) LoadLocal(ctx context.Context) (model.Conversation, error) {
	conversationID, err := c.ConversationID(ctx)
	if err != nil {
		return model.Conversation{}, err
	}

	raw, err := c.Store.Get(ctx, storage.KeyTranscript)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return model.Conversation{}, ErrNoConversation
		}
		return model.Conversation{}, fmt.Errorf("failed to load transcript: %w", err)
	}

	var internal transcriptInternal
	if err := json.Unmarshal(raw, &internal); err != nil {
		return model.Conversation{}, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	conv := model.Conversation{
		ConversationID: conversationID,
		OwnerID:        internal.OwnerID,
		Messages:       make([]model.Message, 0, len(internal.Messages)),
	}
	for _, mi := range internal.Messages {
		conv.Messages = append(conv.Messages, fromMessageInternal(mi))
	}
	return conv, nil
}

// Load returns the conversation for userID, preferring the remote record
// when it knows more than the local copy.
func (c *ConversationUsecase) Load(ctx context.Context, userID string) (model.Conversation, error) {
	local, localErr := c.LoadLocal(ctx)
	if localErr != nil && !errors.Is(localErr, ErrNoConversation) {
		return model.Conversation{}, localErr
	}

	if local.ConversationID != "" {
		remote, err := c.API.GetConversation(ctx, userID, local.ConversationID)
		if err != nil {
			c.logger.Warn("remote conversation fetch failed, keeping local copy", "error", err)
		} else if len(remote.Messages) > len(local.Messages) {
			if err := c.Adopt(ctx, remote); err != nil {
				return model.Conversation{}, err
			}
			return remote, nil
		}
	}

	if errors.Is(localErr, ErrNoConversation) {
		return model.Conversation{OwnerID: userID}, nil
	}
	return local, nil
}

// Adopt replaces the local conversation with the given one.
func (c *ConversationUsecase) Adopt(ctx context.Context, conv model.Conversation) error {
	if conv.ConversationID != "" {
		if err := c.Store.Set(ctx, storage.KeyConversationID, []byte(conv.ConversationID)); err != nil {
			return fmt.Errorf("failed to save conversation id: %w", err)
		}
	} else if err := c.Store.Delete(ctx, storage.KeyConversationID); err != nil {
		return fmt.Errorf("failed to clear conversation id: %w", err)
	}
	return c.SaveTranscript(ctx, conv.OwnerID, conv.Messages)
}

// StartNew drops the current conversation and asks the backend for a
// fresh record. A backend failure is not fatal, the first turn will
// assign an id instead.
func (c *ConversationUsecase) StartNew(ctx context.Context, userID string) (string, error) {
	if err := c.Reset(ctx); err != nil {
		return "", err
	}
	conversationID, err := c.API.CreateConversation(ctx, userID, nil)
	if err != nil {
		c.logger.Warn("failed to pre-create conversation, deferring to first turn", "error", err)
		return "", nil
	}
	if err := c.SetConversationID(ctx, conversationID); err != nil {
		return "", err
	}
	return conversationID, nil
}

// Reset drops the persisted conversation. Only explicit flows (logout
// without preservation, remote delete) call this.
func (c *ConversationUsecase) Reset(ctx context.Context) error {
	if err := c.Store.Delete(ctx, storage.KeyConversationID); err != nil {
		return fmt.Errorf("failed to clear conversation id: %w", err)
	}
	if err := c.Store.Delete(ctx, storage.KeyTranscript); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

// DeleteRemote removes the conversation record on the backend and locally.
func (c *ConversationUsecase) DeleteRemote(ctx context.Context, userID string) error {
	conversationID, err := c.ConversationID(ctx)
	if err != nil {
		return err
	}
	if conversationID != "" {
		if err := c.API.DeleteConversation(ctx, userID, conversationID); err != nil {
			return err
		}
	}
	return c.Reset(ctx)
}

// FetchRemote looks for a non-empty conversation under userID: first the
// known id, then the most recent record the backend lists.
func (c *ConversationUsecase) FetchRemote(ctx context.Context, userID, knownConversationID string) (model.Conversation, error) {
	if knownConversationID != "" {
		conv, err := c.API.GetConversation(ctx, userID, knownConversationID)
		if err == nil && !conv.Empty() {
			return conv, nil
		}
		if err != nil {
			c.logger.Info("known conversation not found under identity", "user_id", userID, "error", err)
		}
	}

	summaries, err := c.API.ListConversations(ctx, userID)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("failed to list conversations: %w", err)
	}
	for _, summary := range summaries {
		if summary.MessageCount == 0 {
			continue
		}
		conv, err := c.API.GetConversation(ctx, userID, summary.ConversationID)
		if err != nil {
			c.logger.Warn("failed to fetch listed conversation", "conversation_id", summary.ConversationID, "error", err)
			continue
		}
		if !conv.Empty() {
			return conv, nil
		}
	}
	return model.Conversation{}, ErrNoConversation
}

func toMessageInternal(msg model.Message) messageInternal {
	mi := messageInternal{
		Role:      string(msg.Role),
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	for _, item := range msg.Recommendations {
		mi.Recommendations = append(mi.Recommendations, recommendationInternal{
			Kind:           string(item.Kind),
			Event:          item.Event,
			Restaurant:     item.Restaurant,
			RelevanceScore: item.RelevanceScore,
			Explanation:    item.Explanation,
		})
	}
	return mi
}

func fromMessageInternal(mi messageInternal) model.Message {
	msg := model.Message{
		Role:      model.ParseRole(mi.Role),
		Content:   mi.Content,
		Timestamp: mi.Timestamp,
	}
	for _, ri := range mi.Recommendations {
		msg.Recommendations = append(msg.Recommendations, model.RecommendationItem{
			Kind:           model.RecommendationKind(ri.Kind),
			Event:          ri.Event,
			Restaurant:     ri.Restaurant,
			RelevanceScore: ri.RelevanceScore,
			Explanation:    ri.Explanation,
		})
	}
	return msg
}

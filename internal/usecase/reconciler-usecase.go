package usecase

import (
	"log/slog"
	"time"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
)

// TranscriptState is the value the reconciler folds stream events into.
// It is treated as immutable: Apply returns a new state and never mutates
// messages reachable from its input.
type TranscriptState struct {
	Messages []model.Message

	// ActiveIndex points at the assistant message of the open turn,
	// -1 when no turn is open. ActiveSince is that message's creation time.
	ActiveIndex int
	ActiveSince time.Time
}

func NewTranscriptState(messages []model.Message) TranscriptState {
	return TranscriptState{
		Messages:    messages,
		ActiveIndex: -1,
	}
}

// WithUserMessage appends the user's input before a turn is opened.
func (st TranscriptState) WithUserMessage(content string, now time.Time) TranscriptState {
	return st.appendMessage(model.Message{
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: now,
	})
}

func (st TranscriptState) appendMessage(msg model.Message) TranscriptState {
	messages := make([]model.Message, len(st.Messages), len(st.Messages)+1)
	copy(messages, st.Messages)
	st.Messages = append(messages, msg)
	return st
}

func (st TranscriptState) replaceMessage(i int, msg model.Message) TranscriptState {
	messages := make([]model.Message, len(st.Messages))
	copy(messages, st.Messages)
	messages[i] = msg
	st.Messages = messages
	return st
}

// TurnEffects are the side effects a message event carries next to the
// transcript mutation. ExtractionSummary is transient UI state and must
// never be persisted.
type TurnEffects struct {
	ConversationID    string
	ExtractionSummary string
	TrialExceeded     bool
	Usage             *model.UsageStats
}

// Reconciler folds the event stream of a turn into an ordered, deduplicated
// transcript. Backend delivery order is not guaranteed between the prose
// message and its recommendations, so every transition is idempotent in
// either order.
type Reconciler struct {
	recencyWindow time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

func NewReconciler(recencyWindow time.Duration, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		recencyWindow: recencyWindow,
		now:           time.Now,
		logger:        logger,
	}
}

// Apply is the reducer: (state, event) -> (state', effects).
func (r *Reconciler) Apply(st TranscriptState, ev model.StreamEvent) (TranscriptState, TurnEffects) {
	switch ev := ev.(type) {
	case model.StatusEvent:
		// advisory only, never persisted
		return st, TurnEffects{}
	case model.MessageEvent:
		return r.applyMessage(st, ev)
	case model.RecommendationEvent:
		return r.applyRecommendation(st, ev), TurnEffects{}
	case model.ErrorEvent:
		st = st.appendMessage(model.Message{
			Role:      model.RoleAssistant,
			Content:   ev.Content,
			Timestamp: r.now(),
		})
		return st, TurnEffects{}
	case model.DoneEvent:
		st.ActiveIndex = -1
		st.ActiveSince = time.Time{}
		return st, TurnEffects{}
	}
	return st, TurnEffects{}
}

func (r *Reconciler) applyMessage(st TranscriptState, ev model.MessageEvent) (TranscriptState, TurnEffects) {
	effects := TurnEffects{
		ConversationID:    ev.Meta.ConversationID,
		ExtractionSummary: ev.Meta.ExtractionSummary,
		TrialExceeded:     ev.Meta.TrialExceeded,
		Usage:             ev.Meta.Usage,
	}

	if st.ActiveIndex < 0 {
		now := r.now()
		st = st.appendMessage(model.Message{
			Role:      model.RoleAssistant,
			Content:   ev.Content,
			Timestamp: now,
		})
		st.ActiveIndex = len(st.Messages) - 1
		st.ActiveSince = now
		return st, effects
	}

	// A turn has at most one prose message; a repeat overwrites in place.
	msg := st.Messages[st.ActiveIndex]
	msg.Content = ev.Content
	return st.replaceMessage(st.ActiveIndex, msg), effects
}

func (r *Reconciler) applyRecommendation(st TranscriptState, ev model.RecommendationEvent) TranscriptState {
	now := r.now()
	key := ev.Item.StableID()

	if st.ActiveIndex >= 0 && now.Sub(st.ActiveSince) <= r.recencyWindow {
		msg := st.Messages[st.ActiveIndex]
		if key != "" {
			for _, existing := range msg.Recommendations {
				if existing.StableID() == key {
					r.logger.Info("dropped duplicate recommendation", "id", key)
					return st
				}
			}
		}
		recommendations := make([]model.RecommendationItem, len(msg.Recommendations), len(msg.Recommendations)+1)
		copy(recommendations, msg.Recommendations)
		msg.Recommendations = append(recommendations, ev.Item)
		return st.replaceMessage(st.ActiveIndex, msg)
	}

	// No active message, or the active one belongs to an already-closed
	// turn: a late arrival must not corrupt a message the user has read.
	st = st.appendMessage(model.Message{
		Role:            model.RoleAssistant,
		Timestamp:       now,
		Recommendations: []model.RecommendationItem{ev.Item},
	})
	st.ActiveIndex = len(st.Messages) - 1
	st.ActiveSince = now
	return st
}

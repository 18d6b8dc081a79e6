package usecase

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/backend"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
	in_memory "github.com/trackcqishibee-web/locallife-assistant/internal/storage/in-memory"
)

type fakeStreamer struct {
	turns    [][]model.StreamEvent
	requests []backend.TurnRequest
}

func (f *fakeStreamer) OpenTurn(ctx context.Context, req backend.TurnRequest) <-chan model.StreamEvent {
	var events []model.StreamEvent
	if len(f.requests) < len(f.turns) {
		events = f.turns[len(f.requests)]
	}
	f.requests = append(f.requests, req)

	ch := make(chan model.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

// brokenKeyStore fails reads of one key, everything else passes through.
type brokenKeyStore struct {
	storage.Store
	failKey string
}

func (s *brokenKeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if key == s.failKey {
		return nil, errors.New("state corrupted")
	}
	return s.Store.Get(ctx, key)
}

func newTestAssistant(input string, store storage.Store, streamer *fakeStreamer) (*AssistantUsecase, *ConversationUsecase, *bytes.Buffer) {
	logger := testLogger()
	conversations := NewConversationUsecase(ConversationUsecaseDeps{
		Store: store,
		API:   &fakeConversationAPI{},
	}, logger)
	identity := NewIdentityUsecase(IdentityUsecaseDeps{
		Store:         store,
		API:           &fakeIdentityAPI{},
		Conversations: conversations,
	}, logger)
	usage := NewUsageUsecase(UsageUsecaseDeps{
		Store: store,
		API:   &fakeUsageAPI{stats: model.UsageStats{TrialRemaining: 9}},
	}, config.Chat{TrialLimit: 10}, logger)

	out := &bytes.Buffer{}
	assistant := NewAssistantUsecase(AssistantUsecaseDeps{
		Identity:      identity,
		Conversations: conversations,
		Usage:         usage,
		Selection:     NewSelectionUsecase(logger),
		Extraction:    NewExtractionUsecase(config.Extraction{}, logger),
		Reconciler:    NewReconciler(10*time.Second, logger),
		Chat:          streamer,
	}, config.Backend{LLMProvider: "openai"}, logger, strings.NewReader(input), out)
	return assistant, conversations, out
}

func TestRunFullTurn(t *testing.T) {
	streamer := &fakeStreamer{
		turns: [][]model.StreamEvent{{
			model.StatusEvent{Content: "Searching events..."},
			model.MessageEvent{
				Content: "Found some shows.",
				Meta:    model.MessageMeta{ConversationID: "conv-1"},
			},
			model.RecommendationEvent{Item: eventItem("ev-1", "Blue Note")},
			model.DoneEvent{},
		}},
	}
	assistant, conversations, out := newTestAssistant(
		"Chicago\nmusic\nwhat's happening tonight?\n/quit\n",
		in_memory.NewStore(), streamer,
	)

	if err := assistant.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(streamer.requests) != 1 {
		t.Fatalf("turns = %d, want 1", len(streamer.requests))
	}
	req := streamer.requests[0]
	if req.Message != "what's happening tonight?" || !req.IsInitialTurn || req.ConversationID != "" {
		t.Errorf("request = %+v", req)
	}

	if len(assistant.state.Messages) != 2 {
		t.Fatalf("transcript = %d messages, want user + assistant", len(assistant.state.Messages))
	}
	reply := assistant.state.Messages[1]
	if reply.Content != "Found some shows." || len(reply.Recommendations) != 1 {
		t.Errorf("assistant message = %+v", reply)
	}

	known, err := conversations.ConversationID(context.Background())
	if err != nil || known != "conv-1" {
		t.Errorf("conversation id = %q, err = %v", known, err)
	}
	if !strings.Contains(out.String(), "Blue Note") {
		t.Error("card not rendered")
	}
}

func TestRunConversationIDFailureLeavesTranscriptUntouched(t *testing.T) {
	streamer := &fakeStreamer{}
	store := &brokenKeyStore{
		Store:   in_memory.NewStore(),
		failKey: storage.KeyConversationID,
	}
	assistant, _, out := newTestAssistant(
		"Chicago\nmusic\nwhat's on?\n/quit\n",
		store, streamer,
	)

	if err := assistant.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(streamer.requests) != 0 {
		t.Errorf("turn opened despite state failure: %d", len(streamer.requests))
	}
	if len(assistant.state.Messages) != 0 {
		t.Errorf("dangling user message left in transcript: %+v", assistant.state.Messages)
	}
	if !strings.Contains(out.String(), "Error:") {
		t.Error("failure not surfaced to the user")
	}
}

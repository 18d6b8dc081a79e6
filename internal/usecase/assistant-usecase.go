package usecase

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/backend"
	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/pkg/local"
)

const (
	CommandHelp          = "/help"
	CommandLogin         = "/login"
	CommandLogout        = "/logout"
	CommandRegister      = "/register"
	CommandCity          = "/city"
	CommandCategory      = "/category"
	CommandProvider      = "/provider"
	CommandHistory       = "/history"
	CommandConversations = "/conversations"
	CommandNew           = "/new"
	CommandDelete        = "/delete"
	CommandUsage         = "/usage"
	CommandQuit          = "/quit"
)

// ChatStreamer opens one chat turn against the backend.
type ChatStreamer interface {
	OpenTurn(ctx context.Context, req backend.TurnRequest) <-chan model.StreamEvent
}

type AssistantUsecaseDeps struct {
	Identity      *IdentityUsecase
	Conversations *ConversationUsecase
	Usage         *UsageUsecase
	Selection     *SelectionUsecase
	Extraction    *ExtractionUsecase
	Reconciler    *Reconciler
	Chat          ChatStreamer
}

// AssistantUsecase is the interactive session. It owns the in-memory
// transcript state, routes commands, and drives the per-turn event loop.
type AssistantUsecase struct {
	AssistantUsecaseDeps
	cfg      config.Backend
	language local.Language
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer

	identity model.Identity
	state    TranscriptState
	provider string
}

func NewAssistantUsecase(deps AssistantUsecaseDeps, cfg config.Backend, logger *slog.Logger, in io.Reader, out io.Writer) *AssistantUsecase {
	return &AssistantUsecase{
		AssistantUsecaseDeps: deps,
		cfg:                  cfg,
		language:             local.Eng,
		logger:               logger,
		in:                   in,
		out:                  out,
		provider:             cfg.LLMProvider,
	}
}

// Run restores the session and enters the read loop. It returns when the
// input closes or the user quits.
func (s *AssistantUsecase) Run(ctx context.Context) error {
	identity, err := s.Identity.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore identity: %w", err)
	}
	s.identity = identity

	conv, err := s.Conversations.Load(ctx, identity.ActiveID())
	if err != nil {
		s.logger.Warn("failed to restore conversation, starting empty", "error", err)
		conv = model.Conversation{OwnerID: identity.ActiveID()}
	}
	s.state = NewTranscriptState(conv.Messages)

	s.printf("LocalLife assistant. Signed in as %s.\n", identity.ActiveID())
	if len(conv.Messages) > 0 {
		s.printf("Restored %d messages. Use %s to review them.\n", len(conv.Messages), CommandHistory)
	}
	s.printf("Type %s for commands, %s to exit.\n\n", CommandHelp, CommandQuit)
	s.printf("%s\n", s.Selection.Prompt())

	scanner := bufio.NewScanner(s.in)
	for {
		s.printf("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := s.handleCommand(ctx, input)
			if err != nil {
				s.printf("Error: %v\n", err)
				s.logger.Error("command failed", "input", input, "error", err)
			}
			if quit {
				break
			}
			continue
		}

		s.handleInput(ctx, input)
	}

	if err := s.Conversations.SaveTranscript(ctx, s.identity.ActiveID(), s.state.Messages); err != nil {
		s.logger.Error("failed to save transcript on exit", "error", err)
		return err
	}
	s.printf("Goodbye!\n")
	return scanner.Err()
}

// handleInput routes free text through the guided selection gate and, once
// the gate is open, runs a full chat turn.
func (s *AssistantUsecase) handleInput(ctx context.Context, input string) {
	result := s.Selection.Submit(input)
	switch result.Outcome {
	case OutcomeSelectionUpdated, OutcomeClarify:
		s.printf("%s\n", result.Prompt)
		return
	case OutcomeQuery:
		s.runTurn(ctx, result.Query)
	}
}

func (s *AssistantUsecase) runTurn(ctx context.Context, query TaggedQuery) {
	isInitial := !s.hasUserTurn()
	if isInitial && s.Extraction.Enabled() {
		prefs, err := s.Extraction.ExtractPreferences(ctx, query.Text)
		if err != nil {
			s.logger.Warn("preference extraction failed, using keyword fallback", "error", err)
			prefs = s.Extraction.Fallback(query.Text)
		}
		if summary := prefs.Summary(); summary != "" {
			s.printf("Looking for: %s\n", summary)
		}
	}

	conversationID, err := s.Conversations.ConversationID(ctx)
	if err != nil {
		s.printf("Error: %v\n", err)
		return
	}

	prior := s.state.Messages
	s.state = s.state.WithUserMessage(query.Text, time.Now())

	events := s.Chat.OpenTurn(ctx, backend.TurnRequest{
		Message:        query.Text,
		PriorTurns:     prior,
		LLMProvider:    s.provider,
		UserID:         s.identity.ActiveID(),
		ConversationID: conversationID,
		IsInitialTurn:  isInitial,
	})

	var (
		trialExceeded bool
		turnStats     *model.UsageStats
	)
	for ev := range events {
		next, effects := s.Reconciler.Apply(s.state, ev)
		s.state = next
		s.render(ev)

		if effects.ConversationID != "" {
			if err := s.Conversations.SetConversationID(ctx, effects.ConversationID); err != nil {
				s.logger.Error("failed to persist conversation id", "error", err)
			}
		}
		if effects.ExtractionSummary != "" {
			s.printf("(looking for: %s)\n", effects.ExtractionSummary)
		}
		if effects.Usage != nil {
			turnStats = effects.Usage
		}
		if effects.TrialExceeded {
			trialExceeded = true
		}
	}

	s.finishTurn(ctx, trialExceeded, turnStats)
}

// finishTurn handles trial bookkeeping and persists the turn. Saving the
// transcript and refreshing the usage mirror are independent, so they run
// concurrently.
func (s *AssistantUsecase) finishTurn(ctx context.Context, trialExceeded bool, turnStats *model.UsageStats) {
	if trialExceeded {
		if err := s.Usage.HardStop(ctx); err != nil {
			s.logger.Error("failed to record trial stop", "error", err)
		}
		s.printf("\n%s\n", MessageTrialExceeded.Text(s.language))
	} else if turnStats != nil {
		nudge, err := s.Usage.Observe(ctx, *turnStats)
		if err != nil {
			s.logger.Error("failed to evaluate usage", "error", err)
		}
		if nudge {
			s.printf("\n%s\n", MessageTrialWarning.Format(s.language, turnStats.TrialRemaining))
		}
	}

	var wg conc.WaitGroup
	wg.Go(func() {
		if err := s.Conversations.SaveTranscript(ctx, s.identity.ActiveID(), s.state.Messages); err != nil {
			s.logger.Error("failed to save transcript", "error", err)
		}
	})
	wg.Go(func() {
		if _, err := s.Usage.Refresh(ctx, s.identity.ActiveID()); err != nil {
			s.logger.Warn("failed to refresh usage mirror", "error", err)
		}
	})
	wg.Wait()
}

func (s *AssistantUsecase) handleCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	command, args := parts[0], parts[1:]

	switch command {
	case CommandQuit, "/exit":
		return true, nil

	case CommandHelp:
		s.printHelp()

	case CommandLogin:
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <token>", CommandLogin)
		}
		identity, err := s.Identity.Login(ctx, args[0])
		if err != nil {
			return false, err
		}
		s.switchIdentity(ctx, identity)
		s.printf("Logged in as %s.\n", identity.ActiveID())

	case CommandRegister:
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <token>", CommandRegister)
		}
		identity, err := s.Identity.Register(ctx, args[0])
		if err != nil {
			return false, err
		}
		s.switchIdentity(ctx, identity)
		s.printf("Registered as %s. Your conversation history is preserved.\n", identity.ActiveID())

	case CommandLogout:
		preserve := len(args) == 1 && args[0] == "--keep"
		identity, err := s.Identity.Logout(ctx, preserve)
		if err != nil {
			return false, err
		}
		s.switchIdentity(ctx, identity)
		s.printf("Logged out. Continuing as %s.\n", identity.ActiveID())

	case CommandCity:
		if len(args) == 0 {
			return false, fmt.Errorf("usage: %s <name>", CommandCity)
		}
		name, ok := s.Selection.SelectCity(strings.Join(args, " "))
		if !ok {
			return false, fmt.Errorf("unknown city %q", strings.Join(args, " "))
		}
		s.printf("City set to %s.\n%s\n", name, s.Selection.Prompt())

	case CommandCategory:
		if len(args) == 0 {
			return false, fmt.Errorf("usage: %s <name>", CommandCategory)
		}
		name, ok := s.Selection.SelectEventType(strings.Join(args, " "))
		if !ok {
			return false, fmt.Errorf("unknown category %q", strings.Join(args, " "))
		}
		s.printf("Category set to %s.\n%s\n", name, s.Selection.Prompt())

	case CommandProvider:
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <name>", CommandProvider)
		}
		s.provider = args[0]
		s.printf("LLM provider set to %s.\n", s.provider)

	case CommandHistory:
		s.printHistory()

	case CommandConversations:
		return false, s.printConversations(ctx)

	case CommandNew:
		if _, err := s.Conversations.StartNew(ctx, s.identity.ActiveID()); err != nil {
			return false, err
		}
		s.state = NewTranscriptState(nil)
		s.Selection.Reset()
		s.printf("Started a new conversation.\n%s\n", s.Selection.Prompt())

	case CommandDelete:
		if err := s.Conversations.DeleteRemote(ctx, s.identity.ActiveID()); err != nil {
			return false, err
		}
		s.state = NewTranscriptState(nil)
		s.printf("Conversation deleted.\n")

	case CommandUsage:
		stats, err := s.Usage.Refresh(ctx, s.identity.ActiveID())
		if err != nil {
			s.logger.Warn("usage refresh failed, showing cached stats", "error", err)
			stats, err = s.Usage.Cached(ctx)
			if err != nil {
				return false, err
			}
		}
		s.printUsage(stats)

	default:
		s.printf("Unknown command %s. Type %s for commands.\n", command, CommandHelp)
	}
	return false, nil
}

func (s *AssistantUsecase) switchIdentity(ctx context.Context, identity model.Identity) {
	s.identity = identity
	if err := s.Usage.ResetPrompt(ctx); err != nil {
		s.logger.Error("failed to reset registration prompt", "error", err)
	}
	conv, err := s.Conversations.LoadLocal(ctx)
	if err != nil {
		s.state = NewTranscriptState(nil)
		s.Selection.Reset()
		return
	}
	s.state = NewTranscriptState(conv.Messages)
}

func (s *AssistantUsecase) render(ev model.StreamEvent) {
	switch ev := ev.(type) {
	case model.StatusEvent:
		s.printf("· %s\n", ev.Content)
	case model.MessageEvent:
		if ev.Content != "" {
			s.printf("\nAssistant: %s\n", ev.Content)
		}
	case model.RecommendationEvent:
		s.printCard(ev.Item)
	case model.ErrorEvent:
		s.printf("\nAssistant: %s\n", ev.Content)
	case model.DoneEvent:
		s.printf("\n")
	}
}

func (s *AssistantUsecase) printCard(item model.RecommendationItem) {
	s.printf("\n  ★ %.0f%%  %s\n", item.RelevanceScore*100, item.Title())
	switch item.Kind {
	case model.KindEvent:
		if ev := item.Event; ev != nil {
			s.printf("     %s · %s, %s\n", ev.StartDatetime, ev.VenueName, ev.VenueCity)
			if ev.IsFree {
				s.printf("     Free\n")
			} else if ev.TicketMinPrice != "" {
				s.printf("     From %s\n", ev.TicketMinPrice)
			}
		}
	case model.KindRestaurant:
		if r := item.Restaurant; r != nil {
			s.printf("     %s · %s · rated %.1f\n", r.CuisineType, r.PriceRange, r.Rating)
		}
	}
	if item.Explanation != "" {
		s.printf("     %s\n", item.Explanation)
	}
}

func (s *AssistantUsecase) printHistory() {
	if len(s.state.Messages) == 0 {
		s.printf("No messages yet.\n")
		return
	}
	for _, msg := range s.state.Messages {
		speaker := "You"
		if msg.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		if msg.Content != "" {
			s.printf("%s: %s\n", speaker, msg.Content)
		}
		for _, item := range msg.Recommendations {
			s.printf("  ★ %s\n", item.Title())
		}
	}
}

func (s *AssistantUsecase) printConversations(ctx context.Context) error {
	summaries, err := s.Conversations.API.ListConversations(ctx, s.identity.ActiveID())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		s.printf("No conversations on record.\n")
		return nil
	}
	current, err := s.Conversations.ConversationID(ctx)
	if err != nil {
		return err
	}
	for _, summary := range summaries {
		marker := " "
		if summary.ConversationID == current {
			marker = "*"
		}
		s.printf("%s %s  %d messages  %s\n",
			marker, summary.ConversationID, summary.MessageCount, summary.LastMessageAt)
	}
	return nil
}

func (s *AssistantUsecase) printUsage(stats model.UsageStats) {
	s.printf("Interactions: %d\n", stats.InteractionCount)
	if stats.IsRegistered {
		s.printf("Registered account, no trial limit.\n")
		return
	}
	s.printf("Trial interactions remaining: %d\n", stats.TrialRemaining)
}

func (s *AssistantUsecase) printHelp() {
	s.printf("Available commands:\n")
	s.printf("  %s                - Show this help message\n", CommandHelp)
	s.printf("  %s <token>       - Sign in with an auth token\n", CommandLogin)
	s.printf("  %s <token>    - Register and keep your history\n", CommandRegister)
	s.printf("  %s [--keep]     - Return to an anonymous session\n", CommandLogout)
	s.printf("  %s <name>        - Pick a city directly\n", CommandCity)
	s.printf("  %s <name>    - Pick a category directly\n", CommandCategory)
	s.printf("  %s <name>    - Switch the LLM provider\n", CommandProvider)
	s.printf("  %s             - Print the conversation so far\n", CommandHistory)
	s.printf("  %s       - List conversations on record\n", CommandConversations)
	s.printf("  %s                 - Start a new conversation\n", CommandNew)
	s.printf("  %s              - Delete the current conversation\n", CommandDelete)
	s.printf("  %s               - Show interaction counters\n", CommandUsage)
	s.printf("  %s                - Exit\n", CommandQuit)
}

func (s *AssistantUsecase) hasUserTurn() bool {
	for _, msg := range s.state.Messages {
		if msg.Role == model.RoleUser {
			return true
		}
	}
	return false
}

func (s *AssistantUsecase) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

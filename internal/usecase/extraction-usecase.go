package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/trackcqishibee-web/locallife-assistant/config"
)

// Preferences are the fields extractable from a first free-text message.
type Preferences struct {
	Location  string `json:"location"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	EventType string `json:"event_type"`
}

// Summary renders the transient one-line digest shown above the reply.
func (p Preferences) Summary() string {
	var parts []string
	if p.Location != "" {
		parts = append(parts, "in "+p.Location)
	}
	if p.Date != "" {
		parts = append(parts, p.Date)
	}
	if p.Time != "" {
		parts = append(parts, p.Time)
	}
	if p.EventType != "" {
		parts = append(parts, p.EventType)
	}
	return strings.Join(parts, " • ")
}

const extractionSystemPrompt = "You are a precise preference extraction assistant. Return only valid JSON objects."

const extractionPromptFormat = `Extract the following from the user's message.

User message: %q

Return a JSON object with these fields:
1. "location": city name or "none"
2. "date": date or relative date ("today", "this weekend") or "none"
3. "time": time preference or "none"
4. "event_type": broad category (music, food, art, sports, networking, comedy, theater, festival, party) or "none"

Only extract information that is clearly mentioned. For neighborhoods like
"Brooklyn" return the main city ("New York"). Return only the JSON object.`

// keywordEventTypes maps common synonyms to catalog categories for the
// offline fallback.
var keywordEventTypes = map[string]string{
	"concert": "music", "gig": "music", "jazz": "music",
	"restaurant": "food", "dining": "food", "cuisine": "food",
	"gallery": "art", "museum": "art", "exhibition": "art",
	"fitness": "sports", "gym": "sports", "workout": "sports",
	"standup": "comedy",
	"play":    "theater", "show": "theater",
	"fair": "festival", "market": "festival",
	"club": "party", "celebration": "party",
	"business": "networking", "professional": "networking",
}

// ExtractionUsecase pulls location/category preferences out of the first
// free-text message of a conversation. The LLM path is optional; the
// keyword fallback always works.
type ExtractionUsecase struct {
	cfg    config.Extraction
	logger *slog.Logger
}

func NewExtractionUsecase(cfg config.Extraction, logger *slog.Logger) *ExtractionUsecase {
	return &ExtractionUsecase{
		cfg:    cfg,
		logger: logger,
	}
}

func (e *ExtractionUsecase) Enabled() bool {
	return e.cfg.OpenAIAPIKey != ""
}

// ExtractPreferences asks the configured model for the structured
// preferences. Callers fall back to Fallback on any error.
func (e *ExtractionUsecase) ExtractPreferences(ctx context.Context, message string) (Preferences, error) {
	if !e.Enabled() {
		return Preferences{}, fmt.Errorf("extraction model is not configured")
	}

	clientConfig := openai.DefaultConfig(e.cfg.OpenAIAPIKey)
	if e.cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = e.cfg.OpenAIBaseURL
	}
	c := openai.NewClientWithConfig(clientConfig)

	req := openai.ChatCompletionRequest{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPromptFormat, message)},
		},
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to extract preferences: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Preferences{}, fmt.Errorf("empty extraction response")
	}

	raw := resp.Choices[0].Message.Content
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Preferences{}, fmt.Errorf("extraction response is not JSON: %q", raw)
	}

	var prefs Preferences
	if err := json.Unmarshal([]byte(raw[start:end+1]), &prefs); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	prefs = normalizePreferences(prefs)
	e.logger.Info("extracted preferences", "location", prefs.Location, "event_type", prefs.EventType)
	return prefs, nil
}

// Fallback derives preferences from the known lists and keyword synonyms
// without calling out.
func (e *ExtractionUsecase) Fallback(message string) Preferences {
	var prefs Preferences
	if city, ok := matchKnown(message, KnownCities); ok {
		prefs.Location = city
	}
	if eventType, ok := matchKnown(message, KnownEventTypes); ok {
		prefs.EventType = eventType
	} else {
		for token := range tokenSet(strings.ToLower(message)) {
			if eventType, ok := keywordEventTypes[token]; ok {
				prefs.EventType = eventType
				break
			}
		}
	}
	return prefs
}

func normalizePreferences(p Preferences) Preferences {
	norm := func(s string) string {
		s = strings.TrimSpace(s)
		if strings.EqualFold(s, "none") {
			return ""
		}
		return s
	}
	return Preferences{
		Location:  norm(p.Location),
		Date:      norm(p.Date),
		Time:      norm(p.Time),
		EventType: norm(p.EventType),
	}
}

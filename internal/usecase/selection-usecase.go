package usecase

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
	"github.com/trackcqishibee-web/locallife-assistant/pkg/local"
)

// KnownCities is the catalog of cities the backend has events for.
var KnownCities = []string{
	"New York",
	"Los Angeles",
	"San Francisco",
	"Chicago",
	"Boston",
	"Seattle",
	"Miami",
	"Austin",
	"Denver",
	"Portland",
	"Phoenix",
	"Las Vegas",
	"Atlanta",
}

// KnownEventTypes is the catalog of recommendation categories.
var KnownEventTypes = []string{
	"music",
	"food",
	"art",
	"sports",
	"networking",
	"comedy",
	"theater",
	"festival",
	"party",
}

// categoryKeywords flag category intent for the rejection heuristic. They
// are synonyms, not selectable values: "concert" signals a category-shaped
// input without matching the known list.
var categoryKeywords = []string{
	"concert", "gig", "jazz",
	"restaurant", "dining", "cuisine",
	"gallery", "museum", "exhibition",
	"fitness", "gym", "workout",
	"standup",
	"play", "show",
	"fair", "market",
	"club", "celebration",
	"business", "professional",
}

type SelectionOutcome int

const (
	// OutcomeSelectionUpdated: the input resolved a city or category.
	OutcomeSelectionUpdated SelectionOutcome = iota
	// OutcomeClarify: the input was rejected; Prompt asks the user again.
	OutcomeClarify
	// OutcomeQuery: the input is a search query ready for the backend.
	OutcomeQuery
)

// TaggedQuery is free text annotated with the current selection.
type TaggedQuery struct {
	Text      string
	City      string
	EventType string
}

type SelectionResult struct {
	Outcome SelectionOutcome
	Prompt  string
	Query   TaggedQuery
}

// SelectionUsecase resolves a city and a category before any free text is
// forwarded to the backend. Transitions are linear; going back requires an
// explicit re-selection, never happens automatically.
type SelectionUsecase struct {
	cities     []string
	eventTypes []string
	state      model.SelectionState
	language   local.Language
	logger     *slog.Logger
}

func NewSelectionUsecase(logger *slog.Logger) *SelectionUsecase {
	return &SelectionUsecase{
		cities:     KnownCities,
		eventTypes: KnownEventTypes,
		language:   local.Eng,
		logger:     logger,
	}
}

func (s *SelectionUsecase) State() model.SelectionState {
	return s.state
}

// SelectCity is the explicit chip-tap path. The name still has to be a
// known city.
func (s *SelectionUsecase) SelectCity(name string) (string, bool) {
	city, ok := matchKnown(name, s.cities)
	if !ok {
		return "", false
	}
	s.state.City = city
	return city, true
}

func (s *SelectionUsecase) SelectEventType(name string) (string, bool) {
	eventType, ok := matchKnown(name, s.eventTypes)
	if !ok {
		return "", false
	}
	s.state.EventType = eventType
	return eventType, true
}

// Reset clears the selection for a user-initiated re-selection.
func (s *SelectionUsecase) Reset() {
	s.state = model.SelectionState{}
}

// Prompt returns the opening question for the current step.
func (s *SelectionUsecase) Prompt() string {
	switch {
	case s.state.City == "":
		return MessageAskCity.Format(s.language, joinList(s.cities))
	case s.state.EventType == "":
		return MessageAskEventType.Format(s.language, s.state.City, joinList(s.eventTypes))
	default:
		return MessageSelectionReady.Format(s.language, s.state.EventType, s.state.City)
	}
}

// Submit classifies one line of free text. Until the selection is complete
// nothing is ever forwarded as a query.
func (s *SelectionUsecase) Submit(input string) SelectionResult {
	trimmed := strings.TrimSpace(input)

	switch {
	case s.state.City == "":
		if city, ok := matchKnown(trimmed, s.cities); ok {
			s.state.City = city
			s.logger.Info("city selected", "city", city)
			return SelectionResult{
				Outcome: OutcomeSelectionUpdated,
				Prompt:  MessageAskEventType.Format(s.language, city, joinList(s.eventTypes)),
			}
		}
		if cityLike(trimmed) {
			return s.clarify(MessageUnknownCity.Format(s.language, trimmed, joinList(s.cities)))
		}
		return s.clarify(MessageAskCity.Format(s.language, joinList(s.cities)))

	case s.state.EventType == "":
		if eventType, ok := matchKnown(trimmed, s.eventTypes); ok {
			s.state.EventType = eventType
			s.logger.Info("event type selected", "event_type", eventType)
			return SelectionResult{
				Outcome: OutcomeSelectionUpdated,
				Prompt:  MessageSelectionReady.Format(s.language, eventType, s.state.City),
			}
		}
		if categoryLike(trimmed) {
			return s.clarify(MessageUnknownEventType.Format(s.language, trimmed, joinList(s.eventTypes)))
		}
		return s.clarify(MessageAskEventType.Format(s.language, s.state.City, joinList(s.eventTypes)))
	}

	// Ready. Category is sticky: a query naming another known category
	// re-points the selection before the query goes out. The city is never
	// re-derived from free text.
	if eventType, ok := matchKnown(trimmed, s.eventTypes); ok && eventType != s.state.EventType {
		s.logger.Info("event type switched", "from", s.state.EventType, "to", eventType)
		s.state.EventType = eventType
	} else if !ok {
		if _, cityMatched := matchKnown(trimmed, s.cities); !cityMatched {
			// A near-miss like "Seatle" or "musik" must not turn into a
			// nonsense backend query.
			if cityLike(trimmed) {
				return s.clarify(MessageUnknownCity.Format(s.language, trimmed, joinList(s.cities)))
			}
			if categoryLike(trimmed) {
				return s.clarify(MessageUnknownEventType.Format(s.language, trimmed, joinList(s.eventTypes)))
			}
		}
	}

	return SelectionResult{
		Outcome: OutcomeQuery,
		Query: TaggedQuery{
			Text:      trimmed,
			City:      s.state.City,
			EventType: s.state.EventType,
		},
	}
}

func (s *SelectionUsecase) clarify(prompt string) SelectionResult {
	return SelectionResult{
		Outcome: OutcomeClarify,
		Prompt:  prompt,
	}
}

// matchKnown matches free text against a list of known values: exact
// case-insensitive match first, then all words of a multi-word value in any
// order, then a single-word value as a whole token, then the normalized
// underscore form that identifiers embedded in prose use.
func matchKnown(input string, known []string) (string, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return "", false
	}

	for _, k := range known {
		if trimmed == strings.ToLower(k) {
			return k, true
		}
	}

	tokens := tokenSet(trimmed)

	for _, k := range known {
		words := strings.Fields(strings.ToLower(k))
		if len(words) < 2 {
			continue
		}
		all := true
		for _, w := range words {
			if !tokens[w] {
				all = false
				break
			}
		}
		if all {
			return k, true
		}
	}

	for _, k := range known {
		words := strings.Fields(strings.ToLower(k))
		if len(words) != 1 {
			continue
		}
		if tokens[words[0]] {
			return k, true
		}
	}

	for _, k := range known {
		if !strings.Contains(k, " ") {
			continue
		}
		normalized := strings.ReplaceAll(strings.ToLower(k), " ", "_")
		if tokens[normalized] || strings.Contains(trimmed, normalized) {
			return k, true
		}
	}

	return "", false
}

func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// cityLike reports whether the whole input is a title-case one or two word
// span, the shape a bare city mention has.
func cityLike(input string) bool {
	words := strings.Fields(input)
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
	}
	return true
}

// categoryLike reports whether a short input reads as a bare category
// mention: at most two tokens, either containing a category keyword or
// consisting of a single unmatched word.
func categoryLike(input string) bool {
	words := strings.Fields(strings.ToLower(input))
	if len(words) == 0 || len(words) > 2 {
		return false
	}
	if len(words) == 1 {
		return true
	}
	for _, w := range words {
		for _, kw := range categoryKeywords {
			if w == kw {
				return true
			}
		}
	}
	return false
}

func joinList(values []string) string {
	return strings.Join(values, ", ")
}

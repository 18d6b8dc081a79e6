package usecase

import (
	"testing"

	"github.com/trackcqishibee-web/locallife-assistant/config"
)

func TestExtractionDisabledWithoutKey(t *testing.T) {
	e := NewExtractionUsecase(config.Extraction{}, testLogger())
	if e.Enabled() {
		t.Error("extraction enabled without an API key")
	}
}

func TestFallbackDerivesCityAndCategory(t *testing.T) {
	e := NewExtractionUsecase(config.Extraction{}, testLogger())

	tests := []struct {
		message   string
		location  string
		eventType string
	}{
		{"jazz concerts in Chicago", "Chicago", "music"},
		{"best dining in new york", "New York", "food"},
		{"standup tonight", "", "comedy"},
		{"something fun", "", ""},
	}
	for _, tt := range tests {
		prefs := e.Fallback(tt.message)
		if prefs.Location != tt.location || prefs.EventType != tt.eventType {
			t.Errorf("Fallback(%q) = %+v, want location %q, event type %q",
				tt.message, prefs, tt.location, tt.eventType)
		}
	}
}

func TestNormalizePreferencesDropsNone(t *testing.T) {
	prefs := normalizePreferences(Preferences{
		Location:  "None",
		Date:      " this weekend ",
		Time:      "none",
		EventType: "music",
	})
	if prefs.Location != "" || prefs.Time != "" {
		t.Errorf("none not dropped: %+v", prefs)
	}
	if prefs.Date != "this weekend" || prefs.EventType != "music" {
		t.Errorf("values mangled: %+v", prefs)
	}
}

func TestPreferencesSummary(t *testing.T) {
	p := Preferences{Location: "Austin", Date: "saturday", EventType: "music"}
	want := "in Austin • saturday • music"
	if got := p.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if (Preferences{}).Summary() != "" {
		t.Error("empty preferences produced a summary")
	}
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
)

func jsonResponse(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(body)); err != nil {
			t.Error(err)
		}
	}
}

func TestVerifyToken(t *testing.T) {
	var captured verifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/verify" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Error(err)
		}
		jsonResponse(t, `{"success": true, "user_id": "user-reg"}`)(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	userID, err := client.VerifyToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user-reg" || captured.Token != "tok-1" {
		t.Errorf("userID = %q, captured = %+v", userID, captured)
	}
}

func TestVerifyTokenRejected(t *testing.T) {
	server := httptest.NewServer(jsonResponse(t, `{"success": false}`))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.VerifyToken(context.Background(), "bad"); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestRegisterWithToken(t *testing.T) {
	var captured registerRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/register-with-token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Error(err)
		}
		jsonResponse(t, `{"success": true, "user_id": "user-reg"}`)(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	userID, err := client.RegisterWithToken(context.Background(), "tok-1", "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if userID != "user-reg" {
		t.Errorf("userID = %q", userID)
	}
	if captured.Token != "tok-1" || captured.AnonymousUserID != "anon_u1" {
		t.Errorf("captured = %+v", captured)
	}
}

func TestGetConversationDecodesNestedCards(t *testing.T) {
	body := `{
		"conversation_id": "conv-1",
		"user_id": "anon_u1",
		"messages": [
			{"role": "user", "content": "jazz tonight"},
			{"role": "assistant", "content": "found some", "recommendations": [
				{"type": "event", "data": {"event_id": "ev-1", "title": "Blue Note"}, "relevance_score": 0.9}
			]}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/conversations/anon_u1/conv-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		jsonResponse(t, body)(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	conv, err := client.GetConversation(context.Background(), "anon_u1", "conv-1")
	if err != nil {
		t.Fatal(err)
	}
	if conv.ConversationID != "conv-1" || conv.OwnerID != "anon_u1" {
		t.Errorf("conversation = %+v", conv)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("messages = %d", len(conv.Messages))
	}
	cards := conv.Messages[1].Recommendations
	if len(cards) != 1 || cards[0].StableID() != "ev-1" || cards[0].Kind != model.KindEvent {
		t.Errorf("cards = %+v", cards)
	}
}

func TestListConversations(t *testing.T) {
	server := httptest.NewServer(jsonResponse(t,
		`{"conversations": [{"conversation_id": "conv-1", "message_count": 4, "preview": "jazz tonight"}]}`))
	defer server.Close()

	client := newTestClient(server.URL)
	summaries, err := client.ListConversations(context.Background(), "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].ConversationID != "conv-1" || summaries[0].MessageCount != 4 {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestGetUsage(t *testing.T) {
	server := httptest.NewServer(jsonResponse(t,
		`{"interaction_count": 7, "trial_remaining": 3, "is_registered": false}`))
	defer server.Close()

	client := newTestClient(server.URL)
	stats, err := client.GetUsage(context.Background(), "anon_u1")
	if err != nil {
		t.Fatal(err)
	}
	want := model.UsageStats{InteractionCount: 7, TrialRemaining: 3}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestDoJSONNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.GetConversation(context.Background(), "anon_u1", "missing"); err == nil {
		t.Fatal("expected error for 404")
	}
}

package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/metric"

	openai_tools "github.com/trackcqishibee-web/locallife-assistant/pkg/openai-tools"

	"github.com/trackcqishibee-web/locallife-assistant/internal/model"
)

// TurnRequest describes one chat turn.
type TurnRequest struct {
	Message        string
	PriorTurns     []model.Message
	LLMProvider    string
	UserID         string
	ConversationID string
	IsInitialTurn  bool
}

// OpenTurn issues one chat turn and demultiplexes the response stream into
// typed events on the returned channel. Events are delivered in byte
// arrival order. The channel always ends with exactly one DoneEvent, also
// when the transport fails mid-stream, and is closed after it.
func (c *Client) OpenTurn(ctx context.Context, req TurnRequest) <-chan model.StreamEvent {
	events := make(chan model.StreamEvent)
	go c.streamTurn(ctx, req, events)
	return events
}

func (c *Client) streamTurn(ctx context.Context, turn TurnRequest, events chan<- model.StreamEvent) {
	defer close(events)

	ctx, span := c.tracer.Start(ctx, "chat_turn")
	defer span.End()
	start := time.Now()

	doneSent := false
	emit := func(ev model.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		c.logger.Error("chat stream failed", "error", msg)
		if emit(model.ErrorEvent{Content: msg}) && !doneSent {
			doneSent = emit(model.DoneEvent{})
		}
	}

	history := c.trimHistory(turn.PriorTurns)
	reqBody := chatRequest{
		Message:             turn.Message,
		ConversationHistory: history,
		LLMProvider:         turn.LLMProvider,
		UserID:              turn.UserID,
		ConversationID:      turn.ConversationID,
		IsInitialResponse:   turn.IsInitialTurn,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		fail("failed to marshal request: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat/stream", bytes.NewBuffer(jsonData))
	if err != nil {
		fail("failed to create request: %v", err)
		return
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fail("failed to send request: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fail("API error: %s - %s", resp.Status, string(body))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			fail("failed to parse stream frame: %v", err)
			return
		}

		switch frame.Type {
		case "status":
			if !emit(model.StatusEvent{Content: frame.Content}) {
				return
			}
		case "message":
			ev := model.MessageEvent{
				Content: frame.Content,
				Meta: model.MessageMeta{
					ConversationID:    frame.ConversationID,
					ExtractionSummary: frame.ExtractionSummary,
					TrialExceeded:     frame.TrialExceeded,
					Usage:             frame.UsageStats,
				},
			}
			if !emit(ev) {
				return
			}
			if frame.UsageStats != nil {
				c.recordUsage(ctx, *frame.UsageStats)
			}
		case "recommendation":
			if frame.Data == nil {
				c.logger.Warn("recommendation frame without payload")
				continue
			}
			item, err := frame.Data.toModel()
			if err != nil {
				fail("failed to decode recommendation: %v", err)
				return
			}
			if !emit(model.RecommendationEvent{Item: item}) {
				return
			}
		case "error":
			if !emit(model.ErrorEvent{Content: frame.Content}) {
				return
			}
		case "done":
			if !doneSent {
				doneSent = emit(model.DoneEvent{})
			}
			c.recordTurnDuration(ctx, time.Since(start))
			return
		default:
			c.logger.Warn("unknown stream frame type", "type", frame.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		fail("stream read failed: %v", err)
		return
	}
	// Stream ended without an explicit done frame.
	if !doneSent {
		emit(model.DoneEvent{})
	}
	c.recordTurnDuration(ctx, time.Since(start))
}

// trimHistory drops the oldest prior turns until the history fits the
// configured token budget.
func (c *Client) trimHistory(priorTurns []model.Message) []wireMessage {
	countable := make([]openai.ChatCompletionMessage, 0, len(priorTurns))
	kept := make([]model.Message, 0, len(priorTurns))
	for _, msg := range priorTurns {
		if msg.Content == "" {
			// recommendation-only entries carry no prose worth replaying
			continue
		}
		countable = append(countable, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
		kept = append(kept, msg)
	}

	trimHistory := func() {
		countable = countable[1:]
		kept = kept[1:]
		c.logger.Info("history trimmed due to token limit")
	}
	for len(countable) > 0 {
		tokenCount, err := openai_tools.CountToken(countable, c.cfg.HistoryTokenModel)
		if err != nil {
			c.logger.Warn("count token error", "error", err)
			trimHistory()
			continue
		}
		if tokenCount < c.cfg.HistoryTokenBudget {
			break
		}
		trimHistory()
	}

	history := make([]wireMessage, 0, len(kept))
	for _, msg := range kept {
		wm := wireMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if !msg.Timestamp.IsZero() {
			ts := msg.Timestamp
			wm.Timestamp = &ts
		}
		history = append(history, wm)
	}
	return history
}

func (c *Client) recordTurnDuration(ctx context.Context, duration time.Duration) {
	histogram, err := c.meter.Float64Histogram(
		"chat.turn.duration",
		metric.WithDescription("Chat turn duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()))
	}
}

func (c *Client) recordUsage(ctx context.Context, stats model.UsageStats) {
	counter, err := c.meter.Int64Counter(
		"chat.turn.interactions",
		metric.WithDescription("Interactions reported by the backend"),
	)
	if err != nil {
		c.logger.Warn("failed to create counter", "error", err)
		return
	}
	counter.Add(ctx, 1)
}

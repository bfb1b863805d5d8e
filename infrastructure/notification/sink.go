// Package notification delivers tournament lifecycle events to
// interested parties. Delivery is best effort; the engine never blocks
// or fails a unit of work on a notification.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// LogSink records tournament events to the structured log. It is the
// default sink for deployments without a webhook consumer.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink writing to the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// TournamentCreated implements ports.EventSink.
func (s *LogSink) TournamentCreated(ctx context.Context, tournamentID, gameID string) error {
	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournamentID),
		slog.String("game_id", gameID))
	return nil
}

// WebhookSink posts tournament events to an HTTP endpoint.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a WebhookSink posting to the given URL.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type tournamentCreatedEvent struct {
	Event        string `json:"event"`
	TournamentID string `json:"tournamentId"`
	GameID       string `json:"gameId"`
}

// TournamentCreated implements ports.EventSink.
func (s *WebhookSink) TournamentCreated(ctx context.Context, tournamentID, gameID string) error {
	body, err := json.Marshal(tournamentCreatedEvent{
		Event:        "tournament.created",
		TournamentID: tournamentID,
		GameID:       gameID,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("deliver event: status %d", resp.StatusCode)
	}
	return nil
}

// Compile-time verification that the sinks satisfy the port.
var (
	_ ports.EventSink = (*LogSink)(nil)
	_ ports.EventSink = (*WebhookSink)(nil)
)

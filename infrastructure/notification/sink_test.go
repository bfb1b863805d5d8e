package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	sink := NewLogSink(slog.Default())
	assert.NoError(t, sink.TournamentCreated(context.Background(), "t-1", "game-1"))
}

func TestWebhookSink(t *testing.T) {
	t.Run("posts the event payload", func(t *testing.T) {
		var got tournamentCreatedEvent
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer server.Close()

		sink := NewWebhookSink(server.URL, time.Second)
		require.NoError(t, sink.TournamentCreated(context.Background(), "t-1", "game-1"))

		assert.Equal(t, "tournament.created", got.Event)
		assert.Equal(t, "t-1", got.TournamentID)
		assert.Equal(t, "game-1", got.GameID)
	})

	t.Run("non-2xx delivery is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		sink := NewWebhookSink(server.URL, time.Second)
		assert.Error(t, sink.TournamentCreated(context.Background(), "t-1", "game-1"))
	})
}

package application

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhaversen/GaslightBackend/internal/domain"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults alone are valid", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, 3, cfg.Standings.PreviewSize)
	})

	t.Run("missing config file is an error", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("yaml file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
evaluation:
  host: "evaluator:4000"
  timeout_seconds: 60
standings:
  preview_size: 5
`), 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "evaluator:4000", cfg.Evaluation.Host)
		assert.Equal(t, 60, cfg.Evaluation.TimeoutSeconds)
		assert.Equal(t, 5, cfg.Standings.PreviewSize)
		// Untouched sections keep their defaults.
		assert.Equal(t, "memory", cfg.Storage.Backend)
	})

	t.Run("environment overrides the file", func(t *testing.T) {
		t.Setenv("SERVER_ADDR", ":7070")
		t.Setenv("STORAGE_BACKEND", "mongo")
		t.Setenv("MONGO_URI", "mongodb://localhost:27017")
		t.Setenv("MONGO_DATABASE", "gaslight")
		t.Setenv("MICROSERVICE_AUTHORIZATION", "secret-token")

		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ":7070", cfg.Server.Addr)
		assert.Equal(t, "mongo", cfg.Storage.Backend)
		assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
		assert.Equal(t, "secret-token", cfg.Evaluation.AuthToken)
	})

	t.Run("mongo backend requires a connection string", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "mongo")

		_, err := LoadConfig("")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		t.Setenv("STORAGE_BACKEND", "cassandra")

		_, err := LoadConfig("")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("preview size bounds are enforced", func(t *testing.T) {
		t.Setenv("STANDINGS_PREVIEW_SIZE", "0")

		_, err := LoadConfig("")
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/campaignflow/pkg/persistence"
	"github.com/dukex/campaignflow/pkg/persistence/file"
	"github.com/dukex/campaignflow/pkg/persistence/postgresql"
	"github.com/dukex/campaignflow/pkg/persistence/redis"
)

// NewPersistence selects the backend from the URL scheme: file:// (also plain paths),
// postgres:// or postgresql://, redis:// or rediss://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	logger.InfoContext(ctx, "Initializing persistence", "provider", provider)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger.With("module", "redis"), databaseURL)
	case "file":
		return file.NewPersistence(logger.With("module", "file"), databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider %q (supported: file, postgres, redis)", provider)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return strings.ToLower(scheme)
}

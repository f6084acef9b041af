package embedprovider

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"
)

// New auto-detects the best available provider at initialization time in
// the fixed priority order of spec.md section 4.2:
//  1. local large model, if reachable
//  2. local medium model, if reachable
//  3. local small model, if reachable
//  4. remote API provider (forced 1024 dims), if OPENAI_API_KEY is set
//  5. bundled small fallback (384 dims)
//
// The chosen provider is wrapped in a write-through cache (db may be nil).
func New(db *sql.DB) *CachedProvider {
	return NewWithBaseURL(db, os.Getenv("MEMENGINE_LOCAL_EMBED_URL"))
}

// NewWithBaseURL is New with an explicit local provider base URL, primarily
// for tests.
func NewWithBaseURL(db *sql.DB, localBaseURL string) *CachedProvider {
	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	candidates := []*LocalProvider{
		NewLocalLarge(localBaseURL),
		NewLocalMedium(localBaseURL),
		NewLocalSmall(localBaseURL),
	}
	for _, c := range candidates {
		if c.Reachable(probeCtx) {
			slog.Info("embedprovider: selected local provider", "model_id", c.ModelID())
			return NewCached(c, db)
		}
	}

	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if remote, err := NewRemote(apiKey, os.Getenv("MEMENGINE_REMOTE_EMBED_MODEL")); err == nil {
			slog.Info("embedprovider: selected remote provider", "model_id", remote.ModelID())
			return NewCached(remote, db)
		}
	}

	slog.Info("embedprovider: no local or remote provider available, using bundled fallback")
	return NewCached(NewFallback(), db)
}

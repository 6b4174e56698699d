// Package source provides the candidate lists offered by the completion popup.
//
// A Source answers two questions: which variables exist and which keys of a
// given type exist. Implementations read a Tower YAML manifest or JSONC file
// (Manifest), a local SQLite database (Store) or a remote HTTP API (Remote).
// Cached adds a TTL cache and request coalescing in front of any of them.
package source

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/types"
)

// Source lists completion candidates
type Source interface {
	Variables(ctx context.Context) ([]types.Candidate, error)
	Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error)
}

// Snapshot holds both candidate lists loaded at once
type Snapshot struct {
	Variables []types.Candidate
	Secrets   []types.Candidate
}

// Prefetch loads variables and secrets concurrently.
// The first error cancels the other request.
func Prefetch(ctx context.Context, src Source, keyType types.KeyType) (Snapshot, error) {
	g, ctx := errgroup.WithContext(ctx)

	var snap Snapshot
	g.Go(func() error {
		items, err := src.Variables(ctx)
		if err != nil {
			return fmt.Errorf("failed to load variables: %w", err)
		}
		snap.Variables = items
		return nil
	})
	g.Go(func() error {
		items, err := src.Secrets(ctx, keyType)
		if err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
		snap.Secrets = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Open builds the source selected by settings, wrapped in a Cached.
// The returned close function releases the underlying store, if any.
func Open(ctx context.Context, settings config.Settings, dbPath string, logger *slog.Logger) (*Cached, func() error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() error { return nil }

	var (
		src     Source
		closeFn = noop
	)

	switch settings.Source {
	case config.SourceStore:
		store, err := OpenStore(dbPath)
		if err != nil {
			return nil, noop, err
		}
		src, closeFn = store, store.Close

	case config.SourceManifest:
		manifest, err := LoadManifest(settings.Manifest)
		if err != nil {
			return nil, noop, err
		}
		src = manifest

	case config.SourceRemote:
		remote, err := NewRemote(ctx, settings.Remote)
		if err != nil {
			return nil, noop, err
		}
		src = remote

	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownSource, settings.Source)
	}

	logger.Debug("candidate source opened", "source", settings.Source, "cache_ttl", settings.CacheTTL)
	return NewCached(src, settings.CacheTTL, logger).WithFetchTimeout(settings.FetchTimeout), closeFn, nil
}

// Package repository supplies dependency rows to the impact analyzer from a
// PostgreSQL catalog table or from a discovered snapshot file.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

// ErrUnknownProject is returned when a repository holds no data for a project.
var ErrUnknownProject = errors.New("unknown project")

// Repository is a closable impact.DependencyRepository.
type Repository interface {
	impact.DependencyRepository
	Close() error
}

// UnsupportedRepositoryError is returned for an unrecognised repository type.
type UnsupportedRepositoryError struct {
	Type string
}

func (e *UnsupportedRepositoryError) Error() string {
	return "unsupported repository type: " + e.Type
}

// New opens the repository described by cfg, wrapped in a cache when
// repository.cache_size is positive.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Repository.Type {
	case config.RepositoryPostgres:
		repo, err = OpenPostgres(ctx, &cfg.Source, cfg.Analysis.MaxDepth)
	case config.RepositorySnapshot:
		repo, err = OpenSnapshot(cfg.Repository.SnapshotPath, cfg.Analysis.MaxDepth)
	default:
		return nil, &UnsupportedRepositoryError{Type: cfg.Repository.Type}
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s repository: %w", cfg.Repository.Type, err)
	}
	logger.Debug("dependency repository ready", "type", cfg.Repository.Type, "cache_size", cfg.Repository.CacheSize)

	if cfg.Repository.CacheSize > 0 {
		cached := NewCached(repo, cfg.Repository.CacheSize, cfg.Repository.CacheTTL)
		if snap, ok := repo.(*Snapshot); ok {
			snap.OnReload(cached.Invalidate)
		}
		return cached, nil
	}
	return repo, nil
}

// fetchDepth is how many levels a repository returns for an analysis bounded
// at maxDepth. The extra level lets the enumerator see that paths continue
// past the bound.
func fetchDepth(maxDepth int) int {
	if maxDepth <= 0 {
		maxDepth = impact.DefaultMaxDepth
	}
	return maxDepth + 1
}

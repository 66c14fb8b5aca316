package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/inkblog/metrics"
	"github.com/cppla/inkblog/repository"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

// SweepError reports that listed temp objects could not be deleted.
// It is a warning: nothing already persisted depends on the sweep.
type SweepError struct {
	Prefix string
	Count  int
	Err    error
}

func (e *SweepError) Error() string {
	return fmt.Sprintf("sweep %s: delete %d objects: %v", e.Prefix, e.Count, e.Err)
}

func (e *SweepError) Unwrap() error { return e.Err }

// Sweeper deletes objects from the temp namespace.
type Sweeper struct {
	store   storage.Store
	uploads repository.UploadRepository
	now     func() time.Time
}

// NewSweeper creates a Sweeper. uploads may be nil when no bookkeeping rows exist.
func NewSweeper(store storage.Store, uploads repository.UploadRepository) *Sweeper {
	return &Sweeper{store: store, uploads: uploads, now: time.Now}
}

// SweepAll deletes every object under temp/, across all sessions.
func (s *Sweeper) SweepAll(ctx context.Context) (int, error) {
	return s.sweep(ctx, "all", storage.TempPrefix, nil)
}

// SweepScope deletes the temp objects of one authoring session. An empty
// sessionID targets the unscoped temp/image/ namespace.
func (s *Sweeper) SweepScope(ctx context.Context, sessionID string) (int, error) {
	return s.sweep(ctx, "scope", storage.TempScope(sessionID), nil)
}

// SweepExpired deletes temp objects last modified more than olderThan ago.
func (s *Sweeper) SweepExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	return s.sweep(ctx, "expired", storage.TempPrefix, func(o storage.Object) bool {
		return !o.LastModified.IsZero() && o.LastModified.Before(cutoff)
	})
}

// sweep deletes the temp objects under prefix that match selects. A nil match selects all of them.
func (s *Sweeper) sweep(ctx context.Context, kind, prefix string, match func(storage.Object) bool) (int, error) {
	objs, err := s.store.List(ctx, prefix)
	if err != nil {
		// Nothing we can see, nothing to clean.
		utils.Logger.Warn("sweep list failed", zap.String("prefix", prefix), zap.Error(err))
		return 0, nil
	}
	paths := make([]string, 0, len(objs))
	for _, o := range objs {
		if !storage.IsTemp(o.Path) {
			continue
		}
		if match != nil && !match(o) {
			continue
		}
		paths = append(paths, o.Path)
	}
	if len(paths) == 0 {
		return 0, nil
	}

	if err := s.store.Delete(ctx, paths); err != nil {
		metrics.SweepFailures.WithLabelValues(kind).Inc()
		return 0, &SweepError{Prefix: prefix, Count: len(paths), Err: err}
	}
	metrics.SweptObjects.WithLabelValues(kind).Add(float64(len(paths)))

	if s.uploads != nil {
		if err := s.uploads.DeleteByPaths(ctx, paths); err != nil {
			utils.Logger.Warn("sweep bookkeeping cleanup failed", zap.Int("count", len(paths)), zap.Error(err))
		}
	}
	utils.Logger.Debug("swept temp objects", zap.String("kind", kind), zap.String("prefix", prefix), zap.Int("count", len(paths)))
	return len(paths), nil
}

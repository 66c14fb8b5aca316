// Package services implements the post publication flow: promoting draft
// media out of the temp namespace, sweeping leftovers and persisting posts.
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cppla/inkblog/markdown"
	"github.com/cppla/inkblog/metrics"
	"github.com/cppla/inkblog/storage"
	"github.com/cppla/inkblog/utils"
)

// Outcome is the per-path result of a promotion attempt.
type Outcome int

const (
	// OutcomeSkipped: the path is not in the temp namespace and was ignored.
	OutcomeSkipped Outcome = iota
	// OutcomePromoted: copied to permanent/ and the temp original removed.
	OutcomePromoted
	// OutcomeRecovered: the copy failed; the temp original is untouched.
	OutcomeRecovered
	// OutcomeFatal: the copy succeeded but the temp original could not be removed.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomePromoted:
		return "promoted"
	case OutcomeRecovered:
		return "recovered"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// PathOutcome reports what happened to one input path.
type PathOutcome struct {
	Path          string
	PermanentPath string
	Outcome       Outcome
	Err           error
}

// PromotionResult lists per-path outcomes in input order, duplicates removed.
type PromotionResult struct {
	Items []PathOutcome
}

func (r PromotionResult) pathsWith(o Outcome) []string {
	out := []string{}
	for _, it := range r.Items {
		if it.Outcome == o {
			out = append(out, it.Path)
		}
	}
	return out
}

// Succeeded returns the temp paths that were fully promoted.
func (r PromotionResult) Succeeded() []string { return r.pathsWith(OutcomePromoted) }

// Failed returns the temp paths whose copy failed.
func (r PromotionResult) Failed() []string { return r.pathsWith(OutcomeRecovered) }

// Skipped returns the paths outside temp/.
func (r PromotionResult) Skipped() []string { return r.pathsWith(OutcomeSkipped) }

// Fatal returns the item that aborted the batch, if any.
func (r PromotionResult) Fatal() (PathOutcome, bool) {
	for _, it := range r.Items {
		if it.Outcome == OutcomeFatal {
			return it, true
		}
	}
	return PathOutcome{}, false
}

// Promotions returns from/to pairs for every promoted path.
func (r PromotionResult) Promotions() []markdown.Promotion {
	var out []markdown.Promotion
	for _, it := range r.Items {
		if it.Outcome == OutcomePromoted {
			out = append(out, markdown.Promotion{From: it.Path, To: it.PermanentPath})
		}
	}
	return out
}

// PromotionError aborts a promotion batch. A permanent copy of Path exists
// but the temp original could not be deleted.
type PromotionError struct {
	Path          string
	PermanentPath string
	Err           error
}

func (e *PromotionError) Error() string {
	return fmt.Sprintf("promote %s: delete temp original after copy to %s: %v", e.Path, e.PermanentPath, e.Err)
}

func (e *PromotionError) Unwrap() error { return e.Err }

// Promoter moves objects from the temp namespace to the permanent one.
type Promoter struct {
	store       storage.Store
	concurrency int
}

// NewPromoter creates a Promoter. concurrency <= 1 promotes strictly in order.
func NewPromoter(store storage.Store, concurrency int) *Promoter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Promoter{store: store, concurrency: concurrency}
}

// Promote copies every temp path to permanent/ and deletes the original.
// A failed copy is recorded and the batch continues. A failed delete after a
// successful copy aborts the batch and returns a *PromotionError alongside the
// outcomes gathered so far.
func (p *Promoter) Promote(ctx context.Context, paths []string) (PromotionResult, error) {
	unique := dedupe(paths)
	if len(unique) == 0 {
		return PromotionResult{Items: []PathOutcome{}}, nil
	}
	if p.concurrency == 1 || len(unique) == 1 {
		return p.promoteSequential(ctx, unique)
	}
	return p.promoteParallel(ctx, unique)
}

func (p *Promoter) promoteSequential(ctx context.Context, paths []string) (PromotionResult, error) {
	res := PromotionResult{Items: make([]PathOutcome, 0, len(paths))}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		item := p.promoteOne(ctx, path)
		res.Items = append(res.Items, item)
		if item.Outcome == OutcomeFatal {
			return res, &PromotionError{Path: item.Path, PermanentPath: item.PermanentPath, Err: item.Err}
		}
	}
	return res, nil
}

func (p *Promoter) promoteParallel(ctx context.Context, paths []string) (PromotionResult, error) {
	items := make([]PathOutcome, len(paths))
	done := make([]bool, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := p.promoteOne(gctx, path)
			items[i], done[i] = item, true
			if item.Outcome == OutcomeFatal {
				return &PromotionError{Path: item.Path, PermanentPath: item.PermanentPath, Err: item.Err}
			}
			return nil
		})
	}
	err := g.Wait()

	res := PromotionResult{Items: make([]PathOutcome, 0, len(paths))}
	for i := range items {
		if done[i] {
			res.Items = append(res.Items, items[i])
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}

func (p *Promoter) promoteOne(ctx context.Context, path string) PathOutcome {
	item := PathOutcome{Path: path}
	dst, ok := storage.PermanentPathFor(path)
	if !ok {
		item.Outcome = OutcomeSkipped
		metrics.PromotionOutcomes.WithLabelValues(item.Outcome.String()).Inc()
		return item
	}
	item.PermanentPath = dst

	if err := p.store.Copy(ctx, path, dst); err != nil {
		item.Outcome, item.Err = OutcomeRecovered, err
		utils.Logger.Warn("promotion copy failed", zap.String("path", path), zap.Error(err))
	} else if err := p.store.Delete(ctx, []string{path}); err != nil {
		item.Outcome, item.Err = OutcomeFatal, err
		utils.Logger.Error("promotion left temp original behind",
			zap.String("path", path), zap.String("permanent", dst), zap.Error(err))
	} else {
		item.Outcome = OutcomePromoted
		utils.Logger.Debug("promoted", zap.String("path", path), zap.String("permanent", dst))
	}
	metrics.PromotionOutcomes.WithLabelValues(item.Outcome.String()).Inc()
	return item
}

// Demote reverses promotions, moving each permanent object back to its temp
// path. It is best effort and returns the promotions it could not undo.
func (p *Promoter) Demote(ctx context.Context, promotions []markdown.Promotion) []markdown.Promotion {
	var stuck []markdown.Promotion
	for _, pr := range promotions {
		if err := p.store.Copy(ctx, pr.To, pr.From); err != nil {
			utils.Logger.Warn("demote copy failed", zap.String("permanent", pr.To), zap.Error(err))
			stuck = append(stuck, pr)
			continue
		}
		if err := p.store.Delete(ctx, []string{pr.To}); err != nil {
			utils.Logger.Warn("demote delete failed", zap.String("permanent", pr.To), zap.Error(err))
		}
	}
	return stuck
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

package doctor

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages health checkers and fixers. Checkers run in registration
// order and results keep that order.
type Registry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
	fixers   map[string]Fixer
}

func NewRegistry() *Registry {
	return &Registry{
		fixers: make(map[string]Fixer),
	}
}

// RegisterChecker appends checker; results follow registration order.
func (r *Registry) RegisterChecker(checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkers = append(r.checkers, checker)
}

// RegisterFixer makes fixer available to results carrying its ID. A later
// fixer with the same ID replaces the earlier one.
func (r *Registry) RegisterFixer(fixer Fixer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.fixers[fixer.ID()] = fixer
}

// Checkers returns every registered checker.
func (r *Registry) Checkers() []HealthChecker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.checkers)
}

// CheckersForCategories returns the checkers of the given categories, or all
// of them when categories is empty.
func (r *Registry) CheckersForCategories(categories []Category) []HealthChecker {
	if len(categories) == 0 {
		return r.Checkers()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	selected := make([]HealthChecker, 0, len(r.checkers))

	for _, c := range r.checkers {
		if slices.Contains(categories, c.Category()) {
			selected = append(selected, c)
		}
	}

	return selected
}

func (r *Registry) RunAll(ctx context.Context) []CheckResult {
	return Run(ctx, r.Checkers())
}

// RunCategories runs CheckersForCategories concurrently.
func (r *Registry) RunCategories(ctx context.Context, categories []Category) []CheckResult {
	return Run(ctx, r.CheckersForCategories(categories))
}

// Run executes checkers concurrently and returns their results in input order.
func Run(ctx context.Context, checkers []HealthChecker) []CheckResult {
	results := make([]CheckResult, len(checkers))
	g, gctx := errgroup.WithContext(ctx)

	for i, checker := range checkers {
		g.Go(func() error {
			result := checker.Check(gctx)
			result.Category = checker.Category()

			if result.Name == "" {
				result.Name = checker.Name()
			}

			results[i] = result

			return nil
		})
	}

	_ = g.Wait()

	return results
}

// GetFixer returns the fixer registered under fixID.
//
//nolint:ireturn // Fixer interface for polymorphism
func (r *Registry) GetFixer(fixID string) (Fixer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fixer, ok := r.fixers[fixID]

	return fixer, ok
}

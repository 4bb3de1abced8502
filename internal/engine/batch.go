package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/mapsql/internal/dag"
)

// LoadGraph loads every mapping and builds their dependency graph.
// Load failures are joined so one bad file reports alongside the others.
func (e *Engine) LoadGraph(paths []string) (*dag.Graph, error) {
	entries := make([]dag.Entry, 0, len(paths))
	var errs []error
	for _, p := range paths {
		spec, err := e.LoadSpec(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, dag.Entry{Path: p, Spec: spec})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return dag.Build(entries)
}

// GenerateAll generates a batch of mappings level by level, upstream first.
// Mappings within a level run concurrently, bounded by the configured
// parallelism. The first failure stops later levels.
func (e *Engine) GenerateAll(ctx context.Context, paths []string) ([]*Result, error) {
	g, err := e.LoadGraph(paths)
	if err != nil {
		return nil, err
	}
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	return e.generateLevels(ctx, g, levels)
}

func (e *Engine) generateLevels(ctx context.Context, g *dag.Graph, levels [][]string) ([]*Result, error) {
	var results []*Result

	for i, level := range levels {
		e.logger.Debug("generating level", slog.Int("level", i), slog.Int("models", len(level)))

		var (
			done []*Result
			mu   sync.Mutex
		)

		eg, egctx := errgroup.WithContext(ctx)
		eg.SetLimit(e.parallelism)
		for _, id := range level {
			node, ok := g.Node(id)
			if !ok {
				continue
			}
			eg.Go(func() error {
				res, err := e.GenerateSpec(egctx, node.Spec, node.Path)
				if err != nil {
					return fmt.Errorf("%s: %w", node.Path, err)
				}
				mu.Lock()
				done = append(done, res)
				mu.Unlock()
				return nil
			})
		}
		err := eg.Wait()
		slices.SortFunc(done, func(a, b *Result) int {
			return strings.Compare(a.Spec.Name(), b.Spec.Name())
		})
		results = append(results, done...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

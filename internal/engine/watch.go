package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/mapsql/internal/dag"
)

// watchDebounce coalesces editor save bursts into one regeneration.
const watchDebounce = 150 * time.Millisecond

// WatchFunc receives each regeneration outcome during Watch.
type WatchFunc func(res *Result, err error)

// Watch generates every mapping once, then regenerates when a mapping or a
// configured DDL file changes. A changed mapping regenerates itself and its
// downstream mappings; a changed DDL file regenerates everything. Watch
// blocks until ctx is cancelled.
func (e *Engine) Watch(ctx context.Context, paths []string, fn WatchFunc) error {
	mappings := absPaths(paths)
	ddlFiles := absPaths(e.ddlFiles)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range parentDirs(mappings, ddlFiles) {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		e.logger.Debug("watching directory", slog.String("dir", dir))
	}

	e.regenerate(ctx, mappings, nil, true, fn)

	pending := make(map[string]bool)
	ddlChanged := false
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Clean(event.Name)
			switch {
			case slices.Contains(mappings, name):
				pending[name] = true
			case slices.Contains(ddlFiles, name):
				ddlChanged = true
			default:
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(watchDebounce)
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			e.logger.Info("change detected", slog.Any("mappings", changed), slog.Bool("ddl", ddlChanged))
			e.regenerate(ctx, mappings, changed, ddlChanged, fn)
			pending = make(map[string]bool)
			ddlChanged = false

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// regenerate rebuilds the graph and generates the affected mappings in
// dependency order.
func (e *Engine) regenerate(ctx context.Context, mappings, changed []string, all bool, fn WatchFunc) {
	g, err := e.LoadGraph(mappings)
	if err != nil {
		fn(nil, err)
		return
	}
	nodes, err := Affected(g, changed, all)
	if err != nil {
		fn(nil, err)
		return
	}
	for _, node := range nodes {
		res, err := e.GenerateSpec(ctx, node.Spec, node.Path)
		fn(res, err)
		if ctx.Err() != nil {
			return
		}
	}
}

// Affected returns the nodes to regenerate after the given mapping files
// changed, upstream first. all selects every node.
func Affected(g *dag.Graph, changed []string, all bool) ([]*dag.Node, error) {
	order, err := g.Order()
	if err != nil {
		return nil, err
	}
	if all {
		return order, nil
	}

	var ids []string
	for _, p := range changed {
		if n, ok := g.ByPath(p); ok {
			ids = append(ids, n.ID)
		}
	}
	selected := g.Downstream(ids...)

	var out []*dag.Node
	for _, n := range order {
		if slices.Contains(selected, n.ID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

func parentDirs(groups ...[]string) []string {
	var dirs []string
	for _, paths := range groups {
		for _, p := range paths {
			if d := filepath.Dir(p); !slices.Contains(dirs, d) {
				dirs = append(dirs, d)
			}
		}
	}
	slices.Sort(dirs)
	return dirs
}

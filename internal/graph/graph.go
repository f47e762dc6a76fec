// Package graph answers structural questions about a task.Store: the
// parent/child forest, transitive dependency closure, and whether a
// proposed dependency edge is legal. It also levels tasks for the PERT
// layout and derives the edges a collapsed summary inherits from its
// hidden descendants.
//
// Every walk uses a visited set and an iteration bound so corrupted
// persisted data (a cyclic forest or dependency loop) is logged and cut
// short rather than followed forever.
package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/papapumpkin/gantry/internal/task"
)

// Rejections returned by CanAddDependency.
var (
	ErrSelfDependency      = errors.New("task cannot depend on itself")
	ErrTaskNotFound        = errors.New("task not found")
	ErrSummaryEndpoint     = errors.New("summary tasks cannot hold dependencies")
	ErrDependsOnAncestor   = errors.New("task cannot depend on its own ancestor")
	ErrDependsOnDescendant = errors.New("task cannot depend on its own descendant")
	ErrDependencyCycle     = errors.New("dependency would create a cycle")
)

// walkFactor scales the task count into the step budget for dependency walks.
const walkFactor = 4

// Engine runs graph queries over a store. It reads the store on every call,
// so results always reflect the current tasks.
type Engine struct {
	store  *task.Store
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for data-integrity warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Engine over store.
func New(store *task.Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying task store.
func (e *Engine) Store() *task.Store {
	return e.store
}

// Ancestors returns the parent chain above id, nearest parent first. The
// walk stops after Len steps or on a repeated id, logging the corruption.
func (e *Engine) Ancestors(id string) []string {
	t := e.store.Get(id)
	if t == nil {
		return nil
	}
	visited := map[string]bool{id: true}
	var chain []string
	limit := e.store.Len()
	for cur := t.ParentID; cur != ""; {
		if visited[cur] || len(chain) >= limit {
			e.logger.Warn("parent chain does not terminate", "task", id, "at", cur)
			break
		}
		parent := e.store.Get(cur)
		if parent == nil {
			break
		}
		visited[cur] = true
		chain = append(chain, cur)
		cur = parent.ParentID
	}
	return chain
}

// Descendants returns every task below id in breadth-first order.
func (e *Engine) Descendants(id string) []string {
	if !e.store.Has(id) {
		return nil
	}
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := e.store.Get(queue[0])
		queue = queue[1:]
		if cur == nil {
			continue
		}
		for _, c := range cur.Children {
			if visited[c] {
				e.logger.Warn("child revisited during descendant walk", "task", id, "child", c)
				continue
			}
			visited[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// TransitiveDependencies returns every existing task reachable from id over
// dependency edges, excluding id itself, in breadth-first order.
func (e *Engine) TransitiveDependencies(id string) []string {
	if !e.store.Has(id) {
		return nil
	}
	var out []string
	e.walkDependencies(id, func(dep string) bool {
		out = append(out, dep)
		return true
	})
	return out
}

// reaches reports whether dst is reachable from src over dependency edges.
func (e *Engine) reaches(src, dst string) bool {
	found := false
	e.walkDependencies(src, func(dep string) bool {
		if dep == dst {
			found = true
			return false
		}
		return true
	})
	return found
}

// walkDependencies visits every task reachable from id once. visit returns
// false to stop early. Targets that are not in the store are skipped.
func (e *Engine) walkDependencies(id string, visit func(string) bool) {
	visited := map[string]bool{id: true}
	queue := []string{id}
	budget := e.store.Len()*walkFactor + 1
	for steps := 0; len(queue) > 0; steps++ {
		if steps >= budget {
			e.logger.Warn("dependency walk exceeded its bound", "task", id, "steps", steps)
			return
		}
		cur := e.store.Get(queue[0])
		queue = queue[1:]
		if cur == nil {
			continue
		}
		for _, dep := range cur.Dependencies {
			if visited[dep.TaskID] || !e.store.Has(dep.TaskID) {
				continue
			}
			visited[dep.TaskID] = true
			if !visit(dep.TaskID) {
				return
			}
			queue = append(queue, dep.TaskID)
		}
	}
}

// CanAddDependency checks whether "from depends on to" may be added. It
// returns nil when the edge is allowed, otherwise an error wrapping one of
// the rejection sentinels. It is a pure check; Link applies it before
// mutating.
func (e *Engine) CanAddDependency(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfDependency, from)
	}
	src, dst := e.store.Get(from), e.store.Get(to)
	if src == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, from)
	}
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, to)
	}
	// Structural checks first: an ancestor is always a summary, and the
	// more specific reason is the useful one.
	if slices.Contains(e.Ancestors(from), to) {
		return fmt.Errorf("%w: %s is above %s", ErrDependsOnAncestor, to, from)
	}
	if slices.Contains(e.Ancestors(to), from) {
		return fmt.Errorf("%w: %s is below %s", ErrDependsOnDescendant, to, from)
	}
	if src.Summary {
		return fmt.Errorf("%w: %s", ErrSummaryEndpoint, from)
	}
	if dst.Summary {
		return fmt.Errorf("%w: %s", ErrSummaryEndpoint, to)
	}
	if e.reaches(to, from) {
		return fmt.Errorf("%w: %s already depends on %s", ErrDependencyCycle, to, from)
	}
	return nil
}

// Rejection maps a CanAddDependency error to a stable reason code. It
// returns "" for nil.
func Rejection(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSelfDependency):
		return "self-dependency"
	case errors.Is(err, ErrTaskNotFound):
		return "missing-task"
	case errors.Is(err, ErrSummaryEndpoint):
		return "summary-endpoint"
	case errors.Is(err, ErrDependsOnAncestor):
		return "depends-on-ancestor"
	case errors.Is(err, ErrDependsOnDescendant):
		return "depends-on-descendant"
	case errors.Is(err, ErrDependencyCycle):
		return "cycle"
	default:
		return "unknown"
	}
}

// Link adds "from depends on to" with the given lag after CanAddDependency
// allows it. An existing edge only has its lag updated.
func (e *Engine) Link(from, to string, lag int) error {
	if src := e.store.Get(from); src != nil && src.DependsOn(to) {
		return e.store.AddDependency(from, to, lag)
	}
	if err := e.CanAddDependency(from, to); err != nil {
		return err
	}
	return e.store.AddDependency(from, to, lag)
}

// IsHidden reports whether any ancestor of id is collapsed.
func (e *Engine) IsHidden(id string) bool {
	for _, a := range e.Ancestors(id) {
		if t := e.store.Get(a); t != nil && t.Collapsed {
			return true
		}
	}
	return false
}

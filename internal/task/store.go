package task

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// ErrDuplicateTask is returned when a task id is already present.
var ErrDuplicateTask = errors.New("duplicate task")

// ErrTaskNotFound is returned when an operation references an unknown id.
var ErrTaskNotFound = errors.New("task not found")

// ErrSummaryDependency is returned when an edge would start or end at a
// summary task. Summary edges are derived, never stored.
var ErrSummaryDependency = errors.New("summary tasks cannot hold or receive dependencies")

// Store owns an ordered task collection and an id→position index. The
// order is the project's display order and is preserved by every mutation.
// A Store is not safe for concurrent use.
type Store struct {
	tasks  []*Task
	index  map[string]int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger that integrity repairs are reported to.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore builds a store from tasks in the given order. Parent/child
// references are reconciled: a child listed by a parent gets its ParentID
// set, a task naming a parent is appended to that parent's children, and
// references to unknown tasks are dropped. Summary flags and outline
// levels are recomputed, and stored edges touching a summary are dropped.
func NewStore(tasks []*Task, opts ...Option) (*Store, error) {
	s := &Store{
		tasks:  make([]*Task, 0, len(tasks)),
		index:  make(map[string]int, len(tasks)),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	for _, t := range tasks {
		if _, exists := s.index[t.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
		}
		s.index[t.ID] = len(s.tasks)
		s.tasks = append(s.tasks, t)
	}
	s.reconcile()
	return s, nil
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	return len(s.tasks)
}

// Get returns the task with the given id, or nil.
func (s *Store) Get(id string) *Task {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	return s.tasks[i]
}

// Has reports whether id is in the store.
func (s *Store) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Position returns the collection index of id.
func (s *Store) Position(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

// Tasks returns the tasks in collection order. The slice is a copy; the
// tasks are shared.
func (s *Store) Tasks() []*Task {
	return slices.Clone(s.tasks)
}

// IDs returns every task id in collection order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		ids[i] = t.ID
	}
	return ids
}

// Add appends t. When t names an existing parent, t joins the end of that
// parent's children and the parent becomes a summary, losing any edges it
// held as a leaf along with every edge other tasks held on it.
func (s *Store) Add(t *Task) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	if s.Has(t.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID)
	}
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
	if parent := s.Get(t.ParentID); parent != nil {
		if !slices.Contains(parent.Children, t.ID) {
			parent.Children = append(parent.Children, t.ID)
		}
	} else {
		t.ParentID = ""
	}
	s.reconcile()
	return nil
}

// Delete removes the task id and every reference to it. With cascade the
// whole subtree under id goes too; without it the children move up to
// id's parent, taking its place in the parent's child order. The ids
// removed are returned in collection order.
func (s *Store) Delete(id string, cascade bool) ([]string, error) {
	victim := s.Get(id)
	if victim == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}

	doomed := map[string]bool{id: true}
	if cascade {
		for _, d := range s.subtree(id) {
			doomed[d] = true
		}
	} else {
		s.promoteChildren(victim)
	}

	var removed []string
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if doomed[t.ID] {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	clear(s.tasks[len(kept):])
	s.tasks = kept

	for _, t := range s.tasks {
		t.Dependencies = slices.DeleteFunc(t.Dependencies, func(d Dependency) bool {
			return doomed[d.TaskID]
		})
		t.Children = slices.DeleteFunc(t.Children, func(c string) bool {
			return doomed[c]
		})
		if doomed[t.ParentID] {
			t.ParentID = ""
		}
	}
	s.reindex()
	s.reconcile()
	return removed, nil
}

// AddDependency records "from depends on to". Only summary endpoints are
// refused here; gate calls with graph.Engine.CanAddDependency for the
// hierarchy and cycle checks. An existing edge has its lag updated.
func (s *Store) AddDependency(from, to string, lag int) error {
	t := s.Get(from)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, from)
	}
	target := s.Get(to)
	if target == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, to)
	}
	if t.Summary || target.Summary {
		return fmt.Errorf("%w: %s → %s", ErrSummaryDependency, from, to)
	}
	for i := range t.Dependencies {
		if t.Dependencies[i].TaskID == to {
			t.Dependencies[i].Lag = lag
			return nil
		}
	}
	t.Dependencies = append(t.Dependencies, Dependency{TaskID: to, Type: FinishToStart, Lag: lag})
	return nil
}

// RemoveDependency deletes the edge "from depends on to" and reports
// whether it existed.
func (s *Store) RemoveDependency(from, to string) bool {
	t := s.Get(from)
	if t == nil {
		return false
	}
	n := len(t.Dependencies)
	t.Dependencies = slices.DeleteFunc(t.Dependencies, func(d Dependency) bool {
		return d.TaskID == to
	})
	return len(t.Dependencies) != n
}

// SetDates rewrites a task's start and end.
func (s *Store) SetDates(id string, start, end time.Time) error {
	t := s.Get(id)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t.Start, t.End = start, end
	return nil
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{
		tasks:  make([]*Task, len(s.tasks)),
		index:  make(map[string]int, len(s.tasks)),
		logger: s.logger,
	}
	for i, t := range s.tasks {
		c.tasks[i] = t.Clone()
		c.index[t.ID] = i
	}
	return c
}

func (s *Store) reindex() {
	clear(s.index)
	for i, t := range s.tasks {
		s.index[t.ID] = i
	}
}

// promoteChildren hands victim's children to victim's parent, splicing
// them in where victim sat.
func (s *Store) promoteChildren(victim *Task) {
	for _, c := range victim.Children {
		if child := s.Get(c); child != nil && child.ParentID == victim.ID {
			child.ParentID = victim.ParentID
		}
	}
	parent := s.Get(victim.ParentID)
	if parent == nil {
		return
	}
	at := slices.Index(parent.Children, victim.ID)
	if at < 0 {
		parent.Children = append(parent.Children, victim.Children...)
		return
	}
	parent.Children = slices.Insert(parent.Children, at+1, victim.Children...)
}

// subtree returns every id below id through children links. The visited
// set keeps corrupted cyclic data from looping.
func (s *Store) subtree(id string) []string {
	visited := map[string]bool{id: true}
	var out []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := s.Get(queue[0])
		queue = queue[1:]
		if cur == nil {
			continue
		}
		for _, c := range cur.Children {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// reconcile makes parent and children references agree, drops dangling
// ones, recomputes Summary and OutlineLevel, and strips stored edges that
// start or end at a summary.
func (s *Store) reconcile() {
	for _, t := range s.tasks {
		t.Children = slices.DeleteFunc(t.Children, func(c string) bool {
			return c == t.ID || !s.Has(c)
		})
		t.Children = dedupe(t.Children)
		for _, c := range t.Children {
			if child := s.Get(c); child.ParentID == "" {
				child.ParentID = t.ID
			}
		}
	}
	// A task has one parent: drop listings that disagree with ParentID.
	for _, t := range s.tasks {
		t.Children = slices.DeleteFunc(t.Children, func(c string) bool {
			return s.Get(c).ParentID != t.ID
		})
	}
	for _, t := range s.tasks {
		if t.ParentID == "" {
			continue
		}
		parent := s.Get(t.ParentID)
		if parent == nil || parent == t {
			t.ParentID = ""
			continue
		}
		if !slices.Contains(parent.Children, t.ID) {
			parent.Children = append(parent.Children, t.ID)
		}
	}
	for _, t := range s.tasks {
		t.Summary = len(t.Children) > 0
		if t.Summary && len(t.Dependencies) > 0 {
			s.logger.Warn("summary task held dependencies; dropped", "task", t.ID, "count", len(t.Dependencies))
			t.Dependencies = nil
		}
		t.OutlineLevel = s.depth(t)
	}
	for _, t := range s.tasks {
		t.Dependencies = slices.DeleteFunc(t.Dependencies, func(d Dependency) bool {
			target := s.Get(d.TaskID)
			if target == nil || !target.Summary {
				return false
			}
			s.logger.Warn("dependency on summary task dropped", "task", t.ID, "summary", d.TaskID)
			return true
		})
	}
}

// depth counts parent hops to the root, bounded by the store size.
func (s *Store) depth(t *Task) int {
	level := 1
	for cur := t; cur.ParentID != "" && level <= len(s.tasks); level++ {
		cur = s.Get(cur.ParentID)
		if cur == nil {
			break
		}
	}
	return level
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	return slices.DeleteFunc(ids, func(id string) bool {
		if seen[id] {
			return true
		}
		seen[id] = true
		return false
	})
}

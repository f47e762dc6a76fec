package task

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/papapumpkin/gantry/internal/calendar"
)

// ErrMalformedRecord is returned when a record cannot be normalized into a
// Task. It is the only ingestion failure; stale references are accepted
// and surfaced later as conflicts.
var ErrMalformedRecord = errors.New("malformed task record")

// Record is the plain, loosely typed shape of a task as it appears in
// project files and snapshots. Dependencies may be bare id strings or
// {taskId, type, lag} maps.
type Record struct {
	ID           string   `json:"id" yaml:"id" toml:"id"`
	Name         string   `json:"name" yaml:"name" toml:"name"`
	Start        string   `json:"start" yaml:"start" toml:"start"`
	End          string   `json:"end,omitempty" yaml:"end,omitempty" toml:"end,omitempty"`
	Duration     *int     `json:"duration,omitempty" yaml:"duration,omitempty" toml:"duration,omitempty"`
	DurationType string   `json:"durationType,omitempty" yaml:"durationType,omitempty" toml:"durationType,omitempty"`
	Progress     int      `json:"progress" yaml:"progress" toml:"progress"`
	IsMilestone  bool     `json:"isMilestone,omitempty" yaml:"isMilestone,omitempty" toml:"isMilestone,omitempty"`
	IsSummary    bool     `json:"isSummary,omitempty" yaml:"isSummary,omitempty" toml:"isSummary,omitempty"`
	ParentID     string   `json:"parentId,omitempty" yaml:"parentId,omitempty" toml:"parentId,omitempty"`
	Children     []string `json:"children,omitempty" yaml:"children,omitempty" toml:"children,omitempty"`
	OutlineLevel int      `json:"outlineLevel,omitempty" yaml:"outlineLevel,omitempty" toml:"outlineLevel,omitempty"`
	Dependencies []any    `json:"dependencies,omitempty" yaml:"dependencies,omitempty" toml:"dependencies,omitempty"`
	IsCollapsed  bool     `json:"isCollapsed,omitempty" yaml:"isCollapsed,omitempty" toml:"isCollapsed,omitempty"`
}

// Normalize converts a record into a Task. Missing ids are assigned,
// isSummary is recomputed from children, milestones are pinned to a single
// day, and whichever of end/duration is absent is derived from the other.
// Dependencies declared on a summary are dropped.
func Normalize(rec Record) (*Task, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		id = NewID()
	}
	fail := func(format string, args ...any) (*Task, error) {
		return nil, fmt.Errorf("%w: task %q: %s", ErrMalformedRecord, id, fmt.Sprintf(format, args...))
	}

	start, err := calendar.ParseDate(rec.Start)
	if err != nil {
		return fail("start: %v", err)
	}
	dt, err := calendar.ParseDurationType(rec.DurationType)
	if err != nil {
		return fail("%v", err)
	}

	t := &Task{
		ID:           id,
		Name:         rec.Name,
		Start:        start,
		DurationType: dt,
		Progress:     clamp(rec.Progress, 0, 100),
		Milestone:    rec.IsMilestone,
		ParentID:     strings.TrimSpace(rec.ParentID),
		Children:     append([]string(nil), rec.Children...),
		OutlineLevel: rec.OutlineLevel,
		Collapsed:    rec.IsCollapsed,
	}
	t.Summary = len(t.Children) > 0

	switch {
	case t.Milestone:
		t.Duration = 0
		t.End = start
	case rec.End != "":
		end, err := calendar.ParseDate(rec.End)
		if err != nil {
			return fail("end: %v", err)
		}
		if end.Before(start) {
			return fail("end %s is before start %s", rec.End, rec.Start)
		}
		t.End = end
		if rec.Duration != nil && *rec.Duration > 0 {
			t.Duration = *rec.Duration
		} else {
			// A business-day span that is all weekend counts zero days.
			t.Duration = max(calendar.CalculateDuration(start, end, dt), 1)
		}
	default:
		t.Duration = 1
		if rec.Duration != nil && *rec.Duration > 0 {
			t.Duration = *rec.Duration
		}
		t.End = calendar.ComputeEndDate(start, t.Duration, dt)
	}

	if t.Summary {
		return t, nil
	}
	seen := make(map[string]bool, len(rec.Dependencies))
	for i, raw := range rec.Dependencies {
		dep, err := parseDependency(raw)
		if err != nil {
			return fail("dependency %d: %v", i, err)
		}
		if dep.TaskID == id {
			return fail("depends on itself")
		}
		if seen[dep.TaskID] {
			continue
		}
		seen[dep.TaskID] = true
		t.Dependencies = append(t.Dependencies, dep)
	}
	return t, nil
}

// NormalizeAll normalizes every record, stopping at the first malformed one.
func NormalizeAll(recs []Record) ([]*Task, error) {
	tasks := make([]*Task, 0, len(recs))
	for _, r := range recs {
		t, err := Normalize(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ToRecord converts a task back into its plain form. Dependencies are
// always written in the structured shape.
func ToRecord(t *Task) Record {
	duration := t.Duration
	rec := Record{
		ID:           t.ID,
		Name:         t.Name,
		Start:        calendar.FormatDate(t.Start),
		End:          calendar.FormatDate(t.End),
		Duration:     &duration,
		DurationType: string(t.DurationType),
		Progress:     t.Progress,
		IsMilestone:  t.Milestone,
		IsSummary:    t.Summary,
		ParentID:     t.ParentID,
		Children:     append([]string(nil), t.Children...),
		OutlineLevel: t.OutlineLevel,
		IsCollapsed:  t.Collapsed,
	}
	for _, d := range t.Dependencies {
		rec.Dependencies = append(rec.Dependencies, map[string]any{
			"taskId": d.TaskID,
			"type":   string(d.Type),
			"lag":    d.Lag,
		})
	}
	return rec
}

// parseDependency accepts the bare-id shorthand, a structured map, or an
// already typed Dependency.
func parseDependency(raw any) (Dependency, error) {
	switch v := raw.(type) {
	case string:
		id := strings.TrimSpace(v)
		if id == "" {
			return Dependency{}, errors.New("empty task id")
		}
		return Dependency{TaskID: id, Type: FinishToStart}, nil
	case Dependency:
		return normalizeDependency(v)
	case *Dependency:
		if v == nil {
			return Dependency{}, errors.New("nil dependency")
		}
		return normalizeDependency(*v)
	case map[string]any:
		return dependencyFromMap(v)
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		return dependencyFromMap(m)
	}
	return Dependency{}, fmt.Errorf("unsupported shape %T", raw)
}

func dependencyFromMap(m map[string]any) (Dependency, error) {
	var d Dependency
	idRaw, ok := m["taskId"]
	if !ok {
		idRaw = m["id"]
	}
	id, ok := idRaw.(string)
	if !ok {
		return Dependency{}, fmt.Errorf("taskId must be a string, got %T", idRaw)
	}
	d.TaskID = strings.TrimSpace(id)
	if typ, ok := m["type"].(string); ok {
		d.Type = DependencyType(typ)
	}
	if lagRaw, ok := m["lag"]; ok && lagRaw != nil {
		lag, err := toInt(lagRaw)
		if err != nil {
			return Dependency{}, fmt.Errorf("lag: %w", err)
		}
		d.Lag = lag
	}
	return normalizeDependency(d)
}

func normalizeDependency(d Dependency) (Dependency, error) {
	if d.TaskID == "" {
		return Dependency{}, errors.New("empty task id")
	}
	switch strings.ToUpper(string(d.Type)) {
	case "", "FS", "FINISH-TO-START", "FINISH_TO_START":
		d.Type = FinishToStart
	default:
		return Dependency{}, fmt.Errorf("unsupported dependency type %q", d.Type)
	}
	return d, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integer %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	}
	return 0, fmt.Errorf("unsupported numeric type %T", v)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

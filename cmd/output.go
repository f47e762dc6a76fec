package cmd

import (
	"encoding/json"
	"io"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/graph"
	"github.com/papapumpkin/gantry/internal/schedule"
)

// Shapes for --format json. Dates are rendered as YYYY-MM-DD to match the
// project files.

type layoutJSON struct {
	Levels       [][]string  `json:"levels"`
	Cyclic       []string    `json:"cyclic,omitempty"`
	Tracks       []trackJSON `json:"tracks,omitempty"`
	CriticalPath []string    `json:"critical_path,omitempty"`
	CriticalDays int         `json:"critical_days"`
}

type trackJSON struct {
	ID      int      `json:"id"`
	TaskIDs []string `json:"tasks"`
	Days    int      `json:"days"`
}

type conflictJSON struct {
	Kind          string `json:"kind"`
	TaskID        string `json:"task"`
	DependencyID  string `json:"dependency"`
	Start         string `json:"start,omitempty"`
	DependencyEnd string `json:"dependency_end,omitempty"`
	Lag           int    `json:"lag,omitempty"`
	OverlapDays   int    `json:"overlap_days,omitempty"`
	CorrectStart  string `json:"correct_start,omitempty"`
}

type conflictsJSON struct {
	Conflicts []conflictJSON `json:"conflicts"`
	TaskIDs   []string       `json:"tasks"`
	Fixes     []fixJSON      `json:"fixes,omitempty"`
}

type fixJSON struct {
	TaskID       string `json:"task"`
	DependencyID string `json:"after"`
	OldStart     string `json:"old_start"`
	OldEnd       string `json:"old_end"`
	NewStart     string `json:"new_start"`
	NewEnd       string `json:"new_end"`
}

type edgeJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
	Kind string `json:"kind"`
	Lag  int    `json:"lag,omitempty"`
	Via  string `json:"via,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toLayoutJSON(l graph.Layout) layoutJSON {
	out := layoutJSON{
		Levels:       make([][]string, len(l.Levels)),
		Cyclic:       l.Cyclic,
		CriticalPath: l.CriticalPath,
		CriticalDays: l.CriticalDays,
	}
	for i, lv := range l.Levels {
		out.Levels[i] = lv.NodeIDs
	}
	for _, tr := range l.Tracks {
		out.Tracks = append(out.Tracks, trackJSON{ID: tr.ID, TaskIDs: tr.NodeIDs, Days: tr.Weight})
	}
	return out
}

func toConflictsJSON(r schedule.Report, fixes []schedule.Fix) conflictsJSON {
	out := conflictsJSON{
		Conflicts: make([]conflictJSON, 0, len(r.Conflicts)),
		TaskIDs:   r.TaskIDs,
	}
	if out.TaskIDs == nil {
		out.TaskIDs = []string{}
	}
	for _, c := range r.Conflicts {
		cj := conflictJSON{Kind: string(c.Kind), TaskID: c.TaskID, DependencyID: c.DependencyID}
		if c.Kind == schedule.TimeConflict {
			cj.Start = calendar.FormatDate(c.Start)
			cj.DependencyEnd = calendar.FormatDate(c.DependencyEnd)
			cj.Lag = c.Lag
			cj.OverlapDays = c.OverlapDays
			cj.CorrectStart = calendar.FormatDate(c.CorrectStart)
		}
		out.Conflicts = append(out.Conflicts, cj)
	}
	for _, f := range fixes {
		out.Fixes = append(out.Fixes, fixJSON{
			TaskID:       f.TaskID,
			DependencyID: f.DependencyID,
			OldStart:     calendar.FormatDate(f.OldStart),
			OldEnd:       calendar.FormatDate(f.OldEnd),
			NewStart:     calendar.FormatDate(f.NewStart),
			NewEnd:       calendar.FormatDate(f.NewEnd),
		})
	}
	return out
}

func toEdgesJSON(edges []graph.Edge) []edgeJSON {
	out := make([]edgeJSON, 0, len(edges))
	for _, e := range edges {
		out = append(out, edgeJSON{From: e.From, To: e.To, Kind: e.Kind.String(), Lag: e.Lag, Via: e.Via})
	}
	return out
}

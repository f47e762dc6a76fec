package taskfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/task"
)

const jsonProject = `[
  {"id": "A", "name": "Design", "start": "2024-01-01", "end": "2024-01-05", "duration": 5, "durationType": "calendar-days"},
  {"id": "B", "name": "Build", "start": "2024-01-03", "duration": 4, "dependencies": ["A"]},
  {"id": "C", "name": "Ship", "start": "2024-01-10", "isMilestone": true,
   "dependencies": [{"taskId": "B", "type": "FS", "lag": 1}]}
]`

const yamlProject = `
- id: A
  name: Design
  start: "2024-01-01"
  end: "2024-01-05"
- id: B
  name: Build
  start: "2024-01-03"
  duration: 4
  dependencies:
    - A
- id: C
  name: Ship
  start: "2024-01-10"
  isMilestone: true
  dependencies:
    - taskId: B
      type: FS
      lag: 1
`

const tomlProject = `
[[tasks]]
id = "A"
name = "Design"
start = "2024-01-01"
end = "2024-01-05"

[[tasks]]
id = "B"
name = "Build"
start = "2024-01-03"
duration = 4
dependencies = ["A"]

[[tasks]]
id = "C"
name = "Ship"
start = "2024-01-10"
isMilestone = true
dependencies = [{ taskId = "B", type = "FS", lag = 1 }]
`

func checkProject(t *testing.T, store *task.Store) {
	t.Helper()
	if got := store.IDs(); !slices.Equal(got, []string{"A", "B", "C"}) {
		t.Fatalf("IDs = %v", got)
	}
	b := store.Get("B")
	if calendar.FormatDate(b.End) != "2024-01-06" || b.Duration != 4 {
		t.Errorf("B = %s..%s (%d), want end 2024-01-06", calendar.FormatDate(b.Start), calendar.FormatDate(b.End), b.Duration)
	}
	if !b.DependsOn("A") {
		t.Errorf("B deps = %+v", b.Dependencies)
	}
	c := store.Get("C")
	if !c.Milestone || c.Duration != 0 || !c.End.Equal(c.Start) {
		t.Errorf("C = %+v, want pinned milestone", c)
	}
	if len(c.Dependencies) != 1 || c.Dependencies[0].Lag != 1 {
		t.Errorf("C deps = %+v", c.Dependencies)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format Format
		input  string
	}{
		{JSON, jsonProject},
		{YAML, yamlProject},
		{TOML, tomlProject},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			store, err := Decode(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			checkProject(t, store)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	t.Run("malformed dependency", func(t *testing.T) {
		t.Parallel()
		_, err := Decode(strings.NewReader(`[{"id":"A","start":"2024-01-01","dependencies":[42]}]`), JSON)
		if !errors.Is(err, task.ErrMalformedRecord) {
			t.Errorf("got %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()
		in := `[{"id":"A","start":"2024-01-01"},{"id":"A","start":"2024-01-02"}]`
		_, err := Decode(strings.NewReader(in), JSON)
		if !errors.Is(err, task.ErrDuplicateTask) {
			t.Errorf("got %v, want ErrDuplicateTask", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		_, err := Decode(strings.NewReader(""), Format("xml"))
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("got %v, want ErrUnknownFormat", err)
		}
	})

	t.Run("empty yaml", func(t *testing.T) {
		t.Parallel()
		store, err := Decode(strings.NewReader(""), YAML)
		if err != nil || store.Len() != 0 {
			t.Errorf("Decode(empty yaml) = %v, %v", store, err)
		}
	})
}

func TestFormatFor(t *testing.T) {
	t.Parallel()
	tests := map[string]Format{
		"plan.json": JSON,
		"plan.TOML": TOML,
		"plan.yaml": YAML,
		"plan.yml":  YAML,
	}
	for path, want := range tests {
		if got, err := FormatFor(path); err != nil || got != want {
			t.Errorf("FormatFor(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := FormatFor("plan.csv"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("FormatFor(csv) = %v, want ErrUnknownFormat", err)
	}
}

func TestSaveLoadAcrossFormats(t *testing.T) {
	t.Parallel()
	src, err := Decode(strings.NewReader(jsonProject), JSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	dir := t.TempDir()
	for _, name := range []string{"p.json", "p.yaml", "p.toml"} {
		path := filepath.Join(dir, name)
		if err := Save(path, src); err != nil {
			t.Fatalf("Save(%s): %v", name, err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		checkProject(t, got)
	}
}

func TestEncode_WritesStructuredDependencies(t *testing.T) {
	t.Parallel()
	src, err := Decode(strings.NewReader(jsonProject), JSON)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, JSON, src); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"taskId": "A"`) {
		t.Errorf("bare dependency not expanded:\n%s", buf.String())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want os.ErrNotExist", err)
	}
}

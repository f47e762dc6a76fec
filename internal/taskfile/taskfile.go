// Package taskfile reads and writes project files. JSON and YAML files hold
// a bare array of task records; TOML files hold the same records as
// [[tasks]] tables. Every format goes through task.Normalize, so the
// dependency shorthand is accepted everywhere.
package taskfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/gantry/internal/task"
)

// ErrUnknownFormat is returned for a file extension with no codec.
var ErrUnknownFormat = errors.New("unknown project file format")

// Format names a project file encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	TOML Format = "toml"
	YAML Format = "yaml"
)

// tomlFile is the TOML document shape; TOML has no top-level arrays.
type tomlFile struct {
	Tasks []task.Record `toml:"tasks"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Load reads a project file into a store. opts are passed to task.NewStore.
func Load(path string, opts ...task.Option) (*task.Store, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening project file: %w", err)
	}
	defer f.Close()

	store, err := Decode(f, format, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

// Save writes store to path in the format its extension names.
func Save(path string, store *task.Store) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, format, store); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing project file: %w", err)
	}
	return nil
}

// Decode parses records from r and normalizes them into a store.
func Decode(r io.Reader, format Format, opts ...task.Option) (*task.Store, error) {
	var recs []task.Record
	switch format {
	case JSON:
		if err := json.NewDecoder(r).Decode(&recs); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&recs); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	case TOML:
		var doc tomlFile
		if err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding toml: %w", err)
		}
		recs = doc.Tasks
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	tasks, err := task.NormalizeAll(recs)
	if err != nil {
		return nil, err
	}
	return task.NewStore(tasks, opts...)
}

// Encode writes every task in store to w as records.
func Encode(w io.Writer, format Format, store *task.Store) error {
	recs := Records(store)
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(recs); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case TOML:
		if err := toml.NewEncoder(w).Encode(tomlFile{Tasks: recs}); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Records converts the store's tasks to records in collection order.
func Records(store *task.Store) []task.Record {
	tasks := store.Tasks()
	recs := make([]task.Record, len(tasks))
	for i, t := range tasks {
		recs[i] = task.ToRecord(t)
	}
	return recs
}

// Package content loads the poet and verse records a round draws from.
//
// Records come from one or more documents shaped like
//
//	{"poets": [{"id": "...", "name": "...", "verses": ["..."], "poems": ["..." | {"text": "..."}]}]}
//
// in JSON or YAML. Documents are merged in order and normalized: verses fall
// back to poem texts, missing ids and names are synthesized, and records
// left without verses are dropped.
package content

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/tatianab/who-said-it/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed data
var defaultData embed.FS

// ErrNoPoets means no usable poet survived loading.
var ErrNoPoets = errors.New("no poets found in any content source")

// LoadError is the fatal content failure: zero poets after merging every
// source. Gameplay cannot start.
type LoadError struct {
	Sources int
	Skipped []string
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("no poets found in %d content source(s)", e.Sources)
	if len(e.Skipped) > 0 {
		msg += fmt.Sprintf(" (%d unreadable: %s)", len(e.Skipped), strings.Join(e.Skipped, ", "))
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return ErrNoPoets
}

// Options selects the sources to merge.
type Options struct {
	// Paths are extra files or directories, read after the built-in data.
	Paths []string
	// SkipDefaults leaves out the built-in data.
	SkipDefaults bool
}

// Document is one parsed content source.
type Document struct {
	Name  string    `json:"-" yaml:"-"`
	Poets []RawPoet `json:"poets" yaml:"poets"`
}

// RawPoet is a record as written in a document, before normalization.
type RawPoet struct {
	ID     string   `json:"id" yaml:"id"`
	Name   string   `json:"name" yaml:"name"`
	Verses []string `json:"verses" yaml:"verses"`
	Poems  []Poem   `json:"poems" yaml:"poems"`
}

// Poem accepts either a bare string or an object with a text field. Other
// shapes decode to an empty poem and are ignored.
type Poem struct {
	Text string
}

func (p *Poem) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Text = s
		return nil
	}
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &obj); err == nil {
		p.Text = obj.Text
	}
	return nil
}

func (p *Poem) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		p.Text = n.Value
	case yaml.MappingNode:
		var obj struct {
			Text string `yaml:"text"`
		}
		if err := n.Decode(&obj); err == nil {
			p.Text = obj.Text
		}
	}
	return nil
}

// Parse decodes a document, picking the format from the name's extension.
func Parse(name string, data []byte) (*Document, error) {
	doc := &Document{Name: name}
	var err error
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, doc)
	default:
		err = json.Unmarshal(data, doc)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return doc, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads every source, merges them and normalizes the result. Sources
// that cannot be read or parsed are logged and skipped; only an empty
// result is an error.
func Load(log *slog.Logger, opts Options) ([]models.Poet, error) {
	var docs []*Document
	var skipped []string
	sources := 0

	add := func(name string, data []byte, err error) {
		sources++
		if err == nil {
			var doc *Document
			doc, err = Parse(name, data)
			if err == nil {
				docs = append(docs, doc)
				return
			}
		}
		log.Warn("skipping content source", "source", name, "error", err)
		skipped = append(skipped, name)
	}

	if !opts.SkipDefaults {
		entries, err := fs.ReadDir(defaultData, "data")
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := path.Join("data", e.Name())
			data, err := defaultData.ReadFile(name)
			add("builtin:"+e.Name(), data, err)
		}
	}

	for _, p := range opts.Paths {
		files, err := expand(p)
		if err != nil {
			add(p, nil, err)
			continue
		}
		for _, f := range files {
			data, err := os.ReadFile(f)
			add(f, data, err)
		}
	}

	var raw []RawPoet
	for _, d := range docs {
		raw = append(raw, d.Poets...)
	}
	poets := Normalize(log, raw)
	if len(poets) == 0 {
		return nil, &LoadError{Sources: sources, Skipped: skipped}
	}
	log.Info("loaded poets", "count", len(poets), "sources", sources, "skipped", len(skipped))
	return poets, nil
}

// expand turns a directory into its supported files in name order.
func expand(p string) ([]string, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{p}, nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && supported(e.Name()) {
			files = append(files, filepath.Join(p, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Normalize turns merged raw records into poets. index is the record's
// position in the merged list and feeds synthesized ids and names.
func Normalize(log *slog.Logger, raw []RawPoet) []models.Poet {
	seen := make(map[string]bool, len(raw))
	poets := make([]models.Poet, 0, len(raw))
	for i, r := range raw {
		verses := clean(r.Verses)
		if len(verses) == 0 {
			texts := make([]string, 0, len(r.Poems))
			for _, p := range r.Poems {
				texts = append(texts, p.Text)
			}
			verses = clean(texts)
		}
		if len(verses) == 0 {
			log.Debug("dropping poet without verses", "index", i, "name", r.Name)
			continue
		}

		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = fmt.Sprintf("poet_%d_%s", i, uuid.NewString())
		}
		if seen[id] {
			log.Warn("dropping duplicate poet id", "id", id, "index", i)
			continue
		}
		seen[id] = true

		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = fmt.Sprintf("Poet %d", i+1)
		}
		poets = append(poets, models.Poet{ID: id, Name: name, Verses: verses})
	}
	return poets
}

func clean(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Package reference holds the static statute dataset served by reference
// lookups.
package reference

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed statutes.yaml
var builtinStatutes []byte

type Record struct {
	Code  string `yaml:"code" json:"code"`
	Title string `yaml:"title" json:"title"`
	Text  string `yaml:"text" json:"text"`
}

type file struct {
	Statutes []Record `yaml:"statutes"`
}

// Dataset is immutable after load.
type Dataset struct {
	records []Record
}

func New(records []Record) *Dataset {
	return &Dataset{records: append([]Record(nil), records...)}
}

func Builtin() *Dataset {
	ds, err := Parse(builtinStatutes)
	if err != nil {
		panic(fmt.Sprintf("builtin statutes: %v", err))
	}
	return ds
}

// Load reads a dataset from path, or returns the builtin one when path is
// empty.
func Load(path string) (*Dataset, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference file: %w", err)
	}
	ds, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse reference file %s: %w", path, err)
	}
	return ds, nil
}

func Parse(raw []byte) (*Dataset, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Statutes) == 0 {
		return nil, errors.New("no statutes defined")
	}
	for i, r := range f.Statutes {
		if strings.TrimSpace(r.Code) == "" || strings.TrimSpace(r.Title) == "" {
			return nil, fmt.Errorf("statute %d: code and title are required", i)
		}
	}
	return New(f.Statutes), nil
}

func (d *Dataset) Records() []Record {
	return append([]Record(nil), d.records...)
}

// Lookup scans records in order and returns the first whose code or title
// appears in query, or whose title or text contains query. Matching is case
// insensitive.
func (d *Dataset) Lookup(query string) (Record, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Record{}, false
	}
	for _, r := range d.records {
		code := strings.ToLower(r.Code)
		title := strings.ToLower(r.Title)
		if strings.Contains(q, code) || strings.Contains(q, title) {
			return r, true
		}
		if strings.Contains(title, q) || strings.Contains(strings.ToLower(r.Text), q) {
			return r, true
		}
	}
	return Record{}, false
}

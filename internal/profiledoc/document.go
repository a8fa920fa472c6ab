// Package profiledoc models the multi-section profile document that describes
// a user's writing persona, and the pure operations the editor applies to it.
//
// Every operation returns a new Document and leaves its input untouched.
package profiledoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidSection is returned when an operation names an unknown section.
	ErrInvalidSection = errors.New("invalid section")
	// ErrFieldKind is returned when a list operation targets a field that
	// does not hold a list of strings.
	ErrFieldKind = errors.New("field is not a string list")
	// ErrNotObject is returned by Parse when the input is not a JSON object
	// of objects.
	ErrNotObject = errors.New("profile document must be a JSON object of section objects")
)

// Section is one named group of fields. Values are JSON-shaped: string,
// bool, float64, []any, map[string]any or nil.
type Section map[string]any

// Document maps section names to sections.
type Document map[string]Section

// Default returns a document with every section present and empty.
func Default() Document {
	d := make(Document, len(Sections))
	for _, name := range Sections {
		d[name] = Section{}
	}
	return d
}

// Normalize returns a copy of d with every missing or nil section set to
// an empty section. Unknown sections are kept so Validate can report them.
func Normalize(d Document) Document {
	out := d.Clone()
	if out == nil {
		out = make(Document, len(Sections))
	}
	for _, name := range Sections {
		if out[name] == nil {
			out[name] = Section{}
		}
	}
	return out
}

// Parse decodes raw JSON into a normalized document.
func Parse(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	var top map[string]json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if top == nil {
		return nil, ErrNotObject
	}
	d := make(Document, len(top))
	for name, rawSection := range top {
		trimmed := bytes.TrimSpace(rawSection)
		if bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: section %q", ErrNotObject, name)
		}
		var s Section
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: section %q: %v", ErrNotObject, name, err)
		}
		d[name] = s
	}
	return Normalize(d), nil
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for name, s := range d {
		out[name] = s.Clone()
	}
	return out
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	if s == nil {
		return nil
	}
	out := make(Section, len(s))
	for k, v := range s {
		out[k] = cloneValue(v)
	}
	return out
}

// IsEmpty reports whether no section holds any field.
func (d Document) IsEmpty() bool {
	for _, s := range d {
		if len(s) > 0 {
			return false
		}
	}
	return true
}

// MergeSection shallow-merges updates into the named section. Fields in
// updates replace existing values; all other fields and sections are kept.
func MergeSection(d Document, section string, updates map[string]any) (Document, error) {
	if !IsSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}
	out := Normalize(d)
	merged := out[section]
	for k, v := range updates {
		merged[k] = cloneValue(v)
	}
	out[section] = merged
	return out, nil
}

// AppendArrayField appends the trimmed value to a list field. An empty
// value after trimming leaves the document unchanged. An absent field is
// treated as an empty list.
func AppendArrayField(d Document, section, field, value string) (Document, error) {
	if !IsSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}
	if f, known := Lookup(section, field); known && !f.Kind.IsStringList() {
		return nil, fmt.Errorf("%w: %s.%s", ErrFieldKind, section, field)
	}

	out := Normalize(d)
	value = strings.TrimSpace(value)
	if value == "" {
		return out, nil
	}

	list, err := listOf(out[section][field])
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, section, field)
	}
	out[section][field] = append(list, value)
	return out, nil
}

// RemoveArrayField removes the element at index from a list field. An
// index outside the list, or an absent field, leaves the document unchanged.
func RemoveArrayField(d Document, section, field string, index int) (Document, error) {
	if !IsSection(section) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSection, section)
	}

	out := Normalize(d)
	raw, present := out[section][field]
	if !present {
		return out, nil
	}
	list, err := listOf(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, section, field)
	}
	if index < 0 || index >= len(list) {
		return out, nil
	}

	kept := make([]any, 0, len(list)-1)
	kept = append(kept, list[:index]...)
	kept = append(kept, list[index+1:]...)
	out[section][field] = kept
	return out, nil
}

// CompletionPercentage is the share of present fields that hold a value,
// rounded to the nearest integer. A field counts as filled when it is not
// nil, not the empty string, and, for lists, not empty. Fields absent from
// the document are not counted at all.
func CompletionPercentage(d Document) int {
	var total, filled int
	for _, s := range d {
		for _, v := range s {
			total++
			if isFilled(v) {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(filled) * 100 / float64(total)))
}

func isFilled(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case []map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// listOf returns a fresh []any copy of a list value. nil becomes an empty list.
func listOf(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return []any{}, nil
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	default:
		return nil, ErrFieldKind
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Section:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return v
	}
}

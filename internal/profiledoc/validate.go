package profiledoc

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one schema violation. Path uses dotted notation with
// list indexes, e.g. "assets.links[1].type".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError collects every schema violation found in a document.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Path + ": " + f.Message
	}
	return "invalid profile document: " + strings.Join(parts, "; ")
}

var (
	hourPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hourPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks d against the section schema. It returns nil or a
// *ValidationError. Nil values and empty strings are accepted everywhere.
func Validate(d Document) error {
	var errs []FieldError
	add := func(path, msg string) {
		errs = append(errs, FieldError{Path: path, Message: msg})
	}

	for _, section := range sortedKeys(d) {
		fields, ok := schema[section]
		if !ok {
			add(section, "unknown section")
			continue
		}
		s := d[section]
		for _, name := range sortedKeys(s) {
			f, ok := fields[name]
			path := section + "." + name
			if !ok {
				add(path, "unknown field")
				continue
			}
			checkValue(path, f, s[name], add)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Fields: errs}
}

func checkValue(path string, f Field, v any, add func(path, msg string)) {
	if v == nil {
		return
	}

	switch f.Kind {
	case KindString:
		if _, ok := v.(string); !ok {
			add(path, "must be a string")
		}
	case KindEnum:
		s, ok := v.(string)
		if !ok {
			add(path, "must be a string")
			return
		}
		checkEnum(path, f.Enum, s, add)
	case KindBool:
		if _, ok := v.(bool); !ok {
			add(path, "must be a boolean")
		}
	case KindStringList, KindEnumList, KindHourList:
		items, ok := asList(v)
		if !ok {
			add(path, "must be a list")
			return
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			s, ok := item.(string)
			if !ok {
				add(itemPath, "must be a string")
				continue
			}
			switch f.Kind {
			case KindEnumList:
				checkEnum(itemPath, f.Enum, s, add)
			case KindHourList:
				if err := validate.Var(s, "required,hhmm"); err != nil {
					add(itemPath, "must be a time of day formatted HH:MM")
				}
			}
		}
	case KindDayList:
		items, ok := asList(v)
		if !ok {
			add(path, "must be a list")
			return
		}
		for i, item := range items {
			day, ok := asInt(item)
			if !ok || validate.Var(day, "min=0,max=6") != nil {
				add(fmt.Sprintf("%s[%d]", path, i), "must be a weekday number from 0 (Sunday) to 6")
			}
		}
	case KindObjectList:
		items, ok := asList(v)
		if !ok {
			add(path, "must be a list")
			return
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			obj, ok := item.(map[string]any)
			if !ok {
				add(itemPath, "must be an object")
				continue
			}
			for _, key := range sortedKeys(obj) {
				sub, known := f.Item[key]
				if !known {
					add(itemPath+"."+key, "unknown field")
					continue
				}
				checkValue(itemPath+"."+key, sub, obj[key], add)
			}
		}
	}
}

func checkEnum(path string, allowed []string, s string, add func(path, msg string)) {
	if s == "" {
		return
	}
	if err := validate.Var(s, "oneof="+strings.Join(allowed, " ")); err != nil {
		add(path, "must be one of: "+strings.Join(allowed, ", "))
	}
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

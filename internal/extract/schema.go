package extract

import (
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the declared type of a schema field.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	KindStringList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindStringList:
		return "array of strings"
	default:
		return "unknown"
	}
}

// Field declares one required key: its type, an optional closed value set,
// and the deterministic value it takes in the schema's fallback object.
type Field struct {
	Name     string
	Kind     Kind
	Enum     []string
	Fallback any
}

// Schema is the declared shape an extraction must conform to. Fallback
// values sit next to the field list so the fallback object provably
// conforms to the same schema it stands in for.
type Schema struct {
	Name   string
	Fields []Field
}

// Validate checks doc against the schema: every declared key present, every
// declared type matched, enum fields constrained to their allowed set.
// Returns the typed values on success.
func (s Schema) Validate(doc []byte) (map[string]any, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("schema %s: not valid JSON", s.Name)
	}
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		r := gjson.GetBytes(doc, f.Name)
		if !r.Exists() {
			return nil, fmt.Errorf("schema %s: missing required key %q", s.Name, f.Name)
		}
		v, err := f.typed(r)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", s.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

func (f Field) typed(r gjson.Result) (any, error) {
	switch f.Kind {
	case KindString:
		if r.Type != gjson.String {
			return nil, fmt.Errorf("key %q: expected string, got %s", f.Name, r.Type)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, r.Str) {
			return nil, fmt.Errorf("key %q: value %q not in %v", f.Name, r.Str, f.Enum)
		}
		return r.Str, nil
	case KindInt:
		if r.Type != gjson.Number || r.Num != math.Trunc(r.Num) {
			return nil, fmt.Errorf("key %q: expected integer, got %s", f.Name, r.Raw)
		}
		return int64(r.Num), nil
	case KindBool:
		if !r.IsBool() {
			return nil, fmt.Errorf("key %q: expected boolean, got %s", f.Name, r.Type)
		}
		return r.Bool(), nil
	case KindStringList:
		if !r.IsArray() {
			return nil, fmt.Errorf("key %q: expected array, got %s", f.Name, r.Type)
		}
		items := r.Array()
		list := make([]string, 0, len(items))
		for _, item := range items {
			if item.Type != gjson.String {
				return nil, fmt.Errorf("key %q: expected array of strings, got element %s", f.Name, item.Raw)
			}
			list = append(list, item.Str)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("key %q: unknown kind", f.Name)
	}
}

// FallbackValue is the deterministic schema-conformant default object.
func (s Schema) FallbackValue() map[string]any {
	out := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		out[f.Name] = f.Fallback
	}
	return out
}

// Hint renders the shape directive appended to every model prompt.
func (s Schema) Hint() string {
	var b strings.Builder
	b.WriteString("Respond with a JSON object of the form {")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: <%s>", f.Name, f.Kind)
		if len(f.Enum) > 0 {
			fmt.Fprintf(&b, " one of %s", strings.Join(f.Enum, "|"))
		}
	}
	b.WriteString("}.")
	return b.String()
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Built-in schemas.
var (
	// Wish is the spoken greeting shape rendered on a card.
	Wish = Schema{
		Name: "wish",
		Fields: []Field{
			{Name: "display", Kind: KindString, Fallback: "Warmest wishes to you!"},
			{Name: "speech", Kind: KindString, Fallback: "Warmest wishes to you and yours."},
			{Name: "language", Kind: KindString,
				Enum:     []string{"en", "es", "fr", "de", "it", "ja", "zh"},
				Fallback: "en"},
		},
	}

	// Checklist is a titled list of suggestion items.
	Checklist = Schema{
		Name: "checklist",
		Fields: []Field{
			{Name: "title", Kind: KindString, Fallback: "Suggestions"},
			{Name: "items", Kind: KindStringList, Fallback: []string{}},
		},
	}
)

var registry = map[string]Schema{
	Wish.Name:      Wish,
	Checklist.Name: Checklist,
}

// Lookup resolves a schema by name.
func Lookup(name string) (Schema, bool) {
	s, ok := registry[name]
	return s, ok
}

package quicksand

import (
	"encoding/json"
	"math"
	"reflect"
)

// Shape identifies which of the two known engine output layouts a raw result uses.
type Shape int

const (
	// ShapeLegacy is a bare flow map with no wrapper keys.
	ShapeLegacy Shape = iota
	// ShapeModern wraps the flow map under "results", optionally next to
	// "score", "tags", "risk" and "state".
	ShapeModern
)

func (s Shape) String() string {
	if s == ShapeModern {
		return "modern"
	}
	return "legacy"
}

// Raw result keys understood by Classify.
const (
	keyResults = "results"
	keyScore   = "score"
	keyTags    = "tags"
	keyRisk    = "risk"
	keyState   = "state"
)

// Envelope is a raw engine result after shape detection. The optional fields
// are only ever set for ShapeModern; nil (or "") means the engine did not
// supply a usable value and it must be derived instead.
type Envelope struct {
	Shape Shape
	Flows FlowMap

	Score *int
	Tags  []string
	Risk  string
}

// Classify decides the shape of raw once and lifts the pass-through fields
// out of it. It accepts any value: a mapping with a "results" key is modern,
// any other mapping is legacy, and a non-mapping is an empty legacy map.
func Classify(raw any) Envelope {
	m, ok := asMap(raw)
	if !ok {
		return Envelope{Shape: ShapeLegacy, Flows: FlowMap{}}
	}

	if _, modern := m[keyResults]; !modern {
		return Envelope{Shape: ShapeLegacy, Flows: FlowMap(m)}
	}

	env := Envelope{Shape: ShapeModern, Flows: FlowMap{}}
	if flows, ok := asMap(m[keyResults]); ok {
		env.Flows = FlowMap(flows)
	}
	if score, ok := coerceScore(m[keyScore]); ok {
		env.Score = &score
	}
	if tags, ok := coerceTags(m[keyTags]); ok {
		env.Tags = tags
	}
	if risk, ok := nonEmptyString(m[keyRisk]); ok {
		env.Risk = risk
	} else if state, ok := nonEmptyString(m[keyState]); ok {
		env.Risk = state
	}
	return env
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		if m == nil {
			return nil, false
		}
		return m, true
	case FlowMap:
		if m == nil {
			return nil, false
		}
		return map[string]any(m), true
	default:
		return reflectMap(v)
	}
}

// reflectMap converts typed maps with string keys, such as map[string]string.
func reflectMap(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, rec := range l {
			out[i] = rec
		}
		return out, true
	default:
		return reflectList(v)
	}
}

// reflectList converts typed slices and arrays, such as []string.
func reflectList(v any) ([]any, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func nonEmptyString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// coerceScore turns an engine score into an integer in [0, MaxInt32].
// Fractions are floored. Anything non-numeric (including bools and null) is
// reported as absent.
func coerceScore(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		if i, err := n.Int64(); err == nil {
			f = float64(i)
			break
		}
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	switch {
	case math.IsNaN(f):
		return 0, false
	case f <= 0:
		return 0, true
	case f >= math.MaxInt32:
		return math.MaxInt32, true
	default:
		return int(math.Floor(f)), true
	}
}

// coerceTags keeps the non-empty strings of an engine tag list in first-seen
// order without duplicates. A value that is not a list is reported as absent.
func coerceTags(v any) ([]string, bool) {
	var items []any
	switch l := v.(type) {
	case []string:
		items = make([]any, len(l))
		for i, s := range l {
			items[i] = s
		}
	case []any:
		items = l
	default:
		return nil, false
	}

	tags := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s, ok := nonEmptyString(item)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}
	return tags, true
}

package quicksand

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Normalize reduces any raw engine result to the canonical Result. It never
// fails: malformed flows, detections and pass-through fields are ignored or
// derived rather than reported.
func Normalize(raw any) Result {
	return Classify(raw).Result()
}

// Result runs the derivation shared by both shapes. Pass-through values on the
// envelope win; everything missing is computed from the flattened detections.
func (e Envelope) Result() Result {
	flows := e.Flows
	if flows == nil {
		flows = FlowMap{}
	}
	detections := Flatten(flows)

	score := len(detections)
	if e.Score != nil {
		score = *e.Score
	}

	tags := e.Tags
	if tags == nil {
		tags = DeriveTags(detections)
	}

	risk := e.Risk
	if risk == "" {
		risk = string(TierForScore(score))
	}

	return Result{
		Risk:    risk,
		Score:   score,
		Tags:    tags,
		Results: flows,
	}
}

// Flatten concatenates every list-valued flow in flow-identifier order.
// Flows whose value is not a list are skipped.
func Flatten(flows FlowMap) []any {
	ids := make([]string, 0, len(flows))
	for id := range flows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var all []any
	for _, id := range ids {
		if list, ok := asList(flows[id]); ok {
			all = append(all, list...)
		}
	}
	return all
}

// DeriveTags collects the distinct tag names of the given detections. A
// record contributes its "rule" when that is a non-empty string, otherwise
// its "tag". Detections that are not records contribute nothing. The result
// is sorted and never nil.
func DeriveTags(detections []any) []string {
	seen := make(map[string]struct{})
	for _, d := range detections {
		rec, ok := asMap(d)
		if !ok {
			continue
		}
		name, ok := nonEmptyString(rec["rule"])
		if !ok {
			name, ok = nonEmptyString(rec["tag"])
		}
		if ok {
			seen[name] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for name := range seen {
		tags = append(tags, name)
	}
	sort.Strings(tags)
	return tags
}

// Decode reads exactly one JSON document of engine output into the generic value
// tree Normalize expects. Numbers are kept as json.Number so integral scores
// are never rounded through float64. Empty input decodes to an empty mapping;
// anything after the document is an error.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("decode engine output: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode engine output: unexpected data after JSON document")
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	return raw, nil
}

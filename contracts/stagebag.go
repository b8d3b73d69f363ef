package contracts

import (
	"encoding/json"
	"fmt"
)

// Reserved stage bag keys. Everything else in a bag is validated field data
// belonging to the stage.
const (
	KeyComplete  = "complete"
	KeySkipped   = "skipped"
	KeySplitForm = "split_form"
)

// SplitFormLastStep is the sentinel value a split stage writes into the
// split_form field when the next submission is the final sub-screen.
const SplitFormLastStep = "split_form_last_step"

// JourneyBag is the reserved key for journey-wide data that does not belong
// to any single stage (court code, language flags).
const JourneyBag = "journey"

// StageBag holds the persisted key-value data for one stage.
type StageBag map[string]any

// Complete reports whether the stage's input has passed validation and
// committed, either by the user or by a branching skip.
func (b StageBag) Complete() bool {
	if b == nil {
		return false
	}
	v, _ := b[KeyComplete].(bool)
	return v
}

// Skipped reports whether the stage was bypassed by branching logic rather
// than filled in by the user.
func (b StageBag) Skipped() bool {
	if b == nil {
		return false
	}
	v, _ := b[KeySkipped].(bool)
	return v
}

// MarkComplete records that this stage's data is committed.
func (b StageBag) MarkComplete() {
	b[KeyComplete] = true
}

// MarkSkipped records that this stage was bypassed by an upstream branching
// decision. Skipped implies complete for dependency checking, but the two are
// kept distinguishable for display.
func (b StageBag) MarkSkipped() {
	b[KeyComplete] = true
	b[KeySkipped] = true
}

// SplitForm returns the current split-step marker, or "" when the stage is
// not in a split flow.
func (b StageBag) SplitForm() string {
	if b == nil {
		return ""
	}
	v, _ := b[KeySplitForm].(string)
	return v
}

// Merge copies the keys of src into b, overwriting existing keys but leaving
// keys absent from src untouched. This is the engine's non-destructive
// partial update.
func (b StageBag) Merge(src map[string]any) {
	for k, v := range src {
		b[k] = v
	}
}

// ItemList returns the ordered per-item bags stored under key, used by
// repeating stages (one bag per charge). A missing or foreign-typed value
// yields nil.
func (b StageBag) ItemList(key string) []StageBag {
	if b == nil {
		return nil
	}
	switch items := b[key].(type) {
	case []StageBag:
		return items
	case []any:
		// JSON round-trips decode the list as []any of maps.
		out := make([]StageBag, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				out = append(out, StageBag(m))
			} else {
				out = append(out, StageBag{})
			}
		}
		return out
	default:
		return nil
	}
}

// ItemsComplete reports whether every item bag in the list under key is
// complete. An empty or missing list is not complete.
func (b StageBag) ItemsComplete(key string) bool {
	items := b.ItemList(key)
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.Complete() {
			return false
		}
	}
	return true
}

// JourneyData is the full session-scoped map of stage name to stage bag,
// owned by the caller and persisted through a session.Store.
type JourneyData map[string]StageBag

// Bag returns the bag for a stage, creating an empty one if absent.
func (d JourneyData) Bag(stage string) StageBag {
	bag, ok := d[stage]
	if !ok || bag == nil {
		bag = StageBag{}
		d[stage] = bag
	}
	return bag
}

// Copy returns a deep copy of the journey data via a JSON round-trip, so a
// working set can be mutated without touching the caller's snapshot.
func (d JourneyData) Copy() (JourneyData, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journey data: %w", err)
	}
	var out JourneyData
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journey data: %w", err)
	}
	if out == nil {
		out = JourneyData{}
	}
	return out, nil
}

// ReplaceWith clears d and copies every bag of src into it in place, keeping
// the caller's map reference valid.
func (d JourneyData) ReplaceWith(src JourneyData) {
	for k := range d {
		delete(d, k)
	}
	for k, v := range src {
		d[k] = v
	}
}

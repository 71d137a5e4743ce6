package proposal

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Arguments is the structured payload carried by a token to acceptance:
// either a mapping or an ordered sequence, stored as jsonb.
type Arguments struct {
	value any
}

// NewArguments follows the adapter's variadic form: a single map argument
// becomes the mapping itself, anything else is kept as a sequence.
func NewArguments(args ...any) Arguments {
	if len(args) == 0 {
		return Arguments{}
	}
	if len(args) == 1 {
		if m, ok := args[0].(map[string]any); ok {
			return Arguments{value: m}
		}
	}
	return Arguments{value: args}
}

// ArgsMap wraps a mapping payload.
func ArgsMap(m map[string]any) Arguments {
	return Arguments{value: m}
}

// ArgsList wraps a sequence payload.
func ArgsList(items ...any) Arguments {
	return Arguments{value: items}
}

// IsZero reports whether no payload was ever attached.
func (a Arguments) IsZero() bool { return a.value == nil }

// IsMap reports whether the payload is a mapping.
func (a Arguments) IsMap() bool {
	_, ok := a.value.(map[string]any)
	return ok
}

// Map returns the mapping payload, or nil when the payload is not a mapping.
func (a Arguments) Map() map[string]any {
	m, _ := a.value.(map[string]any)
	return m
}

// List returns the sequence payload, or nil when the payload is not a sequence.
func (a Arguments) List() []any {
	l, _ := a.value.([]any)
	return l
}

// Get returns the value stored under key in a mapping payload.
func (a Arguments) Get(key string) (any, bool) {
	m, ok := a.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// Empty reports whether the payload is absent or has no elements.
func (a Arguments) Empty() bool {
	switch v := a.value.(type) {
	case nil:
		return true
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	default:
		return false
	}
}

// Value implements driver.Valuer so the payload round-trips through jsonb.
func (a Arguments) Value() (driver.Value, error) {
	if a.value == nil {
		return nil, nil
	}
	return json.Marshal(a.value)
}

// Scan implements sql.Scanner.
func (a *Arguments) Scan(src any) error {
	if src == nil {
		a.value = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("arguments: cannot scan %T", src)
	}
	if len(raw) == 0 {
		a.value = nil
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("arguments: %w", err)
	}
	a.value = decoded
	return nil
}

// MarshalJSON renders the raw payload.
func (a Arguments) MarshalJSON() ([]byte, error) {
	if a.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.value)
}

// UnmarshalJSON accepts either payload shape.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	a.value = decoded
	return nil
}

type expectKind int

const (
	expectNone expectKind = iota
	expectKey
	expectKeys
	expectPredicate
)

// Expectation is the pluggable "expects" contract validated against a
// token's arguments: nothing, one required key, many required keys, or an
// arbitrary predicate.
type Expectation struct {
	kind      expectKind
	keys      []string
	predicate func(Arguments) bool
}

// ExpectNone requires nothing of the arguments.
func ExpectNone() Expectation { return Expectation{} }

// ExpectKey requires a mapping payload with a present value for key.
func ExpectKey(key string) Expectation {
	return Expectation{kind: expectKey, keys: []string{key}}
}

// ExpectKeys requires a mapping payload with a present value for every key.
func ExpectKeys(keys ...string) Expectation {
	return Expectation{kind: expectKeys, keys: keys}
}

// ExpectFunc validates the arguments with an arbitrary predicate.
func ExpectFunc(fn func(Arguments) bool) Expectation {
	if fn == nil {
		panic("proposal: ExpectFunc requires a non-nil predicate")
	}
	return Expectation{kind: expectPredicate, predicate: fn}
}

// Present reports whether the expectation demands anything.
func (e Expectation) Present() bool { return e.kind != expectNone }

// present mirrors the acceptance rule for required argument values: nil,
// blank strings and empty collections do not count.
func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// validateArguments checks args against the expectation and records
// violations on the "arguments" field. The per-key "is missing" checks are
// independent of the "must be a hash" check, so a non-mapping payload with
// two required keys yields three violations.
func validateArguments(args Arguments, e Expectation, v *Violations) {
	switch e.kind {
	case expectNone:
		return
	case expectPredicate:
		if !runPredicate(e.predicate, args) {
			v.Add("arguments", "is invalid")
		}
	default:
		if !args.IsMap() {
			v.Add("arguments", "must be a hash")
		}
		for _, key := range e.keys {
			val, _ := args.Get(key)
			if !present(val) {
				v.Add("arguments", fmt.Sprintf("is missing %s", key))
			}
		}
	}
}

// runPredicate treats a panicking predicate as a failed one.
func runPredicate(fn func(Arguments) bool, args Arguments) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return fn(args)
}

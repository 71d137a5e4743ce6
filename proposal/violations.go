package proposal

import "fmt"

// Violations collects validation messages keyed by field, preserving the
// order in which fields first failed. The zero value is ready to use.
type Violations struct {
	order  []string
	fields map[string][]string
}

// Add records a message against a field.
func (v *Violations) Add(field, message string) {
	if v.fields == nil {
		v.fields = make(map[string][]string)
	}
	if _, seen := v.fields[field]; !seen {
		v.order = append(v.order, field)
	}
	v.fields[field] = append(v.fields[field], message)
}

// On returns the messages recorded for a field.
func (v *Violations) On(field string) []string {
	if v == nil || v.fields == nil {
		return nil
	}
	return v.fields[field]
}

// Any reports whether at least one violation was recorded.
func (v *Violations) Any() bool {
	return v != nil && len(v.fields) > 0
}

// Len returns the total number of recorded messages.
func (v *Violations) Len() int {
	if v == nil {
		return 0
	}
	n := 0
	for _, msgs := range v.fields {
		n += len(msgs)
	}
	return n
}

// Fields returns the violated fields in first-failure order.
func (v *Violations) Fields() []string {
	if v == nil {
		return nil
	}
	return v.order
}

// Full renders every violation as "<field> <message>".
func (v *Violations) Full() []string {
	if v == nil {
		return nil
	}
	var out []string
	for _, field := range v.order {
		for _, msg := range v.fields[field] {
			out = append(out, fmt.Sprintf("%s %s", field, msg))
		}
	}
	return out
}

// Map exposes the violations as a plain field -> messages map.
func (v *Violations) Map() map[string][]string {
	if v == nil || v.fields == nil {
		return nil
	}
	out := make(map[string][]string, len(v.fields))
	for field, msgs := range v.fields {
		out[field] = append([]string(nil), msgs...)
	}
	return out
}

func (v *Violations) clear() {
	v.order = nil
	v.fields = nil
}

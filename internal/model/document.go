package model

import "time"

// Fields is the raw field mapping of a stored document.
//
// Values are JSON-like: nil, bool, string, float64 (any Go integer or float on input),
// time.Time, []any, []string, map[string]any, Fields, or ServerTimestamp.
type Fields map[string]any

// Document is a stored document as seen by a collection listener.
type Document struct {
	ID         string
	Path       string // collection path the document belongs to
	Fields     Fields
	CreateTime time.Time // store commit time
	Seq        int64     // store-assigned order within the collection
}

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own clock at write time.
var ServerTimestamp any = serverTimestamp{}

// IsServerTimestamp reports whether v is the ServerTimestamp sentinel.
func IsServerTimestamp(v any) bool {
	_, ok := v.(serverTimestamp)
	return ok
}

// ResolveServerTimestamps returns a copy of f with every ServerTimestamp sentinel,
// at any depth, replaced by at.
func ResolveServerTimestamps(f Fields, at time.Time) Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = resolveValue(v, at)
	}
	return out
}

func resolveValue(v any, at time.Time) any {
	switch x := v.(type) {
	case serverTimestamp:
		return at
	case Fields:
		return ResolveServerTimestamps(x, at)
	case map[string]any:
		return map[string]any(ResolveServerTimestamps(Fields(x), at))
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = resolveValue(x[i], at)
		}
		return out
	default:
		return v
	}
}

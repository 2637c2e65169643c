// Package convert maps domain values to the protobuf well-known types used on the
// wire and in storage, and back.
package convert

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/forever-vivid/internal/model"
)

// Tagged objects carry values JSON has no type for.
const (
	timestampKey            = "@timestamp"
	sentinelKey             = "@sentinel"
	serverTimestampSentinel = "serverTimestamp"
)

// --- field values ---

// ToProtoValue encodes a single field value.
func ToProtoValue(v any) (*structpb.Value, error) {
	switch x := v.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(x), nil
	case string:
		return structpb.NewStringValue(x), nil
	case int:
		return structpb.NewNumberValue(float64(x)), nil
	case int32:
		return structpb.NewNumberValue(float64(x)), nil
	case int64:
		return structpb.NewNumberValue(float64(x)), nil
	case float32:
		return numberValue(float64(x))
	case float64:
		return numberValue(x)
	case time.Time:
		return tagged(timestampKey, x.UTC().Format(time.RFC3339Nano)), nil
	case []string:
		vals := make([]*structpb.Value, 0, len(x))
		for _, s := range x {
			vals = append(vals, structpb.NewStringValue(s))
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case []any:
		vals := make([]*structpb.Value, 0, len(x))
		for i, e := range x {
			pv, err := ToProtoValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			vals = append(vals, pv)
		}
		return structpb.NewListValue(&structpb.ListValue{Values: vals}), nil
	case model.Fields:
		s, err := ToProtoFields(x)
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	case map[string]any:
		s, err := ToProtoFields(model.Fields(x))
		if err != nil {
			return nil, err
		}
		return structpb.NewStructValue(s), nil
	default:
		if model.IsServerTimestamp(v) {
			return tagged(sentinelKey, serverTimestampSentinel), nil
		}
		return nil, fmt.Errorf("unsupported field value type %T", v)
	}
}

func numberValue(x float64) (*structpb.Value, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil, errors.New("non-finite number")
	}
	return structpb.NewNumberValue(x), nil
}

func tagged(key, val string) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{key: structpb.NewStringValue(val)},
	})
}

// FromProtoValue decodes a single field value. Nested objects come back as map[string]any.
func FromProtoValue(v *structpb.Value) (any, error) {
	switch k := v.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_BoolValue:
		return k.BoolValue, nil
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NumberValue:
		return k.NumberValue, nil
	case *structpb.Value_ListValue:
		vals := k.ListValue.GetValues()
		out := make([]any, 0, len(vals))
		for i, e := range vals {
			gv, err := FromProtoValue(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, gv)
		}
		return out, nil
	case *structpb.Value_StructValue:
		if tv, ok, err := fromTagged(k.StructValue); ok || err != nil {
			return tv, err
		}
		f, err := FromProtoFields(k.StructValue)
		if err != nil {
			return nil, err
		}
		return map[string]any(f), nil
	default:
		return nil, fmt.Errorf("unsupported value kind %T", k)
	}
}

func fromTagged(s *structpb.Struct) (any, bool, error) {
	if len(s.GetFields()) != 1 {
		return nil, false, nil
	}
	if v, ok := s.GetFields()[timestampKey]; ok {
		t, err := time.Parse(time.RFC3339Nano, v.GetStringValue())
		if err != nil {
			return nil, true, fmt.Errorf("bad timestamp: %w", err)
		}
		return t, true, nil
	}
	if v, ok := s.GetFields()[sentinelKey]; ok {
		if v.GetStringValue() != serverTimestampSentinel {
			return nil, true, fmt.Errorf("unknown sentinel %q", v.GetStringValue())
		}
		return model.ServerTimestamp, true, nil
	}
	return nil, false, nil
}

// ToProtoFields encodes a field mapping.
func ToProtoFields(f model.Fields) (*structpb.Struct, error) {
	out := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(f))}
	for k, v := range f {
		pv, err := ToProtoValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out.Fields[k] = pv
	}
	return out, nil
}

// FromProtoFields decodes a field mapping. A nil struct decodes to an empty mapping.
func FromProtoFields(s *structpb.Struct) (model.Fields, error) {
	out := make(model.Fields, len(s.GetFields()))
	for k, v := range s.GetFields() {
		gv, err := FromProtoValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = gv
	}
	return out, nil
}

// FieldsToJSON encodes fields for storage using the wire encoding.
func FieldsToJSON(f model.Fields) ([]byte, error) {
	s, err := ToProtoFields(f)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// FieldsFromJSON decodes fields stored by FieldsToJSON.
func FieldsFromJSON(b []byte) (model.Fields, error) {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return FromProtoFields(s)
}

// --- messages ---

func stringAt(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", fmt.Errorf("missing %q", key)
	}
	str, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%q must be a string", key)
	}
	return str.StringValue, nil
}

func structAt(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

// ToProtoAppendRequest builds the Documents/Append request.
func ToProtoAppendRequest(path string, f model.Fields) (*structpb.Struct, error) {
	fs, err := ToProtoFields(f)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"path":   structpb.NewStringValue(path),
		"fields": structpb.NewStructValue(fs),
	}}, nil
}

// FromProtoAppendRequest unpacks the Documents/Append request.
func FromProtoAppendRequest(s *structpb.Struct) (string, model.Fields, error) {
	path, err := stringAt(s, "path")
	if err != nil {
		return "", nil, err
	}
	f, err := FromProtoFields(structAt(s, "fields"))
	if err != nil {
		return "", nil, err
	}
	return path, f, nil
}

// ToProtoAppendResponse builds the Documents/Append response.
func ToProtoAppendResponse(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

// FromProtoAppendResponse returns the assigned document id.
func FromProtoAppendResponse(s *structpb.Struct) (string, error) {
	return stringAt(s, "id")
}

// ToProtoListenRequest builds the Documents/Listen request.
func ToProtoListenRequest(path string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"path": structpb.NewStringValue(path)}}
}

// FromProtoListenRequest returns the requested collection path.
func FromProtoListenRequest(s *structpb.Struct) (string, error) {
	return stringAt(s, "path")
}

// ToProtoSnapshot encodes a full collection snapshot in store order.
func ToProtoSnapshot(docs []model.Document) (*structpb.Struct, error) {
	vals := make([]*structpb.Value, 0, len(docs))
	for _, d := range docs {
		fs, err := ToProtoFields(d.Fields)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		vals = append(vals, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":     structpb.NewStringValue(d.ID),
			"fields": structpb.NewStructValue(fs),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"documents": structpb.NewListValue(&structpb.ListValue{Values: vals}),
	}}, nil
}

// FromProtoSnapshot decodes a snapshot. The result is never nil.
func FromProtoSnapshot(s *structpb.Struct) ([]model.Document, error) {
	vals := s.GetFields()["documents"].GetListValue().GetValues()
	out := make([]model.Document, 0, len(vals))
	for i, v := range vals {
		ds := v.GetStructValue()
		if ds == nil {
			return nil, fmt.Errorf("documents[%d]: not an object", i)
		}
		id, err := stringAt(ds, "id")
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
		f, err := FromProtoFields(structAt(ds, "fields"))
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
		out = append(out, model.Document{ID: id, Fields: f})
	}
	return out, nil
}

// ToProtoCustomTokenRequest builds the Identity/SignInWithCustomToken request.
func ToProtoCustomTokenRequest(token string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"token": structpb.NewStringValue(token)}}
}

// FromProtoCustomTokenRequest returns the presented custom token.
func FromProtoCustomTokenRequest(s *structpb.Struct) (string, error) {
	return stringAt(s, "token")
}

// ToProtoCredential encodes a sign-in result.
func ToProtoCredential(c model.Credential) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"uid":         structpb.NewStringValue(c.UID),
		"anonymous":   structpb.NewBoolValue(c.Anonymous),
		"accessToken": structpb.NewStringValue(c.AccessToken),
		"expiresAt":   structpb.NewStringValue(c.ExpiresAt.UTC().Format(time.RFC3339Nano)),
	}}
}

// FromProtoCredential decodes a sign-in result.
func FromProtoCredential(s *structpb.Struct) (model.Credential, error) {
	uid, err := stringAt(s, "uid")
	if err != nil {
		return model.Credential{}, err
	}
	tok, err := stringAt(s, "accessToken")
	if err != nil {
		return model.Credential{}, err
	}
	exp, err := stringAt(s, "expiresAt")
	if err != nil {
		return model.Credential{}, err
	}
	expAt, err := time.Parse(time.RFC3339Nano, exp)
	if err != nil {
		return model.Credential{}, fmt.Errorf("expiresAt: %w", err)
	}
	if uid == "" || tok == "" {
		return model.Credential{}, errors.New("empty uid or access token")
	}
	return model.Credential{
		Identity:    model.Identity{UID: uid, Anonymous: s.GetFields()["anonymous"].GetBoolValue()},
		AccessToken: tok,
		ExpiresAt:   expAt,
	}, nil
}

// SortedKeys lists field names in lexical order; used for stable rendering.
func SortedKeys(f model.Fields) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package convert

import (
	"math"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/forever-vivid/internal/model"
)

var at = time.Date(2025, 3, 4, 10, 30, 0, 123000000, time.UTC)

func TestFields_RoundTrip(t *testing.T) {
	t.Parallel()

	in := model.Fields{
		"description": "Beach day",
		"tags":        []string{"sea", "sun"},
		"hasMusic":    true,
		"progress":    42,
		"createdAt":   at,
		"nested":      map[string]any{"k": "v"},
		"empty":       nil,
	}
	s, err := ToProtoFields(in)
	if err != nil {
		t.Fatalf("ToProtoFields: %v", err)
	}
	out, err := FromProtoFields(s)
	if err != nil {
		t.Fatalf("FromProtoFields: %v", err)
	}

	if out["description"] != "Beach day" || out["hasMusic"] != true || out["empty"] != nil {
		t.Fatalf("scalars mismatch: %#v", out)
	}
	if out["progress"] != float64(42) {
		t.Fatalf("numbers decode as float64, got %#v", out["progress"])
	}
	tags, ok := out["tags"].([]any)
	if !ok || len(tags) != 2 || tags[0] != "sea" || tags[1] != "sun" {
		t.Fatalf("tags: %#v", out["tags"])
	}
	ts, ok := out["createdAt"].(time.Time)
	if !ok || !ts.Equal(at) {
		t.Fatalf("createdAt: %#v", out["createdAt"])
	}
	nested, ok := out["nested"].(map[string]any)
	if !ok || nested["k"] != "v" {
		t.Fatalf("nested: %#v", out["nested"])
	}
}

func TestServerTimestamp_SurvivesWire(t *testing.T) {
	t.Parallel()

	s, err := ToProtoFields(model.Fields{"createdAt": model.ServerTimestamp})
	if err != nil {
		t.Fatalf("ToProtoFields: %v", err)
	}
	got := s.GetFields()["createdAt"].GetStructValue().GetFields()[sentinelKey].GetStringValue()
	if got != serverTimestampSentinel {
		t.Fatalf("sentinel encoding: %q", got)
	}
	out, err := FromProtoFields(s)
	if err != nil {
		t.Fatalf("FromProtoFields: %v", err)
	}
	if !model.IsServerTimestamp(out["createdAt"]) {
		t.Fatalf("sentinel lost: %#v", out["createdAt"])
	}
}

func TestToProtoValue_Rejects(t *testing.T) {
	t.Parallel()

	for name, v := range map[string]any{
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"channel": make(chan int),
		"deep":    []any{struct{}{}},
	} {
		if _, err := ToProtoValue(v); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}

func TestFromProtoValue_BadTags(t *testing.T) {
	t.Parallel()

	if _, err := FromProtoValue(tagged(timestampKey, "yesterday")); err == nil {
		t.Fatalf("want error on unparsable timestamp")
	}
	if _, err := FromProtoValue(tagged(sentinelKey, "increment")); err == nil {
		t.Fatalf("want error on unknown sentinel")
	}
	// two keys: ordinary object
	v := structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		timestampKey: structpb.NewStringValue("x"),
		"other":      structpb.NewStringValue("y"),
	}})
	got, err := FromProtoValue(v)
	if err != nil {
		t.Fatalf("FromProtoValue: %v", err)
	}
	if m, ok := got.(map[string]any); !ok || m["other"] != "y" {
		t.Fatalf("want plain object, got %#v", got)
	}
}

func TestFieldsJSON_RoundTrip(t *testing.T) {
	t.Parallel()

	b, err := FieldsToJSON(model.Fields{"title": "Trip", "createdAt": at})
	if err != nil {
		t.Fatalf("FieldsToJSON: %v", err)
	}
	if !strings.Contains(string(b), timestampKey) {
		t.Fatalf("stored json must carry tagged timestamp: %s", b)
	}
	f, err := FieldsFromJSON(b)
	if err != nil {
		t.Fatalf("FieldsFromJSON: %v", err)
	}
	if f["title"] != "Trip" || !f["createdAt"].(time.Time).Equal(at) {
		t.Fatalf("decoded: %#v", f)
	}
	if _, err := FieldsFromJSON([]byte("[1,2]")); err == nil {
		t.Fatalf("want error on non-object json")
	}
}

func TestAppendRequest(t *testing.T) {
	t.Parallel()

	req, err := ToProtoAppendRequest("artifacts/a/users/u/memories", model.Fields{"description": "x"})
	if err != nil {
		t.Fatalf("ToProtoAppendRequest: %v", err)
	}
	path, f, err := FromProtoAppendRequest(req)
	if err != nil {
		t.Fatalf("FromProtoAppendRequest: %v", err)
	}
	if path != "artifacts/a/users/u/memories" || f["description"] != "x" {
		t.Fatalf("got path=%q fields=%#v", path, f)
	}

	if _, _, err := FromProtoAppendRequest(&structpb.Struct{}); err == nil {
		t.Fatalf("want error on missing path")
	}
	// missing fields object decodes as empty
	_, f, err = FromProtoAppendRequest(ToProtoListenRequest("p"))
	if err != nil || len(f) != 0 {
		t.Fatalf("missing fields: f=%#v err=%v", f, err)
	}
}

func TestSnapshot_KeepsOrder(t *testing.T) {
	t.Parallel()

	docs := []model.Document{
		{ID: "b", Fields: model.Fields{"n": 1}},
		{ID: "a", Fields: model.Fields{"n": 2}},
		{ID: "c"},
	}
	s, err := ToProtoSnapshot(docs)
	if err != nil {
		t.Fatalf("ToProtoSnapshot: %v", err)
	}
	got, err := FromProtoSnapshot(s)
	if err != nil {
		t.Fatalf("FromProtoSnapshot: %v", err)
	}
	if len(got) != 3 || got[0].ID != "b" || got[1].ID != "a" || got[2].ID != "c" {
		t.Fatalf("order: %+v", got)
	}
	if got[1].Fields["n"] != float64(2) || got[2].Fields == nil {
		t.Fatalf("fields: %+v", got)
	}

	empty, err := FromProtoSnapshot(&structpb.Struct{})
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty snapshot must be non-nil and empty: %v %v", empty, err)
	}
}

func TestCredential_RoundTrip(t *testing.T) {
	t.Parallel()

	c := model.Credential{
		Identity:    model.Identity{UID: "u-1", Anonymous: true},
		AccessToken: "tok",
		ExpiresAt:   at,
	}
	got, err := FromProtoCredential(ToProtoCredential(c))
	if err != nil {
		t.Fatalf("FromProtoCredential: %v", err)
	}
	if got.UID != "u-1" || !got.Anonymous || got.AccessToken != "tok" || !got.ExpiresAt.Equal(at) {
		t.Fatalf("credential: %+v", got)
	}

	c.AccessToken = ""
	if _, err := FromProtoCredential(ToProtoCredential(c)); err == nil {
		t.Fatalf("want error on empty token")
	}
}

func TestCustomTokenRequest(t *testing.T) {
	t.Parallel()

	tok, err := FromProtoCustomTokenRequest(ToProtoCustomTokenRequest("abc"))
	if err != nil || tok != "abc" {
		t.Fatalf("token=%q err=%v", tok, err)
	}
	bad := &structpb.Struct{Fields: map[string]*structpb.Value{"token": structpb.NewNumberValue(1)}}
	if _, err := FromProtoCustomTokenRequest(bad); err == nil {
		t.Fatalf("want error on non-string token")
	}
}

func TestSortedKeys(t *testing.T) {
	t.Parallel()

	got := SortedKeys(model.Fields{"b": 1, "a": 2, "c": 3})
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("keys: %v", got)
	}
}

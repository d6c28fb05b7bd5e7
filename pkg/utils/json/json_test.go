package json

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name  string            `json:"name"`
	Count int               `json:"count"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{Name: "kb_demo", Count: 3, Tags: map[string]string{"category": "demo"}}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Tags["category"] != "demo" {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestMarshalString(t *testing.T) {
	s, err := MarshalString(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("MarshalString: %v", err)
	}
	if !strings.Contains(s, `"a":1`) {
		t.Errorf("unexpected output: %s", s)
	}
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(sample{Name: "x"}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var out sample
	if err := NewDecoder(&buf).Decode(&out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Name != "x" {
		t.Errorf("decoded name = %q, want x", out.Name)
	}
}

package id

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id := gen.Generate()
	if len(id) != 26 {
		t.Errorf("expected ULID length 26, got %d (%s)", len(id), id)
	}
	if !IsValid(id) {
		t.Errorf("generated id should be a valid ULID: %s", id)
	}
}

func TestGenerateMonotonic(t *testing.T) {
	gen := NewGenerator()

	prev := gen.Generate()
	for i := 0; i < 100; i++ {
		next := gen.Generate()
		if next <= prev {
			t.Fatalf("ids must be strictly increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	id := NewWithPrefix("kb")
	if !strings.HasPrefix(id, "kb_") {
		t.Errorf("expected kb_ prefix, got %s", id)
	}
	body := strings.TrimPrefix(id, "kb_")
	if !IsValid(body) {
		t.Errorf("id body should be a valid ULID: %s", body)
	}
	if body != strings.ToLower(body) {
		t.Errorf("prefixed id body should be lowercase: %s", body)
	}
}

func TestParseTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New()
	after := time.Now().Add(time.Second)

	ts, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ts.Before(before) || ts.After(after) {
		t.Errorf("timestamp %v outside (%v, %v)", ts, before, after)
	}
}

func TestIsValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "not-a-ulid", "kb_123"} {
		if IsValid(s) {
			t.Errorf("IsValid(%q) should be false", s)
		}
	}
}

// Package id generates unique identifiers for service resources.
//
// Identifiers are ULIDs (lexicographically sortable, millisecond timestamp
// prefix), optionally carrying a resource-type prefix such as "kb_" or
// "query_" so ids remain self-describing in logs and audit records.
package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces ULID-based identifiers. Safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator creates a Generator with a monotonic crypto/rand entropy
// source. IDs generated within the same millisecond remain strictly
// increasing.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a new ULID string.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateWithPrefix returns "<prefix>_<ulid>" with the ULID lowercased,
// e.g. "kb_01jabc...". The prefix identifies the resource type.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + "_" + strings.ToLower(g.Generate())
}

var defaultGenerator = NewGenerator()

// New returns a new ULID string from the default generator.
func New() string {
	return defaultGenerator.Generate()
}

// NewWithPrefix returns a prefixed id from the default generator.
func NewWithPrefix(prefix string) string {
	return defaultGenerator.GenerateWithPrefix(prefix)
}

// Parse validates s as a ULID and returns its timestamp component.
func Parse(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(strings.ToUpper(s))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// IsValid reports whether s is a well-formed ULID.
func IsValid(s string) bool {
	_, err := ulid.ParseStrict(strings.ToUpper(s))
	return err == nil
}

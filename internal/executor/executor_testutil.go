package executor

import (
	"testing"

	language "github.com/hanpama/minigql/internal/language"
)

// mustLoadSchema loads SDL and fails the test on error.
func mustLoadSchema(t *testing.T, sdl string) *language.Schema {
	t.Helper()
	s, err := language.LoadSchema(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	return s
}

// mustLoadQuery validates a query against s and fails the test on error.
func mustLoadQuery(t *testing.T, s *language.Schema, q string) *language.QueryDocument {
	t.Helper()
	d, errs := language.LoadQuery(s, q)
	if len(errs) > 0 {
		t.Fatalf("query error: %v", errs)
	}
	return d
}

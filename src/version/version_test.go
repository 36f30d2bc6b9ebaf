//go:build !unit

package version

import (
	"strings"
	"testing"
)

// TestFlagEmpty fails if version.Flag is not empty. Release branches must
// not carry a pre-release flag.
func TestFlagEmpty(t *testing.T) {
	if len(Flag) > 0 {
		t.Fatalf("Version Flag is not empty: %s", Flag)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "flowsync "+Version) || !strings.Contains(s, Protocol) {
		t.Fatalf("unexpected version string: %s", s)
	}
}

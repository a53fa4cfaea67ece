package invite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCodeShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := NewCode()
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q in %q", r, code)
		}
	}
}

func TestNewCodeVaries(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[NewCode()] = true
	}
	// 50 draws from a 36^6 space should essentially never collide entirely
	require.Greater(t, len(seen), 1)
}

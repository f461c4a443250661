package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "positivetests(24hours)", NormalizeName("  Positive Tests\n (24 hours) "))
}

func TestMostSimilar(t *testing.T) {
	candidates := []string{
		"Positive Tests (24 hours)",
		"Positive Tests (7 days)",
		"Total Tests (7 days)",
	}

	idx, sim := MostSimilar("Positive test results (last 7 days)", candidates)
	require.Equal(t, 1, idx)
	require.Greater(t, sim, 0.8)

	idx, _ = MostSimilar("anything", nil)
	require.Equal(t, -1, idx)
}

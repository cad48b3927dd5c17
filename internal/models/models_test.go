package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCardID(t *testing.T) {
	tests := []struct {
		id      string
		set     string
		number  int
		variant string
		ok      bool
	}{
		{"OGN-001", "OGN", 1, "", true},
		{"OGN-042s", "OGN", 42, "s", true},
		{"ogs-7", "OGS", 7, "", true},
		{" OGN-310* ", "OGN", 310, "*", true},
		{"OGN001", "", 0, "", false},
		{"-12", "", 0, "", false},
		{"OGN-", "", 0, "", false},
	}

	for _, tc := range tests {
		set, number, variant, ok := SplitCardID(tc.id)
		require.Equal(t, tc.ok, ok, "id %q", tc.id)
		if !tc.ok {
			continue
		}
		require.Equal(t, tc.set, set, "id %q", tc.id)
		require.Equal(t, tc.number, number, "id %q", tc.id)
		require.Equal(t, tc.variant, variant, "id %q", tc.id)
	}
}

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateBackupCodes(t *testing.T) {
	t.Run("should generate ten distinct codes in XXXX-XXXX format", func(t *testing.T) {
		codes, err := GenerateBackupCodes(10)

		require.NoError(t, err)
		require.Len(t, codes, 10)
		seen := map[string]bool{}
		for _, code := range codes {
			assert.Regexp(t, `^[0-9A-F]{4}-[0-9A-F]{4}$`, code)
			assert.False(t, seen[code], "duplicate code %s", code)
			seen[code] = true
		}
	})
}

func TestNormalizeBackupCode(t *testing.T) {
	cases := []struct {
		input    string
		expected string
		valid    bool
	}{
		{input: "ABCD-1234", expected: "ABCD-1234", valid: true},
		{input: "abcd-1234", expected: "ABCD-1234", valid: true},
		{input: "abcd1234", expected: "ABCD-1234", valid: true},
		{input: " AB CD-12 34 ", expected: "ABCD-1234", valid: true},
		{input: "ABCD-123", valid: false},
		{input: "GHIJ-1234", valid: false},
		{input: "123456", valid: false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			normalized, err := NormalizeBackupCode(tc.input)
			if !tc.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, normalized)
		})
	}
}

func TestHashBackupCode(t *testing.T) {
	t.Run("should only match the hashed code", func(t *testing.T) {
		hash, err := HashBackupCode("ABCD-1234")
		require.NoError(t, err)

		assert.True(t, CompareBackupCode("ABCD-1234", hash))
		assert.False(t, CompareBackupCode("ABCD-1235", hash))
		assert.False(t, CompareBackupCode("ABCD-1234", "not-a-hash"))
	})
}

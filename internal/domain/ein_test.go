package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEIN(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "hyphenated", input: "34-0714585", want: "340714585"},
		{name: "bare digits", input: "340714585", want: "340714585"},
		{name: "surrounding whitespace", input: "  34-0714585 ", want: "340714585"},
		{name: "too short", input: "1234", wantErr: true},
		{name: "too long", input: "3407145850", wantErr: true},
		{name: "letters", input: "34-07145AB", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "hyphen only", input: "---------", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeEIN(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidEIN)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFormatEIN(t *testing.T) {
	assert.Equal(t, "34-0714585", FormatEIN("340714585"))
	assert.Equal(t, "not-an-ein", FormatEIN("not-an-ein"))
	assert.Equal(t, "", FormatEIN(""))
}

func TestCleanOrgName(t *testing.T) {
	assert.Equal(t, "MERCY HEALTH SYSTEM", CleanOrgName("  MERCY\n HEALTH   SYSTEM "))
	assert.Equal(t, "", CleanOrgName("   \t\n"))
	assert.Equal(t, "Plain Name", CleanOrgName("Plain Name"))
}

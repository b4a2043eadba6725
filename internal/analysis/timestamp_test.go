package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxmatters/pamguide/internal/pamerr"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		layout string
		want   time.Time
	}{
		{
			name:   "/data/site4.230514093000.wav",
			layout: "060102150405",
			want:   time.Date(2023, 5, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name:   "SoundTrap_20230514_093000_ch1.wav",
			layout: "20060102_150405",
			want:   time.Date(2023, 5, 14, 9, 30, 0, 0, time.UTC),
		},
		{
			name:   "mooring-2019-11-30T23-59-58.wav",
			layout: "2006-01-02T15-04-05",
			want:   time.Date(2019, 11, 30, 23, 59, 58, 0, time.UTC),
		},
		{
			// after the first dot the candidate is not a timestamp, so scan the stem
			name:   "a.b_190102030405.wav",
			layout: "060102030405",
			want:   time.Date(2019, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.name, tt.layout, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseTimestampLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	got, err := ParseTimestamp("reef.230101000000.wav", "060102150405", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
	assert.True(t, got.Equal(time.Date(2022, 12, 31, 14, 0, 0, 0, time.UTC)))
}

func TestParseTimestampErrors(t *testing.T) {
	tests := []struct {
		name   string
		layout string
	}{
		{"no-timestamp-here.wav", "060102150405"},
		{"site.2305.wav", "060102150405"},
		{"site.231399093000.wav", "060102150405"},
		{"site.230514093000.wav", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTimestamp(tt.name, tt.layout, time.UTC)
			assert.ErrorIs(t, err, pamerr.ErrTimestamp)
		})
	}
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = LoadLocation("local")
	require.NoError(t, err)
	assert.NotNil(t, loc)

	_, err = LoadLocation("Not/AZone")
	assert.ErrorIs(t, err, pamerr.ErrConfig)
}

package dateparse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCanonicalPassthrough(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	in := time.Date(2024, 3, 1, 10, 30, 0, 0, loc)

	out, ok := Normalize(in)
	require.True(t, ok)
	assert.True(t, out.Equal(in))
	assert.Equal(t, loc, out.Location())

	out, ok = Normalize(&in)
	require.True(t, ok)
	assert.True(t, out.Equal(in))
}

func TestNormalizeISOAndEpochAgree(t *testing.T) {
	const epoch = 1700000000
	want := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	cases := []any{
		"2023-11-14T22:13:20Z",
		"2023-11-14 22:13:20",
		"1700000000",
		epoch,
		int64(epoch),
		json.Number("1700000000"),
		float64(epoch),
	}
	for _, in := range cases {
		got, ok := Normalize(in)
		require.Truef(t, ok, "expected %v (%T) to parse", in, in)
		assert.Truef(t, got.Equal(want), "input %v (%T): got %s", in, in, got)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestNormalizeFailures(t *testing.T) {
	cases := []any{
		nil,
		"",
		"   ",
		"definitely not a date",
		0,
		json.Number("12.5"),
		12.5,
		time.Time{},
		true,
		[]string{"2024-01-01"},
		map[string]any{},
		int64(maxEpoch + 1),
	}
	for _, in := range cases {
		_, ok := Normalize(in)
		assert.Falsef(t, ok, "expected %#v to fail", in)
	}
}

func TestFromStringDateOnly(t *testing.T) {
	got, ok := FromString("2024-01-31")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)
}

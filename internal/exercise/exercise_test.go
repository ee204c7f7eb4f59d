// ABOUTME: Tests for the day+type grouping projection.
// ABOUTME: Validates aggregation, ordering, idempotence, and day boundaries.

package exercise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestGroupByDay_MergesSameDaySameType(t *testing.T) {
	records := []Record{
		{ID: "ex-1", Type: TypeSquat, Count: 10, Timestamp: mustParse(t, "2024-01-01T08:00:00Z")},
		{ID: "ex-2", Type: TypeSquat, Count: 5, Timestamp: mustParse(t, "2024-01-01T09:30:00Z")},
	}

	groups := GroupByDay(records, time.UTC)

	require.Len(t, groups, 1)
	assert.Equal(t, TypeSquat, groups[0].Type)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 15, groups[0].TotalReps)
	assert.Equal(t, mustParse(t, "2024-01-01T09:30:00Z"), groups[0].Timestamp)
}

func TestGroupByDay_SplitsAcrossDays(t *testing.T) {
	records := []Record{
		{ID: "ex-1", Type: TypeSquat, Count: 10, Timestamp: mustParse(t, "2024-01-01T23:00:00Z")},
		{ID: "ex-2", Type: TypeSquat, Count: 5, Timestamp: mustParse(t, "2024-01-02T01:00:00Z")},
	}

	groups := GroupByDay(records, time.UTC)
	require.Len(t, groups, 2)

	// Newest day first
	assert.Equal(t, 5, groups[0].TotalReps)
	assert.Equal(t, 10, groups[1].TotalReps)
}

func TestGroupByDay_SplitsAcrossTypes(t *testing.T) {
	records := []Record{
		{ID: "ex-1", Type: TypeSquat, Count: 10, Timestamp: mustParse(t, "2024-01-01T08:00:00Z")},
		{ID: "ex-2", Type: TypePushup, Count: 20, Timestamp: mustParse(t, "2024-01-01T08:05:00Z")},
	}

	groups := GroupByDay(records, time.UTC)
	require.Len(t, groups, 2)
	assert.Equal(t, TypePushup, groups[0].Type)
	assert.Equal(t, TypeSquat, groups[1].Type)
}

func TestGroupByDay_Idempotent(t *testing.T) {
	records := []Record{
		{ID: "ex-1", Type: TypeSquat, Count: 10, Timestamp: mustParse(t, "2024-01-01T08:00:00Z")},
		{ID: "ex-2", Type: TypeLunge, Count: 8, Timestamp: mustParse(t, "2024-01-01T08:00:00Z")},
		{ID: "ex-3", Type: TypeSquat, Count: 5, Timestamp: mustParse(t, "2024-01-02T09:00:00Z")},
	}

	first := GroupByDay(records, time.UTC)
	second := GroupByDay(records, time.UTC)

	assert.Equal(t, first, second)
}

func TestGroupByDay_DayBoundaryFollowsLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// 23:00 UTC Jan 1 is 08:00 JST Jan 2
	records := []Record{
		{ID: "ex-1", Type: TypeSquat, Count: 10, Timestamp: mustParse(t, "2024-01-01T23:00:00Z")},
		{ID: "ex-2", Type: TypeSquat, Count: 5, Timestamp: mustParse(t, "2024-01-02T01:00:00Z")},
	}

	assert.Len(t, GroupByDay(records, time.UTC), 2)
	assert.Len(t, GroupByDay(records, tokyo), 1)
}

func TestGroupByDay_Empty(t *testing.T) {
	assert.Empty(t, GroupByDay(nil, time.UTC))
}

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{TypeBicepCurl, TypeSquat, TypePushup, TypeShoulderPress, TypeTricepExtension, TypeLunge, TypeRussianTwist} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, Type("jumpingJack").Valid())
	assert.False(t, Type("").Valid())
}

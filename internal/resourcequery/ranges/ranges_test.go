package ranges

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersect(t *testing.T) {
	tests := map[string]struct {
		A        RangeList
		B        RangeList
		Expected RangeList
	}{
		"empty": {
			A:        RangeList{},
			B:        RangeList{{Start: 0, End: 10, NodeCount: 1, TaskCount: 1}},
			Expected: RangeList{},
		},
		"disjoint": {
			A:        RangeList{{Start: 0, End: 10, NodeCount: 1, TaskCount: 1}},
			B:        RangeList{{Start: 10, End: 20, NodeCount: 1, TaskCount: 1}},
			Expected: RangeList{},
		},
		"overlap takes minimum capacity": {
			A:        RangeList{{Start: 0, End: 100, NodeCount: 4, TaskCount: 32}},
			B:        RangeList{{Start: 50, End: 150, NodeCount: 2, TaskCount: 40}},
			Expected: RangeList{{Start: 50, End: 100, NodeCount: 2, TaskCount: 32}},
		},
		"one range spanning many": {
			A: RangeList{{Start: 0, End: 1000, NodeCount: 8, TaskCount: 8}},
			B: RangeList{
				{Start: 100, End: 200, NodeCount: 1, TaskCount: 1},
				{Start: 300, End: 400, NodeCount: 2, TaskCount: 2},
			},
			Expected: RangeList{
				{Start: 100, End: 200, NodeCount: 1, TaskCount: 1},
				{Start: 300, End: 400, NodeCount: 2, TaskCount: 2},
			},
		},
		"adjacent results are coalesced": {
			A: RangeList{{Start: 0, End: 100, NodeCount: 1, TaskCount: 4}},
			B: RangeList{
				{Start: 0, End: 50, NodeCount: 3, TaskCount: 8},
				{Start: 50, End: 100, NodeCount: 2, TaskCount: 6},
			},
			Expected: RangeList{{Start: 0, End: 100, NodeCount: 1, TaskCount: 4}},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual := Intersect(tc.A, tc.B)
			if diff := cmp.Diff(tc.Expected, actual); diff != "" {
				t.Errorf("unexpected intersection (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAndAgainstGlobal(t *testing.T) {
	a := RangeList{
		{Start: 0, End: 100, NodeCount: 2, TaskCount: 16},
		{Start: 200, End: 400, NodeCount: 4, TaskCount: 32},
	}
	tests := map[string]struct {
		Global       RangeList
		AllowPartial bool
		Expected     RangeList
	}{
		"clip": {
			Global:       RangeList{{Start: 50, End: 300}},
			AllowPartial: true,
			Expected: RangeList{
				{Start: 50, End: 100, NodeCount: 2, TaskCount: 16},
				{Start: 200, End: 300, NodeCount: 4, TaskCount: 32},
			},
		},
		"reject partial": {
			Global:       RangeList{{Start: 50, End: 300}},
			AllowPartial: false,
			Expected:     RangeList{},
		},
		"fully contained survives": {
			Global:       RangeList{{Start: 150, End: 500}},
			AllowPartial: false,
			Expected:     RangeList{{Start: 200, End: 400, NodeCount: 4, TaskCount: 32}},
		},
		"adjacent global ranges form one span": {
			Global:       RangeList{{Start: 150, End: 300}, {Start: 300, End: 500}},
			AllowPartial: false,
			Expected:     RangeList{{Start: 200, End: 400, NodeCount: 4, TaskCount: 32}},
		},
		"global capacity caps counts": {
			Global:       RangeList{{Start: 0, End: MaxTime, NodeCount: 1, TaskCount: 8}},
			AllowPartial: true,
			Expected: RangeList{
				{Start: 0, End: 100, NodeCount: 1, TaskCount: 8},
				{Start: 200, End: 400, NodeCount: 1, TaskCount: 8},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual := AndAgainstGlobal(a, tc.Global, tc.AllowPartial)
			if diff := cmp.Diff(tc.Expected, actual); diff != "" {
				t.Errorf("unexpected result (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	a := RangeList{{Start: 100, End: 200, NodeCount: 1, TaskCount: 1}}
	assert.Equal(t, RangeList{{Start: 150, End: 250, NodeCount: 1, TaskCount: 1}}, Offset(a, 50))
	assert.Equal(t, RangeList{{Start: 0, End: 50, NodeCount: 1, TaskCount: 1}}, Offset(a, -150))
	assert.Equal(t, MaxTime, Offset(RangeList{{Start: 100, End: MaxTime}}, 10)[0].End)
	// Input is left untouched.
	assert.Equal(t, int64(100), a[0].Start)
}

func TestEventBoundaries(t *testing.T) {
	lists := []RangeList{
		{{Start: 100, End: 200}, {Start: 300, End: 400}},
		{{Start: 150, End: 300}},
		{},
	}
	assert.Equal(t, []int64{100, 150, 200, 300, 400}, EventBoundaries(lists))
	assert.Empty(t, EventBoundaries(nil))
}

func TestIndexAt(t *testing.T) {
	lists := []RangeList{
		{{Start: 100, End: 200}, {Start: 300, End: 400}},
		{{Start: 150, End: 300}},
		{},
	}
	assert.Equal(t, []int{0, 0, 0}, IndexAt(lists, 150))
	assert.Equal(t, []int{1, 1, 0}, IndexAt(lists, 300))
	assert.Equal(t, []int{2, 1, 0}, IndexAt(lists, 500))
	assert.Equal(t, []int{2, 0, 0}, IndexAt(lists, 200))
}

func TestRunEnd(t *testing.T) {
	rl := RangeList{
		{Start: 0, End: 100, NodeCount: 2, TaskCount: 16},
		{Start: 100, End: 200, NodeCount: 2, TaskCount: 9},
		{Start: 200, End: 300, NodeCount: 1, TaskCount: 12},
		{Start: 400, End: MaxTime, NodeCount: 2, TaskCount: 16},
	}
	assert.Equal(t, int64(300), RunEnd(rl, 0))
	assert.Equal(t, int64(300), RunEnd(rl, 2))
	assert.Equal(t, MaxTime, RunEnd(rl, 3))

	assert.Equal(t, Range{Start: 0, End: 300, NodeCount: 1, TaskCount: 9}, MergeRun(rl, 0))
	assert.Equal(t, Range{Start: 100, End: 300, NodeCount: 1, TaskCount: 9}, MergeRun(rl, 1))
	assert.Equal(t, rl[3], MergeRun(rl, 3))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(RangeList{{Start: 0, End: 10}, {Start: 10, End: 20}}))
	assert.Error(t, Validate(RangeList{{Start: 10, End: 0}}))
	assert.Error(t, Validate(RangeList{{Start: 0, End: 10}, {Start: 5, End: 20}}))
	assert.Error(t, Validate(RangeList{{Start: 0, End: 10, TaskCount: -1}}))
}

func TestParse(t *testing.T) {
	tests := map[string]struct {
		Input       string
		Expected    RangeList
		ExpectError bool
	}{
		"empty": {
			Input:    "",
			Expected: RangeList{},
		},
		"absolute open ended": {
			Input:    "2000",
			Expected: RangeList{{Start: 2000, End: MaxTime}},
		},
		"absolute window": {
			Input:    "2000-3000",
			Expected: RangeList{{Start: 2000, End: 3000}},
		},
		"relative": {
			Input:    "+60-+2h",
			Expected: RangeList{{Start: 1060, End: 1000 + 7200}},
		},
		"now": {
			Input:    "NOW-+10",
			Expected: RangeList{{Start: 1000, End: 1010}},
		},
		"several windows are sorted": {
			Input:    "5000-6000;2000-3000",
			Expected: RangeList{{Start: 2000, End: 3000}, {Start: 5000, End: 6000}},
		},
		"end before start": {
			Input:       "3000-2000",
			ExpectError: true,
		},
		"overlapping windows": {
			Input:       "2000-3000;2500-4000",
			ExpectError: true,
		},
		"garbage": {
			Input:       "tomorrow",
			ExpectError: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			actual, err := Parse(tc.Input, 1000)
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, actual)
		})
	}
}

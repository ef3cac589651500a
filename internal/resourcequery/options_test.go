package resourcequery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

func TestParseOptions(t *testing.T) {
	tests := map[string]struct {
		Input       string
		Expected    Options
		ExpectError bool
	}{
		"empty": {
			Input:    "",
			Expected: Options{},
		},
		"flags": {
			Input:    "INTERSECTION,TIMELOCK,FUTURE",
			Expected: Options{Intersection: true, TimeLock: true, Future: true},
		},
		"case-insensitive keys": {
			Input:    "verbose, Exclusive ,tid,mergetid",
			Expected: Options{Verbose: true, Exclusive: true, TID: true, MergeTID: true},
		},
		"values": {
			Input: "PROFILES=small:Large,RSVACCESSLIST=alice:hpc,vc=VC1",
			Expected: Options{
				Profiles:          []string{"small", "Large"},
				ReservationAccess: []string{"alice", "hpc"},
				VirtualCluster:    "VC1",
			},
		},
		"empty list items": {
			Input:    "PROFILES=small::large:",
			Expected: Options{Profiles: []string{"small", "large"}},
		},
		"unknown option": {
			Input:       "INTERSECTION,SOMETIMES",
			ExpectError: true,
		},
		"missing value": {
			Input:       "PROFILES",
			ExpectError: true,
		},
		"unexpected value": {
			Input:       "FUTURE=yes",
			ExpectError: true,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			options, err := ParseOptions(tc.Input)
			if tc.ExpectError {
				assert.True(t, armadaerrors.IsInvalidArgument(err), "expected invalid argument, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, options)
		})
	}
}

func TestParseOptions_ReportsAllErrors(t *testing.T) {
	_, err := ParseOptions("FOO,BAR=1,PROFILES")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOO")
	assert.Contains(t, err.Error(), "BAR=1")
	assert.Contains(t, err.Error(), "PROFILES")
}

func TestOptions_String(t *testing.T) {
	options := Options{
		Intersection:      true,
		Profiles:          []string{"small", "large"},
		ReservationAccess: []string{"alice"},
		VirtualCluster:    "vc1",
		Verbose:           true,
		MergeTID:          true,
	}
	s := options.String()
	assert.Equal(t, "INTERSECTION,PROFILES=small:large,RSVACCESSLIST=alice,VC=vc1,VERBOSE,MERGETID", s)

	parsed, err := ParseOptions(s)
	require.NoError(t, err)
	assert.Equal(t, options, parsed)
}

func TestOptions_Internal(t *testing.T) {
	options := Options{NoAggregate: true, Exclusive: true}.internal()
	assert.Equal(t, Options{
		Intersection: true,
		TID:          true,
		Flexible:     true,
		Verbose:      true,
		Future:       true,
		Exclusive:    true,
	}, options)
	assert.True(t, options.reportsSlots())
}

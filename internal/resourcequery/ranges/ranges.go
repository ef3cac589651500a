// Package ranges implements the algebra over time-ordered availability range lists.
//
// A Range pairs a half-open interval of calendar time, in seconds since the epoch,
// with the node and task capacity known to be available throughout that interval.
// A RangeList is sorted ascending by start time and its ranges never overlap.
// All functions here are pure: inputs are never modified.
package ranges

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

// MaxTime is the latest representable time. Ranges open towards the future end here.
const MaxTime int64 = 2140000000

type Range struct {
	Start     int64 `json:"start"`
	End       int64 `json:"end"`
	NodeCount int   `json:"nodeCount"`
	TaskCount int   `json:"taskCount"`
}

func (r Range) Duration() int64 {
	return r.End - r.Start
}

func (r Range) Contains(t int64) bool {
	return t >= r.Start && t < r.End
}

func (r Range) IsEmpty() bool {
	return r.End <= r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d) nc=%d tc=%d", r.Start, r.End, r.NodeCount, r.TaskCount)
}

type RangeList []Range

func (rl RangeList) String() string {
	parts := make([]string, len(rl))
	for i, r := range rl {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// First returns the earliest range in rl and false if rl is empty.
func (rl RangeList) First() (Range, bool) {
	if len(rl) == 0 {
		return Range{}, false
	}
	return rl[0], true
}

// Validate returns an error if rl is not sorted, contains overlapping ranges,
// or contains a range ending before it starts.
func Validate(rl RangeList) error {
	for i, r := range rl {
		if r.End < r.Start {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "ranges",
				Value:   r.String(),
				Message: "range ends before it starts",
			})
		}
		if r.NodeCount < 0 || r.TaskCount < 0 {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "ranges",
				Value:   r.String(),
				Message: "range capacity must be non-negative",
			})
		}
		if i > 0 && r.Start < rl[i-1].End {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "ranges",
				Value:   rl.String(),
				Message: fmt.Sprintf("range %d overlaps or precedes range %d", i, i-1),
			})
		}
	}
	return nil
}

// Coalesce drops empty ranges and merges adjacent ranges with equal capacity.
// rl must be sorted.
func Coalesce(rl RangeList) RangeList {
	rv := make(RangeList, 0, len(rl))
	for _, r := range rl {
		if r.IsEmpty() {
			continue
		}
		if n := len(rv); n > 0 {
			last := &rv[n-1]
			if last.End == r.Start && last.NodeCount == r.NodeCount && last.TaskCount == r.TaskCount {
				last.End = r.End
				continue
			}
		}
		rv = append(rv, r)
	}
	return rv
}

// Intersect returns the ranges during which both a and b are available.
// Capacity of each resulting range is the minimum of the overlapping source ranges.
func Intersect(a, b RangeList) RangeList {
	rv := make(RangeList, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ra, rb := a[i], b[j]
		start := max64(ra.Start, rb.Start)
		end := min64(ra.End, rb.End)
		if start < end {
			rv = append(rv, Range{
				Start:     start,
				End:       end,
				NodeCount: minInt(ra.NodeCount, rb.NodeCount),
				TaskCount: minInt(ra.TaskCount, rb.TaskCount),
			})
		}
		switch {
		case ra.End < rb.End:
			i++
		case ra.End > rb.End:
			j++
		default:
			i++
			j++
		}
	}
	return Coalesce(rv)
}

// IntersectAll folds Intersect over lists. The intersection of no lists is empty.
func IntersectAll(lists ...RangeList) RangeList {
	if len(lists) == 0 {
		return RangeList{}
	}
	rv := Coalesce(lists[0])
	for _, rl := range lists[1:] {
		rv = Intersect(rv, rl)
	}
	return rv
}

// AndAgainstGlobal masks a with the global window g.
// Adjacent ranges of g are treated as one span.
// If allowPartial is true, ranges of a are clipped to the spans of g;
// otherwise any range of a not entirely inside a single span is rejected.
// Capacity is taken from a and capped by g wherever the capacity of g is non-zero.
func AndAgainstGlobal(a, g RangeList, allowPartial bool) RangeList {
	spans := mergeAdjacent(g)
	rv := make(RangeList, 0, len(a))
	for _, r := range a {
		for _, span := range spans {
			if span.End <= r.Start {
				continue
			}
			if span.Start >= r.End {
				break
			}
			if !allowPartial && (r.Start < span.Start || r.End > span.End) {
				continue
			}
			rv = append(rv, Range{
				Start:     max64(r.Start, span.Start),
				End:       min64(r.End, span.End),
				NodeCount: capCount(r.NodeCount, span.NodeCount),
				TaskCount: capCount(r.TaskCount, span.TaskCount),
			})
		}
	}
	return Coalesce(rv)
}

// Offset shifts every range in a by delta seconds.
// Start times are clamped at zero and end times at MaxTime.
func Offset(a RangeList, delta int64) RangeList {
	rv := make(RangeList, len(a))
	for i, r := range a {
		r.Start = clamp(r.Start + delta)
		r.End = clamp(r.End + delta)
		rv[i] = r
	}
	return rv
}

// EventBoundaries returns the sorted, distinct start and end times across all lists.
func EventBoundaries(lists []RangeList) []int64 {
	times := make([]int64, 0)
	for _, rl := range lists {
		for _, r := range rl {
			times = append(times, r.Start, r.End)
		}
	}
	slices.Sort(times)
	return slices.Compact(times)
}

// IndexAt returns, for each list, the index of the range containing t.
// Lists with no such range get len(list).
func IndexAt(lists []RangeList, t int64) []int {
	rv := make([]int, len(lists))
	for i, rl := range lists {
		rv[i] = len(rl)
		for j, r := range rl {
			if r.Contains(t) {
				rv[i] = j
				break
			}
			if r.Start > t {
				break
			}
		}
	}
	return rv
}

// RunEnd returns the end of the run of adjacent ranges of rl that begins with rl[i].
// Adjacent ranges are available back to back, so a job started in rl[i] may run until RunEnd.
func RunEnd(rl RangeList, i int) int64 {
	end := rl[i].End
	for j := i + 1; j < len(rl) && rl[j].Start == end; j++ {
		end = rl[j].End
	}
	return end
}

// MergeRun merges the run of adjacent ranges of rl that begins with rl[i] into a single range
// holding the smallest capacity of the run.
func MergeRun(rl RangeList, i int) Range {
	rv := rl[i]
	for j := i + 1; j < len(rl) && rl[j].Start == rv.End; j++ {
		rv.End = rl[j].End
		rv.NodeCount = minInt(rv.NodeCount, rl[j].NodeCount)
		rv.TaskCount = minInt(rv.TaskCount, rl[j].TaskCount)
	}
	return rv
}

// Truncate returns at most n ranges of rl and whether anything was dropped.
func Truncate(rl RangeList, n int) (RangeList, bool) {
	if n <= 0 || len(rl) <= n {
		return rl, false
	}
	return rl[:n], true
}

func mergeAdjacent(g RangeList) RangeList {
	rv := make(RangeList, 0, len(g))
	for _, r := range g {
		if r.IsEmpty() {
			continue
		}
		if n := len(rv); n > 0 && rv[n-1].End == r.Start {
			last := &rv[n-1]
			last.End = r.End
			last.NodeCount = capCount(last.NodeCount, r.NodeCount)
			last.TaskCount = capCount(last.TaskCount, r.TaskCount)
			continue
		}
		rv = append(rv, r)
	}
	return rv
}

// capCount returns v capped by limit, where a zero limit means unbounded.
func capCount(v, limit int) int {
	if limit == 0 {
		return v
	}
	return minInt(v, limit)
}

func clamp(t int64) int64 {
	if t < 0 {
		return 0
	}
	if t > MaxTime {
		return MaxTime
	}
	return t
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Package rangesearch runs the range search of a single request, or of a co-allocation group,
// in a single partition. A search first looks for the longest windows and then, if that doesn't
// yield a window starting at the earliest possible time, for the widest ones.
package rangesearch

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"

	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
)

type Status int

const (
	NotFound Status = iota
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not found"
}

// Strategy is the search strategy that produced an outcome.
type Strategy int

const (
	// StrategyLong merges consecutive feasible intervals into the longest possible windows.
	StrategyLong Strategy = iota
	// StrategyWide splits windows wherever the available capacity changes.
	StrategyWide
)

func (s Strategy) String() string {
	if s == StrategyWide {
		return "wide"
	}
	return "long"
}

// Outcome is the result of a search.
type Outcome struct {
	Status   Status
	Strategy Strategy
	// Nil if Status is NotFound.
	Result *interfaces.RangeResult
	// Feasibility summary; set even if nothing was found.
	FeasibleNodes int
	FeasibleTasks int
}

func (o *Outcome) Found() bool {
	return o != nil && o.Status == Found
}

type Searcher struct {
	finder interfaces.RangeFinder
}

func NewSearcher(finder interfaces.RangeFinder) *Searcher {
	return &Searcher{finder: finder}
}

// Search finds the windows for query.
//
// If query.SeekLong is set, the long search runs first. The wide search runs if the long search
// found nothing or found nothing starting at query.EarliestStart, and its result is used
// if it's the only one or starts earlier. Otherwise only the wide search runs.
//
// If window is non-empty, the start times of the windows found are restricted to it;
// duration is the time a job started in a window must be able to run for.
func (s *Searcher) Search(ctx context.Context, query interfaces.RangeQuery, window ranges.RangeList, duration int64) (*Outcome, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "Search")
	var long *interfaces.RangeResult
	if query.SeekLong {
		result, err := s.find(ctx, query, true, window, duration)
		if err != nil {
			return nil, err
		}
		long = result
		if first, ok := long.Ranges.First(); ok && first.Start <= query.EarliestStart {
			return outcome(long, StrategyLong), nil
		}
	}

	wide, err := s.find(ctx, query, false, window, duration)
	if err != nil {
		return nil, err
	}
	if long == nil {
		return outcome(wide, StrategyWide), nil
	}
	longFirst, longOk := long.Ranges.First()
	wideFirst, wideOk := wide.Ranges.First()
	if wideOk && (!longOk || wideFirst.Start < longFirst.Start) {
		log.Debugf("wide search found an earlier window at %d", wideFirst.Start)
		return outcome(wide, StrategyWide), nil
	}
	return outcome(long, StrategyLong), nil
}

func (s *Searcher) find(ctx context.Context, query interfaces.RangeQuery, seekLong bool, window ranges.RangeList, duration int64) (*interfaces.RangeResult, error) {
	query.SeekLong = seekLong
	result, err := s.finder.FindRangeForRequest(ctx, &query)
	if err != nil {
		return nil, err
	}
	if len(window) > 0 {
		result.Ranges = RestrictStartTimes(result.Ranges, window, duration)
		if len(result.Ranges) == 0 {
			result.Hosts = nil
		}
	}
	return result, nil
}

// RestrictStartTimes clips the windows of rl so that every job of the given duration started in a window
// also starts inside window. A job started in a window may run on into the windows adjacent to it.
func RestrictStartTimes(rl, window ranges.RangeList, duration int64) ranges.RangeList {
	if duration < 1 {
		duration = 1
	}
	// Convert to the half-open ranges of start times, restrict, and convert back.
	starts := make(ranges.RangeList, 0, len(rl))
	for i, r := range rl {
		if end := ranges.RunEnd(rl, i); end != ranges.MaxTime && end-duration+1 < r.End {
			r.End = end - duration + 1
		}
		if r.End > r.Start {
			starts = append(starts, r)
		}
	}
	starts = ranges.AndAgainstGlobal(starts, window, true)
	rv := make(ranges.RangeList, len(starts))
	for i, r := range starts {
		if r.End != ranges.MaxTime {
			r.End = r.End + duration - 1
			if r.End > ranges.MaxTime {
				r.End = ranges.MaxTime
			}
		}
		// Windows never overlap.
		if i+1 < len(starts) && r.End > starts[i+1].Start {
			r.End = starts[i+1].Start
		}
		rv[i] = r
	}
	return ranges.Coalesce(rv)
}

func outcome(result *interfaces.RangeResult, strategy Strategy) *Outcome {
	rv := &Outcome{
		Status:        NotFound,
		Strategy:      strategy,
		FeasibleNodes: result.FeasibleNodes,
		FeasibleTasks: result.FeasibleTasks,
	}
	if len(result.Ranges) > 0 {
		rv.Status = Found
		rv.Result = result
	}
	return rv
}

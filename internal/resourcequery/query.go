package resourcequery

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/coalloc"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Query asks when, where, and on which nodes a set of requests can run.
// Either Requests or Job is set. A query made with a pre-built Job is an internal query,
// evaluated with the options of internal queries on top of Options.
type Query struct {
	Requests []*schedulerobjects.Request `json:"requests,omitempty"`
	Job      *schedulerobjects.Job       `json:"job,omitempty"`
	// Duration in seconds of requests that don't set their own.
	WallClockLimit int64                        `json:"wallClockLimit,omitempty"`
	Credentials    schedulerobjects.Credentials `json:"credentials"`
	// Comma-separated options; see ParseOptions.
	Options string `json:"options,omitempty"`
	// Window start times are restricted to, in the form accepted by ranges.Parse. Implies FUTURE.
	StartTime string `json:"startTime,omitempty"`
	// Profile applied to the whole job. Overrides the first profile of the PROFILES option.
	Profile string `json:"profile,omitempty"`
	// Number of packages requested; request counts are multiplied by it.
	PackageCount         int                                   `json:"packageCount,omitempty"`
	NodePriority         string                                `json:"nodePriority,omitempty"`
	NodeAllocationPolicy schedulerobjects.NodeAllocationPolicy `json:"nodeAllocationPolicy,omitempty"`
	NodeSetPriority      schedulerobjects.NodeSetPriority      `json:"nodeSetPriority,omitempty"`
}

// plan is a parsed and normalised query.
type plan struct {
	id       string
	job      *schedulerobjects.Job
	options  Options
	internal bool
	// Start times are restricted to window if it's non-empty.
	window   ranges.RangeList
	earliest int64
	// Seconds after the first request each request starts at.
	offsets  []int64
	groups   []coalloc.Group
	singles  []int
	seekLong bool
	// If true, slots of all requests found at the same step are reported as one.
	aggregate       bool
	procsNeeded     bool
	nodeSetPriority schedulerobjects.NodeSetPriority
	profile         *schedulerobjects.Profile
}

// duration returns the duration of the i-th request.
func (p *plan) duration(i int) int64 {
	return p.job.DurationOf(p.job.Requests[i])
}

// lockstep returns true if the slots of all requests must start together,
// which is the case for intersection queries with co-allocation groups or time-locked requests.
func (p *plan) lockstep() bool {
	return p.options.Intersection && (p.options.TimeLock || len(p.groups) > 0)
}

// strideOf returns the time between consecutive slots of the i-th request found in the same window.
func (p *plan) strideOf(i int) int64 {
	if p.lockstep() {
		return p.job.MaxDuration()
	}
	return p.duration(i)
}

// windowFor returns the start time window of the i-th request, shifted by its offset.
func (p *plan) windowFor(i int) ranges.RangeList {
	if len(p.window) == 0 || p.offsets[i] == 0 {
		return p.window
	}
	return ranges.Offset(p.window, p.offsets[i])
}

// groupOf returns the group the i-th request belongs to, or nil.
func (p *plan) groupOf(i int) *coalloc.Group {
	for k := range p.groups {
		for _, member := range p.groups[k].Members {
			if member == i {
				return &p.groups[k]
			}
		}
	}
	return nil
}

// units returns the sets of requests materialised together: the members of each group
// and each ungrouped request on its own, ordered by their first request.
func (p *plan) units() [][]int {
	rv := make([][]int, 0, len(p.job.Requests))
	for i := range p.job.Requests {
		if g := p.groupOf(i); g != nil {
			if g.Members[0] == i {
				rv = append(rv, g.Members)
			}
			continue
		}
		rv = append(rv, []int{i})
	}
	return rv
}

// prepare parses and normalises q into a plan, applying profiles and validating the result.
// Every error returned is an input error; the query is rejected as a whole.
func (e *Engine) prepare(ctx context.Context, q *Query, now int64) (*plan, error) {
	if q == nil {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "query",
			Value:   nil,
			Message: "query must not be nil",
		})
	}
	options, err := ParseOptions(q.Options)
	if err != nil {
		return nil, err
	}
	p := &plan{seekLong: e.config.SeekLong, nodeSetPriority: q.NodeSetPriority}

	switch {
	case q.Job != nil && len(q.Requests) > 0:
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "query",
			Value:   q.Job.Id,
			Message: "either requests or a job may be given, not both",
		})
	case q.Job != nil:
		p.internal = true
		options = options.internal()
		reqs := make([]*schedulerobjects.Request, len(q.Job.Requests))
		for i, req := range q.Job.Requests {
			if req == nil {
				return nil, invalidRequest(i, "request must not be nil")
			}
			reqs[i] = req.DeepCopy()
		}
		p.job = q.Job.WithRequests(q.Job.Id, reqs)
	default:
		reqs := make([]*schedulerobjects.Request, len(q.Requests))
		for i, req := range q.Requests {
			if req == nil {
				return nil, invalidRequest(i, "request must not be nil")
			}
			reqs[i] = req.DeepCopy()
		}
		p.job = &schedulerobjects.Job{
			Requests:             reqs,
			WallClockLimit:       q.WallClockLimit,
			Credentials:          q.Credentials,
			NodePriority:         q.NodePriority,
			NodeAllocationPolicy: q.NodeAllocationPolicy,
		}
	}
	if len(p.job.Requests) == 0 {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "requests",
			Value:   0,
			Message: "at least one request is required",
		})
	}
	if err := e.checkRequestCount(p.job); err != nil {
		return nil, err
	}
	p.job.ReservationAccess = append(p.job.ReservationAccess, options.ReservationAccess...)

	jobProfile := q.Profile
	for i, name := range options.Profiles {
		if i == 0 && jobProfile == "" {
			jobProfile = name
		}
		if i < len(p.job.Requests) && p.job.Requests[i].Profile == "" {
			p.job.Requests[i].Profile = name
		}
	}
	startPad := int64(0)
	if jobProfile != "" || hasRequestProfile(p.job) || q.PackageCount > 1 {
		applied, err := e.applier.Apply(ctx, p.job, jobProfile, q.PackageCount)
		if err != nil {
			return nil, err
		}
		p.profile = applied.Profile
		startPad = applied.StartPad
		if err := e.checkRequestCount(p.job); err != nil {
			return nil, err
		}
	}
	if err := normaliseRequests(p.job); err != nil {
		return nil, err
	}

	p.earliest = now
	if q.StartTime != "" {
		window, err := ranges.Parse(q.StartTime, now)
		if err != nil {
			return nil, err
		}
		if startPad > 0 {
			window = ranges.Offset(window, -startPad)
		}
		if first, ok := window.First(); ok {
			if first.Start < now {
				return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
					Name:    "startTime",
					Value:   q.StartTime,
					Message: fmt.Sprintf("window starts at %d, before the current time %d", first.Start, now),
				})
			}
			p.earliest = first.Start
		}
		p.window = window
		options.Future = true
	}

	p.offsets = make([]int64, len(p.job.Requests))
	if options.TimeLock {
		for i, req := range p.job.Requests {
			p.offsets[i] = req.Offset
		}
	}
	if options.Future {
		options.Flexible = true
	}
	if options.SeekWide {
		p.seekLong = false
	}
	p.aggregate = !options.NoAggregate && len(p.job.Requests) > 1
	p.groups, p.singles, err = coalloc.Groups(p.job, e.config.MaxCoAllocationMembers)
	if err != nil {
		return nil, err
	}
	for _, req := range p.job.Requests {
		if req.IsCompute() {
			p.procsNeeded = true
		}
	}
	p.options = options
	return p, nil
}

func (e *Engine) checkRequestCount(job *schedulerobjects.Job) error {
	if max := e.config.MaxRequests; max > 0 && len(job.Requests) > max {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "requests",
			Value:   len(job.Requests),
			Message: fmt.Sprintf("at most %d requests are allowed", max),
		})
	}
	return nil
}

// normaliseRequests assigns request indices, defaults task counts to node counts, and validates every request.
// All problems found are returned together.
func normaliseRequests(job *schedulerobjects.Job) error {
	var result *multierror.Error
	if job.WallClockLimit <= 0 {
		result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "wallClockLimit",
			Value:   job.WallClockLimit,
			Message: "duration must be positive",
		}))
	}
	for i, req := range job.Requests {
		req.Index = i
		if req.TaskCount == 0 {
			req.TaskCount = req.NodeCount
		}
		switch {
		case req.TaskCount <= 0:
			result = multierror.Append(result, invalidRequest(i, "a positive task or node count is required"))
		case req.NodeCount < 0 || req.TasksPerNode < 0 || req.Duration < 0:
			result = multierror.Append(result, invalidRequest(i, "counts and durations must be non-negative"))
		case req.ExactTasksPerNode && req.TasksPerNode == 0:
			result = multierror.Append(result, invalidRequest(i, "exact tasks per node requires tasks per node"))
		case !req.PerTask.IsStrictlyNonNegative():
			result = multierror.Append(result, invalidRequest(i, "per-task resources must be non-negative"))
		}
	}
	return result.ErrorOrNil()
}

func hasRequestProfile(job *schedulerobjects.Job) bool {
	for _, req := range job.Requests {
		if req.Profile != "" {
			return true
		}
	}
	return false
}

func invalidRequest(i int, message string) error {
	return errors.WithStack(&armadaerrors.ErrInvalidArgument{
		Name:    "requests",
		Value:   i,
		Message: message,
	})
}

// Package coalloc resolves co-allocation groups: sets of requests that must start in the same window
// on disjoint nodes of one partition.
package coalloc

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/rangesearch"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// ErrGroupRejected is returned when a group can't be placed in a partition.
// It's a normal outcome; the partition is skipped.
var ErrGroupRejected = errors.New("co-allocation group rejected")

// Group is a set of requests sharing a co-allocation label.
type Group struct {
	Label string
	// Indices of the member requests, in request order.
	Members []int
}

// Groups splits the requests of job into co-allocation groups and the indices of ungrouped requests.
// Groups are returned in order of their first member. A label carried by a single request doesn't form a group.
func Groups(job *schedulerobjects.Job, maxMembers int) ([]Group, []int, error) {
	byLabel := make(map[string]int)
	groups := make([]Group, 0)
	for i, req := range job.Requests {
		if req.CoAllocationLabel == "" {
			continue
		}
		j, ok := byLabel[req.CoAllocationLabel]
		if !ok {
			j = len(groups)
			byLabel[req.CoAllocationLabel] = j
			groups = append(groups, Group{Label: req.CoAllocationLabel})
		}
		groups[j].Members = append(groups[j].Members, i)
	}

	grouped := make(map[int]bool)
	rv := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.Members) < 2 {
			continue
		}
		if maxMembers > 0 && len(g.Members) > maxMembers {
			return nil, nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "coAllocation",
				Value:   g.Label,
				Message: fmt.Sprintf("group has %d members, but at most %d are allowed", len(g.Members), maxMembers),
			})
		}
		for _, i := range g.Members {
			grouped[i] = true
		}
		rv = append(rv, g)
	}
	singles := make([]int, 0, len(job.Requests))
	for i := range job.Requests {
		if !grouped[i] {
			singles = append(singles, i)
		}
	}
	return rv, singles, nil
}

// MemberResult is the window list and host assignment of one member of a resolved group.
type MemberResult struct {
	RequestIndex int
	Label        string
	Ranges       ranges.RangeList
	// Nodes assigned to the member for a slot starting at HostsStart.
	Hosts      []string
	HostsStart int64
	Strategy   rangesearch.Strategy
}

// Resolution is the outcome of resolving every group of a query in one partition.
type Resolution struct {
	// Keyed by request index.
	Members       map[int]*MemberResult
	FeasibleNodes int
	FeasibleTasks int
}

type Resolver struct {
	searcher *rangesearch.Searcher
}

func NewResolver(searcher *rangesearch.Searcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// Resolve searches each group of job jointly, as one synthetic job aliasing its members,
// and fans the windows and host assignment found back out to every member.
// Windows found for a group are those of its first member; other members are shifted by
// the difference between their offset and that of the first member.
// If any group can't be placed, an error wrapping ErrGroupRejected is returned.
func (r *Resolver) Resolve(ctx context.Context, job *schedulerobjects.Job, groups []Group, query interfaces.RangeQuery, window ranges.RangeList, offsets []int64) (*Resolution, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "Resolve")
	rv := &Resolution{Members: make(map[int]*MemberResult)}
	for _, g := range groups {
		synthetic := SyntheticJob(job, g)
		query.Job = synthetic
		query.RequestIndex = schedulerobjects.AllRequests
		outcome, err := r.searcher.Search(ctx, query, window, synthetic.MaxDuration())
		if err != nil {
			return nil, err
		}
		if rv.FeasibleNodes == 0 {
			rv.FeasibleNodes, rv.FeasibleTasks = outcome.FeasibleNodes, outcome.FeasibleTasks
		}
		if !outcome.Found() {
			partition := ""
			if query.Partition != nil {
				partition = query.Partition.Name
			}
			log.Debugf("co-allocation group %s of job %s can't be placed in partition %s", g.Label, job.Id, partition)
			return nil, errors.WithMessagef(ErrGroupRejected, "group %s in partition %s", g.Label, partition)
		}
		for k, i := range g.Members {
			member := &MemberResult{
				RequestIndex: i,
				Label:        g.Label,
				Ranges:       outcome.Result.Ranges,
				Strategy:     outcome.Strategy,
			}
			delta := offsetOf(offsets, i) - offsetOf(offsets, g.Members[0])
			if delta != 0 {
				member.Ranges = ranges.Offset(outcome.Result.Ranges, delta)
			}
			if k < len(outcome.Result.Hosts) {
				member.Hosts = outcome.Result.Hosts[k]
				member.HostsStart = outcome.Result.HostsStart + delta
			}
			rv.Members[i] = member
		}
	}
	return rv, nil
}

// SyntheticJob returns a job whose requests are views of the members of g.
// Each view carries the duration the member has in job.
// The synthetic job lasts as long as its longest member.
func SyntheticJob(job *schedulerobjects.Job, g Group) *schedulerobjects.Job {
	reqs := make([]*schedulerobjects.Request, len(g.Members))
	var duration int64
	for k, i := range g.Members {
		view := *job.Requests[i]
		view.Index = k
		view.Duration = job.DurationOf(job.Requests[i])
		if view.Duration > duration {
			duration = view.Duration
		}
		reqs[k] = &view
	}
	rv := job.WithRequests(fmt.Sprintf("%s.%s", job.Id, g.Label), reqs)
	rv.WallClockLimit = duration
	return rv
}

func offsetOf(offsets []int64, i int) int64 {
	if i < len(offsets) {
		return offsets[i]
	}
	return 0
}

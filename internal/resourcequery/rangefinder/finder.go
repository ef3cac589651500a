// Package rangefinder finds the windows during which the nodes of a partition can satisfy a request.
// Node availability over time is the configured resources of each node
// minus the resources of the reservation windows overlapping it.
package rangefinder

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Finder is the RangeFinder backed by a node db.
type Finder struct {
	allocator     *allocation.Allocator
	defaultPolicy schedulerobjects.NodeAllocationPolicy
}

func NewFinder(allocator *allocation.Allocator, defaultPolicy schedulerobjects.NodeAllocationPolicy) *Finder {
	return &Finder{
		allocator:     allocator,
		defaultPolicy: defaultPolicy,
	}
}

// searchSpace is the state of one search: the requests searched and the nodes each may use.
type searchSpace struct {
	job       *schedulerobjects.Job
	partition *schedulerobjects.Partition
	policy    schedulerobjects.NodeAllocationPolicy
	members   []*schedulerobjects.Request
	pools     [][]*schedulerobjects.Node
	// Duration each window must at least last.
	duration    int64
	affinityMap allocation.AffinityMap
}

// FindRangeForRequest returns the windows in [query.EarliestStart, query.Latest) during which
// the requested capacity is available for at least the duration of the request.
// If query.RequestIndex is schedulerobjects.AllRequests, every request of the job is evaluated jointly
// on disjoint nodes and the windows must last as long as the longest request.
func (f *Finder) FindRangeForRequest(ctx context.Context, query *interfaces.RangeQuery) (*interfaces.RangeResult, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "FindRangeForRequest")
	if err := validateQuery(query); err != nil {
		return nil, err
	}
	latest := query.Latest
	if latest <= 0 || latest > ranges.MaxTime {
		latest = ranges.MaxTime
	}

	space := &searchSpace{
		job:         query.Job,
		partition:   query.Partition,
		policy:      query.Job.NodeAllocationPolicy.Resolve(query.Partition.NodeAllocationPolicy, f.defaultPolicy),
		affinityMap: query.AffinityMap.DeepCopy(),
	}
	if query.RequestIndex == schedulerobjects.AllRequests {
		space.members = query.Job.Requests
		space.duration = query.Job.MaxDuration()
	} else {
		req := query.Job.Requests[query.RequestIndex]
		space.members = []*schedulerobjects.Request{req}
		space.duration = query.Job.DurationOf(req)
	}

	txn := query.Db.Txn()
	space.pools = make([][]*schedulerobjects.Node, len(space.members))
	for i, req := range space.members {
		nodes, err := EligibleNodes(txn, query.Db, query.Partition, req, space.affinityMap)
		if err != nil {
			return nil, err
		}
		space.pools[i] = nodes
	}
	rv := &interfaces.RangeResult{Ranges: ranges.RangeList{}}
	rv.FeasibleNodes, rv.FeasibleTasks = feasibility(space.members[0], space.pools[0])

	nodeSets := nodeSetOf(space.members)
	if len(nodeSets) == 0 {
		rv.Ranges = f.search(space, query.EarliestStart, latest, query.SeekLong)
	} else {
		nodeSetPriority := query.NodeSetPriority
		if nodeSetPriority == "" {
			nodeSetPriority = query.Partition.NodeSetPriority
		}
		var chosen *searchSpace
		for _, feature := range nodeSets {
			candidate := space.restrictedTo(feature)
			rl := f.search(candidate, query.EarliestStart, latest, query.SeekLong)
			if len(rl) == 0 {
				continue
			}
			if chosen == nil || betterNodeSet(nodeSetPriority, rl, rv.Ranges) {
				chosen = candidate
				rv.Ranges = rl
			}
			if nodeSetPriority == schedulerobjects.NodeSetPriorityFirstAvailable || nodeSetPriority == "" {
				break
			}
		}
		if chosen != nil {
			space = chosen
		}
	}
	var truncated bool
	rv.Ranges, truncated = ranges.Truncate(rv.Ranges, query.MaxRanges)
	if truncated {
		log.Warnf("request %d partition %s: only the first %d ranges are kept", query.RequestIndex, query.Partition.Name, query.MaxRanges)
	}

	if first, ok := rv.Ranges.First(); ok {
		rv.Hosts = f.hostsAt(space, first.Start, first.Start+space.duration)
		rv.HostsStart = first.Start
	}
	log.Debugf(
		"job %s request %d partition %s: %d ranges found, %d nodes feasible",
		query.Job.Id, query.RequestIndex, query.Partition.Name, len(rv.Ranges), rv.FeasibleNodes,
	)
	return rv, nil
}

func validateQuery(query *interfaces.RangeQuery) error {
	if query == nil || query.Job == nil || query.Partition == nil || query.Db == nil {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "query",
			Value:   query,
			Message: "job, partition, and node db are required",
		})
	}
	if len(query.Job.Requests) == 0 {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "requests",
			Value:   0,
			Message: fmt.Sprintf("job %s has no requests", query.Job.Id),
		})
	}
	if query.RequestIndex != schedulerobjects.AllRequests && (query.RequestIndex < 0 || query.RequestIndex >= len(query.Job.Requests)) {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "requestIndex",
			Value:   query.RequestIndex,
			Message: fmt.Sprintf("job %s has %d requests", query.Job.Id, len(query.Job.Requests)),
		})
	}
	return nil
}

// search returns the feasible windows of space in [earliest, latest).
func (f *Finder) search(space *searchSpace, earliest, latest int64, seekLong bool) ranges.RangeList {
	rv := ranges.RangeList{}
	if earliest >= latest {
		return rv
	}
	points := eventPoints(space.pools, earliest, latest)
	run := ranges.RangeList{}
	flush := func() {
		if len(run) > 0 && run[len(run)-1].End-run[0].Start >= space.duration {
			if seekLong {
				rv = append(rv, ranges.MergeRun(run, 0))
			} else {
				rv = append(rv, ranges.Coalesce(run)...)
			}
		}
		run = ranges.RangeList{}
	}
	for i, start := range points {
		end := latest
		if i+1 < len(points) {
			end = points[i+1]
		}
		nodeCount, taskCount, ok := f.capacityOver(space, start, end)
		if !ok {
			flush()
			continue
		}
		run = append(run, ranges.Range{Start: start, End: end, NodeCount: nodeCount, TaskCount: taskCount})
	}
	flush()
	return rv
}

// capacityOver returns the capacity available to space over [start, end) and whether it satisfies every member.
func (f *Finder) capacityOver(space *searchSpace, start, end int64) (int, int, bool) {
	if len(space.members) == 1 {
		req := space.members[0]
		minTPN, maxTPN := allocation.TasksPerNodeBounds(req)
		nodeCount, taskCount := capacity(Candidates(space.job, req, space.pools[0], start, end), minTPN, maxTPN)
		return nodeCount, taskCount, taskCount >= tasksWanted(req) && nodeCount >= req.NodeCount
	}
	allocations, ok := f.allocateMembers(space, start, end)
	if !ok {
		return 0, 0, false
	}
	nodeCount, taskCount := 0, 0
	for _, a := range allocations {
		nodeCount += a.NodeCount
		taskCount += a.TaskCount
	}
	return nodeCount, taskCount, true
}

// allocateMembers allocates every member of space over [start, end) on disjoint nodes.
func (f *Finder) allocateMembers(space *searchSpace, start, end int64) ([]*allocation.Allocation, bool) {
	affinityMap := space.affinityMap.DeepCopy()
	rv := make([]*allocation.Allocation, len(space.members))
	for i, req := range space.members {
		candidates := Candidates(space.job, req, space.pools[i], start, end)
		a, err := f.allocator.AllocateAtAnyLevel(space.policy, space.job, req, space.partition, candidates, affinityMap)
		if err != nil {
			return nil, false
		}
		rv[i] = a
	}
	return rv, true
}

// hostsAt returns the nodes assigned to each member of space for a slot over [start, end).
// A member that can't be allocated over the whole slot gets no hosts.
func (f *Finder) hostsAt(space *searchSpace, start, end int64) [][]string {
	rv := make([][]string, len(space.members))
	if allocations, ok := f.allocateMembers(space, start, end); ok {
		for i, a := range allocations {
			rv[i] = a.Hosts()
		}
		return rv
	}
	for i := range rv {
		rv[i] = []string{}
	}
	return rv
}

func (space *searchSpace) restrictedTo(feature string) *searchSpace {
	rv := *space
	rv.pools = make([][]*schedulerobjects.Node, len(space.pools))
	for i, pool := range space.pools {
		rv.pools[i] = make([]*schedulerobjects.Node, 0, len(pool))
		for _, node := range pool {
			if slices.Contains(node.Features, feature) {
				rv.pools[i] = append(rv.pools[i], node)
			}
		}
	}
	return &rv
}

// eventPoints returns earliest followed by the sorted, distinct reservation boundaries of pools in (earliest, latest).
func eventPoints(pools [][]*schedulerobjects.Node, earliest, latest int64) []int64 {
	rv := []int64{earliest}
	for _, pool := range pools {
		for _, node := range pool {
			rv = append(rv, node.EventTimes(earliest, latest)...)
		}
	}
	slices.Sort(rv)
	return slices.Compact(rv)
}

// nodeSetOf returns the node set features of the first member naming any.
// All members of a search are placed on the same node set.
func nodeSetOf(members []*schedulerobjects.Request) []string {
	for _, req := range members {
		if len(req.NodeSet) > 0 {
			return req.NodeSet
		}
	}
	return nil
}

// betterNodeSet returns true if the windows found on a node set are preferable to current under priority.
func betterNodeSet(priority schedulerobjects.NodeSetPriority, found, current ranges.RangeList) bool {
	if len(current) == 0 {
		return true
	}
	switch priority {
	case schedulerobjects.NodeSetPriorityBestResource:
		return found[0].TaskCount > current[0].TaskCount
	case schedulerobjects.NodeSetPriorityMinLoss:
		if found[0].Start != current[0].Start {
			return found[0].Start < current[0].Start
		}
		return found[0].TaskCount < current[0].TaskCount
	default:
		return false
	}
}

// feasibility returns the number of nodes able to serve req at all and the number of tasks of req they host when idle.
func feasibility(req *schedulerobjects.Request, pool []*schedulerobjects.Node) (nodes, tasks int) {
	minTPN, _ := allocation.TasksPerNodeBounds(req)
	for _, node := range pool {
		n := node.ConfiguredResources.TasksFor(req.PerTask)
		if n < minTPN {
			continue
		}
		nodes++
		tasks += n
	}
	return
}

func tasksWanted(req *schedulerobjects.Request) int {
	if req.TaskCount < req.NodeCount {
		return req.NodeCount
	}
	return req.TaskCount
}

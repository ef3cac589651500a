package resourcequery

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/coalloc"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// partitionRanges are the windows found for each request of a query in one partition.
type partitionRanges struct {
	// Indexed by request.
	ranges []ranges.RangeList
	// Hosts the search assigned to each request, indexed by request. Nil for requests assigned none.
	assignments   []*assignment
	feasibleNodes int
	feasibleTasks int
}

// assignment is the set of hosts a request was assigned for a slot starting at start.
type assignment struct {
	start int64
	hosts []string
}

// seed returns the hosts assigned to each request of unit if every one of them was assigned hosts
// for a slot at the given start, and nil otherwise.
func (pr *partitionRanges) seed(unit []int, starts []int64) [][]string {
	if pr == nil {
		return nil
	}
	rv := make([][]string, len(unit))
	for j, i := range unit {
		a := pr.assignments[i]
		if a == nil || a.start != starts[j] || len(a.hosts) == 0 {
			return nil
		}
		rv[j] = a.hosts
	}
	return rv
}

// skipReason returns the reason partition can't serve p, or the empty string if it should be searched.
func skipReason(p *plan, partition *schedulerobjects.Partition) string {
	switch {
	case partition.Deleted:
		return skipDeleted
	case partition.ConfiguredNodes == 0:
		return skipNoNodes
	case p.procsNeeded && partition.UpResources.Procs() == 0:
		return skipNoProcs
	}
	for _, req := range p.job.Requests {
		if req.Partition != "" && req.Partition != partition.Name {
			return skipNotRequested
		}
	}
	return ""
}

// evaluatePartition searches partition for p and materialises the slots found.
// Nil is returned if the partition is skipped.
func (e *Engine) evaluatePartition(ctx context.Context, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition) (*PartitionResult, error) {
	log := ctxlogrus.Extract(ctx).WithFields(logrus.Fields{"function": "evaluatePartition", "partition": partition.Name})
	if reason := skipReason(p, partition); reason != "" {
		log.Debugf("partition skipped: %s", reason)
		partitionsSkipped.WithLabelValues(reason).Inc()
		return nil, nil
	}
	ctx = ctxlogrus.ToContext(ctx, ctxlogrus.Extract(ctx).WithField("partition", partition.Name))

	found, err := e.findRanges(ctx, db, p, partition)
	if errors.Is(err, coalloc.ErrGroupRejected) {
		log.Debugf("partition skipped: %s", err)
		partitionsSkipped.WithLabelValues(skipCoAllocation).Inc()
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	lists := found.ranges
	if p.options.Intersection {
		lists = intersectRanges(lists, p.offsets)
	}
	if !p.options.Future {
		lists = startingAt(lists, p.earliest, p.offsets)
	}

	rv := &PartitionResult{
		Partition:     partition.Name,
		FeasibleNodes: found.feasibleNodes,
		FeasibleTasks: found.feasibleTasks,
	}
	if p.options.reportsSlots() {
		rv.Slots, err = e.stepSlots(ctx, db, p, partition, lists, found)
	} else {
		rv.Slots, err = e.rangeSlots(ctx, db, p, partition, lists, found)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("%d slots found", len(rv.Slots))
	return rv, nil
}

// findRanges runs the range search of every co-allocation group and every ungrouped request in partition.
// A request for which nothing is found gets an empty list.
func (e *Engine) findRanges(ctx context.Context, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition) (*partitionRanges, error) {
	query := interfaces.RangeQuery{
		Job:             p.job,
		Partition:       partition,
		Latest:          ranges.MaxTime,
		SeekLong:        p.seekLong,
		NodeSetPriority: p.nodeSetPriority,
		AffinityMap:     allocation.NewAffinityMap(),
		MaxRanges:       e.config.MaxRanges,
		Db:              db,
	}
	rv := &partitionRanges{
		ranges:      make([]ranges.RangeList, len(p.job.Requests)),
		assignments: make([]*assignment, len(p.job.Requests)),
	}
	for _, g := range p.groups {
		first := g.Members[0]
		query.EarliestStart = p.earliest + p.offsets[first]
		resolution, err := e.resolver.Resolve(ctx, p.job, []coalloc.Group{g}, query, p.windowFor(first), p.offsets)
		if err != nil {
			return nil, err
		}
		for i, member := range resolution.Members {
			rv.ranges[i] = member.Ranges
			if len(member.Hosts) > 0 {
				rv.assignments[i] = &assignment{start: member.HostsStart, hosts: member.Hosts}
			}
		}
		if first == 0 {
			rv.feasibleNodes, rv.feasibleTasks = resolution.FeasibleNodes, resolution.FeasibleTasks
		}
	}
	for _, i := range p.singles {
		query.Job = p.job
		query.RequestIndex = i
		query.EarliestStart = p.earliest + p.offsets[i]
		outcome, err := e.searcher.Search(ctx, query, p.windowFor(i), p.duration(i))
		if err != nil {
			return nil, err
		}
		if i == 0 {
			rv.feasibleNodes, rv.feasibleTasks = outcome.FeasibleNodes, outcome.FeasibleTasks
		}
		rv.ranges[i] = ranges.RangeList{}
		if outcome.Found() {
			rv.ranges[i] = outcome.Result.Ranges
			if hosts := outcome.Result.Hosts; len(hosts) > 0 && len(hosts[0]) > 0 {
				rv.assignments[i] = &assignment{start: outcome.Result.HostsStart, hosts: hosts[0]}
			}
		}
	}
	return rv, nil
}

// intersectRanges restricts the windows of each request to the times during which every request
// can start, each at its offset. Capacity of each window is left as found for its request.
func intersectRanges(lists []ranges.RangeList, offsets []int64) []ranges.RangeList {
	if len(lists) < 2 {
		return lists
	}
	shifted := make([]ranges.RangeList, len(lists))
	for i, rl := range lists {
		shifted[i] = ranges.Offset(rl, -offsets[i])
	}
	mask := ranges.IntersectAll(shifted...)
	for i := range mask {
		mask[i].NodeCount = 0
		mask[i].TaskCount = 0
	}
	rv := make([]ranges.RangeList, len(lists))
	for i := range shifted {
		rv[i] = ranges.Offset(ranges.AndAgainstGlobal(shifted[i], mask, true), offsets[i])
	}
	return rv
}

// startingAt keeps, for each request, only the window open at the earliest start of that request.
// Windows adjacent to it are merged into it.
func startingAt(lists []ranges.RangeList, earliest int64, offsets []int64) []ranges.RangeList {
	rv := make([]ranges.RangeList, len(lists))
	for i, rl := range lists {
		rv[i] = ranges.RangeList{}
		t := earliest + offsets[i]
		if first, ok := rl.First(); ok && first.Contains(t) {
			first = ranges.MergeRun(rl, 0)
			first.Start = t
			rv[i] = ranges.RangeList{first}
		}
	}
	return rv
}

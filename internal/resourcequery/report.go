package resourcequery

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/rangefinder"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// rangeSlots reports, for each request, a slot at the start of each of up to depth windows long enough for it.
// A request started in a window may run on into the windows adjacent to it.
// Co-allocated requests are reported for the same windows, on disjoint nodes.
func (e *Engine) rangeSlots(ctx context.Context, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition, lists []ranges.RangeList, found *partitionRanges) ([]*Slot, error) {
	txn := db.Txn()
	rv := make([]*Slot, 0)
	step := 0
	for _, unit := range p.units() {
		reported := 0
		for k := range lists[unit[0]] {
			if reported >= e.config.ResourceQueryDepth {
				break
			}
			starts := make([]int64, len(unit))
			ends := make([]int64, len(unit))
			fits := true
			for j, i := range unit {
				if k >= len(lists[i]) {
					fits = false
					break
				}
				starts[j] = lists[i][k].Start
				ends[j] = ranges.RunEnd(lists[i], k)
				if ends[j]-starts[j] < p.duration(i) {
					fits = false
					break
				}
			}
			if !fits {
				continue
			}
			var seed [][]string
			if k == 0 {
				seed = found.seed(unit, starts)
			}
			allocations, err := e.materialise(ctx, txn, db, p, partition, unit, starts, seed, allocation.NewAffinityMap())
			if err != nil {
				return nil, err
			}
			if allocations == nil {
				continue
			}
			for j, i := range unit {
				rv = append(rv, &Slot{
					Partition:    partition.Name,
					RequestIndex: i,
					Start:        starts[j],
					Duration:     ends[j] - starts[j],
					NodeCount:    allocations[j].NodeCount,
					TaskCount:    allocations[j].TaskCount,
					step:         step,
				})
			}
			step++
			reported++
		}
	}
	return rv, nil
}

// stepSlots walks the boundaries of the windows of every request and materialises slots at each one.
//
// At each boundary up to depth consecutive slots per window are tried if the query is flexible and
// records transactions, otherwise one. With EXCLUSIVE all requests are placed on disjoint nodes;
// otherwise only the members of each co-allocation group are, and requests whose slots overlap
// never share a node given to a request consuming processors. In aggregate mode a step yields
// one slot covering every request, and only if every request was placed.
func (e *Engine) stepSlots(ctx context.Context, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition, lists []ranges.RangeList, found *partitionRanges) ([]*Slot, error) {
	txn := db.Txn()
	depth := e.config.ResourceQueryDepth
	n := len(lists)
	base := make([]ranges.RangeList, n)
	for i, rl := range lists {
		base[i] = ranges.Offset(rl, -p.offsets[i])
	}
	counts := make([]int, n)
	aggregated := 0
	done := func() bool {
		if p.aggregate {
			return aggregated >= depth
		}
		for _, c := range counts {
			if c < depth {
				return false
			}
		}
		return true
	}

	rv := make([]*Slot, 0)
	step := 0
	for _, t := range ranges.EventBoundaries(base) {
		if done() {
			break
		}
		index := ranges.IndexAt(base, t)
		for k := 0; k < depth && !done(); k++ {
			if k > 0 && !(p.options.Flexible && p.options.TID) {
				break
			}
			starts := make([]int64, n)
			open := make([]bool, n)
			anyOpen, allOpen := false, true
			for i := range base {
				if index[i] >= len(base[i]) || (!p.aggregate && counts[i] >= depth) {
					allOpen = false
					continue
				}
				s := t + int64(k)*p.strideOf(i)
				if s+p.duration(i) > ranges.RunEnd(base[i], index[i]) {
					allOpen = false
					continue
				}
				starts[i] = s + p.offsets[i]
				open[i] = true
				anyOpen = true
			}
			if !anyOpen || ((p.lockstep() || p.aggregate) && !allOpen) {
				break
			}

			allocations, err := e.materialiseStep(ctx, txn, db, p, partition, open, starts, found)
			if err != nil {
				return nil, err
			}
			slots := e.stepResults(p, partition, allocations, starts, step)
			if len(slots) == 0 {
				continue
			}
			for _, slot := range slots {
				if slot.RequestIndex == schedulerobjects.AllRequests {
					aggregated++
				} else {
					counts[slot.RequestIndex]++
				}
			}
			rv = append(rv, slots...)
			step++
		}
	}
	return rv, nil
}

// materialiseStep allocates every open request at its start time.
// The result is indexed by request; requests that couldn't be placed get nil.
func (e *Engine) materialiseStep(ctx context.Context, txn *memdb.Txn, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition, open []bool, starts []int64, found *partitionRanges) ([]*allocation.Allocation, error) {
	rv := make([]*allocation.Allocation, len(open))
	var units [][]int
	if p.options.Exclusive {
		unit := make([]int, 0, len(open))
		for i, ok := range open {
			if ok {
				unit = append(unit, i)
			}
		}
		units = [][]int{unit}
	} else {
		units = p.units()
	}
	for _, unit := range units {
		unitStarts := make([]int64, len(unit))
		placeable := true
		from, to := ranges.MaxTime, int64(0)
		for j, i := range unit {
			if !open[i] {
				placeable = false
				break
			}
			unitStarts[j] = starts[i]
			if starts[i] < from {
				from = starts[i]
			}
			if end := starts[i] + p.duration(i); end > to {
				to = end
			}
		}
		if !placeable {
			continue
		}
		// Requests of an exclusive unit were searched separately and may have been assigned the same hosts.
		var seed [][]string
		if !p.options.Exclusive {
			seed = found.seed(unit, unitStarts)
		}
		affinityMap := consumedDuring(p, rv, starts, from, to)
		allocations, err := e.materialise(ctx, txn, db, p, partition, unit, unitStarts, seed, affinityMap)
		if err != nil {
			return nil, err
		}
		for j, a := range allocations {
			rv[unit[j]] = a
		}
	}
	return rv, nil
}

// consumedDuring returns an affinity map in which the nodes allocated to requests consuming processors
// are unavailable, for each allocated request whose slot overlaps [from, to).
// allocations and starts are indexed by request; unallocated requests are nil.
func consumedDuring(p *plan, allocations []*allocation.Allocation, starts []int64, from, to int64) allocation.AffinityMap {
	rv := allocation.NewAffinityMap()
	for i, a := range allocations {
		if a == nil || !p.job.Requests[i].IsCompute() {
			continue
		}
		if starts[i] >= to || starts[i]+p.duration(i) <= from {
			continue
		}
		rv.Consume(a)
	}
	return rv
}

// stepResults turns the allocations of one step into slots.
func (e *Engine) stepResults(p *plan, partition *schedulerobjects.Partition, allocations []*allocation.Allocation, starts []int64, step int) []*Slot {
	if p.aggregate {
		for _, a := range allocations {
			if a == nil {
				return nil
			}
		}
		slot := &Slot{
			Partition:    partition.Name,
			RequestIndex: schedulerobjects.AllRequests,
			Start:        starts[0],
			step:         step,
		}
		end := int64(0)
		for i, a := range allocations {
			if starts[i] < slot.Start {
				slot.Start = starts[i]
			}
			if s := starts[i] + p.duration(i); s > end {
				end = s
			}
			slot.NodeCount += a.NodeCount
			slot.TaskCount += a.TaskCount
			if p.options.Verbose {
				for _, host := range a.Hosts() {
					if !slices.Contains(slot.Hosts, host) {
						slot.Hosts = append(slot.Hosts, host)
					}
				}
			}
		}
		slot.Duration = end - slot.Start
		return []*Slot{slot}
	}

	rv := make([]*Slot, 0, len(allocations))
	for i, a := range allocations {
		if a == nil {
			continue
		}
		slot := &Slot{
			Partition:    partition.Name,
			RequestIndex: i,
			Start:        starts[i],
			Duration:     p.duration(i),
			NodeCount:    a.NodeCount,
			TaskCount:    a.TaskCount,
			step:         step,
		}
		if p.options.Verbose {
			slot.Hosts = a.Hosts()
		}
		rv = append(rv, slot)
	}
	return rv
}

// materialise allocates the requests of unit over slots starting at starts.
// Nodes unavailable in affinityMap are never selected, and nodes selected are marked unavailable in it.
// If seed is non-nil, seed[j] are the hosts tried first for the j-th request of unit.
// Nil is returned if the requests can't all be satisfied.
func (e *Engine) materialise(
	ctx context.Context,
	txn *memdb.Txn,
	db *nodedb.NodeDb,
	p *plan,
	partition *schedulerobjects.Partition,
	unit []int,
	starts []int64,
	seed [][]string,
	affinityMap allocation.AffinityMap,
) ([]*allocation.Allocation, error) {
	candidates := make([][]allocation.Candidate, len(unit))
	for j, i := range unit {
		c, err := e.candidates(txn, db, p, partition, i, starts[j])
		if err != nil {
			return nil, err
		}
		candidates[j] = c
	}
	if seed != nil {
		seeded := make([][]allocation.Candidate, len(candidates))
		for j, c := range candidates {
			seeded[j] = onHosts(c, seed[j])
		}
		allocations, err := e.place(ctx, p, partition, unit, seeded, affinityMap)
		if err != nil || allocations != nil {
			return allocations, err
		}
	}
	return e.place(ctx, p, partition, unit, candidates, affinityMap)
}

// place allocates the requests of unit among candidates.
// If they name node sets, the sets are tried in order and all requests are placed in the same one.
func (e *Engine) place(ctx context.Context, p *plan, partition *schedulerobjects.Partition, unit []int, candidates [][]allocation.Candidate, affinityMap allocation.AffinityMap) ([]*allocation.Allocation, error) {
	reqs := make([]*schedulerobjects.Request, len(unit))
	var nodeSet []string
	for j, i := range unit {
		reqs[j] = p.job.Requests[i]
		if len(nodeSet) == 0 {
			nodeSet = reqs[j].NodeSet
		}
	}
	if len(nodeSet) == 0 {
		return e.placeOn(ctx, p, partition, reqs, candidates, affinityMap)
	}
	for _, feature := range nodeSet {
		restricted := make([][]allocation.Candidate, len(candidates))
		for j, c := range candidates {
			restricted[j] = rangefinder.InNodeSet(c, feature)
		}
		allocations, err := e.placeOn(ctx, p, partition, reqs, restricted, affinityMap)
		if err != nil || allocations != nil {
			return allocations, err
		}
	}
	return nil, nil
}

// placeOn allocates a single request directly and several through the distributor, on disjoint nodes.
func (e *Engine) placeOn(ctx context.Context, p *plan, partition *schedulerobjects.Partition, reqs []*schedulerobjects.Request, candidates [][]allocation.Candidate, affinityMap allocation.AffinityMap) ([]*allocation.Allocation, error) {
	var allocations []*allocation.Allocation
	var err error
	if len(reqs) == 1 {
		policy := p.job.NodeAllocationPolicy.Resolve(partition.NodeAllocationPolicy, e.config.NodeAllocationPolicy)
		var a *allocation.Allocation
		a, err = e.allocator.AllocateAtAnyLevel(policy, p.job, reqs[0], partition, candidates[0], affinityMap)
		allocations = []*allocation.Allocation{a}
	} else {
		job := p.job.WithRequests(p.job.Id, reqs)
		allocations, err = e.distributor.DistributeAcrossRequests(ctx, job, partition, candidates, affinityMap)
	}
	if errors.Is(err, allocation.ErrExhausted) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return allocations, nil
}

// candidates returns the candidate nodes of partition for the i-th request over a slot starting at start.
func (e *Engine) candidates(txn *memdb.Txn, db *nodedb.NodeDb, p *plan, partition *schedulerobjects.Partition, i int, start int64) ([]allocation.Candidate, error) {
	req := p.job.Requests[i]
	nodes, err := rangefinder.EligibleNodes(txn, db, partition, req, nil)
	if err != nil {
		return nil, err
	}
	return rangefinder.Candidates(p.job, req, nodes, start, start+p.duration(i)), nil
}

func onHosts(candidates []allocation.Candidate, hosts []string) []allocation.Candidate {
	rv := make([]allocation.Candidate, 0, len(hosts))
	for _, c := range candidates {
		if slices.Contains(hosts, c.Node.Id) {
			rv = append(rv, c)
		}
	}
	return rv
}

// Package allocation selects the concrete nodes, and the number of tasks placed on each,
// that satisfy a single request at a single point in time.
package allocation

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/resourcequery/ranking"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// ErrExhausted is returned when the candidates run out before the request is satisfied.
// No partial allocation is returned alongside it.
var ErrExhausted = errors.New("candidate nodes exhausted before the request was satisfied")

// Candidate is a node that may be selected for a request.
type Candidate struct {
	Node *schedulerobjects.Node
	// Resources of the node free for the whole slot being allocated.
	Free schedulerobjects.ResourceList
	// Number of tasks of the request the node can host.
	Tasks int
	// Preferred nodes are ranked higher by the priority policy.
	Preferred bool
}

// NodeTasks is a selected node and the number of tasks placed on it.
type NodeTasks struct {
	NodeId string `json:"node" yaml:"node"`
	Index  int    `json:"-" yaml:"-"`
	Tasks  int    `json:"tasks" yaml:"tasks"`
}

// Allocation is the outcome of a successful Allocate call.
type Allocation struct {
	Policy    schedulerobjects.NodeAllocationPolicy
	Nodes     []NodeTasks
	TaskCount int
	NodeCount int
	// Memory of the selected nodes. Only accumulated on shared-memory partitions.
	Memory resource.Quantity
}

// Hosts returns the ids of the selected nodes in selection order.
func (a *Allocation) Hosts() []string {
	if a == nil {
		return nil
	}
	rv := make([]string, len(a.Nodes))
	for i, n := range a.Nodes {
		rv[i] = n.NodeId
	}
	return rv
}

func (a *Allocation) selected(node *schedulerobjects.Node) bool {
	for _, n := range a.Nodes {
		if n.Index == node.Index {
			return true
		}
	}
	return false
}

// TasksPerNodeBounds returns the minimum and maximum number of tasks of req any one node may host.
func TasksPerNodeBounds(req *schedulerobjects.Request) (minTPN, maxTPN int) {
	minTPN = 1
	if req.TasksPerNode > 1 {
		minTPN = req.TasksPerNode
	}
	maxTPN = taskTarget(req)
	if req.ExactTasksPerNode && req.TasksPerNode > 0 {
		maxTPN = req.TasksPerNode
	}
	if maxTPN < minTPN {
		maxTPN = minTPN
	}
	return
}

// Allocator selects nodes for requests. It holds no per-query state.
type Allocator struct {
	ranker *ranking.Ranker
}

func NewAllocator(ranker *ranking.Ranker) *Allocator {
	return &Allocator{ranker: ranker}
}

// Allocate selects nodes among candidates for req.
//
// Only candidates at affinity level in affinityMap that can host at least minTPN tasks are eligible.
// Each selected node hosts at most maxTPN tasks. The order in which eligible nodes are consumed
// is decided by policy, which falls back to the policy of the partition and then to PRIORITY.
// On success, and if req consumes processors, the selected nodes are marked unavailable in affinityMap.
// ErrExhausted is returned if the eligible candidates can't satisfy req, in which case affinityMap is unchanged.
func (a *Allocator) Allocate(
	policy schedulerobjects.NodeAllocationPolicy,
	job *schedulerobjects.Job,
	req *schedulerobjects.Request,
	partition *schedulerobjects.Partition,
	candidates []Candidate,
	minTPN, maxTPN int,
	affinityMap AffinityMap,
	level schedulerobjects.Affinity,
) (*Allocation, error) {
	if partition != nil {
		policy = policy.Resolve(partition.NodeAllocationPolicy)
	} else {
		policy = policy.Resolve()
	}
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Node == nil || affinityMap.Get(c.Node) != level {
			continue
		}
		if c.Tasks <= 0 || c.Tasks < minTPN {
			continue
		}
		eligible = append(eligible, c)
	}

	var ordered []Candidate
	switch policy {
	case schedulerobjects.NodeAllocationPolicyFastest:
		ordered = fastestFirst(eligible)
	case schedulerobjects.NodeAllocationPolicyBalanced:
		ordered = slowestTierFirst(eligible)
	default:
		var err error
		ordered, err = a.byPriority(job, req, eligible, level)
		if err != nil {
			return nil, err
		}
	}

	enforceMemory := policy == schedulerobjects.NodeAllocationPolicyPriority &&
		partition != nil && partition.SharedMemory && !req.TotalMemory.IsZero()
	rv, ok := selectNodes(req, ordered, minTPN, maxTPN, enforceMemory)
	if !ok {
		allocationsTotal.WithLabelValues(string(policy), "exhausted").Inc()
		return nil, ErrExhausted
	}
	rv.Policy = policy
	if req.IsCompute() {
		for _, c := range ordered {
			if rv.selected(c.Node) {
				affinityMap.Set(c.Node, schedulerobjects.AffinityUnavailable)
			}
		}
	}
	allocationsTotal.WithLabelValues(string(policy), "satisfied").Inc()
	nodesSelected.WithLabelValues(string(policy)).Observe(float64(rv.NodeCount))
	return rv, nil
}

// selectNodes consumes ordered until req is satisfied, placing between minTPN and maxTPN tasks on each node.
// Returns false if ordered is exhausted first.
func selectNodes(req *schedulerobjects.Request, ordered []Candidate, minTPN, maxTPN int, enforceMemory bool) (*Allocation, bool) {
	tasksWanted := taskTarget(req)
	nodesWanted := req.NodeCount
	rv := &Allocation{Nodes: make([]NodeTasks, 0)}
	satisfied := func() bool {
		if rv.TaskCount < tasksWanted || rv.NodeCount < nodesWanted {
			return false
		}
		return !enforceMemory || rv.Memory.Cmp(req.TotalMemory) >= 0
	}
	for _, c := range ordered {
		if satisfied() {
			break
		}
		take := 0
		if rv.TaskCount < tasksWanted {
			take = minInt(c.Tasks, maxTPN)
			// Leave minTPN tasks for every node still required after this one.
			reserved := nodesWanted - rv.NodeCount - 1
			if reserved < 0 {
				reserved = 0
			}
			if remaining := tasksWanted - rv.TaskCount - reserved*minTPN; take > remaining {
				take = remaining
			}
			if take <= 0 || take < minTPN {
				continue
			}
		}
		rv.Nodes = append(rv.Nodes, NodeTasks{NodeId: c.Node.Id, Index: c.Node.Index, Tasks: take})
		rv.TaskCount += take
		rv.NodeCount++
		if enforceMemory {
			rv.Memory.Add(candidateMemory(c))
		}
	}
	return rv, satisfied()
}

func fastestFirst(eligible []Candidate) []Candidate {
	speeds := ranking.SpeedScores(nodesOf(eligible))
	return sortedDescending(eligible, speeds)
}

// slowestTierFirst drains candidates one speed tier at a time, slowest first.
// Each tier is strictly faster than the one drained before it.
func slowestTierFirst(eligible []Candidate) []Candidate {
	speeds := ranking.SpeedScores(nodesOf(eligible))
	rv := make([]Candidate, 0, len(eligible))
	drained := make([]bool, len(eligible))
	last := math.Inf(-1)
	for len(rv) < len(eligible) {
		tier := math.Inf(1)
		for i, speed := range speeds {
			if !drained[i] && speed > last && speed < tier {
				tier = speed
			}
		}
		if math.IsInf(tier, 1) {
			// Only unorderable speeds remain.
			for i := range speeds {
				if !drained[i] {
					rv = append(rv, eligible[i])
				}
			}
			break
		}
		for i, speed := range speeds {
			if !drained[i] && speed == tier {
				rv = append(rv, eligible[i])
				drained[i] = true
			}
		}
		last = tier
	}
	return rv
}

func (a *Allocator) byPriority(job *schedulerobjects.Job, req *schedulerobjects.Request, eligible []Candidate, level schedulerobjects.Affinity) ([]Candidate, error) {
	scores := make([]float64, len(eligible))
	for i, c := range eligible {
		score, err := a.ranker.PriorityScore(job, req, c.Node, level, c.Preferred)
		if err != nil {
			return nil, err
		}
		scores[i] = score
	}
	return sortedDescending(eligible, scores), nil
}

// sortedDescending returns a copy of candidates stably sorted by descending score.
func sortedDescending(candidates []Candidate, scores []float64) []Candidate {
	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return scores[idx[i]] > scores[idx[j]]
	})
	rv := make([]Candidate, len(candidates))
	for i, j := range idx {
		rv[i] = candidates[j]
	}
	return rv
}

func nodesOf(candidates []Candidate) []*schedulerobjects.Node {
	rv := make([]*schedulerobjects.Node, len(candidates))
	for i, c := range candidates {
		rv[i] = c.Node
	}
	return rv
}

func candidateMemory(c Candidate) resource.Quantity {
	if q := c.Free.Get(schedulerobjects.ResourceMemory); !q.IsZero() {
		return q
	}
	return c.Node.ConfiguredResources.Memory()
}

// taskTarget is the number of tasks to allocate; a node-count-only request needs a task per node.
func taskTarget(req *schedulerobjects.Request) int {
	if req.TaskCount < req.NodeCount {
		return req.NodeCount
	}
	return req.TaskCount
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// AllocateAtAnyLevel tries each affinity level in schedulerobjects.AffinitySearchOrder
// and returns the first allocation satisfying req.
// Tasks-per-node bounds are derived from req.
func (a *Allocator) AllocateAtAnyLevel(
	policy schedulerobjects.NodeAllocationPolicy,
	job *schedulerobjects.Job,
	req *schedulerobjects.Request,
	partition *schedulerobjects.Partition,
	candidates []Candidate,
	affinityMap AffinityMap,
) (*Allocation, error) {
	minTPN, maxTPN := TasksPerNodeBounds(req)
	for _, level := range schedulerobjects.AffinitySearchOrder {
		allocation, err := a.Allocate(policy, job, req, partition, candidates, minTPN, maxTPN, affinityMap, level)
		if errors.Is(err, ErrExhausted) {
			continue
		}
		return allocation, err
	}
	return nil, ErrExhausted
}

package allocation

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
	"github.com/armadaproject/resourcequery/internal/resourcequery/testfixtures"
)

// genNodes generates between 1 and 12 nodes with random processor counts and speeds.
func genNodes() gopter.Gen {
	return func(genParams *gopter.GenParameters) *gopter.GenResult {
		n := 1 + genParams.Rng.Intn(12)
		nodes := make([]*schedulerobjects.Node, n)
		for i := range nodes {
			nodes[i] = testfixtures.TestNode(
				fmt.Sprintf("node-%d", i),
				1+genParams.Rng.Intn(32),
				float64(1+genParams.Rng.Intn(4)),
			)
			nodes[i].Priority = float64(genParams.Rng.Intn(10))
		}
		return gopter.NewGenResult(nodes, gopter.NoShrinker)
	}
}

func TestAllocateProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)
	allocator := testAllocator(t)
	policies := []schedulerobjects.NodeAllocationPolicy{
		schedulerobjects.NodeAllocationPolicyFastest,
		schedulerobjects.NodeAllocationPolicyPriority,
		schedulerobjects.NodeAllocationPolicyBalanced,
	}

	properties.Property("allocated tasks are conserved and bounded by the request", prop.ForAll(
		func(nodes []*schedulerobjects.Node, taskCount, tasksPerNode, policyIndex int) bool {
			req := testfixtures.ProcRequest(taskCount)
			req.TasksPerNode = tasksPerNode
			job := testfixtures.TestJob("job", req)
			minTPN, maxTPN := TasksPerNodeBounds(req)
			allocation, err := allocator.Allocate(
				policies[policyIndex], job, req, nil, candidatesFor(nodes, req), minTPN, maxTPN, NewAffinityMap(), schedulerobjects.AffinityNone,
			)
			if err != nil {
				return err == ErrExhausted
			}
			sum := 0
			for _, n := range allocation.Nodes {
				if n.Tasks > maxTPN || n.Tasks < minTPN {
					return false
				}
				sum += n.Tasks
			}
			return sum == allocation.TaskCount && allocation.TaskCount == req.TaskCount
		},
		genNodes(), gen.IntRange(1, 200), gen.IntRange(0, 8), gen.IntRange(0, 2),
	))

	properties.Property("selected nodes are never eligible again within the query", prop.ForAll(
		func(nodes []*schedulerobjects.Node, taskCount, policyIndex int) bool {
			req := testfixtures.ProcRequest(taskCount)
			job := testfixtures.TestJob("job", req)
			candidates := candidatesFor(nodes, req)
			affinityMap := NewAffinityMap()
			selected := make(map[string]bool)
			for {
				allocation, err := allocator.Allocate(
					policies[policyIndex], job, req, nil, candidates, 1, taskCount, affinityMap, schedulerobjects.AffinityNone,
				)
				if err != nil {
					return err == ErrExhausted
				}
				for _, host := range allocation.Hosts() {
					if selected[host] {
						return false
					}
					selected[host] = true
				}
			}
		},
		genNodes(), gen.IntRange(1, 64), gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}

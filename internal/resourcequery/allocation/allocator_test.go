package allocation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/resourcequery/ranking"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
	"github.com/armadaproject/resourcequery/internal/resourcequery/testfixtures"
)

func testAllocator(t *testing.T) *Allocator {
	ranker, err := ranking.NewRanker(16)
	require.NoError(t, err)
	return NewAllocator(ranker)
}

// candidatesFor indexes nodes and returns one candidate per node for req.
func candidatesFor(nodes []*schedulerobjects.Node, req *schedulerobjects.Request) []Candidate {
	rv := make([]Candidate, len(nodes))
	for i, node := range nodes {
		node.Index = i
		rv[i] = Candidate{
			Node:  node,
			Free:  node.ConfiguredResources,
			Tasks: node.ConfiguredResources.TasksFor(req.PerTask),
		}
	}
	return rv
}

func nodesWithSpeeds(speeds ...float64) []*schedulerobjects.Node {
	rv := make([]*schedulerobjects.Node, len(speeds))
	for i, speed := range speeds {
		rv[i] = testfixtures.TestNode(fmt.Sprintf("node-%d", i), 8, speed)
	}
	return rv
}

func TestTasksPerNodeBounds(t *testing.T) {
	tests := map[string]struct {
		Request *schedulerobjects.Request
		MinTPN  int
		MaxTPN  int
	}{
		"unconstrained": {
			Request: &schedulerobjects.Request{TaskCount: 16},
			MinTPN:  1,
			MaxTPN:  16,
		},
		"tasks per node is a minimum": {
			Request: &schedulerobjects.Request{TaskCount: 16, TasksPerNode: 4},
			MinTPN:  4,
			MaxTPN:  16,
		},
		"exact tasks per node": {
			Request: &schedulerobjects.Request{TaskCount: 16, TasksPerNode: 4, ExactTasksPerNode: true},
			MinTPN:  4,
			MaxTPN:  4,
		},
		"single task per node is no constraint": {
			Request: &schedulerobjects.Request{TaskCount: 3, TasksPerNode: 1},
			MinTPN:  1,
			MaxTPN:  3,
		},
		"node count only": {
			Request: &schedulerobjects.Request{NodeCount: 2},
			MinTPN:  1,
			MaxTPN:  2,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			minTPN, maxTPN := TasksPerNodeBounds(tc.Request)
			assert.Equal(t, tc.MinTPN, minTPN)
			assert.Equal(t, tc.MaxTPN, maxTPN)
		})
	}
}

func TestAllocate_Policies(t *testing.T) {
	tests := map[string]struct {
		Policy        schedulerobjects.NodeAllocationPolicy
		Speeds        []float64
		Priorities    []float64
		TaskCount     int
		MaxTPN        int
		ExpectedHosts []string
	}{
		"fastest first picks the fastest node": {
			Policy:        schedulerobjects.NodeAllocationPolicyFastest,
			Speeds:        []float64{0.1, 0.3, 0.2},
			TaskCount:     1,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-1"},
		},
		"fastest first orders all nodes by descending speed": {
			Policy:        schedulerobjects.NodeAllocationPolicyFastest,
			Speeds:        []float64{0.1, 0.3, 0.2},
			TaskCount:     3,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-1", "node-2", "node-0"},
		},
		"fastest first ties keep input order": {
			Policy:        schedulerobjects.NodeAllocationPolicyFastest,
			Speeds:        []float64{1, 2, 2},
			TaskCount:     2,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-1", "node-2"},
		},
		"balanced drains the slowest tier first": {
			Policy:        schedulerobjects.NodeAllocationPolicyBalanced,
			Speeds:        []float64{0.1, 0.3, 0.2},
			TaskCount:     3,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-0", "node-2", "node-1"},
		},
		"balanced drains whole tiers": {
			Policy:        schedulerobjects.NodeAllocationPolicyBalanced,
			Speeds:        []float64{2, 1, 2, 1},
			TaskCount:     4,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-1", "node-3", "node-0", "node-2"},
		},
		"priority orders by descending node priority": {
			Policy:        schedulerobjects.NodeAllocationPolicyPriority,
			Speeds:        []float64{1, 1, 1},
			Priorities:    []float64{1, 5, 3},
			TaskCount:     2,
			MaxTPN:        1,
			ExpectedHosts: []string{"node-1", "node-2"},
		},
		"priority packs nodes up to max tasks per node": {
			Policy:        schedulerobjects.NodeAllocationPolicyPriority,
			Speeds:        []float64{1, 1, 1},
			TaskCount:     16,
			MaxTPN:        16,
			ExpectedHosts: []string{"node-0", "node-1"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			nodes := nodesWithSpeeds(tc.Speeds...)
			for i, p := range tc.Priorities {
				nodes[i].Priority = p
			}
			req := testfixtures.ProcRequest(tc.TaskCount)
			job := testfixtures.TestJob("job", req)
			allocation, err := testAllocator(t).Allocate(
				tc.Policy, job, req, nil, candidatesFor(nodes, req), 1, tc.MaxTPN, NewAffinityMap(), schedulerobjects.AffinityNone,
			)
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedHosts, allocation.Hosts())
			assert.Equal(t, tc.Policy, allocation.Policy)
		})
	}
}

func TestAllocate_PolicyFallsBackToPartition(t *testing.T) {
	nodes := nodesWithSpeeds(0.1, 0.3, 0.2)
	req := testfixtures.ProcRequest(1)
	job := testfixtures.TestJob("job", req)
	partition := &schedulerobjects.Partition{Name: "batch", NodeAllocationPolicy: schedulerobjects.NodeAllocationPolicyFastest}
	allocation, err := testAllocator(t).Allocate(
		schedulerobjects.NodeAllocationPolicyDefault, job, req, partition, candidatesFor(nodes, req), 1, 1, NewAffinityMap(), schedulerobjects.AffinityNone,
	)
	require.NoError(t, err)
	assert.Equal(t, schedulerobjects.NodeAllocationPolicyFastest, allocation.Policy)
	assert.Equal(t, []string{"node-1"}, allocation.Hosts())
}

func TestAllocate_Conservation(t *testing.T) {
	tests := map[string]struct {
		Procs        []int
		Request      *schedulerobjects.Request
		ExpectedHost []NodeTasks
	}{
		"tasks spread over two full nodes": {
			Procs:   []int{8, 8, 8, 8},
			Request: testfixtures.ProcRequest(16),
			ExpectedHost: []NodeTasks{
				{NodeId: "node-0", Index: 0, Tasks: 8},
				{NodeId: "node-1", Index: 1, Tasks: 8},
			},
		},
		"last node takes the remainder": {
			Procs:   []int{8, 8, 8},
			Request: testfixtures.ProcRequest(10),
			ExpectedHost: []NodeTasks{
				{NodeId: "node-0", Index: 0, Tasks: 8},
				{NodeId: "node-1", Index: 1, Tasks: 2},
			},
		},
		"node count leaves a task for every required node": {
			Procs: []int{8, 8, 8},
			Request: func() *schedulerobjects.Request {
				req := testfixtures.ProcRequest(4)
				req.NodeCount = 3
				return req
			}(),
			ExpectedHost: []NodeTasks{
				{NodeId: "node-0", Index: 0, Tasks: 2},
				{NodeId: "node-1", Index: 1, Tasks: 1},
				{NodeId: "node-2", Index: 2, Tasks: 1},
			},
		},
		"nodes below the minimum are skipped": {
			Procs: []int{2, 4, 4},
			Request: func() *schedulerobjects.Request {
				req := testfixtures.ProcRequest(8)
				req.TasksPerNode = 4
				req.ExactTasksPerNode = true
				return req
			}(),
			ExpectedHost: []NodeTasks{
				{NodeId: "node-1", Index: 1, Tasks: 4},
				{NodeId: "node-2", Index: 2, Tasks: 4},
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			nodes := make([]*schedulerobjects.Node, len(tc.Procs))
			for i, procs := range tc.Procs {
				nodes[i] = testfixtures.TestNode(fmt.Sprintf("node-%d", i), procs, 1)
			}
			job := testfixtures.TestJob("job", tc.Request)
			minTPN, maxTPN := TasksPerNodeBounds(tc.Request)
			allocation, err := testAllocator(t).Allocate(
				schedulerobjects.NodeAllocationPolicyPriority, job, tc.Request, nil, candidatesFor(nodes, tc.Request), minTPN, maxTPN, NewAffinityMap(), schedulerobjects.AffinityNone,
			)
			require.NoError(t, err)
			assert.Equal(t, tc.ExpectedHost, allocation.Nodes)

			sum := 0
			for _, n := range allocation.Nodes {
				sum += n.Tasks
			}
			assert.Equal(t, allocation.TaskCount, sum)
			assert.LessOrEqual(t, allocation.TaskCount, tc.Request.TaskCount)
			assert.Equal(t, len(allocation.Nodes), allocation.NodeCount)
		})
	}
}

func TestAllocate_TasksPerNodeMinimum(t *testing.T) {
	tests := map[string]struct {
		Procs         []int
		TaskCount     int
		TasksPerNode  int
		ExpectedTasks []int
	}{
		"remainder below the minimum is never placed": {
			Procs:        []int{4, 4, 4},
			TaskCount:    10,
			TasksPerNode: 4,
		},
		"remainder placed on a node hosting the minimum": {
			Procs:         []int{4, 6},
			TaskCount:     10,
			TasksPerNode:  4,
			ExpectedTasks: []int{4, 6},
		},
		"multiple of the minimum": {
			Procs:         []int{4, 4, 4},
			TaskCount:     8,
			TasksPerNode:  4,
			ExpectedTasks: []int{4, 4},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			nodes := make([]*schedulerobjects.Node, len(tc.Procs))
			for i, procs := range tc.Procs {
				nodes[i] = testfixtures.TestNode(fmt.Sprintf("node-%d", i), procs, 1)
			}
			req := testfixtures.ProcRequest(tc.TaskCount)
			req.TasksPerNode = tc.TasksPerNode
			job := testfixtures.TestJob("job", req)
			minTPN, maxTPN := TasksPerNodeBounds(req)
			allocation, err := testAllocator(t).Allocate(
				schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidatesFor(nodes, req), minTPN, maxTPN, NewAffinityMap(), schedulerobjects.AffinityNone,
			)
			if tc.ExpectedTasks == nil {
				assert.ErrorIs(t, err, ErrExhausted)
				return
			}
			require.NoError(t, err)
			tasks := make([]int, len(allocation.Nodes))
			for i, n := range allocation.Nodes {
				tasks[i] = n.Tasks
			}
			assert.ElementsMatch(t, tc.ExpectedTasks, tasks)
			assert.Equal(t, tc.TaskCount, allocation.TaskCount)
		})
	}
}

func TestAllocate_AffinityExclusivity(t *testing.T) {
	nodes := testfixtures.N8ProcNodes(4)
	req := testfixtures.ProcRequest(16)
	job := testfixtures.TestJob("job", req)
	candidates := candidatesFor(nodes, req)
	affinityMap := NewAffinityMap()
	allocator := testAllocator(t)

	first, err := allocator.Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidates, 1, 16, affinityMap, schedulerobjects.AffinityNone)
	require.NoError(t, err)
	for _, n := range first.Nodes {
		assert.True(t, affinityMap.IsUnavailable(nodes[n.Index]))
	}

	second, err := allocator.Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidates, 1, 16, affinityMap, schedulerobjects.AffinityNone)
	require.NoError(t, err)
	for _, n := range second.Nodes {
		assert.NotContains(t, first.Hosts(), n.NodeId)
	}

	// All nodes are now consumed.
	_, err = allocator.Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidates, 1, 16, affinityMap, schedulerobjects.AffinityNone)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocate_NonComputeRequestsDoNotConsumeNodes(t *testing.T) {
	nodes := testfixtures.N8ProcNodes(2)
	for _, node := range nodes {
		node.ConfiguredResources = node.ConfiguredResources.Add(schedulerobjects.NewResourceList(map[string]resource.Quantity{
			"licence": resource.MustParse("4"),
		}))
	}
	req := &schedulerobjects.Request{
		TaskCount: 2,
		PerTask: schedulerobjects.NewResourceList(map[string]resource.Quantity{
			"licence": resource.MustParse("1"),
		}),
	}
	job := testfixtures.TestJob("job", req)
	affinityMap := NewAffinityMap()
	_, err := testAllocator(t).Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidatesFor(nodes, req), 1, 2, affinityMap, schedulerobjects.AffinityNone)
	require.NoError(t, err)
	assert.Empty(t, affinityMap)
}

func TestAllocate_AffinityLevel(t *testing.T) {
	nodes := testfixtures.N8ProcNodes(3)
	req := testfixtures.ProcRequest(8)
	job := testfixtures.TestJob("job", req)
	candidates := candidatesFor(nodes, req)
	affinityMap := NewAffinityMap()
	affinityMap.Set(nodes[2], schedulerobjects.AffinityPositive)

	allocation, err := testAllocator(t).Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, nil, candidates, 1, 8, affinityMap, schedulerobjects.AffinityPositive)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-2"}, allocation.Hosts())
	assert.Equal(t, schedulerobjects.AffinityUnavailable, affinityMap.Get(nodes[2]))
	assert.Equal(t, schedulerobjects.AffinityNone, affinityMap.Get(nodes[0]))
}

func TestAllocate_Exhausted(t *testing.T) {
	// 50 tasks available in total.
	nodes := []*schedulerobjects.Node{
		testfixtures.TestNode("node-0", 16, 1),
		testfixtures.TestNode("node-1", 16, 1),
		testfixtures.TestNode("node-2", 18, 1),
	}
	req := testfixtures.ProcRequest(100)
	job := testfixtures.TestJob("job", req)
	candidates := candidatesFor(nodes, req)
	allocator := testAllocator(t)
	for _, policy := range []schedulerobjects.NodeAllocationPolicy{
		schedulerobjects.NodeAllocationPolicyFastest,
		schedulerobjects.NodeAllocationPolicyPriority,
		schedulerobjects.NodeAllocationPolicyBalanced,
	} {
		t.Run(string(policy), func(t *testing.T) {
			for _, level := range schedulerobjects.AffinitySearchOrder {
				affinityMap := NewAffinityMap()
				allocation, err := allocator.Allocate(policy, job, req, nil, candidates, 1, 100, affinityMap, level)
				assert.ErrorIs(t, err, ErrExhausted)
				assert.Nil(t, allocation)
				assert.Empty(t, affinityMap)
			}
		})
	}
}

func TestAllocate_SharedMemory(t *testing.T) {
	nodes := []*schedulerobjects.Node{
		testfixtures.TestNode("node-0", 8, 1),
		testfixtures.TestNode("node-1", 8, 1),
		testfixtures.TestNode("node-2", 8, 1),
	}
	req := testfixtures.ProcRequest(8)
	req.TotalMemory = resource.MustParse("100Gi")
	job := testfixtures.TestJob("job", req)
	shared := &schedulerobjects.Partition{Name: "smp", SharedMemory: true}

	// Two 64Gi nodes are needed to reach 100Gi even though one node hosts every task.
	allocation, err := testAllocator(t).Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, shared, candidatesFor(nodes, req), 1, 8, NewAffinityMap(), schedulerobjects.AffinityNone)
	require.NoError(t, err)
	assert.Equal(t, []NodeTasks{
		{NodeId: "node-0", Index: 0, Tasks: 8},
		{NodeId: "node-1", Index: 1, Tasks: 0},
	}, allocation.Nodes)
	assert.Equal(t, 8, allocation.TaskCount)
	assert.Equal(t, 0, allocation.Memory.Cmp(resource.MustParse("128Gi")))

	// The memory requirement is only enforced by the priority policy.
	allocation, err = testAllocator(t).Allocate(schedulerobjects.NodeAllocationPolicyFastest, job, req, shared, candidatesFor(nodes, req), 1, 8, NewAffinityMap(), schedulerobjects.AffinityNone)
	require.NoError(t, err)
	assert.Equal(t, []string{"node-0"}, allocation.Hosts())

	// Not enough memory in the partition.
	req.TotalMemory = resource.MustParse("1Ti")
	_, err = testAllocator(t).Allocate(schedulerobjects.NodeAllocationPolicyPriority, job, req, shared, candidatesFor(nodes, req), 1, 8, NewAffinityMap(), schedulerobjects.AffinityNone)
	assert.ErrorIs(t, err, ErrExhausted)
}

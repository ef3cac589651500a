package testfixtures

// This file contains test fixtures to be used throughout the tests of the resource query packages.
import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

const (
	TestPartition = "batch"
	// 2022-03-01T15:04:05Z
	BaseTime int64 = 1646147045
	// One hour.
	TestWallClockLimit int64 = 3600
)

func Resources(procs string, memory string) schedulerobjects.ResourceList {
	rv := schedulerobjects.ResourceList{Resources: make(map[string]resource.Quantity)}
	if procs != "" {
		rv.Resources[schedulerobjects.ResourceProcs] = resource.MustParse(procs)
	}
	if memory != "" {
		rv.Resources[schedulerobjects.ResourceMemory] = resource.MustParse(memory)
	}
	return rv
}

// TestNode returns an idle node in TestPartition with the given number of processors,
// 64Gi of memory, and the given relative speed.
func TestNode(id string, procs int, speed float64) *schedulerobjects.Node {
	return &schedulerobjects.Node{
		Id:                  id,
		Partition:           TestPartition,
		State:               schedulerobjects.NodeStateIdle,
		ConfiguredResources: Resources(fmt.Sprintf("%d", procs), "64Gi"),
		Speed:               speed,
		ProcSpeed:           2000,
		Priority:            0,
	}
}

func N8ProcNodes(n int) []*schedulerobjects.Node {
	rv := make([]*schedulerobjects.Node, n)
	for i := 0; i < n; i++ {
		rv[i] = TestNode(fmt.Sprintf("node-%d", i), 8, 1.0)
	}
	return rv
}

// WithPartition moves nodes to partition.
func WithPartition(partition string, nodes []*schedulerobjects.Node) []*schedulerobjects.Node {
	for _, node := range nodes {
		node.Partition = partition
	}
	return nodes
}

// WithReservation commits procs processors of node over [start, end).
func WithReservation(node *schedulerobjects.Node, id string, start, end int64, procs int) *schedulerobjects.Node {
	node.Reservations = append(node.Reservations, schedulerobjects.ReservationWindow{
		Id:        id,
		Start:     start,
		End:       end,
		Resources: Resources(fmt.Sprintf("%d", procs), ""),
	})
	return node
}

func TestPartitions(names ...string) []*schedulerobjects.Partition {
	if len(names) == 0 {
		names = []string{TestPartition}
	}
	rv := make([]*schedulerobjects.Partition, len(names))
	for i, name := range names {
		rv[i] = &schedulerobjects.Partition{Name: name}
	}
	return rv
}

func TestSnapshot(partitions []*schedulerobjects.Partition, nodes []*schedulerobjects.Node) *schedulerobjects.ClusterSnapshot {
	return &schedulerobjects.ClusterSnapshot{
		Now:        BaseTime,
		Partitions: partitions,
		Nodes:      nodes,
	}
}

// TestNodeDb indexes a snapshot of nodes in TestPartition. Panics if the snapshot is invalid.
func TestNodeDb(nodes []*schedulerobjects.Node) *nodedb.NodeDb {
	return MustNodeDb(TestSnapshot(TestPartitions(), nodes))
}

func MustNodeDb(snapshot *schedulerobjects.ClusterSnapshot) *nodedb.NodeDb {
	db, err := nodedb.NewNodeDb(snapshot)
	if err != nil {
		panic(err)
	}
	return db
}

// ProcRequest returns a request for taskCount tasks of one processor each.
func ProcRequest(taskCount int) *schedulerobjects.Request {
	return &schedulerobjects.Request{
		TaskCount: taskCount,
		PerTask:   Resources("1", ""),
	}
}

func TestJob(id string, reqs ...*schedulerobjects.Request) *schedulerobjects.Job {
	for i, req := range reqs {
		req.Index = i
	}
	return &schedulerobjects.Job{
		Id:             id,
		Requests:       reqs,
		WallClockLimit: TestWallClockLimit,
		Credentials:    schedulerobjects.Credentials{User: "alice", Group: "hpc", Account: "physics"},
	}
}

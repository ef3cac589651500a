package nodedb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

func testNode(id, partition string) *schedulerobjects.Node {
	return &schedulerobjects.Node{
		Id:        id,
		Partition: partition,
		State:     schedulerobjects.NodeStateIdle,
		ConfiguredResources: schedulerobjects.ResourceList{Resources: map[string]resource.Quantity{
			schedulerobjects.ResourceProcs: resource.MustParse("8"),
		}},
	}
}

func testSnapshot() *schedulerobjects.ClusterSnapshot {
	deleted := testNode("b-deleted", "gpu")
	deleted.Deleted = true
	return &schedulerobjects.ClusterSnapshot{
		Now:        100,
		Partitions: []*schedulerobjects.Partition{{Name: "batch"}, {Name: "gpu"}},
		Nodes: []*schedulerobjects.Node{
			testNode("z-first", "batch"),
			testNode("a-second", "batch"),
			testNode("m-gpu", "gpu"),
			deleted,
			testNode("c-third", "batch"),
		},
	}
}

func TestNewNodeDb(t *testing.T) {
	db, err := NewNodeDb(testSnapshot())
	require.NoError(t, err)
	assert.Equal(t, int64(100), db.Now())
	assert.Len(t, db.Partitions(), 2)
	assert.Equal(t, 3, db.Partition("batch").ConfiguredNodes)
	assert.Nil(t, db.Partition("missing"))
	assert.Contains(t, db.String(), "batch")
}

func TestNewNodeDbRejectsInvalidSnapshot(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Nodes = append(snapshot.Nodes, testNode("z-first", "batch"))
	_, err := NewNodeDb(snapshot)
	var alreadyExists *armadaerrors.ErrAlreadyExists
	assert.ErrorAs(t, err, &alreadyExists)

	_, err = NewNodeDb(nil)
	assert.True(t, armadaerrors.IsInvalidArgument(err))
}

func TestPartitionNodesAreInSnapshotOrder(t *testing.T) {
	db, err := NewNodeDb(testSnapshot())
	require.NoError(t, err)

	nodes, err := db.PartitionNodes("batch")
	require.NoError(t, err)
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.Id
	}
	assert.Equal(t, []string{"z-first", "a-second", "c-third"}, ids)

	nodes, err = db.PartitionNodes("gpu")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "m-gpu", nodes[0].Id)
}

func TestNodesIterator(t *testing.T) {
	db, err := NewNodeDb(testSnapshot())
	require.NoError(t, err)

	it, err := NewNodesIterator(db.Txn())
	require.NoError(t, err)
	ids := make([]string, 0)
	for node := it.NextNode(); node != nil; node = it.NextNode() {
		ids = append(ids, node.Id)
	}
	assert.Equal(t, []string{"z-first", "a-second", "m-gpu", "c-third"}, ids)
}

func TestGetNode(t *testing.T) {
	db, err := NewNodeDb(testSnapshot())
	require.NoError(t, err)

	node, err := db.GetNode("m-gpu")
	require.NoError(t, err)
	assert.Equal(t, 2, node.Index)

	_, err = db.GetNode("missing")
	var notFound *armadaerrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)

	nodes, err := db.NodesById(db.Txn(), []string{"c-third", "missing", "b-deleted", "z-first"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "z-first", nodes[0].Id)
	assert.Equal(t, "c-third", nodes[1].Id)
}

package nodedb

import (
	"encoding/binary"
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// NodesIterator is an iterator over all live nodes in the db, in snapshot order.
type NodesIterator struct {
	it memdb.ResultIterator
}

func NewNodesIterator(txn *memdb.Txn) (*NodesIterator, error) {
	it, err := txn.LowerBound(nodesTable, "index", 0)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &NodesIterator{
		it: it,
	}, nil
}

func (it *NodesIterator) WatchCh() <-chan struct{} {
	panic("not implemented")
}

func (it *NodesIterator) NextNode() *schedulerobjects.Node {
	return nextLiveNode(it.it)
}

func (it *NodesIterator) Next() interface{} {
	return it.NextNode()
}

// PartitionNodesIterator iterates over the live nodes of a single partition.
// Nodes are returned sorted by node id.
type PartitionNodesIterator struct {
	it memdb.ResultIterator
}

func NewPartitionNodesIterator(txn *memdb.Txn, partition string) (*PartitionNodesIterator, error) {
	it, err := txn.Get(nodesTable, "partition", partition)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &PartitionNodesIterator{
		it: it,
	}, nil
}

func (it *PartitionNodesIterator) WatchCh() <-chan struct{} {
	panic("not implemented")
}

func (it *PartitionNodesIterator) NextNode() *schedulerobjects.Node {
	return nextLiveNode(it.it)
}

func (it *PartitionNodesIterator) Next() interface{} {
	return it.NextNode()
}

func nextLiveNode(it memdb.ResultIterator) *schedulerobjects.Node {
	for obj := it.Next(); obj != nil; obj = it.Next() {
		node, ok := obj.(*schedulerobjects.Node)
		if !ok {
			panic(fmt.Sprintf("expected *Node, but got %T", obj))
		}
		if node.Deleted {
			continue
		}
		return node
	}
	return nil
}

// NodeIndexIndex is an index for the position of a node in the snapshot.
// Positions are encoded big-endian so that iterating over the index returns nodes in snapshot order.
type NodeIndexIndex struct{}

// FromArgs computes the index key from a set of arguments.
// Takes a single argument of type int.
func (s *NodeIndexIndex) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("must provide exactly one argument")
	}
	index, ok := args[0].(int)
	if !ok {
		return nil, errors.Errorf("expected int, but got %T", args[0])
	}
	return encodeIndex(index), nil
}

// FromObject extracts the index key from a *schedulerobjects.Node.
func (s *NodeIndexIndex) FromObject(raw interface{}) (bool, []byte, error) {
	node, ok := raw.(*schedulerobjects.Node)
	if !ok {
		return false, nil, errors.Errorf("expected *Node, but got %T", raw)
	}
	return true, encodeIndex(node.Index), nil
}

func encodeIndex(index int) []byte {
	rv := make([]byte, 8)
	binary.BigEndian.PutUint64(rv, uint64(index))
	return rv
}

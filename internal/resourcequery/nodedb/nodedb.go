package nodedb

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

const nodesTable = "nodes"

// NodeDb is the read-only, indexed form of a cluster snapshot.
// It's used to efficiently find the nodes of a partition in snapshot order.
// Queries only ever open read transactions, so a NodeDb may be shared by concurrent queries.
type NodeDb struct {
	// In-memory database. Stores *schedulerobjects.Node.
	db *memdb.MemDB
	// Snapshot time in seconds since the epoch.
	now int64
	// Partitions in snapshot order, including tombstoned ones.
	partitions []*schedulerobjects.Partition
	// Index of partitions by name.
	partitionsByName map[string]*schedulerobjects.Partition
}

// NewNodeDb validates snapshot and indexes its nodes.
// The snapshot must not be modified afterwards.
func NewNodeDb(snapshot *schedulerobjects.ClusterSnapshot) (*NodeDb, error) {
	if snapshot == nil {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "snapshot",
			Value:   nil,
			Message: "a cluster snapshot is required",
		})
	}
	if err := snapshot.Initialise(); err != nil {
		return nil, err
	}
	db, err := memdb.NewMemDB(nodeDbSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	txn := db.Txn(true)
	defer txn.Abort()
	for _, node := range snapshot.Nodes {
		if err := txn.Insert(nodesTable, node); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	txn.Commit()

	partitionsByName := make(map[string]*schedulerobjects.Partition, len(snapshot.Partitions))
	for _, p := range snapshot.Partitions {
		partitionsByName[p.Name] = p
	}
	return &NodeDb{
		db:               db,
		now:              snapshot.Now,
		partitions:       slices.Clone(snapshot.Partitions),
		partitionsByName: partitionsByName,
	}, nil
}

func (nodeDb *NodeDb) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 1, 1, 1, ' ', 0)
	fmt.Fprintf(w, "Now:\t%d\n", nodeDb.now)
	if len(nodeDb.partitions) == 0 {
		fmt.Fprint(w, "Partitions:\tnone\n")
	} else {
		fmt.Fprint(w, "Partitions:\n")
		for _, p := range nodeDb.partitions {
			if p.Deleted {
				continue
			}
			fmt.Fprintf(w, "  %s\tnodes=%d\tup=%d\tresources=%s\n", p.Name, p.ConfiguredNodes, p.UpNodes, p.UpResources.CompactString())
		}
	}
	w.Flush()
	return sb.String()
}

func (nodeDb *NodeDb) Now() int64 {
	return nodeDb.now
}

// Partitions returns all partitions in search order, including tombstoned ones.
func (nodeDb *NodeDb) Partitions() []*schedulerobjects.Partition {
	return nodeDb.partitions
}

// Partition returns the partition with the given name, or nil.
func (nodeDb *NodeDb) Partition(name string) *schedulerobjects.Partition {
	return nodeDb.partitionsByName[name]
}

func (nodeDb *NodeDb) Txn() *memdb.Txn {
	return nodeDb.db.Txn(false)
}

// GetNode returns a node in the db with given id.
func (nodeDb *NodeDb) GetNode(id string) (*schedulerobjects.Node, error) {
	return nodeDb.GetNodeWithTxn(nodeDb.Txn(), id)
}

// GetNodeWithTxn returns a node in the db with given id,
// within the provided transactions.
func (nodeDb *NodeDb) GetNodeWithTxn(txn *memdb.Txn, id string) (*schedulerobjects.Node, error) {
	obj, err := txn.First(nodesTable, "id", id)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if obj == nil {
		return nil, errors.WithStack(&armadaerrors.ErrNotFound{
			Type:  "node",
			Value: id,
		})
	}
	if node, ok := obj.(*schedulerobjects.Node); !ok {
		panic(fmt.Sprintf("expected *Node, but got %T", obj))
	} else {
		return node, nil
	}
}

// PartitionNodes returns the live nodes of a partition in snapshot order.
func (nodeDb *NodeDb) PartitionNodes(partition string) ([]*schedulerobjects.Node, error) {
	return nodeDb.PartitionNodesWithTxn(nodeDb.Txn(), partition)
}

func (nodeDb *NodeDb) PartitionNodesWithTxn(txn *memdb.Txn, partition string) ([]*schedulerobjects.Node, error) {
	it, err := NewPartitionNodesIterator(txn, partition)
	if err != nil {
		return nil, err
	}
	rv := make([]*schedulerobjects.Node, 0)
	for node := it.NextNode(); node != nil; node = it.NextNode() {
		rv = append(rv, node)
	}
	slices.SortFunc(rv, func(a, b *schedulerobjects.Node) bool { return a.Index < b.Index })
	return rv, nil
}

// NodesById returns the live nodes with the given ids, in snapshot order. Unknown ids are ignored.
func (nodeDb *NodeDb) NodesById(txn *memdb.Txn, ids []string) ([]*schedulerobjects.Node, error) {
	rv := make([]*schedulerobjects.Node, 0, len(ids))
	for _, id := range ids {
		obj, err := txn.First(nodesTable, "id", id)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if node, ok := obj.(*schedulerobjects.Node); ok && !node.Deleted {
			rv = append(rv, node)
		}
	}
	slices.SortFunc(rv, func(a, b *schedulerobjects.Node) bool { return a.Index < b.Index })
	return rv, nil
}

func nodeDbSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			nodesTable: {
				Name: nodesTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Id"},
					},
					"index": {
						Name:    "index",
						Unique:  true,
						Indexer: &NodeIndexIndex{},
					},
					"partition": {
						Name:    "partition",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "Partition"},
					},
				},
			},
		},
	}
}

package schedulerobjects

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

// ClusterSnapshot is the node inventory a query is evaluated against.
// A snapshot is never modified by a query and may be shared by concurrent queries.
type ClusterSnapshot struct {
	// Current time in seconds since the epoch.
	Now        int64        `json:"now"`
	Partitions []*Partition `json:"partitions"`
	Nodes      []*Node      `json:"nodes"`
}

// Initialise assigns positional indices, defaults available resources to configured resources,
// computes partition counters, and validates the snapshot.
// All problems found are returned together.
func (s *ClusterSnapshot) Initialise() error {
	var result *multierror.Error
	partitionsByName := make(map[string]*Partition, len(s.Partitions))
	for i, p := range s.Partitions {
		p.Index = i
		p.ConfiguredNodes = 0
		p.UpNodes = 0
		p.UpResources = ResourceList{}
		if p.Name == "" {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "partitions",
				Value:   i,
				Message: "partition name must be non-empty",
			}))
			continue
		}
		if _, ok := partitionsByName[p.Name]; ok {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrAlreadyExists{
				Type:  "partition",
				Value: p.Name,
			}))
			continue
		}
		partitionsByName[p.Name] = p
	}

	nodeIds := make(map[string]bool, len(s.Nodes))
	for i, node := range s.Nodes {
		node.Index = i
		if node.AvailableResources.Resources == nil {
			node.AvailableResources = node.ConfiguredResources.DeepCopy()
		}
		if err := validateNode(node); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if nodeIds[node.Id] {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrAlreadyExists{
				Type:  "node",
				Value: node.Id,
			}))
			continue
		}
		nodeIds[node.Id] = true
		p, ok := partitionsByName[node.Partition]
		if !ok {
			result = multierror.Append(result, errors.WithStack(&armadaerrors.ErrNotFound{
				Type:    "partition",
				Value:   node.Partition,
				Message: fmt.Sprintf("referenced by node %s", node.Id),
			}))
			continue
		}
		if node.Deleted {
			continue
		}
		p.ConfiguredNodes++
		if node.State.IsUp() {
			p.UpNodes++
			p.UpResources = p.UpResources.Add(node.ConfiguredResources)
		}
	}
	return result.ErrorOrNil()
}

// PartitionByName returns the partition with the given name, or nil.
func (s *ClusterSnapshot) PartitionByName(name string) *Partition {
	for _, p := range s.Partitions {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func validateNode(node *Node) error {
	if node.Id == "" {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "nodes",
			Value:   node.Index,
			Message: "node id must be non-empty",
		})
	}
	if !node.ConfiguredResources.IsStrictlyNonNegative() {
		return errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "configuredResources",
			Value:   node.ConfiguredResources.CompactString(),
			Message: fmt.Sprintf("node %s has negative resources", node.Id),
		})
	}
	for _, w := range node.Reservations {
		if w.End <= w.Start {
			return errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "reservations",
				Value:   w.Id,
				Message: fmt.Sprintf("reservation on node %s ends before it starts", node.Id),
			})
		}
	}
	return nil
}

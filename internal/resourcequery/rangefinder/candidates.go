package rangefinder

import (
	"github.com/hashicorp/go-memdb"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// EligibleNodes returns the live nodes of partition that could ever host tasks of req, in snapshot order.
// Nodes marked unavailable in affinityMap are excluded for requests consuming processors.
func EligibleNodes(
	txn *memdb.Txn,
	db *nodedb.NodeDb,
	partition *schedulerobjects.Partition,
	req *schedulerobjects.Request,
	affinityMap allocation.AffinityMap,
) ([]*schedulerobjects.Node, error) {
	nodes, err := db.PartitionNodesWithTxn(txn, partition.Name)
	if err != nil {
		return nil, err
	}
	rv := make([]*schedulerobjects.Node, 0, len(nodes))
	for _, node := range nodes {
		if !nodeMatches(node, req) {
			continue
		}
		if req.IsCompute() && affinityMap.IsUnavailable(node) {
			continue
		}
		rv = append(rv, node)
	}
	return rv, nil
}

func nodeMatches(node *schedulerobjects.Node, req *schedulerobjects.Request) bool {
	if node.Deleted || !node.State.IsUp() {
		return false
	}
	if !node.HasFeatures(req.Features) {
		return false
	}
	if req.OperatingSystem != "" && req.OperatingSystem != node.OperatingSystem {
		return false
	}
	if req.Architecture != "" && req.Architecture != node.Architecture {
		return false
	}
	if len(req.HostList) > 0 && !slices.Contains(req.HostList, node.Id) {
		return false
	}
	return true
}

// Candidates returns a candidate for each of nodes able to host at least one task of req over [start, end).
// Nodes with a reservation over the interval that job has access to are preferred.
func Candidates(
	job *schedulerobjects.Job,
	req *schedulerobjects.Request,
	nodes []*schedulerobjects.Node,
	start, end int64,
) []allocation.Candidate {
	accessors := job.Accessors()
	rv := make([]allocation.Candidate, 0, len(nodes))
	for _, node := range nodes {
		free := node.FreeBetween(start, end, accessors)
		tasks := free.TasksFor(req.PerTask)
		if tasks <= 0 {
			continue
		}
		rv = append(rv, allocation.Candidate{
			Node:      node,
			Free:      free,
			Tasks:     tasks,
			Preferred: hasGrantedReservation(node, start, end, accessors),
		})
	}
	return rv
}

func hasGrantedReservation(node *schedulerobjects.Node, start, end int64, accessors []string) bool {
	for _, w := range node.Reservations {
		if w.Overlaps(start, end) && w.Grants(accessors) {
			return true
		}
	}
	return false
}

// capacity is the number of nodes able to host at least minTPN tasks and the number of tasks they host,
// at most maxTPN per node.
func capacity(candidates []allocation.Candidate, minTPN, maxTPN int) (nodes, tasks int) {
	for _, c := range candidates {
		if c.Tasks < minTPN {
			continue
		}
		nodes++
		if c.Tasks > maxTPN {
			tasks += maxTPN
		} else {
			tasks += c.Tasks
		}
	}
	return
}

// InNodeSet returns the candidates whose node has feature.
func InNodeSet(candidates []allocation.Candidate, feature string) []allocation.Candidate {
	rv := make([]allocation.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Node.HasFeatures([]string{feature}) {
			rv = append(rv, c)
		}
	}
	return rv
}

package allocation

import (
	"golang.org/x/exp/maps"

	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// AffinityMap is the query-scoped affinity level of each node, keyed by node index.
// Nodes not in the map are at AffinityNone.
// An AffinityMap is created at the start of a query and discarded when it returns;
// it's the only state the allocation engine writes.
type AffinityMap map[int]schedulerobjects.Affinity

func NewAffinityMap() AffinityMap {
	return make(AffinityMap)
}

func (m AffinityMap) Get(node *schedulerobjects.Node) schedulerobjects.Affinity {
	return m[node.Index]
}

func (m AffinityMap) Set(node *schedulerobjects.Node, affinity schedulerobjects.Affinity) {
	if affinity == schedulerobjects.AffinityNone {
		delete(m, node.Index)
		return
	}
	m[node.Index] = affinity
}

// IsUnavailable returns true if node was consumed earlier in the query.
func (m AffinityMap) IsUnavailable(node *schedulerobjects.Node) bool {
	return m[node.Index] == schedulerobjects.AffinityUnavailable
}

// Consume marks the nodes selected by a unavailable.
func (m AffinityMap) Consume(a *Allocation) {
	for _, n := range a.Nodes {
		m[n.Index] = schedulerobjects.AffinityUnavailable
	}
}

// DeepCopy returns a copy of m. The copy of a nil map is empty and writable.
func (m AffinityMap) DeepCopy() AffinityMap {
	rv := make(AffinityMap, len(m))
	maps.Copy(rv, m)
	return rv
}

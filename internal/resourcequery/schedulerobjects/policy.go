package schedulerobjects

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

// NodeAllocationPolicy selects how the allocation engine orders candidate nodes.
type NodeAllocationPolicy string

const (
	// NodeAllocationPolicyDefault defers to the partition and then the configured default.
	NodeAllocationPolicyDefault  NodeAllocationPolicy = ""
	NodeAllocationPolicyFastest  NodeAllocationPolicy = "FASTEST"
	NodeAllocationPolicyPriority NodeAllocationPolicy = "PRIORITY"
	NodeAllocationPolicyBalanced NodeAllocationPolicy = "BALANCED"
)

func ParseNodeAllocationPolicy(s string) (NodeAllocationPolicy, error) {
	switch p := NodeAllocationPolicy(strings.ToUpper(strings.TrimSpace(s))); p {
	case NodeAllocationPolicyDefault, NodeAllocationPolicyFastest, NodeAllocationPolicyPriority, NodeAllocationPolicyBalanced:
		return p, nil
	default:
		return NodeAllocationPolicyDefault, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "nodeAllocationPolicy",
			Value:   s,
			Message: "expected one of FASTEST, PRIORITY, BALANCED",
		})
	}
}

func (p *NodeAllocationPolicy) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	policy, err := ParseNodeAllocationPolicy(s)
	if err != nil {
		return err
	}
	*p = policy
	return nil
}

// Resolve returns p, or the first non-default fallback if p is the default.
func (p NodeAllocationPolicy) Resolve(fallbacks ...NodeAllocationPolicy) NodeAllocationPolicy {
	if p != NodeAllocationPolicyDefault {
		return p
	}
	for _, f := range fallbacks {
		if f != NodeAllocationPolicyDefault {
			return f
		}
	}
	return NodeAllocationPolicyPriority
}

// NodeSetPriority decides which node set is preferred when several could serve a request.
type NodeSetPriority string

const (
	// NodeSetPriorityFirstAvailable picks the first node set, in the order listed on the request, with capacity.
	NodeSetPriorityFirstAvailable NodeSetPriority = "FIRSTAVAILABLE"
	// NodeSetPriorityMinLoss picks the node set leaving the fewest idle tasks on the selected nodes.
	NodeSetPriorityMinLoss NodeSetPriority = "MINLOSS"
	// NodeSetPriorityBestResource picks the node set with the most capacity.
	NodeSetPriorityBestResource NodeSetPriority = "BESTRESOURCE"
)

// NodeAccessPolicy controls whether tasks of other jobs may share a node with a request.
type NodeAccessPolicy string

const (
	NodeAccessShared    NodeAccessPolicy = "SHARED"
	NodeAccessExclusive NodeAccessPolicy = "EXCLUSIVE"
)

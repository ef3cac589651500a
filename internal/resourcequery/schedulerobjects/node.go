package schedulerobjects

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
)

type NodeState int

const (
	NodeStateUnknown NodeState = iota
	NodeStateIdle
	NodeStateRunning
	NodeStateBusy
	NodeStateReserved
	NodeStateDraining
	NodeStateDrained
	NodeStateDown
)

var nodeStateNames = map[NodeState]string{
	NodeStateUnknown:  "Unknown",
	NodeStateIdle:     "Idle",
	NodeStateRunning:  "Running",
	NodeStateBusy:     "Busy",
	NodeStateReserved: "Reserved",
	NodeStateDraining: "Draining",
	NodeStateDrained:  "Drained",
	NodeStateDown:     "Down",
}

func (s NodeState) String() string {
	if name, ok := nodeStateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsUp returns true if a node in this state can take on future work.
func (s NodeState) IsUp() bool {
	switch s {
	case NodeStateIdle, NodeStateRunning, NodeStateBusy, NodeStateReserved:
		return true
	default:
		return false
	}
}

func ParseNodeState(s string) (NodeState, error) {
	for state, name := range nodeStateNames {
		if strings.EqualFold(name, s) {
			return state, nil
		}
	}
	return NodeStateUnknown, errors.WithStack(&armadaerrors.ErrInvalidArgument{
		Name:    "state",
		Value:   s,
		Message: "unknown node state",
	})
}

func (s NodeState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *NodeState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	state, err := ParseNodeState(name)
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ReservationWindow is a block of resources on a node committed to some job or reservation over [Start, End).
type ReservationWindow struct {
	Id        string       `json:"id"`
	Start     int64        `json:"start"`
	End       int64        `json:"end"`
	Resources ResourceList `json:"resources"`
	// Credentials or reservation names granted access to the reserved resources.
	AccessList []string `json:"accessList,omitempty"`
}

func (w ReservationWindow) Overlaps(start, end int64) bool {
	return w.Start < end && start < w.End
}

// Grants returns true if any of accessors is on the access list of the window.
func (w ReservationWindow) Grants(accessors []string) bool {
	for _, a := range accessors {
		if a != "" && slices.Contains(w.AccessList, a) {
			return true
		}
	}
	return false
}

type Node struct {
	Id string `json:"id"`
	// Position of the node in the snapshot. Assigned when the snapshot is built.
	Index     int       `json:"-"`
	Partition string    `json:"partition"`
	State     NodeState `json:"state"`
	// Resources the node is configured with.
	ConfiguredResources ResourceList `json:"configuredResources"`
	// Resources not in use at snapshot time. Defaults to ConfiguredResources.
	AvailableResources ResourceList `json:"availableResources"`
	// Relative speed of the node, 1.0 being nominal.
	Speed float64 `json:"speed,omitempty"`
	// Per-processor clock speed in MHz.
	ProcSpeed int     `json:"procSpeed,omitempty"`
	Priority  float64 `json:"priority,omitempty"`
	Load      float64 `json:"load,omitempty"`

	Features        []string          `json:"features,omitempty"`
	OperatingSystem string            `json:"os,omitempty"`
	Architecture    string            `json:"arch,omitempty"`
	Labels          map[string]string `json:"labels,omitempty"`

	Reservations []ReservationWindow `json:"reservations,omitempty"`
	// Tombstone; deleted nodes stay in the snapshot but are never considered.
	Deleted bool `json:"deleted,omitempty"`
}

func (node *Node) DeepCopy() *Node {
	reservations := make([]ReservationWindow, len(node.Reservations))
	for i, w := range node.Reservations {
		w.Resources = w.Resources.DeepCopy()
		w.AccessList = slices.Clone(w.AccessList)
		reservations[i] = w
	}
	return &Node{
		Id:                  node.Id,
		Index:               node.Index,
		Partition:           node.Partition,
		State:               node.State,
		ConfiguredResources: node.ConfiguredResources.DeepCopy(),
		AvailableResources:  node.AvailableResources.DeepCopy(),
		Speed:               node.Speed,
		ProcSpeed:           node.ProcSpeed,
		Priority:            node.Priority,
		Load:                node.Load,
		Features:            slices.Clone(node.Features),
		OperatingSystem:     node.OperatingSystem,
		Architecture:        node.Architecture,
		Labels:              maps.Clone(node.Labels),
		Reservations:        reservations,
		Deleted:             node.Deleted,
	}
}

func (node *Node) HasFeatures(features []string) bool {
	for _, f := range features {
		if !slices.Contains(node.Features, f) {
			return false
		}
	}
	return true
}

// FreeBetween returns the resources of the node free throughout [start, end):
// the component-wise minimum, over the intervals between reservation boundaries,
// of the configured resources less the reservations active in each.
// Reservations granting access to any of accessors are ignored.
func (node *Node) FreeBetween(start, end int64, accessors []string) ResourceList {
	points := append([]int64{start}, node.EventTimes(start, end)...)
	var rv ResourceList
	for i, from := range points {
		to := end
		if i+1 < len(points) {
			to = points[i+1]
		}
		free := node.freeOver(from, to, accessors)
		if i == 0 {
			rv = free
		} else {
			rv = rv.Min(free)
		}
	}
	return rv
}

// freeOver returns the configured resources less those of every reservation overlapping [start, end).
// Within an interval containing no reservation boundary, that's what's free throughout.
func (node *Node) freeOver(start, end int64, accessors []string) ResourceList {
	free := node.ConfiguredResources
	for _, w := range node.Reservations {
		if !w.Overlaps(start, end) || w.Grants(accessors) {
			continue
		}
		free = free.Sub(w.Resources)
	}
	return free
}

// EventTimes returns the sorted, distinct reservation boundaries of the node in (after, before).
func (node *Node) EventTimes(after, before int64) []int64 {
	rv := make([]int64, 0, 2*len(node.Reservations))
	for _, w := range node.Reservations {
		for _, t := range []int64{w.Start, w.End} {
			if t > after && t < before {
				rv = append(rv, t)
			}
		}
	}
	slices.Sort(rv)
	return slices.Compact(rv)
}

package schedulerobjects

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"k8s.io/apimachinery/pkg/api/resource"
)

const (
	ResourceProcs  = "procs"
	ResourceMemory = "memory"
	ResourceDisk   = "disk"
	ResourceSwap   = "swap"
)

// ResourceList is an immutable vector of resource quantities keyed by resource name.
// Well-known names are procs, memory, disk, and swap; any other name is a generic resource.
// Operations never modify their receiver or arguments.
type ResourceList struct {
	Resources map[string]resource.Quantity
}

func NewResourceList(quantities map[string]resource.Quantity) ResourceList {
	rv := ResourceList{Resources: make(map[string]resource.Quantity, len(quantities))}
	for t, q := range quantities {
		rv.Resources[t] = q.DeepCopy()
	}
	return rv
}

// ResourceListFromStrings parses each value with resource.ParseQuantity.
func ResourceListFromStrings(quantities map[string]string) (ResourceList, error) {
	rv := ResourceList{Resources: make(map[string]resource.Quantity, len(quantities))}
	for t, s := range quantities {
		q, err := resource.ParseQuantity(s)
		if err != nil {
			return ResourceList{}, errors.Wrapf(err, "invalid quantity %q for resource %s", s, t)
		}
		rv.Resources[t] = q
	}
	return rv, nil
}

func (rl ResourceList) Get(resourceType string) resource.Quantity {
	if rl.Resources == nil {
		return resource.Quantity{}
	}
	return rl.Resources[resourceType]
}

// Procs returns the number of processors in rl, rounded down.
func (rl ResourceList) Procs() int {
	q := rl.Get(ResourceProcs)
	return int(q.MilliValue() / 1000)
}

func (rl ResourceList) Memory() resource.Quantity {
	return rl.Get(ResourceMemory)
}

// Add returns a new ResourceList holding a + b.
func (a ResourceList) Add(b ResourceList) ResourceList {
	rv := a.DeepCopy()
	rv.initialise()
	for t, qb := range b.Resources {
		qa := rv.Resources[t]
		qa.Add(qb)
		rv.Resources[t] = qa
	}
	return rv
}

// Sub returns a new ResourceList holding a - b.
func (a ResourceList) Sub(b ResourceList) ResourceList {
	rv := a.DeepCopy()
	rv.initialise()
	for t, qb := range b.Resources {
		qa := rv.Resources[t]
		qa.Sub(qb)
		rv.Resources[t] = qa
	}
	return rv
}

// Scale returns a new ResourceList with every quantity multiplied by n.
func (rl ResourceList) Scale(n int64) ResourceList {
	rv := ResourceList{Resources: make(map[string]resource.Quantity, len(rl.Resources))}
	for t, q := range rl.Resources {
		rv.Resources[t] = *resource.NewMilliQuantity(q.MilliValue()*n, q.Format)
	}
	return rv
}

// Min returns the component-wise minimum of a and b over the resources of a.
func (a ResourceList) Min(b ResourceList) ResourceList {
	rv := ResourceList{Resources: make(map[string]resource.Quantity, len(a.Resources))}
	for t, qa := range a.Resources {
		qb := b.Get(t)
		if qb.Cmp(qa) == -1 {
			rv.Resources[t] = qb.DeepCopy()
		} else {
			rv.Resources[t] = qa.DeepCopy()
		}
	}
	return rv
}

func (rl ResourceList) DeepCopy() ResourceList {
	if rl.Resources == nil {
		return ResourceList{}
	}
	rv := ResourceList{
		Resources: make(map[string]resource.Quantity, len(rl.Resources)),
	}
	for t, q := range rl.Resources {
		rv.Resources[t] = q.DeepCopy()
	}
	return rv
}

func (a ResourceList) IsZero() bool {
	for _, q := range a.Resources {
		if !q.IsZero() {
			return false
		}
	}
	return true
}

func (a ResourceList) Equal(b ResourceList) bool {
	for t, qa := range a.Resources {
		if qa.Cmp(b.Get(t)) != 0 {
			return false
		}
	}
	for t, qb := range b.Resources {
		if qb.Cmp(a.Get(t)) != 0 {
			return false
		}
	}
	return true
}

// IsStrictlyNonNegative returns true if there is no quantity in a less than zero.
func (a ResourceList) IsStrictlyNonNegative() bool {
	for _, q := range a.Resources {
		if q.Cmp(resource.Quantity{}) == -1 {
			return false
		}
	}
	return true
}

// IsStrictlyLessOrEqual returns true if all quantities in a are less than or equal to those in b.
func (a ResourceList) IsStrictlyLessOrEqual(b ResourceList) bool {
	for t, q := range a.Resources {
		if q.Cmp(b.Get(t)) == 1 {
			return false
		}
	}
	return true
}

// TasksFor returns how many tasks each requiring perTask fit into rl.
// A perTask list with no non-zero quantity fits exactly once.
func (rl ResourceList) TasksFor(perTask ResourceList) int {
	tasks := math.MaxInt32
	constrained := false
	for t, need := range perTask.Resources {
		if need.Sign() <= 0 {
			continue
		}
		constrained = true
		available := rl.Get(t)
		if available.Sign() <= 0 {
			return 0
		}
		n := available.MilliValue() / need.MilliValue()
		if n < int64(tasks) {
			tasks = int(n)
		}
	}
	if !constrained {
		return 1
	}
	return tasks
}

func (rl ResourceList) CompactString() string {
	var sb strings.Builder
	sb.WriteString("{")
	keys := maps.Keys(rl.Resources)
	slices.Sort(keys)
	for i, t := range keys {
		q := rl.Resources[t]
		if i < len(keys)-1 {
			sb.WriteString(fmt.Sprintf("%s: %s, ", t, q.String()))
		} else {
			sb.WriteString(fmt.Sprintf("%s: %s", t, q.String()))
		}
	}
	sb.WriteString("}")
	return sb.String()
}

// MarshalJSON encodes rl as a flat map from resource name to quantity.
func (rl ResourceList) MarshalJSON() ([]byte, error) {
	if rl.Resources == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(rl.Resources)
}

func (rl *ResourceList) UnmarshalJSON(data []byte) error {
	quantities := make(map[string]resource.Quantity)
	if err := json.Unmarshal(data, &quantities); err != nil {
		return err
	}
	rl.Resources = quantities
	return nil
}

func (rl *ResourceList) initialise() {
	if rl.Resources == nil {
		rl.Resources = make(map[string]resource.Quantity)
	}
}

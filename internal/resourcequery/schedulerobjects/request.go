package schedulerobjects

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"k8s.io/apimachinery/pkg/api/resource"
)

// Request is one dimension of the resource demand of a job.
type Request struct {
	// Position of the request within its job.
	Index     int `json:"-"`
	TaskCount int `json:"taskCount,omitempty"`
	NodeCount int `json:"nodeCount,omitempty"`
	// Tasks to place on each node. Zero means unconstrained.
	TasksPerNode int `json:"tasksPerNode,omitempty"`
	// If true, every selected node hosts exactly TasksPerNode tasks.
	ExactTasksPerNode bool `json:"exactTasksPerNode,omitempty"`
	// Resources required by each task.
	PerTask ResourceList `json:"perTask"`
	// Job-wide memory requirement, enforced on shared-memory partitions.
	TotalMemory resource.Quantity `json:"totalMemory,omitempty"`
	// Duration in seconds. Zero means the duration of the job.
	Duration int64 `json:"duration,omitempty"`
	// Seconds after the start of request 0 at which this request must start.
	Offset int64 `json:"offset,omitempty"`

	NodeAccess      NodeAccessPolicy `json:"nodeAccess,omitempty"`
	Features        []string         `json:"features,omitempty"`
	OperatingSystem string           `json:"os,omitempty"`
	Architecture    string           `json:"arch,omitempty"`
	// All nodes selected for the request must share one of these features.
	NodeSet []string `json:"nodeSet,omitempty"`
	// Explicitly requested partition.
	Partition string `json:"partition,omitempty"`
	// If set, only these nodes may be selected.
	HostList []string `json:"hostList,omitempty"`
	// Requests with the same label must be co-allocated.
	CoAllocationLabel string `json:"coAllocation,omitempty"`
	// Reservation profile applied to the request.
	Profile string            `json:"profile,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// IsCompute returns true if tasks of the request consume processors.
func (req *Request) IsCompute() bool {
	procs := req.PerTask.Get(ResourceProcs)
	return !procs.IsZero()
}

// Total returns the resources consumed by all tasks of the request.
func (req *Request) Total() ResourceList {
	return req.PerTask.Scale(int64(req.TaskCount))
}

func (req *Request) DeepCopy() *Request {
	rv := *req
	rv.PerTask = req.PerTask.DeepCopy()
	rv.TotalMemory = req.TotalMemory.DeepCopy()
	rv.Features = slices.Clone(req.Features)
	rv.NodeSet = slices.Clone(req.NodeSet)
	rv.HostList = slices.Clone(req.HostList)
	rv.Labels = maps.Clone(req.Labels)
	return &rv
}

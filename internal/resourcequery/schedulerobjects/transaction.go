package schedulerobjects

// AllRequests is used in place of a request index to refer to every request of a job.
const AllRequests = -1

// Transaction records a reported slot so that it may later be turned into a reservation.
type Transaction struct {
	// Assigned by the recorder.
	Id      string `json:"id,omitempty" yaml:"id,omitempty"`
	QueryId string `json:"queryId" yaml:"queryId"`
	// Index of the request the slot was found for, or AllRequests for an aggregate slot.
	RequestIndex int    `json:"requestIndex" yaml:"requestIndex"`
	Partition    string `json:"partition" yaml:"partition"`
	Owner        string `json:"owner,omitempty" yaml:"owner,omitempty"`
	// Virtual cluster the query was made on behalf of, if any.
	VirtualCluster string `json:"virtualCluster,omitempty" yaml:"virtualCluster,omitempty"`
	// Start time in seconds since the epoch and duration in seconds.
	Start     int64    `json:"start" yaml:"start"`
	Duration  int64    `json:"duration" yaml:"duration"`
	NodeCount int      `json:"nodeCount" yaml:"nodeCount"`
	TaskCount int      `json:"taskCount" yaml:"taskCount"`
	Hosts     []string `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	// Ids of the transactions merged into this one.
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	Created   int64    `json:"created" yaml:"created"`
}

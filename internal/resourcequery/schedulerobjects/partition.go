package schedulerobjects

type Partition struct {
	Name string `json:"name"`
	// Position of the partition in the snapshot. Partitions are searched in this order.
	Index int `json:"-"`
	// Tombstone; deleted partitions are skipped by every query.
	Deleted              bool                 `json:"deleted,omitempty"`
	NodeAllocationPolicy NodeAllocationPolicy `json:"nodeAllocationPolicy,omitempty"`
	NodeSetPriority      NodeSetPriority      `json:"nodeSetPriority,omitempty"`
	// If true, jobs in this partition must also satisfy their job-wide memory requirement.
	SharedMemory bool `json:"sharedMemory,omitempty"`

	// Computed from the nodes of the snapshot.
	ConfiguredNodes int          `json:"-"`
	UpNodes         int          `json:"-"`
	UpResources     ResourceList `json:"-"`
}

func (p *Partition) DeepCopy() *Partition {
	rv := *p
	rv.UpResources = p.UpResources.DeepCopy()
	return &rv
}

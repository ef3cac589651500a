package schedulerobjects

// RequestDefaults are request attributes a profile provides.
// Zero values leave the request untouched.
type RequestDefaults struct {
	TaskCount    int              `json:"taskCount,omitempty"`
	NodeCount    int              `json:"nodeCount,omitempty"`
	TasksPerNode int              `json:"tasksPerNode,omitempty"`
	PerTask      ResourceList     `json:"perTask,omitempty"`
	Features     []string         `json:"features,omitempty"`
	NodeAccess   NodeAccessPolicy `json:"nodeAccess,omitempty"`
	Partition    string           `json:"partition,omitempty"`
	// Duration in seconds.
	WallClockLimit int64 `json:"wallClockLimit,omitempty"`
}

// Profile is a named template of request attributes, padding, and access control
// applied to the requests of a query.
type Profile struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Seconds reserved before the start and after the end of the job.
	StartPad int64 `json:"startPad,omitempty"`
	EndPad   int64 `json:"endPad,omitempty"`
	// If true, padding may overlap other reservations and the wall-clock limit isn't extended.
	AllowOverlap bool `json:"allowOverlap,omitempty"`
	// Applied to attributes the request doesn't set.
	Defaults RequestDefaults `json:"defaults,omitempty"`
	// Applied regardless of what the request sets.
	Forced RequestDefaults `json:"forced,omitempty"`
	// Requests added to single-request queries using the profile, co-allocated with the first request.
	SubRequests []*Request `json:"subRequests,omitempty"`
	// Users, groups, or accounts allowed to use the profile. Empty means everyone.
	ACL []string `json:"acl,omitempty"`
}

// Padding returns the number of seconds the profile adds to the wall-clock limit of a job.
func (p *Profile) Padding() int64 {
	if p == nil || p.AllowOverlap {
		return 0
	}
	return p.StartPad + p.EndPad
}

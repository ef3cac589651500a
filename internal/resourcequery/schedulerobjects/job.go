package schedulerobjects

import (
	"golang.org/x/exp/slices"
)

type Credentials struct {
	User    string `json:"user,omitempty"`
	Group   string `json:"group,omitempty"`
	Account string `json:"account,omitempty"`
	Class   string `json:"class,omitempty"`
	QOS     string `json:"qos,omitempty"`
}

// Accessors returns the non-empty credential names, used to match access lists.
func (c Credentials) Accessors() []string {
	rv := make([]string, 0, 5)
	for _, name := range []string{c.User, c.Group, c.Account, c.Class, c.QOS} {
		if name != "" {
			rv = append(rv, name)
		}
	}
	return rv
}

// Job is an ordered list of requests sharing credentials and a wall-clock limit.
// Jobs built by a query are transient and discarded when the query returns.
type Job struct {
	Id       string     `json:"id"`
	Requests []*Request `json:"requests"`
	// Duration in seconds.
	WallClockLimit int64       `json:"wallClockLimit"`
	Credentials    Credentials `json:"credentials"`

	System              bool `json:"system,omitempty"`
	VPCMapped           bool `json:"vpcMapped,omitempty"`
	HostListConstrained bool `json:"hostListConstrained,omitempty"`

	// Weighted node priority expression, e.g. "SPEED:10,PRIORITY".
	NodePriority         string               `json:"nodePriority,omitempty"`
	NodeAllocationPolicy NodeAllocationPolicy `json:"nodeAllocationPolicy,omitempty"`
	// Reservation names the job may use.
	ReservationAccess []string `json:"reservationAccess,omitempty"`
}

// Accessors returns every name granting this job access to reserved resources.
func (job *Job) Accessors() []string {
	return append(job.Credentials.Accessors(), job.ReservationAccess...)
}

// DurationOf returns the duration of req, falling back to the wall-clock limit of the job.
func (job *Job) DurationOf(req *Request) int64 {
	if req != nil && req.Duration > 0 {
		return req.Duration
	}
	return job.WallClockLimit
}

// WithRequests returns a synthetic job sharing the credentials and flags of job
// but aliasing reqs. The requests themselves are not copied.
func (job *Job) WithRequests(id string, reqs []*Request) *Job {
	rv := *job
	rv.Id = id
	rv.Requests = reqs
	rv.ReservationAccess = slices.Clone(job.ReservationAccess)
	return &rv
}

// MaxDuration returns the longest duration of any request of the job.
func (job *Job) MaxDuration() int64 {
	rv := job.WallClockLimit
	for _, req := range job.Requests {
		if d := job.DurationOf(req); d > rv {
			rv = d
		}
	}
	return rv
}

package profiles

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Applied summarises the profiles applied to a job.
type Applied struct {
	// Profile applied to the job as a whole, if any.
	Profile *schedulerobjects.Profile
	// Seconds a requested start time must be moved back by.
	StartPad int64
	// Number of requests added from profile sub-requests.
	SubRequests int
}

type Applier struct {
	resolver interfaces.ProfileResolver
	checker  interfaces.AccessChecker
}

func NewApplier(resolver interfaces.ProfileResolver, checker interfaces.AccessChecker) *Applier {
	return &Applier{resolver: resolver, checker: checker}
}

// Apply applies profiles to the requests of job in place.
//
// The job-wide profile is jobProfile; a request naming a profile of its own uses that one instead.
// Defaults fill attributes a request leaves unset and forced attributes overwrite them.
// Sub-requests of the job-wide profile are added to single-request jobs and co-allocated with the first request.
// The wall-clock limit is padded unless the profile allows overlap, and request counts are multiplied by packageCount.
func (a *Applier) Apply(ctx context.Context, job *schedulerobjects.Job, jobProfile string, packageCount int) (*Applied, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "Apply")
	rv := &Applied{}
	resolved := make(map[string]*schedulerobjects.Profile)
	resolve := func(name string) (*schedulerobjects.Profile, error) {
		if p, ok := resolved[name]; ok {
			return p, nil
		}
		p, err := a.resolver.ResolveProfile(ctx, name)
		if err != nil {
			return nil, err
		}
		if !a.checker.CheckAccess(job.Credentials, p.ACL) {
			return nil, errors.WithStack(&armadaerrors.ErrNoPermission{
				Principal:  job.Credentials.User,
				Permission: fmt.Sprintf("profile %s", p.Name),
				Action:     "query",
			})
		}
		resolved[name] = p
		return p, nil
	}

	if jobProfile != "" {
		p, err := resolve(jobProfile)
		if err != nil {
			return nil, err
		}
		rv.Profile = p
		if job.WallClockLimit == 0 {
			job.WallClockLimit = p.Defaults.WallClockLimit
		}
		if p.Forced.WallClockLimit != 0 {
			job.WallClockLimit = p.Forced.WallClockLimit
		}
		if len(job.Requests) == 1 && len(p.SubRequests) > 0 {
			first := job.Requests[0]
			if first.CoAllocationLabel == "" {
				first.CoAllocationLabel = p.Name
			}
			for _, sub := range p.SubRequests {
				req := sub.DeepCopy()
				req.CoAllocationLabel = first.CoAllocationLabel
				job.Requests = append(job.Requests, req)
				rv.SubRequests++
			}
		}
	}

	for i, req := range job.Requests {
		req.Index = i
		name := req.Profile
		if name == "" {
			name = jobProfile
		}
		if name == "" {
			continue
		}
		p, err := resolve(name)
		if err != nil {
			return nil, errors.WithMessagef(err, "request %d", i)
		}
		applyDefaults(req, p.Defaults)
		applyForced(req, p.Forced)
	}
	job.WallClockLimit += rv.Profile.Padding()
	if rv.Profile != nil && !rv.Profile.AllowOverlap {
		rv.StartPad = rv.Profile.StartPad
	}

	if packageCount > 1 {
		for _, req := range job.Requests {
			req.TaskCount *= packageCount
			req.NodeCount *= packageCount
		}
	}

	// Dependent requests with a duration of one second last as long as the first request plus their offset.
	for _, req := range job.Requests[minInt(1, len(job.Requests)):] {
		if req.Duration == 1 {
			offset := req.Offset
			if offset < 0 {
				offset = -offset
			}
			req.Duration = job.DurationOf(job.Requests[0]) + offset
		}
	}
	if rv.Profile != nil {
		log.Debugf("applied profile %s to job %s", rv.Profile.Name, job.Id)
	}
	return rv, nil
}

// PaddedStart moves a requested start time back by the start pad of the profiles applied.
// The padded start may not be in the past.
func (a *Applied) PaddedStart(start, now int64) (int64, error) {
	padded := start - a.StartPad
	if padded < now {
		return 0, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "startTime",
			Value:   start,
			Message: fmt.Sprintf("padded start time %d is before the current time %d", padded, now),
		})
	}
	return padded, nil
}

func applyDefaults(req *schedulerobjects.Request, d schedulerobjects.RequestDefaults) {
	if req.TaskCount == 0 {
		req.TaskCount = d.TaskCount
	}
	if req.NodeCount == 0 {
		req.NodeCount = d.NodeCount
	}
	if req.TasksPerNode == 0 {
		req.TasksPerNode = d.TasksPerNode
	}
	if len(req.Features) == 0 {
		req.Features = slices.Clone(d.Features)
	}
	if req.NodeAccess == "" {
		req.NodeAccess = d.NodeAccess
	}
	if req.Partition == "" {
		req.Partition = d.Partition
	}
	if len(d.PerTask.Resources) > 0 {
		merged := req.PerTask.DeepCopy()
		if merged.Resources == nil {
			merged.Resources = make(map[string]resource.Quantity, len(d.PerTask.Resources))
		}
		for t, q := range d.PerTask.Resources {
			if _, ok := merged.Resources[t]; !ok {
				merged.Resources[t] = q.DeepCopy()
			}
		}
		req.PerTask = merged
	}
}

func applyForced(req *schedulerobjects.Request, f schedulerobjects.RequestDefaults) {
	if f.TaskCount != 0 {
		req.TaskCount = f.TaskCount
	}
	if f.NodeCount != 0 {
		req.NodeCount = f.NodeCount
	}
	if f.TasksPerNode != 0 {
		req.TasksPerNode = f.TasksPerNode
	}
	if len(f.Features) > 0 {
		req.Features = slices.Clone(f.Features)
	}
	if f.NodeAccess != "" {
		req.NodeAccess = f.NodeAccess
	}
	if f.Partition != "" {
		req.Partition = f.Partition
	}
	if len(f.PerTask.Resources) > 0 {
		merged := req.PerTask.DeepCopy()
		if merged.Resources == nil {
			merged.Resources = make(map[string]resource.Quantity, len(f.PerTask.Resources))
		}
		for t, q := range f.PerTask.Resources {
			merged.Resources[t] = q.DeepCopy()
		}
		req.PerTask = merged
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

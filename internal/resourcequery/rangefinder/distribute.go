package rangefinder

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// Distributor allocates the requests of a job in order on one affinity map,
// so that a node consumed by one request is never offered to a later one.
type Distributor struct {
	allocator     *allocation.Allocator
	defaultPolicy schedulerobjects.NodeAllocationPolicy
}

func NewDistributor(allocator *allocation.Allocator, defaultPolicy schedulerobjects.NodeAllocationPolicy) *Distributor {
	return &Distributor{
		allocator:     allocator,
		defaultPolicy: defaultPolicy,
	}
}

// DistributeAcrossRequests returns one allocation per request of job.
// If any request can't be satisfied, an error wrapping allocation.ErrExhausted is returned
// and affinityMap, which must not be nil, is left as it was.
func (d *Distributor) DistributeAcrossRequests(
	ctx context.Context,
	job *schedulerobjects.Job,
	partition *schedulerobjects.Partition,
	candidates [][]allocation.Candidate,
	affinityMap allocation.AffinityMap,
) ([]*allocation.Allocation, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "DistributeAcrossRequests")
	if len(candidates) != len(job.Requests) {
		return nil, errors.Errorf("got candidates for %d requests, but job %s has %d", len(candidates), job.Id, len(job.Requests))
	}
	var partitionPolicy schedulerobjects.NodeAllocationPolicy
	if partition != nil {
		partitionPolicy = partition.NodeAllocationPolicy
	}
	policy := job.NodeAllocationPolicy.Resolve(partitionPolicy, d.defaultPolicy)

	working := affinityMap.DeepCopy()
	rv := make([]*allocation.Allocation, len(job.Requests))
	for i, req := range job.Requests {
		a, err := d.allocator.AllocateAtAnyLevel(policy, job, req, partition, candidates[i], working)
		if err != nil {
			log.Debugf("request %d of job %s can't be satisfied: %s", i, job.Id, err)
			return nil, errors.WithMessagef(err, "request %d of job %s", i, job.Id)
		}
		rv[i] = a
	}
	for k, v := range working {
		affinityMap[k] = v
	}
	return rv, nil
}

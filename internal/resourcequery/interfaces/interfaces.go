// Package interfaces contains the collaborators a resource query calls out to.
// The engine only depends on these contracts; concrete implementations live in their own packages.
package interfaces

import (
	"context"

	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranges"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

// RangeQuery asks for the windows during which a request, or every request of a job, can be satisfied in one partition.
type RangeQuery struct {
	Job *schedulerobjects.Job
	// Index of the request to search for,
	// or schedulerobjects.AllRequests to find windows satisfying every request of Job at once.
	RequestIndex int
	Partition    *schedulerobjects.Partition
	// No window starts before EarliestStart or ends after Latest.
	EarliestStart int64
	Latest        int64
	// If true, consecutive feasible intervals are merged into the longest possible windows.
	// Otherwise, windows are split wherever the available capacity changes.
	SeekLong bool
	// Node sets are picked according to this policy when the request names more than one.
	NodeSetPriority schedulerobjects.NodeSetPriority
	// Affinity levels of nodes, including the nodes consumed so far by the query. May be nil.
	AffinityMap allocation.AffinityMap
	// Maximum number of windows returned.
	MaxRanges int
	Db        *nodedb.NodeDb
}

// RangeResult holds the windows found for a RangeQuery.
// An empty Ranges is a normal outcome, not an error.
type RangeResult struct {
	Ranges ranges.RangeList
	// Hosts[i] are the nodes assigned to the i-th searched request for a slot starting at HostsStart,
	// the start of the first window found.
	Hosts      [][]string
	HostsStart int64
	// Number of nodes that could ever serve the request and the number of tasks they host when idle.
	FeasibleNodes int
	FeasibleTasks int
}

type RangeFinder interface {
	FindRangeForRequest(ctx context.Context, query *RangeQuery) (*RangeResult, error)
}

// Distributor assigns nodes to the requests of one job so that no node is allocated to two of them.
// candidates[i] are the candidate nodes for job.Requests[i].
type Distributor interface {
	DistributeAcrossRequests(
		ctx context.Context,
		job *schedulerobjects.Job,
		partition *schedulerobjects.Partition,
		candidates [][]allocation.Candidate,
		affinityMap allocation.AffinityMap,
	) ([]*allocation.Allocation, error)
}

// ProfileResolver looks up profiles by name.
// An *armadaerrors.ErrNotFound is returned for unknown profiles.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, name string) (*schedulerobjects.Profile, error)
}

// AccessChecker decides whether credentials satisfy an access control list.
type AccessChecker interface {
	CheckAccess(credentials schedulerobjects.Credentials, acl []string) bool
}

// TransactionRecorder persists transactions and returns their ids.
// Ids are opaque to the caller.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, transaction *schedulerobjects.Transaction) (string, error)
}

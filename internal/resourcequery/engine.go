// Package resourcequery answers "when, where, and on how many nodes can this set of requests run?"
// against a read-only cluster snapshot, without modifying it.
package resourcequery

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/common/logging"
	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/coalloc"
	"github.com/armadaproject/resourcequery/internal/resourcequery/configuration"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/nodedb"
	"github.com/armadaproject/resourcequery/internal/resourcequery/profiles"
	"github.com/armadaproject/resourcequery/internal/resourcequery/rangesearch"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
	"github.com/armadaproject/resourcequery/internal/resourcequery/transactions"
)

// Slot is a start time at which a request, or every request of a query, can run,
// together with the capacity allocated to it at that time.
type Slot struct {
	Partition string `json:"partition" yaml:"partition"`
	// Index of the request, or schedulerobjects.AllRequests for an aggregate slot.
	RequestIndex int `json:"requestIndex" yaml:"requestIndex"`
	// Seconds since the epoch.
	Start int64 `json:"start" yaml:"start"`
	// Seconds. The length of the window starting at Start, which may exceed the duration of the request.
	Duration  int64    `json:"duration" yaml:"duration"`
	NodeCount int      `json:"nodeCount" yaml:"nodeCount"`
	TaskCount int      `json:"taskCount" yaml:"taskCount"`
	Hosts     []string `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	// Set in TID mode. With MERGETID, the comma-separated ids of every slot found at the same step.
	TransactionId string `json:"transactionId,omitempty" yaml:"transactionId,omitempty"`

	// Slots found at the same step share a step number.
	step int
}

// PartitionResult holds the slots found in one partition.
type PartitionResult struct {
	Partition string `json:"partition" yaml:"partition"`
	// Nodes of the partition that could ever serve the first request, and the tasks they host when idle.
	FeasibleNodes int     `json:"feasibleNodes" yaml:"feasibleNodes"`
	FeasibleTasks int     `json:"feasibleTasks" yaml:"feasibleTasks"`
	Slots         []*Slot `json:"slots" yaml:"slots"`
}

// Result is the answer to a query. Partitions are in snapshot order; only partitions with slots are listed.
type Result struct {
	QueryId    string             `json:"queryId" yaml:"queryId"`
	Partitions []*PartitionResult `json:"partitions" yaml:"partitions"`
}

// Slots returns every slot of r in partition order.
func (r *Result) Slots() []*Slot {
	rv := make([]*Slot, 0)
	if r == nil {
		return rv
	}
	for _, p := range r.Partitions {
		rv = append(rv, p.Slots...)
	}
	return rv
}

// Engine evaluates queries. It holds no per-query state and may be shared by concurrent queries.
type Engine struct {
	config      configuration.Configuration
	searcher    *rangesearch.Searcher
	resolver    *coalloc.Resolver
	allocator   *allocation.Allocator
	distributor interfaces.Distributor
	applier     *profiles.Applier
	recorder    interfaces.TransactionRecorder
}

// NewEngine returns an engine searching with finder and materialising slots with allocator and distributor.
// If applier is nil, no profiles are known. If recorder is nil, transactions are kept in memory.
func NewEngine(
	config configuration.Configuration,
	finder interfaces.RangeFinder,
	allocator *allocation.Allocator,
	distributor interfaces.Distributor,
	applier *profiles.Applier,
	recorder interfaces.TransactionRecorder,
) *Engine {
	searcher := rangesearch.NewSearcher(finder)
	if applier == nil {
		store, _ := profiles.NewStore(nil)
		applier = profiles.NewApplier(store, profiles.ACLChecker{})
	}
	if recorder == nil {
		recorder = transactions.NewMemoryRecorder(config.Transactions.TTL)
	}
	return &Engine{
		config:      config,
		searcher:    searcher,
		resolver:    coalloc.NewResolver(searcher),
		allocator:   allocator,
		distributor: distributor,
		applier:     applier,
		recorder:    recorder,
	}
}

// Execute evaluates q against the snapshot indexed by db.
//
// Invalid input rejects the query as a whole and nothing is reported.
// Partitions that can't serve the query are skipped.
// If no partition yields a slot, an *armadaerrors.ErrResourcesUnavailable is returned.
func (e *Engine) Execute(ctx context.Context, db *nodedb.NodeDb, q *Query) (*Result, error) {
	queryId := uuid.NewString()
	ctx = ctxlogrus.ToContext(ctx, ctxlogrus.Extract(ctx).WithField("queryId", queryId))
	log := ctxlogrus.Extract(ctx).WithField("function", "Execute")
	start := time.Now()
	defer func() {
		queryDuration.Observe(time.Since(start).Seconds())
	}()

	lc := newLifecycle(ctx)
	if db == nil {
		err := errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "db",
			Value:   nil,
			Message: "a node database is required",
		})
		return nil, e.reject(ctx, lc, err)
	}
	p, err := e.prepare(ctx, q, db.Now())
	if err != nil {
		return nil, e.reject(ctx, lc, err)
	}
	p.id = queryId
	if p.job.Id == "" {
		p.job.Id = queryId
	}
	if p.options.VirtualCluster != "" {
		ctx = ctxlogrus.ToContext(ctx, ctxlogrus.Extract(ctx).WithField("virtualCluster", p.options.VirtualCluster))
		log = log.WithField("virtualCluster", p.options.VirtualCluster)
	}
	log.Debugf("evaluating %d requests with options %q", len(p.job.Requests), p.options.String())

	if err := lc.transition(ctx, eventSearch); err != nil {
		return nil, e.fail(ctx, err)
	}
	results, searched, err := e.searchPartitions(ctx, db, p)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	if err := lc.transition(ctx, eventAggregate); err != nil {
		return nil, e.fail(ctx, err)
	}
	rv := &Result{QueryId: queryId, Partitions: capDepth(results, e.config.ResourceQueryDepth)}
	slots := rv.Slots()
	if len(slots) == 0 {
		if err := lc.transition(ctx, eventFinish); err != nil {
			return nil, e.fail(ctx, err)
		}
		queriesTotal.WithLabelValues(outcomeUnavailable).Inc()
		return nil, errors.WithStack(&armadaerrors.ErrResourcesUnavailable{PartitionsSearched: searched})
	}
	if p.options.TID {
		if err := e.recordTransactions(ctx, p, slots); err != nil {
			return nil, e.fail(ctx, err)
		}
	}
	for _, partition := range rv.Partitions {
		slotsReported.WithLabelValues(partition.Partition).Add(float64(len(partition.Slots)))
	}
	if err := lc.transition(ctx, eventFinish); err != nil {
		return nil, e.fail(ctx, err)
	}
	queriesTotal.WithLabelValues(outcomeFound).Inc()
	log.Infof("%d slots found in %d partitions", len(slots), len(rv.Partitions))
	return rv, nil
}

func (e *Engine) reject(ctx context.Context, lc *lifecycle, err error) error {
	ctxlogrus.Extract(ctx).WithError(err).Info("query rejected")
	queriesTotal.WithLabelValues(outcomeRejected).Inc()
	if lcErr := lc.transition(ctx, eventReject); lcErr != nil {
		return lcErr
	}
	return err
}

func (e *Engine) fail(ctx context.Context, err error) error {
	logging.WithStacktrace(ctxlogrus.Extract(ctx), err).Error("query failed")
	queriesTotal.WithLabelValues(outcomeFailed).Inc()
	return err
}

// searchPartitions evaluates every partition of db and returns the results of those not skipped,
// in partition order, along with the number of partitions searched.
func (e *Engine) searchPartitions(ctx context.Context, db *nodedb.NodeDb, p *plan) ([]*PartitionResult, int, error) {
	partitions := db.Partitions()
	results := make([]*PartitionResult, len(partitions))
	if e.config.ParallelPartitions {
		g, gctx := errgroup.WithContext(ctx)
		for i, partition := range partitions {
			i, partition := i, partition
			g.Go(func() error {
				result, err := e.evaluatePartition(gctx, db, p, partition)
				if err != nil {
					return err
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, 0, err
		}
	} else {
		counts := make(map[int]int)
		for i, partition := range partitions {
			if err := ctx.Err(); err != nil {
				return nil, 0, errors.WithStack(err)
			}
			if depthReached(p, counts, e.config.ResourceQueryDepth) {
				break
			}
			result, err := e.evaluatePartition(ctx, db, p, partition)
			if err != nil {
				return nil, 0, err
			}
			results[i] = result
			if result != nil {
				for _, slot := range result.Slots {
					counts[slot.RequestIndex]++
				}
			}
		}
	}

	rv := make([]*PartitionResult, 0, len(results))
	for _, result := range results {
		if result != nil {
			rv = append(rv, result)
		}
	}
	return rv, len(rv), nil
}

// slotKeys returns the request indices slots are reported for.
func slotKeys(p *plan) []int {
	if p.aggregate && p.options.reportsSlots() {
		return []int{schedulerobjects.AllRequests}
	}
	rv := make([]int, len(p.job.Requests))
	for i := range rv {
		rv[i] = i
	}
	return rv
}

func depthReached(p *plan, counts map[int]int, depth int) bool {
	for _, key := range slotKeys(p) {
		if counts[key] < depth {
			return false
		}
	}
	return true
}

// capDepth keeps at most depth slots per request across all partitions, in partition order.
// Partitions left without slots are dropped.
func capDepth(results []*PartitionResult, depth int) []*PartitionResult {
	counts := make(map[int]int)
	rv := make([]*PartitionResult, 0, len(results))
	for _, result := range results {
		kept := make([]*Slot, 0, len(result.Slots))
		for _, slot := range result.Slots {
			if counts[slot.RequestIndex] >= depth {
				continue
			}
			counts[slot.RequestIndex]++
			kept = append(kept, slot)
		}
		if len(kept) > 0 {
			result.Slots = kept
			rv = append(rv, result)
		}
	}
	return rv
}

// recordTransactions records a transaction for each slot and stores its id on the slot.
// With MERGETID, every slot of a step gets the ids of all slots of that step.
func (e *Engine) recordTransactions(ctx context.Context, p *plan, slots []*Slot) error {
	log := ctxlogrus.Extract(ctx).WithField("function", "recordTransactions")
	type stepKey struct {
		partition string
		step      int
	}
	byStep := make(map[stepKey][]*Slot)
	order := make([]stepKey, 0)
	for _, slot := range slots {
		id, err := e.recorder.RecordTransaction(ctx, &schedulerobjects.Transaction{
			QueryId:        p.id,
			RequestIndex:   slot.RequestIndex,
			Partition:      slot.Partition,
			Owner:          p.job.Credentials.User,
			VirtualCluster: p.options.VirtualCluster,
			Start:          slot.Start,
			Duration:       slot.Duration,
			NodeCount:      slot.NodeCount,
			TaskCount:      slot.TaskCount,
			Hosts:          slot.Hosts,
		})
		if err != nil {
			return err
		}
		slot.TransactionId = id
		key := stepKey{partition: slot.Partition, step: slot.step}
		if _, ok := byStep[key]; !ok {
			order = append(order, key)
		}
		byStep[key] = append(byStep[key], slot)
	}
	if p.options.MergeTID {
		for _, key := range order {
			ids := make([]string, len(byStep[key]))
			for i, slot := range byStep[key] {
				ids[i] = slot.TransactionId
			}
			merged := strings.Join(ids, ",")
			for _, slot := range byStep[key] {
				slot.TransactionId = merged
			}
		}
	}
	log.WithFields(logrus.Fields{"transactions": len(slots), "merged": p.options.MergeTID}).Debug("transactions recorded")
	return nil
}

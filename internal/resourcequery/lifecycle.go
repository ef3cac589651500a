package resourcequery

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
)

// States of a query.
const (
	StateInit         = "init"
	StatePerPartition = "per_partition"
	StateAggregate    = "aggregate"
	StateDone         = "done"
	StateRejected     = "rejected"
)

const (
	eventSearch    = "search"
	eventAggregate = "aggregate"
	eventFinish    = "finish"
	eventReject    = "reject"
)

// lifecycle tracks the state of a single query.
// A query moves from init through the partition loop and aggregation to done,
// or straight from init to rejected if its input is invalid.
type lifecycle struct {
	stateMachine *fsm.FSM
}

func newLifecycle(ctx context.Context) *lifecycle {
	log := ctxlogrus.Extract(ctx)
	return &lifecycle{
		stateMachine: fsm.NewFSM(
			StateInit,
			fsm.Events{
				{Name: eventSearch, Src: []string{StateInit}, Dst: StatePerPartition},
				{Name: eventAggregate, Src: []string{StatePerPartition}, Dst: StateAggregate},
				{Name: eventFinish, Src: []string{StateAggregate}, Dst: StateDone},
				{Name: eventReject, Src: []string{StateInit}, Dst: StateRejected},
			},
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					log.Debugf("query moved from %s to %s", e.Src, e.Dst)
				},
			},
		),
	}
}

func (l *lifecycle) transition(ctx context.Context, event string) error {
	if err := l.stateMachine.Event(ctx, event); err != nil {
		return errors.Wrapf(err, "query can't %s in state %s", event, l.stateMachine.Current())
	}
	return nil
}

func (l *lifecycle) current() string {
	return l.stateMachine.Current()
}

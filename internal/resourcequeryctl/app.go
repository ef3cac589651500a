// Package resourcequeryctl implements the commands of the resourcequery command-line tool.
package resourcequeryctl

import (
	"io"
	"os"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery"
	"github.com/armadaproject/resourcequery/internal/resourcequery/allocation"
	"github.com/armadaproject/resourcequery/internal/resourcequery/configuration"
	"github.com/armadaproject/resourcequery/internal/resourcequery/interfaces"
	"github.com/armadaproject/resourcequery/internal/resourcequery/profiles"
	"github.com/armadaproject/resourcequery/internal/resourcequery/rangefinder"
	"github.com/armadaproject/resourcequery/internal/resourcequery/ranking"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
	"github.com/armadaproject/resourcequery/internal/resourcequery/transactions"
)

// App is the resourcequery command-line tool. Commands write their output to Out.
type App struct {
	Params *Params
	Out    io.Writer
}

// Params are the settings shared by all commands.
type Params struct {
	Config configuration.Configuration
	// Profiles loaded from files in addition to those in Config.
	ExtraProfiles []*schedulerobjects.Profile
}

// New returns an App writing to stdout, with the default configuration.
func New() *App {
	return &App{
		Params: &Params{Config: configuration.Default()},
		Out:    os.Stdout,
	}
}

// newEngine wires up an engine from the configuration of a.
// The returned function releases the connections the engine holds.
func (a *App) newEngine() (*resourcequery.Engine, func(), error) {
	config := a.Params.Config
	ranker, err := ranking.NewRanker(config.PriorityCacheSize)
	if err != nil {
		return nil, nil, err
	}
	allocator := allocation.NewAllocator(ranker)

	knownProfiles := make([]*schedulerobjects.Profile, 0, len(config.Profiles)+len(a.Params.ExtraProfiles))
	knownProfiles = append(knownProfiles, config.Profiles...)
	knownProfiles = append(knownProfiles, a.Params.ExtraProfiles...)
	store, err := profiles.NewStore(knownProfiles)
	if err != nil {
		return nil, nil, err
	}

	recorder, cleanup, err := newRecorder(config.Transactions)
	if err != nil {
		return nil, nil, err
	}
	engine := resourcequery.NewEngine(
		config,
		rangefinder.NewFinder(allocator, config.NodeAllocationPolicy),
		allocator,
		rangefinder.NewDistributor(allocator, config.NodeAllocationPolicy),
		profiles.NewApplier(store, profiles.ACLChecker{}),
		recorder,
	)
	return engine, cleanup, nil
}

func newRecorder(config configuration.TransactionsConfig) (interfaces.TransactionRecorder, func(), error) {
	switch config.Backend {
	case configuration.TransactionBackendMemory, "":
		return transactions.NewMemoryRecorder(config.TTL), func() {}, nil
	case configuration.TransactionBackendRedis:
		if config.Redis == nil {
			return nil, nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
				Name:    "transactions.redis",
				Value:   nil,
				Message: "the redis backend requires redis connection details",
			})
		}
		db := redis.NewUniversalClient(config.Redis.AsUniversalOptions())
		return transactions.NewRedisRecorder(db, config.TTL), func() { _ = db.Close() }, nil
	default:
		return nil, nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "transactions.backend",
			Value:   config.Backend,
			Message: "expected one of memory, redis",
		})
	}
}

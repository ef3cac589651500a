package configuration

import (
	"time"

	"github.com/armadaproject/resourcequery/internal/common/config"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

type TransactionBackend string

const (
	TransactionBackendMemory TransactionBackend = "memory"
	TransactionBackendRedis  TransactionBackend = "redis"
)

type Configuration struct {
	// Maximum number of ranges reported per request and partition.
	ResourceQueryDepth int `validate:"gte=1"`
	// Maximum number of requests in a single query.
	MaxRequests int `validate:"gte=1"`
	// Maximum number of ranges a single range search may return.
	MaxRanges int `validate:"gte=1"`
	// Maximum number of requests sharing one co-allocation label.
	MaxCoAllocationMembers int `validate:"gte=2"`
	// If true, searches look for the longest windows first and only fall back to the widest ones
	// when that doesn't yield a window starting at the earliest possible time.
	SeekLong bool
	// Policy used when neither the job nor the partition sets one.
	NodeAllocationPolicy schedulerobjects.NodeAllocationPolicy
	// If true, partitions are searched concurrently. Results are reported in partition order either way.
	ParallelPartitions bool
	// Number of parsed node priority expressions kept in memory.
	PriorityCacheSize int `validate:"gte=1"`
	// If non-zero, prometheus metrics are served on this port.
	MetricsPort  uint16
	Transactions TransactionsConfig
	// Profiles that queries may refer to by name.
	Profiles []*schedulerobjects.Profile
}

type TransactionsConfig struct {
	Backend TransactionBackend `validate:"oneof=memory redis"`
	// How long a recorded transaction remains valid. Zero means forever.
	TTL   time.Duration
	Redis *config.RedisConfig `validate:"required_if=Backend redis"`
}

// Default returns the configuration used when no configuration file overrides it.
func Default() Configuration {
	return Configuration{
		ResourceQueryDepth:     3,
		MaxRequests:            32,
		MaxRanges:              256,
		MaxCoAllocationMembers: 16,
		SeekLong:               true,
		NodeAllocationPolicy:   schedulerobjects.NodeAllocationPolicyPriority,
		PriorityCacheSize:      128,
		Transactions: TransactionsConfig{
			Backend: TransactionBackendMemory,
			TTL:     time.Hour,
		},
	}
}

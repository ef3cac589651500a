// Package transactions records the slots reported by resource queries run in transaction mode,
// so that a later request can turn a slot into a reservation by id.
package transactions

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

var (
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	m       sync.Mutex
)

// NewTransactionId returns a new, lexicographically increasing transaction id.
func NewTransactionId() string {
	m.Lock()
	defer m.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// prepare assigns an id and creation time to a copy of txn.
func prepare(txn *schedulerobjects.Transaction) (*schedulerobjects.Transaction, error) {
	if txn == nil {
		return nil, errors.WithStack(&armadaerrors.ErrInvalidArgument{
			Name:    "transaction",
			Value:   nil,
			Message: "transaction must not be nil",
		})
	}
	rv := *txn
	rv.Id = NewTransactionId()
	rv.Hosts = append([]string(nil), txn.Hosts...)
	rv.DependsOn = append([]string(nil), txn.DependsOn...)
	if rv.Created == 0 {
		rv.Created = time.Now().Unix()
	}
	return &rv, nil
}

// MemoryRecorder keeps transactions in memory until they expire.
type MemoryRecorder struct {
	transactions *cache.Cache
}

// NewMemoryRecorder returns a recorder whose transactions expire after ttl.
// Transactions never expire if ttl is zero.
func NewMemoryRecorder(ttl time.Duration) *MemoryRecorder {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryRecorder{transactions: cache.New(ttl, 10*time.Minute)}
}

func (r *MemoryRecorder) RecordTransaction(_ context.Context, txn *schedulerobjects.Transaction) (string, error) {
	stored, err := prepare(txn)
	if err != nil {
		return "", err
	}
	r.transactions.SetDefault(stored.Id, stored)
	return stored.Id, nil
}

// GetTransaction returns the transaction with the given id, if it hasn't expired.
func (r *MemoryRecorder) GetTransaction(_ context.Context, id string) (*schedulerobjects.Transaction, error) {
	if v, ok := r.transactions.Get(id); ok {
		if txn, ok := v.(*schedulerobjects.Transaction); ok {
			rv := *txn
			return &rv, nil
		}
	}
	return nil, errors.WithStack(&armadaerrors.ErrNotFound{
		Type:  "transaction",
		Value: id,
	})
}

// Count returns the number of live transactions.
func (r *MemoryRecorder) Count() int {
	return r.transactions.ItemCount()
}

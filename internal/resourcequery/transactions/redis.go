package transactions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-redis/redis"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"

	"github.com/armadaproject/resourcequery/internal/common/armadaerrors"
	"github.com/armadaproject/resourcequery/internal/resourcequery/schedulerobjects"
)

const (
	transactionPrefix = "Transaction:"
	dataField         = "data"
	queryField        = "queryId"
)

// RedisRecorder stores each transaction in a hash that expires after a fixed time.
type RedisRecorder struct {
	db       redis.UniversalClient
	ttl      time.Duration
	attempts uint
}

func NewRedisRecorder(db redis.UniversalClient, ttl time.Duration) *RedisRecorder {
	return &RedisRecorder{db: db, ttl: ttl, attempts: 3}
}

func (r *RedisRecorder) RecordTransaction(ctx context.Context, txn *schedulerobjects.Transaction) (string, error) {
	log := ctxlogrus.Extract(ctx).WithField("function", "RecordTransaction")
	stored, err := prepare(txn)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", errors.WithStack(err)
	}

	key := transactionPrefix + stored.Id
	err = retry.Do(
		func() error {
			pipe := r.db.TxPipeline()
			pipe.HSet(key, dataField, data)
			pipe.HSet(key, queryField, stored.QueryId)
			if r.ttl > 0 {
				pipe.Expire(key, r.ttl)
			}
			_, err := pipe.Exec()
			return err
		},
		retry.Attempts(r.attempts),
		retry.Delay(50*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("failed to record transaction %s (attempt %d)", stored.Id, n+1)
		}),
	)
	if err != nil {
		return "", errors.Wrapf(err, "error recording transaction %s", stored.Id)
	}
	return stored.Id, nil
}

// GetTransaction returns the transaction with the given id, if it hasn't expired.
func (r *RedisRecorder) GetTransaction(_ context.Context, id string) (*schedulerobjects.Transaction, error) {
	data, err := r.db.HGet(transactionPrefix+id, dataField).Bytes()
	if err == redis.Nil {
		return nil, errors.WithStack(&armadaerrors.ErrNotFound{
			Type:  "transaction",
			Value: id,
		})
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	txn := &schedulerobjects.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, errors.WithStack(err)
	}
	return txn, nil
}

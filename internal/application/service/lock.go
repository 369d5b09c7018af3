package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "verity/pkg/domain"
	dErrors "verity/pkg/domain-errors"
)

// numLockShards spreads applications over a fixed set of mutexes. Two
// applications may share a shard; one application always maps to one shard.
const numLockShards = 128

const defaultLockTimeout = 2 * time.Minute

type shardedLock struct {
	shards  [numLockShards]sync.Mutex
	timeout time.Duration
}

// run executes fn while holding the application's shard. The context passed to
// fn carries a deadline when the caller's did not.
func (l *shardedLock) run(ctx context.Context, appID id.ApplicationID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	if _, ok := ctx.Deadline(); !ok {
		timeout := l.timeout
		if timeout == 0 {
			timeout = defaultLockTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &l.shards[shardFor(appID)]
	shard.Lock()
	defer shard.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}
	return fn(ctx)
}

func shardFor(appID id.ApplicationID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(appID.String()))
	return h.Sum32() % numLockShards
}

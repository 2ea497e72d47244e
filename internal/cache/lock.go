package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Locker serializes work on a key across goroutines (in process) or across
// service instances (redis).
type Locker interface {
	// Lock blocks until key is held or ctx is done. ttl bounds how long a
	// crashed holder can keep a distributed lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

const lockRetryInterval = 25 * time.Millisecond

// NewLocker returns a redis lock when the backend has a client, otherwise a keyed mutex.
func NewLocker(b *Backend) Locker {
	if b.client != nil {
		return &redisLocker{client: b.client}
	}
	return NewLocalLocker()
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

type redisLocker struct {
	client *goredis.Client
}

func (l *redisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	key = "lock:" + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker is a keyed mutex. Entries are dropped once no goroutine holds
// or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocalLocker builds an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

// Lock acquires key. ttl is ignored since holders cannot outlive the process.
func (l *LocalLocker) Lock(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, entry)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(key, entry)
		})
	}, nil
}

func (l *LocalLocker) release(key string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

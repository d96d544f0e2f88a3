package optimization

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RuleLocker grants at most one holder per rule id. TryLock never blocks; ok
// is false when the rule is held elsewhere.
type RuleLocker interface {
	TryLock(ctx context.Context, ruleID string) (unlock func(), ok bool, err error)
}

// MemoryLocker serializes executions inside one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) TryLock(_ context.Context, ruleID string) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]struct{})
	}
	if _, ok := l.held[ruleID]; ok {
		return nil, false, nil
	}
	l.held[ruleID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, ruleID)
			l.mu.Unlock()
		})
	}, true, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares rule locks between optimizer processes. TTL bounds how
// long a crashed holder can keep a rule blocked.
type RedisLocker struct {
	Client    *redis.Client
	TTL       time.Duration
	KeyPrefix string
}

func (l *RedisLocker) TryLock(ctx context.Context, ruleID string) (func(), bool, error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	key := l.KeyPrefix + ruleID
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.Client, []string{key}, token).Err()
		})
	}, true, nil
}

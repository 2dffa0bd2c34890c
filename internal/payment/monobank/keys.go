package monobank

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// KeySource fetches the current signing key from the provider.
type KeySource interface {
	PublicKey(ctx context.Context) (string, error)
}

// KeyProvider hands out the provider signing key. With a zero TTL every call
// fetches a fresh key; otherwise the last key is reused until it expires.
// Concurrent fetches are collapsed into one request.
type KeyProvider struct {
	source  KeySource
	ttl     time.Duration
	metrics *Metrics
	now     func() time.Time

	group     singleflight.Group
	mu        sync.RWMutex
	key       string
	fetchedAt time.Time
}

func NewKeyProvider(source KeySource, ttl time.Duration, metrics *Metrics) *KeyProvider {
	return &KeyProvider{
		source:  source,
		ttl:     ttl,
		metrics: metrics,
		now:     time.Now,
	}
}

// Key returns the signing key and whether it came from the cache.
func (p *KeyProvider) Key(ctx context.Context) (string, bool, error) {
	if key, ok := p.cached(); ok {
		return key, true, nil
	}
	key, err := p.Refresh(ctx)
	return key, false, err
}

// Refresh fetches the key from the provider regardless of the cache.
func (p *KeyProvider) Refresh(ctx context.Context) (string, error) {
	value, err, _ := p.group.Do("key", func() (any, error) {
		key, err := p.source.PublicKey(ctx)
		p.metrics.RecordKeyFetch(ctx, err == nil)
		if err != nil {
			return "", err
		}

		p.mu.Lock()
		p.key = key
		p.fetchedAt = p.now()
		p.mu.Unlock()

		return key, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

func (p *KeyProvider) cached() (string, bool) {
	if p.ttl <= 0 {
		return "", false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.key == "" || p.now().Sub(p.fetchedAt) >= p.ttl {
		return "", false
	}
	return p.key, true
}

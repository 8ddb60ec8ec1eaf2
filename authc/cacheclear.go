package authc

import (
	"context"

	"go.uber.org/zap"

	"github.com/getveridian/veridian/event"
	"github.com/getveridian/veridian/internal/logger"
)

// CacheClearOutcome classifies the cache-clear result for one realm.
type CacheClearOutcome int

const (
	// CacheCleared: the realm evicted cached state for its identifier.
	CacheCleared CacheClearOutcome = iota

	// CacheNoIdentifier: the event carried no claim from this realm.
	CacheNoIdentifier

	// CacheNotSupported: the realm does not cache verification state.
	CacheNotSupported

	// CacheEvictFailed: the realm reported an eviction error.
	CacheEvictFailed
)

// CacheClearResult is the per-realm outcome of a cache-clear pass.
type CacheClearResult struct {
	Realm   string
	Outcome CacheClearOutcome
	Err     error
}

// handleSessionEvent reacts to SESSION.EXPIRE and SESSION.STOP. Cache-clear
// is best-effort: a malformed payload is logged and swallowed, never
// propagated back into the bus.
func (a *Authenticator) handleSessionEvent(ctx context.Context, evt event.Event) {
	ids, ok := evt.Fields["identifiers"].(*Identifiers)
	if !ok || ids == nil {
		logger.Log.Warn("could not clear cached credentials after session event: malformed payload",
			zap.String("topic", evt.Topic),
		)
		return
	}
	a.ClearRealmCaches(ctx, ids)
}

// ClearRealmCaches asks every realm that caches verification state to evict
// the entry for its identifier from ids. Errors are recorded per realm, not
// returned: the pass always visits every realm.
func (a *Authenticator) ClearRealmCaches(ctx context.Context, ids *Identifiers) []CacheClearResult {
	results := make([]CacheClearResult, 0, len(a.realms))
	for _, r := range a.realms {
		res := CacheClearResult{Realm: r.Name()}

		ccr, ok := r.(CacheClearingRealm)
		if !ok {
			res.Outcome = CacheNotSupported
			results = append(results, res)
			continue
		}

		identifier := ids.FromSource(r.Name())
		if identifier == "" {
			res.Outcome = CacheNoIdentifier
			results = append(results, res)
			continue
		}

		if err := ccr.ClearCachedCredentials(ctx, identifier); err != nil {
			res.Outcome = CacheEvictFailed
			res.Err = err
			logger.Log.Warn("failed to evict cached credentials",
				zap.String("realm", r.Name()),
				zap.Error(err),
			)
		} else {
			res.Outcome = CacheCleared
		}
		results = append(results, res)
	}
	return results
}

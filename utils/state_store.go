package utils

import (
	"context"
	"sync"
	"time"
)

// oauthStateTTL bounds how long a visitor may sit on the provider's consent page.
const oauthStateTTL = 10 * time.Minute

type pendingLogin struct {
	provider  string
	expiresAt time.Time
}

var (
	pendingLogins   = map[string]pendingLogin{}
	pendingLoginsMu sync.Mutex
)

func oauthStateKey(state string) string { return "inkblog:oauth_state:" + state }

// SaveState remembers the state of a social login started against provider.
// The callback must present it within ttl, or within ten minutes when ttl is not positive.
func SaveState(state, provider string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = oauthStateTTL
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, oauthStateKey(state), provider, ttl).Err()
		return
	}
	// single instance only
	pendingLoginsMu.Lock()
	pendingLogins[state] = pendingLogin{provider: provider, expiresAt: time.Now().Add(ttl)}
	pendingLoginsMu.Unlock()
}

// ConsumeState redeems a login state exactly once. A state presented on the
// callback of a different provider is burnt and rejected.
func ConsumeState(state, provider string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		key := oauthStateKey(state)
		if v, err := rc.GetDel(ctx, key).Result(); err == nil {
			return v == provider
		}
		// Redis < 6.2 has no GETDEL.
		script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
		if res, err := rc.Eval(ctx, script, []string{key}).Result(); err == nil {
			v, _ := res.(string)
			return v != "" && v == provider
		}
		return false
	}
	pendingLoginsMu.Lock()
	login, ok := pendingLogins[state]
	delete(pendingLogins, state)
	pendingLoginsMu.Unlock()
	return ok && login.provider == provider && time.Now().Before(login.expiresAt)
}

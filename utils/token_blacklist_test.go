package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlacklistStoresHashedKey(t *testing.T) {
	BlacklistToken("raw.jwt.value", time.Now().Add(time.Hour))
	assert.True(t, IsTokenBlacklisted("raw.jwt.value"))
	assert.False(t, IsTokenBlacklisted("other.jwt.value"))
	assert.True(t, mr.Exists(tokenKey("raw.jwt.value")))
	assert.False(t, mr.Exists("jwt:blacklist:raw.jwt.value"))
}

func TestBlacklistIgnoresExpiredTokens(t *testing.T) {
	BlacklistToken("old.jwt", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenBlacklisted("old.jwt"))
}

func TestBlacklistInMemoryFallback(t *testing.T) {
	withoutRedis(t, func() {
		BlacklistToken("mem.jwt", time.Now().Add(time.Hour))
		assert.True(t, IsTokenBlacklisted("mem.jwt"))

		BlacklistToken("gone.jwt", time.Now().Add(-time.Second))
		assert.False(t, IsTokenBlacklisted("gone.jwt"))
	})
}

package config

import (
	"testing"
	"time"

	"github.com/permadao/crossfee/config/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := New("", t.TempDir(), true)
	t.Cleanup(cfg.Close)

	assert.False(t, cfg.Paused())
	assert.Equal(t, int64(DefaultEmissionRateBps), cfg.EmissionRateBps())
	assert.Equal(t, time.Duration(DefaultQueueDelaySeconds)*time.Second, cfg.QueueDelay())
	assert.Equal(t, time.Duration(DefaultEpochDurationSeconds)*time.Second, cfg.EpochDuration())
	assert.Equal(t, DefaultInflowLimit, cfg.InflowLimit().String())
}

func TestIPWhiteListRefresh(t *testing.T) {
	cfg := New("", t.TempDir(), true)
	t.Cleanup(cfg.Close)

	// the lookup handed to the limiter at startup
	lookup := cfg.GetIPWhiteList
	assert.Empty(t, lookup())

	assert.NoError(t, cfg.wdb.Db.Create(&schema.IpRateWhitelist{
		OriginOrIP: "192.0.2.7",
		Available:  true,
	}).Error)
	assert.NoError(t, cfg.wdb.Db.Create(&schema.IpRateWhitelist{
		OriginOrIP: "192.0.2.8",
		Available:  false,
	}).Error)
	cfg.updateIPWhiteList()

	// the refresh must reach callers holding the lookup, not a stale copy
	_, ok := lookup()["192.0.2.7"]
	assert.True(t, ok)
	_, ok = lookup()["192.0.2.8"]
	assert.False(t, ok)
}

func TestConfigWriteThrough(t *testing.T) {
	dir := t.TempDir()
	cfg := New("", dir, true)

	assert.NoError(t, cfg.SetPaused(true))
	assert.NoError(t, cfg.SetInflowLimit(decimal.NewFromInt(12345)))
	assert.NoError(t, cfg.SetQueueDelaySeconds(60))
	assert.NoError(t, cfg.SetEmissionRateBps(2500))
	cfg.Close()

	// params survive a restart
	cfg = New("", dir, true)
	t.Cleanup(cfg.Close)
	assert.True(t, cfg.Paused())
	assert.Equal(t, "12345", cfg.InflowLimit().String())
	assert.Equal(t, time.Minute, cfg.QueueDelay())
	assert.Equal(t, int64(2500), cfg.EmissionRateBps())
}

package config

import (
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/permadao/crossfee/config/schema"
	"github.com/shopspring/decimal"
)

type Config struct {
	wdb       *Wdb
	scheduler *gocron.Scheduler

	lock        sync.RWMutex
	param       schema.Param
	ipWhiteList map[string]struct{}
}

func New(configDSN string, sqliteDir string, useSqlite bool) *Config {
	var wdb *Wdb
	if useSqlite {
		wdb = NewSqliteWdb(sqliteDir)
	} else {
		wdb = NewWdb(configDSN)
	}
	if err := wdb.Migrate(); err != nil {
		panic(err)
	}
	param, err := wdb.GetParam()
	if err != nil {
		panic(err)
	}
	return &Config{
		wdb:         wdb,
		scheduler:   gocron.NewScheduler(time.UTC),
		param:       param,
		ipWhiteList: make(map[string]struct{}),
	}
}

func (c *Config) Run() {
	go c.runJobs()
}

func (c *Config) Close() {
	c.scheduler.Stop()
	c.wdb.Close()
}

func (c *Config) Paused() bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.param.Paused
}

func (c *Config) InflowLimit() decimal.Decimal {
	c.lock.RLock()
	defer c.lock.RUnlock()
	limit, err := decimal.NewFromString(c.param.InflowLimit)
	if err != nil {
		log.Warn("invalid inflow limit param", "val", c.param.InflowLimit)
		return decimal.Zero
	}
	return limit
}

func (c *Config) QueueDelay() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return time.Duration(c.param.QueueDelaySeconds) * time.Second
}

func (c *Config) EpochDuration() time.Duration {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if c.param.EpochDurationSeconds <= 0 {
		return time.Duration(DefaultEpochDurationSeconds) * time.Second
	}
	return time.Duration(c.param.EpochDurationSeconds) * time.Second
}

func (c *Config) EmissionRateBps() int64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.param.EmissionRateBps
}

// GetIPWhiteList returns the current whitelist map. The refresh job swaps
// the whole map under lock, so callers must re-read per lookup rather than
// hold on to a returned map.
func (c *Config) GetIPWhiteList() map[string]struct{} {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.ipWhiteList
}

// write-through setters, all privileged

func (c *Config) SetPaused(paused bool) error {
	return c.updateParam(func(p *schema.Param) { p.Paused = paused })
}

func (c *Config) SetInflowLimit(limit decimal.Decimal) error {
	return c.updateParam(func(p *schema.Param) { p.InflowLimit = limit.String() })
}

func (c *Config) SetQueueDelaySeconds(seconds int64) error {
	return c.updateParam(func(p *schema.Param) { p.QueueDelaySeconds = seconds })
}

func (c *Config) SetEmissionRateBps(bps int64) error {
	return c.updateParam(func(p *schema.Param) { p.EmissionRateBps = bps })
}

func (c *Config) updateParam(mutate func(p *schema.Param)) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	param := c.param
	mutate(&param)
	if err := c.wdb.SaveParam(param); err != nil {
		return err
	}
	c.param = param
	return nil
}

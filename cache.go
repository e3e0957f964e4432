package crossfee

import (
	"context"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/permadao/crossfee/schema"
)

// seenExpTime bounds how long a processed envelope fingerprint is kept for
// cheap duplicate drops; the bolt nonce watermark is the durable guard.
const seenExpTime = 30 * time.Minute

type Cache struct {
	rate schema.MintRate
	lock sync.RWMutex

	seenMsg *bigcache.BigCache
}

func NewCache() (*Cache, error) {
	seen, err := bigcache.New(context.Background(), bigcache.DefaultConfig(seenExpTime))
	if err != nil {
		return nil, err
	}
	return &Cache{seenMsg: seen}, nil
}

func (c *Cache) UpdateMintRate(mr schema.MintRate) {
	c.lock.Lock()
	c.rate = mr
	c.lock.Unlock()
}

func (c *Cache) GetMintRate() schema.MintRate {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.rate
}

func (c *Cache) MarkMessage(key string) {
	_ = c.seenMsg.Set(key, []byte{0x01})
}

func (c *Cache) SeenMessage(key string) bool {
	_, err := c.seenMsg.Get(key)
	return err == nil
}

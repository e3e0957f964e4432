package crossfee

import (
	"testing"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCacheSeenMessage(t *testing.T) {
	c, err := NewCache()
	assert.NoError(t, err)

	key := "1-0xabc-5"
	assert.False(t, c.SeenMessage(key))
	c.MarkMessage(key)
	assert.True(t, c.SeenMessage(key))
	assert.False(t, c.SeenMessage("1-0xabc-6"))
}

func TestCacheMintRate(t *testing.T) {
	c, err := NewCache()
	assert.NoError(t, err)

	assert.True(t, c.GetMintRate().Rate.IsZero())

	mr := schema.MintRate{EpochId: 3, Rate: decimal.New(5, 17)}
	c.UpdateMintRate(mr)
	got := c.GetMintRate()
	assert.Equal(t, uint64(3), got.EpochId)
	assert.Equal(t, "500000000000000000", got.Rate.String())
}

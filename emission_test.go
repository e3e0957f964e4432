package crossfee

import (
	"testing"

	"github.com/permadao/crossfee/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBpsSchedule(t *testing.T) {
	cfg := config.New("", t.TempDir(), true)
	t.Cleanup(cfg.Close)
	sched := NewBpsSchedule(cfg)

	// default is 10000 bps, one-to-one
	mint, err := sched.RateFor(decimal.NewFromInt(100))
	assert.NoError(t, err)
	assert.Equal(t, "100", mint.String())

	assert.NoError(t, cfg.SetEmissionRateBps(4000))
	mint, err = sched.RateFor(decimal.NewFromInt(100))
	assert.NoError(t, err)
	assert.Equal(t, "40", mint.String())

	// floors toward zero
	mint, err = sched.RateFor(decimal.NewFromInt(1))
	assert.NoError(t, err)
	assert.Equal(t, "0", mint.String())

	mint, err = sched.RateFor(decimal.NewFromInt(7))
	assert.NoError(t, err)
	assert.Equal(t, "2", mint.String())
}

package crossfee

import (
	"github.com/permadao/crossfee/config"
	"github.com/shopspring/decimal"
)

// EmissionSchedule converts settled-but-undistributed fee debt into a
// reward token mint amount. The hub treats it as a pure function.
type EmissionSchedule interface {
	RateFor(undistributed decimal.Decimal) (decimal.Decimal, error)
}

var bpsDenominator = decimal.NewFromInt(10000)

// bpsSchedule mints a basis-point ratio of the consumed debt; the ratio is
// an operator parameter.
type bpsSchedule struct {
	cfg *config.Config
}

func NewBpsSchedule(cfg *config.Config) EmissionSchedule {
	return &bpsSchedule{cfg: cfg}
}

func (e *bpsSchedule) RateFor(undistributed decimal.Decimal) (decimal.Decimal, error) {
	bps := decimal.NewFromInt(e.cfg.EmissionRateBps())
	mintAmount, _ := undistributed.Mul(bps).QuoRem(bpsDenominator, 0)
	return mintAmount, nil
}

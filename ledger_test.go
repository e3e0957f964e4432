package crossfee

import (
	"testing"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAccrueAndSettleBounds(t *testing.T) {
	s, _ := newTestHub(t)

	assert.NoError(t, s.accrueFee(testSpokeDomainId, decimal.NewFromInt(100)))
	rec, err := s.GetFeeDebt(testSpokeDomainId)
	assert.NoError(t, err)
	assert.Equal(t, "100", rec.Accrued.String())

	assert.NoError(t, s.SettleFee(testSpokeDomainId, decimal.NewFromInt(60)))

	// over-settling fails whole and leaves counters unchanged
	err = s.SettleFee(testSpokeDomainId, decimal.NewFromInt(50))
	assert.ErrorIs(t, err, schema.ErrDebtExceeded)
	rec, err = s.GetFeeDebt(testSpokeDomainId)
	assert.NoError(t, err)
	assert.Equal(t, "100", rec.Accrued.String())
	assert.Equal(t, "60", rec.Settled.String())
	assert.Equal(t, "0", rec.Distributed.String())

	assert.NoError(t, s.SettleFee(testSpokeDomainId, decimal.NewFromInt(40)))
	rec, _ = s.GetFeeDebt(testSpokeDomainId)
	assert.Equal(t, "100", rec.Settled.String())
}

func TestSettleWithoutAccrual(t *testing.T) {
	s, _ := newTestHub(t)
	err := s.SettleFee(testSpokeDomainId, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, schema.ErrDebtExceeded)
}

func TestDistribute(t *testing.T) {
	s, tp := newTestHub(t)
	assert.NoError(t, s.config.SetEmissionRateBps(4000))
	assert.NoError(t, s.wdb.GrantDistributor(testDistAddr))

	assert.NoError(t, s.accrueFee(testSpokeDomainId, decimal.NewFromInt(100)))
	assert.NoError(t, s.SettleFee(testSpokeDomainId, decimal.NewFromInt(100)))

	mintAmount, err := s.Distribute(testSpokeDomainId, testDistAddr)
	assert.NoError(t, err)
	assert.Equal(t, "40", mintAmount.String())

	rec, _ := s.GetFeeDebt(testSpokeDomainId)
	assert.Equal(t, "100", rec.Distributed.String())

	// minted into the vault, backing the spoke credit
	vault, err := s.wdb.GetTokenAccount(schema.VaultAccount)
	assert.NoError(t, err)
	assert.Equal(t, "40", vault.Balance.String())

	// apply-mint-rate message went to the spoke
	msg, ok := tp.last()
	assert.True(t, ok)
	assert.Equal(t, testSpokeDomainId, msg.dest)
	action, subtype, body, err := schema.DecodeMessageHead(msg.env.Payload)
	assert.NoError(t, err)
	assert.Equal(t, schema.ActionRate, action)
	assert.Equal(t, schema.RateApply, subtype)
	assert.Contains(t, string(body), `"mintAmount":"40"`)
	assert.Contains(t, string(body), `"feeAmountConsumed":"100"`)
}

func TestNoDoubleDistribution(t *testing.T) {
	s, _ := newTestHub(t)
	assert.NoError(t, s.wdb.GrantDistributor(testDistAddr))

	assert.NoError(t, s.accrueFee(testSpokeDomainId, decimal.NewFromInt(100)))
	assert.NoError(t, s.SettleFee(testSpokeDomainId, decimal.NewFromInt(100)))

	_, err := s.Distribute(testSpokeDomainId, testDistAddr)
	assert.NoError(t, err)

	// no new settled debt: no-op failure, not a double mint
	_, err = s.Distribute(testSpokeDomainId, testDistAddr)
	assert.ErrorIs(t, err, schema.ErrNothingToDistribute)

	vault, _ := s.wdb.GetTokenAccount(schema.VaultAccount)
	assert.Equal(t, "100", vault.Balance.String()) // default 10000 bps
}

func TestDistributeRequiresCapability(t *testing.T) {
	s, _ := newTestHub(t)
	assert.NoError(t, s.accrueFee(testSpokeDomainId, decimal.NewFromInt(10)))
	assert.NoError(t, s.SettleFee(testSpokeDomainId, decimal.NewFromInt(10)))

	_, err := s.Distribute(testSpokeDomainId, testDistAddr)
	assert.ErrorIs(t, err, schema.ErrNotDistributor)

	rec, _ := s.GetFeeDebt(testSpokeDomainId)
	assert.Equal(t, "0", rec.Distributed.String())
}

func TestDistributeOnSpokeFails(t *testing.T) {
	s, _ := newTestSpoke(t)
	_, err := s.Distribute(testHubDomainId, testDistAddr)
	assert.ErrorIs(t, err, schema.ErrHubOnly)
}

func TestMonotonicCounters(t *testing.T) {
	s, _ := newTestHub(t)
	assert.NoError(t, s.wdb.GrantDistributor(testDistAddr))

	prev := schema.FeeDebtRecord{}
	steps := []func() error{
		func() error { return s.accrueFee(testSpokeDomainId, decimal.NewFromInt(30)) },
		func() error { return s.SettleFee(testSpokeDomainId, decimal.NewFromInt(20)) },
		func() error { _, err := s.Distribute(testSpokeDomainId, testDistAddr); return err },
		func() error { return s.accrueFee(testSpokeDomainId, decimal.NewFromInt(5)) },
		func() error { return s.SettleFee(testSpokeDomainId, decimal.NewFromInt(15)) },
		func() error { _, err := s.Distribute(testSpokeDomainId, testDistAddr); return err },
	}
	for i, step := range steps {
		assert.NoError(t, step(), "step %d", i)
		rec, err := s.GetFeeDebt(testSpokeDomainId)
		assert.NoError(t, err)
		assert.True(t, rec.Accrued.GreaterThanOrEqual(prev.Accrued))
		assert.True(t, rec.Settled.GreaterThanOrEqual(prev.Settled))
		assert.True(t, rec.Distributed.GreaterThanOrEqual(prev.Distributed))
		assert.True(t, rec.Settled.LessThanOrEqual(rec.Accrued))
		assert.True(t, rec.Distributed.LessThanOrEqual(rec.Settled))
		prev = rec
	}
}

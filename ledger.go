package crossfee

import (
	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
)

// accrueFee records a spoke's reported harvest. Message-only entry; a spoke
// is trusted for its own harvest, no upper bound.
func (s *CrossFee) accrueFee(spokeDomainId uint64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	s.ledgerLocker.Lock()
	defer s.ledgerLocker.Unlock()

	if err := s.wdb.AccrueFee(spokeDomainId, amount); err != nil {
		return err
	}
	s.metricFeeDebt(spokeDomainId)
	s.emitEvent(schema.EventAccrued, spokeDomainId, amount.String(), "")
	return nil
}

// SettleFee is called by the bridge-delegate once the fee token physically
// landed on the hub. Never clamped: over-settling fails whole.
func (s *CrossFee) SettleFee(spokeDomainId uint64, amount decimal.Decimal) error {
	if !s.canonical {
		return schema.ErrHubOnly
	}
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	s.ledgerLocker.Lock()
	defer s.ledgerLocker.Unlock()

	if err := s.wdb.SettleFee(spokeDomainId, amount); err != nil {
		return err
	}
	s.metricFeeDebt(spokeDomainId)
	s.emitEvent(schema.EventSettled, spokeDomainId, amount.String(), "")
	return nil
}

// Distribute converts all settled-but-undistributed debt of one spoke into
// a reward token mint, advances the ledger, and sends the mint rate to the
// spoke. Guarded by the distributor allow-list. Retrying with no new
// settled debt is a no-op failure, not a double mint.
func (s *CrossFee) Distribute(spokeDomainId uint64, caller string) (decimal.Decimal, error) {
	if !s.canonical {
		return decimal.Zero, schema.ErrHubOnly
	}
	if !s.wdb.IsDistributor(caller) {
		return decimal.Zero, schema.ErrNotDistributor
	}
	s.ledgerLocker.Lock()
	defer s.ledgerLocker.Unlock()

	undistributed, mintAmount, err := s.wdb.DistributeFee(spokeDomainId, s.emission.RateFor)
	if err != nil {
		return decimal.Zero, err
	}

	epochId := s.currentEpochId()
	payload, err := schema.EncodeMessage(schema.ActionRate, schema.RateApply, schema.ApplyMintRateBody{
		EpochId:           epochId,
		MintAmount:        mintAmount,
		FeeAmountConsumed: undistributed,
	})
	if err != nil {
		return decimal.Zero, err
	}
	// fire-and-forget: the ledger already advanced, a send failure is an
	// operator concern, not a rollback
	if err := s.sendMessage(spokeDomainId, payload); err != nil {
		log.Error("send apply-mint-rate", "spoke", spokeDomainId, "err", err)
	}

	s.metricFeeDebt(spokeDomainId)
	s.emitEvent(schema.EventDistributed, spokeDomainId, mintAmount.String(), "feeConsumed="+undistributed.String())
	log.Info("distributed", "spoke", spokeDomainId, "mintAmount", mintAmount.String(), "feeConsumed", undistributed.String())
	return mintAmount, nil
}

func (s *CrossFee) GetFeeDebt(spokeDomainId uint64) (schema.FeeDebtRecord, error) {
	return s.wdb.GetFeeDebt(spokeDomainId)
}

package crossfee

import (
	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
)

// applyMintRate is the spoke-side handler for the hub's distribution event.
// The reward credit flows through the rate limiter like any bridge credit;
// the derived rate is the single current value, overwritten each event.
func (s *CrossFee) applyMintRate(sourceDomainId uint64, body schema.ApplyMintRateBody) error {
	if !s.registry.IsCanonicalDomain(sourceDomainId) {
		return schema.ErrUntrustedPeer
	}
	if body.FeeAmountConsumed.LessThanOrEqual(decimal.Zero) {
		return schema.ErrZeroFeeConsumed
	}
	if body.MintAmount.IsNegative() {
		return schema.ErrNegativeAmount
	}

	if err := s.CreditTransfer(sourceDomainId, schema.RewardPoolAccount, body.MintAmount); err != nil {
		return err
	}

	rate, _ := body.MintAmount.Mul(schema.MintRateScale).QuoRem(body.FeeAmountConsumed, 0)
	mr := schema.MintRate{
		EpochId:           body.EpochId,
		MintAmount:        body.MintAmount,
		FeeAmountConsumed: body.FeeAmountConsumed,
		Rate:              rate,
	}
	if err := s.wdb.SaveMintRate(mr); err != nil {
		return err
	}
	s.cache.UpdateMintRate(mr)
	s.emitEvent(schema.EventRateApplied, sourceDomainId, body.MintAmount.String(), "rate="+rate.String())
	log.Info("mint rate applied", "epochId", body.EpochId, "rate", rate.String())
	return nil
}

// NotifyAccrual reports a local harvest to the hub. Spoke only; the local
// harvest source (out of scope) calls this with the raw fee amount.
func (s *CrossFee) NotifyAccrual(amount decimal.Decimal) error {
	if s.canonical {
		return schema.ErrSpokeOnly
	}
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	hubId, ok := s.hubDomainId()
	if !ok {
		return schema.ErrNotExist
	}
	payload, err := schema.EncodeMessage(schema.ActionLedger, schema.LedgerAccrueFee, schema.AccrueFeeBody{
		Amount: amount,
	})
	if err != nil {
		return err
	}
	return s.sendMessage(hubId, payload)
}

// NotifyLock reports fee tokens handed to the native bridge so the hub
// vault's locked balance tracks circulating spoke supply.
func (s *CrossFee) NotifyLock(amount decimal.Decimal) error {
	if s.canonical {
		return schema.ErrSpokeOnly
	}
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	hubId, ok := s.hubDomainId()
	if !ok {
		return schema.ErrNotExist
	}
	payload, err := schema.EncodeMessage(schema.ActionBridge, schema.BridgeLockRequest, schema.LockRequestBody{
		Amount: amount,
	})
	if err != nil {
		return err
	}
	return s.sendMessage(hubId, payload)
}

// CurrentMintRate returns the cached rate; downstream pool accounting is
// expected to snapshot it promptly, there is no history.
func (s *CrossFee) CurrentMintRate() (schema.MintRate, error) {
	mr := s.cache.GetMintRate()
	if mr.Rate.IsZero() && mr.EpochId == 0 {
		return s.wdb.GetMintRate()
	}
	return mr, nil
}

func (s *CrossFee) hubDomainId() (uint64, bool) {
	for _, d := range s.registry.Domains() {
		if d.IsCanonical {
			return d.DomainId, true
		}
	}
	return 0, false
}

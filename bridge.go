package crossfee

import (
	"time"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
)

// epochIdAt derives the rate-limit bucket from wall-clock time. Never
// stored as authoritative, always recomputed.
func epochIdAt(now time.Time, epochDuration time.Duration) uint64 {
	return uint64(now.Unix()) / uint64(epochDuration/time.Second)
}

func (s *CrossFee) currentEpochId() uint64 {
	return epochIdAt(s.nowFn(), s.config.EpochDuration())
}

// CreditTransfer attempts an inbound credit on this endpoint. Paused
// rejects outright; a credit that would push the epoch inflow over the
// limit is deferred into a PendingTransfer and does not touch the counter.
func (s *CrossFee) CreditTransfer(sourceDomainId uint64, recipient string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	s.bridgeLocker.Lock()
	defer s.bridgeLocker.Unlock()

	if s.config.Paused() {
		return schema.ErrBridgePaused
	}

	epochId := s.currentEpochId()
	ec, err := s.wdb.GetEpochCounter(epochId)
	if err != nil {
		return err
	}
	projectedInflow := ec.Inflow.Add(amount)
	if projectedInflow.GreaterThan(s.config.InflowLimit()) {
		readyAt := s.nowFn().Add(s.config.QueueDelay()).Unix()
		pt := schema.PendingTransfer{
			EpochIdAtQueue: epochId,
			SourceDomainId: sourceDomainId,
			Recipient:      recipient,
			Amount:         amount,
			ReadyAt:        readyAt,
		}
		if err := s.wdb.InsertPendingTransfer(pt); err != nil {
			return err
		}
		s.emitEvent(schema.EventQueued, sourceDomainId, amount.String(), recipient)
		log.Warn("inflow limit hit, transfer queued", "source", sourceDomainId,
			"recipient", recipient, "amount", amount.String(), "readyAt", readyAt)
		return nil
	}

	if err := s.wdb.CreditTokenWithInflow(s.canonical, recipient, amount, epochId); err != nil {
		return err
	}
	s.emitEvent(schema.EventCredited, sourceDomainId, amount.String(), recipient)
	return nil
}

// ProcessQueued releases one matching PendingTransfer. Callable by anyone;
// fails without mutation before readyAt, while paused, or when no record
// matches. The credit bypasses the inflow counter, the deferral already
// absorbed the surge.
func (s *CrossFee) ProcessQueued(epochIdAtQueue, sourceDomainId uint64, recipient string, amount decimal.Decimal, readyAt int64) error {
	s.bridgeLocker.Lock()
	defer s.bridgeLocker.Unlock()

	if s.config.Paused() {
		return schema.ErrBridgePaused
	}
	pt, err := s.wdb.FindPendingTransfer(epochIdAtQueue, sourceDomainId, recipient, amount, readyAt)
	if err != nil {
		return err
	}
	if s.nowFn().Unix() < pt.ReadyAt {
		return schema.ErrTransferNotReady
	}
	if err := s.wdb.ReleasePendingTransfer(pt, s.canonical); err != nil {
		return err
	}
	s.emitEvent(schema.EventReleased, sourceDomainId, amount.String(), recipient)
	log.Info("queued transfer released", "source", sourceDomainId, "recipient", recipient, "amount", amount.String())
	return nil
}

// SendTransfer moves bridged tokens toward another domain: burn-before-send
// on a spoke, vault re-lock on the hub, then a transfer-credit message.
func (s *CrossFee) SendTransfer(destDomainId uint64, from, recipient string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	if _, ok := s.registry.GetDomain(destDomainId); !ok {
		return schema.ErrNotExist
	}
	s.bridgeLocker.Lock()
	defer s.bridgeLocker.Unlock()

	if s.config.Paused() {
		return schema.ErrBridgePaused
	}
	if err := s.wdb.DebitTokenWithOutflow(s.canonical, from, amount, s.currentEpochId()); err != nil {
		return err
	}
	payload, err := schema.EncodeMessage(schema.ActionBridge, schema.BridgeTransferCredit, schema.TransferCreditBody{
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return err
	}
	return s.sendMessage(destDomainId, payload)
}

// thin admin setters, all privileged through the api layer

func (s *CrossFee) Pause() error {
	log.Warn("bridge paused")
	return s.config.SetPaused(true)
}

func (s *CrossFee) Unpause() error {
	log.Warn("bridge unpaused")
	return s.config.SetPaused(false)
}

// SetInflowLimit does not retroactively change queued transfers' readyAt.
func (s *CrossFee) SetInflowLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return schema.ErrNegativeAmount
	}
	return s.config.SetInflowLimit(limit)
}

func (s *CrossFee) SetQueueDelaySeconds(seconds int64) error {
	return s.config.SetQueueDelaySeconds(seconds)
}

package crossfee

import (
	"encoding/json"
	"fmt"

	"github.com/permadao/crossfee/schema"
)

type msgHandler func(sourceDomainId uint64, body []byte) error

// DispatchMessage is the single entry point for inbound cross-domain
// delivery. Order matters: authenticate, drop duplicates, resolve the
// handler, then execute. A handler failure is parked as a FailedMessage and
// swallowed, because the transport treats a surfaced error as permanent
// delivery failure with no retry. If parking itself fails the error does
// surface and the nonce stays unconsumed, so the message is never lost with
// no dead-letter record.
func (s *CrossFee) DispatchMessage(env schema.Envelope) error {
	s.dispatchLocker.Lock()
	defer s.dispatchLocker.Unlock()

	if len(env.Payload) == 0 {
		return schema.ErrNullPayload
	}
	if !s.registry.IsAuthentic(env.SourceDomainId, env.SourceAddress) {
		s.emitEvent(schema.EventRejected, env.SourceDomainId, "", "untrusted sender "+env.SourceAddress)
		return schema.ErrUntrustedPeer
	}
	if s.cache.SeenMessage(env.Key()) {
		return nil
	}
	if last, ok := s.store.LoadNonceWatermark(env.SourceDomainId, env.SourceAddress); ok && env.Nonce <= last {
		// duplicate delivery; a parked envelope at this nonce is only
		// retried through ReplayMessage
		return nil
	}

	action, subtype, body, err := schema.DecodeMessageHead(env.Payload)
	if err != nil {
		return err
	}
	handler, err := s.lookupHandler(action, subtype)
	if err != nil {
		// unknown discriminator, rejected without mutation
		return err
	}

	if handleErr := handler(env.SourceDomainId, body); handleErr != nil {
		if parkErr := s.parkFailedMessage(env, action, subtype, handleErr); parkErr != nil {
			// nothing was dead-lettered; leave the nonce unconsumed so a
			// redelivery can try again instead of losing the message
			return parkErr
		}
	}

	// the nonce is consumed either way
	if err := s.store.SaveNonceWatermark(env.SourceDomainId, env.SourceAddress, env.Nonce); err != nil {
		log.Error("save nonce watermark", "key", env.Key(), "err", err)
	}
	s.cache.MarkMessage(env.Key())
	return nil
}

func (s *CrossFee) lookupHandler(action uint32, subtype byte) (msgHandler, error) {
	switch action {
	case schema.ActionLedger:
		if subtype == schema.LedgerAccrueFee {
			return s.handleAccrueFee, nil
		}
	case schema.ActionRate:
		if subtype == schema.RateApply {
			return s.handleApplyMintRate, nil
		}
	case schema.ActionBridge:
		switch subtype {
		case schema.BridgeLockRequest:
			return s.handleLockRequest, nil
		case schema.BridgeTransferCredit:
			return s.handleTransferCredit, nil
		}
	}
	return nil, schema.ErrUnknownAction
}

func (s *CrossFee) parkFailedMessage(env schema.Envelope, action uint32, subtype byte, handleErr error) error {
	if err := s.store.SaveFailedPayload(env.SourceDomainId, env.SourceAddress, env.Nonce, env.Payload); err != nil {
		log.Error("save failed payload", "key", env.Key(), "err", err)
		return err
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"action":  fmt.Sprintf("0x%08x", action),
		"subtype": subtype,
	})
	fm := schema.FailedMessage{
		SourceDomainId: env.SourceDomainId,
		SourceAddress:  env.SourceAddress,
		Nonce:          env.Nonce,
		ErrMsg:         handleErr.Error(),
		Detail:         detail,
	}
	if err := s.wdb.InsertFailedMessage(fm); err != nil {
		log.Error("insert failed message", "key", env.Key(), "err", err)
		return err
	}
	metricFailedMessageParked()
	s.emitEvent(schema.EventParked, env.SourceDomainId, "", handleErr.Error())
	log.Warn("message parked", "key", env.Key(), "err", handleErr)
	return nil
}

// ReplayMessage re-runs a parked envelope and deletes the record on
// success. Privileged. Semantics are identical to fresh delivery: the same
// ledger invariants and rate limits apply, so a replay that would
// re-violate them fails the same way and keeps the record.
func (s *CrossFee) ReplayMessage(sourceDomainId uint64, sourceAddress string, nonce uint64, payload []byte) error {
	s.dispatchLocker.Lock()
	defer s.dispatchLocker.Unlock()

	if _, err := s.wdb.GetFailedMessage(sourceDomainId, sourceAddress, nonce); err != nil {
		return err
	}
	if len(payload) == 0 {
		stored, err := s.store.LoadFailedPayload(sourceDomainId, sourceAddress, nonce)
		if err != nil {
			return err
		}
		payload = stored
	}

	action, subtype, body, err := schema.DecodeMessageHead(payload)
	if err != nil {
		return err
	}
	handler, err := s.lookupHandler(action, subtype)
	if err != nil {
		return err
	}
	if err := handler(sourceDomainId, body); err != nil {
		return err
	}

	if err := s.wdb.DelFailedMessage(sourceDomainId, sourceAddress, nonce); err != nil {
		return err
	}
	if err := s.store.DelFailedPayload(sourceDomainId, sourceAddress, nonce); err != nil {
		log.Warn("delete replayed payload", "err", err)
	}
	s.emitEvent(schema.EventReplayed, sourceDomainId, "", schema.FailedPayloadKey(sourceDomainId, sourceAddress, nonce))
	return nil
}

// message handlers, one per wire variant

func (s *CrossFee) handleAccrueFee(sourceDomainId uint64, body []byte) error {
	if !s.canonical {
		return schema.ErrHubOnly
	}
	req := schema.AccrueFeeBody{}
	if err := json.Unmarshal(body, &req); err != nil {
		return schema.ErrBadMessage
	}
	return s.accrueFee(sourceDomainId, req.Amount)
}

func (s *CrossFee) handleApplyMintRate(sourceDomainId uint64, body []byte) error {
	if s.canonical {
		return schema.ErrSpokeOnly
	}
	req := schema.ApplyMintRateBody{}
	if err := json.Unmarshal(body, &req); err != nil {
		return schema.ErrBadMessage
	}
	return s.applyMintRate(sourceDomainId, req)
}

func (s *CrossFee) handleLockRequest(sourceDomainId uint64, body []byte) error {
	if !s.canonical {
		return schema.ErrHubOnly
	}
	req := schema.LockRequestBody{}
	if err := json.Unmarshal(body, &req); err != nil {
		return schema.ErrBadMessage
	}
	if req.Amount.IsNegative() {
		return schema.ErrNegativeAmount
	}
	if err := s.wdb.LockVault(req.Amount); err != nil {
		return err
	}
	s.emitEvent(schema.EventVaultLocked, sourceDomainId, req.Amount.String(), "")
	return nil
}

func (s *CrossFee) handleTransferCredit(sourceDomainId uint64, body []byte) error {
	req := schema.TransferCreditBody{}
	if err := json.Unmarshal(body, &req); err != nil {
		return schema.ErrBadMessage
	}
	return s.CreditTransfer(sourceDomainId, req.Recipient, req.Amount)
}

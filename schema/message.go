package schema

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Wire format of a cross-domain payload: a fixed 5 byte head
// (4 byte action discriminator + 1 byte subtype) followed by a json body.
const MessageHeadSize = 5

// action discriminators
const (
	ActionLedger uint32 = 0x4c454447 // "LEDG"
	ActionRate   uint32 = 0x52415445 // "RATE"
	ActionBridge uint32 = 0x42524447 // "BRDG"
)

// subtypes
const (
	LedgerAccrueFee byte = 0x01

	RateApply byte = 0x01

	BridgeLockRequest    byte = 0x01
	BridgeTransferCredit byte = 0x02
)

// Envelope is what the transport delivers: source identity, the per-source
// monotonic nonce and the opaque payload.
type Envelope struct {
	SourceDomainId uint64 `json:"sourceDomainId"`
	SourceAddress  string `json:"sourceAddress"`
	Nonce          uint64 `json:"nonce"`
	Payload        []byte `json:"payload"`
}

// Key identifies one delivery attempt; used for dead-letter storage and the
// duplicate-drop cache.
func (e Envelope) Key() string {
	return fmt.Sprintf("%d-%s-%d", e.SourceDomainId, e.SourceAddress, e.Nonce)
}

func FailedPayloadKey(sourceDomainId uint64, sourceAddress string, nonce uint64) string {
	return fmt.Sprintf("%d-%s-%d", sourceDomainId, sourceAddress, nonce)
}

type AccrueFeeBody struct {
	Amount decimal.Decimal `json:"amount"`
}

type ApplyMintRateBody struct {
	EpochId           uint64          `json:"epochId"`
	MintAmount        decimal.Decimal `json:"mintAmount"`
	FeeAmountConsumed decimal.Decimal `json:"feeAmountConsumed"`
}

type LockRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
}

type TransferCreditBody struct {
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
}

// EncodeMessage packs head and body into one payload.
func EncodeMessage(action uint32, subtype byte, body interface{}) ([]byte, error) {
	by, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, MessageHeadSize, MessageHeadSize+len(by))
	binary.BigEndian.PutUint32(payload[:4], action)
	payload[4] = subtype
	return append(payload, by...), nil
}

// DecodeMessageHead splits a payload into its discriminator, subtype and
// body bytes. The body is decoded by the routed handler.
func DecodeMessageHead(payload []byte) (action uint32, subtype byte, body []byte, err error) {
	if len(payload) < MessageHeadSize {
		err = ErrBadMessage
		return
	}
	action = binary.BigEndian.Uint32(payload[:4])
	subtype = payload[4]
	body = payload[MessageHeadSize:]
	return
}

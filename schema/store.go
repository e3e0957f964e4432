package schema

// kv store buckets
const (
	FailedPayloadBucket = "failed-payload-bucket" // raw bytes of dead-lettered envelopes
	NonceBucket         = "nonce-bucket"          // highest consumed inbound nonce per peer
	OutboundNonceBucket = "outbound-nonce-bucket" // outbound nonce counter per destination
)

// event topic payload published for audit consumers
const (
	EventAccrued      = "accrued"
	EventSettled      = "settled"
	EventDistributed  = "distributed"
	EventCredited     = "credited"
	EventQueued       = "queued"
	EventReleased     = "released"
	EventParked       = "parked"
	EventReplayed     = "replayed"
	EventRejected     = "rejected"
	EventRateApplied  = "rateApplied"
	EventVaultLocked  = "vaultLocked"
)

type Event struct {
	ID        string `json:"id"` // uuid
	Type      string `json:"type"`
	DomainId  uint64 `json:"domainId"`
	Amount    string `json:"amount,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix seconds
}

package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	// reserved token book accounts
	VaultAccount       = "vault"       // canonical domain locked balance
	CirculatingAccount = "circulating" // remote domain minted supply
	RewardPoolAccount  = "rewardPool"  // distribution credit target on a spoke
)

// MintRateScale is the fixed-point scale applied when deriving a mint rate
// from mintAmount / feeAmountConsumed.
var MintRateScale = decimal.New(1, 18)

// Domain is one remote counterpart and its pinned peer credential. Records
// are never deleted; RegisterPeer overwrites the credential for rotation.
type Domain struct {
	DomainId       uint64    `gorm:"primarykey" json:"domainId"`
	PeerCredential string    `json:"peerCredential"` // address of the trusted remote coordinator
	IsCanonical    bool      `json:"isCanonical"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FeeDebtRecord tracks one spoke's obligation through the
// accrue -> settle -> distribute phases. All three counters are monotonic;
// settled <= accrued and distributed <= settled always hold.
type FeeDebtRecord struct {
	SpokeDomainId uint64          `gorm:"primarykey" json:"spokeDomainId"`
	Accrued       decimal.Decimal `gorm:"type:decimal(65,0)" json:"accrued"`
	Settled       decimal.Decimal `gorm:"type:decimal(65,0)" json:"settled"`
	Distributed   decimal.Decimal `gorm:"type:decimal(65,0)" json:"distributed"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EpochCounter is the inflow/outflow pair for one rate-limit epoch. The
// epoch id is derived from wall-clock time, rows are created lazily on
// first touch.
type EpochCounter struct {
	EpochId   uint64          `gorm:"primarykey" json:"epochId"`
	Inflow    decimal.Decimal `gorm:"type:decimal(65,0)" json:"inflow"`
	Outflow   decimal.Decimal `gorm:"type:decimal(65,0)" json:"outflow"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PendingTransfer is an inbound bridge credit deferred past the epoch
// inflow limit. Released by ProcessQueued once readyAt has passed.
type PendingTransfer struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	EpochIdAtQueue uint64          `gorm:"index:idx_pt" json:"epochIdAtQueue"`
	SourceDomainId uint64          `gorm:"index:idx_pt" json:"sourceDomainId"`
	Recipient      string          `json:"recipient"`
	Amount         decimal.Decimal `gorm:"type:decimal(65,0)" json:"amount"`
	ReadyAt        int64           `json:"readyAt"` // unix seconds
}

// FailedMessage is a dead-lettered envelope. The raw payload bytes live in
// the kv store keyed by FailedPayloadKey; this row is the ops-facing index.
type FailedMessage struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	SourceDomainId uint64         `gorm:"uniqueIndex:idx_fmsg" json:"sourceDomainId"`
	SourceAddress  string         `gorm:"uniqueIndex:idx_fmsg" json:"sourceAddress"`
	Nonce          uint64         `gorm:"uniqueIndex:idx_fmsg" json:"nonce"`
	ErrMsg         string         `json:"errMsg"`
	Detail         datatypes.JSON `json:"detail"` // decoded head, for operators
}

// TokenAccount is one balance row of the bridged token book. The reserved
// VaultAccount and CirculatingAccount rows carry the conservation totals.
type TokenAccount struct {
	Account   string          `gorm:"primarykey" json:"account"`
	Balance   decimal.Decimal `gorm:"type:decimal(65,0)" json:"balance"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Distributor is the allow-list for the distribute capability.
type Distributor struct {
	Addr      string    `gorm:"primarykey" json:"addr"`
	CreatedAt time.Time `json:"createdAt"`
}

// MintRate is the single current conversion rate on a spoke, overwritten on
// every distribution event. Deliberately no history.
type MintRate struct {
	ID                uint            `gorm:"primarykey" json:"-"` // always 1
	EpochId           uint64          `json:"epochId"`
	MintAmount        decimal.Decimal `gorm:"type:decimal(65,0)" json:"mintAmount"`
	FeeAmountConsumed decimal.Decimal `gorm:"type:decimal(65,0)" json:"feeAmountConsumed"`
	Rate              decimal.Decimal `gorm:"type:decimal(65,0)" json:"rate"` // scaled by MintRateScale
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type RespErr struct {
	Err string `json:"error"`
}

func (r RespErr) Error() string {
	return r.Err
}

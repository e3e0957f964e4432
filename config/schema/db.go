package schema

// Param holds the operator-tunable protocol parameters. One row, id 1.
type Param struct {
	ID uint `gorm:"primarykey"`

	InflowLimit          string `json:"inflowLimit"` // bridged token units per epoch
	QueueDelaySeconds    int64  `json:"queueDelaySeconds"`
	EpochDurationSeconds int64  `json:"epochDurationSeconds"`
	EmissionRateBps      int64  `json:"emissionRateBps"` // mintAmount = undistributed * bps / 10000
	Paused               bool   `json:"paused"`
}

type IpRateWhitelist struct {
	OriginOrIP  string // e.g "188.0.2.2"
	Available   bool   `gorm:"index:idx3"` // true means effective
	Description string
}

package schema

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")

	ErrUntrustedPeer = errors.New("untrusted_peer")
	ErrUnknownAction = errors.New("unknown_action")
	ErrBadMessage    = errors.New("bad_message_payload")
	ErrHubOnly       = errors.New("hub_only_operation")
	ErrSpokeOnly     = errors.New("spoke_only_operation")
	ErrNullPayload   = errors.New("null_payload")

	ErrDebtExceeded        = errors.New("debt_exceeded")
	ErrNothingToDistribute = errors.New("nothing_to_distribute")
	ErrNotDistributor      = errors.New("not_distributor")
	ErrNegativeAmount      = errors.New("negative_amount")
	ErrZeroFeeConsumed     = errors.New("zero_fee_consumed")

	ErrBridgePaused        = errors.New("bridge_paused")
	ErrTransferNotReady    = errors.New("transfer_not_ready")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrVaultUnderflow      = errors.New("vault_underflow")
)

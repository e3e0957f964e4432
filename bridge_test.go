package crossfee

import (
	"testing"
	"time"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestEpochIdAt(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, uint64(0), epochIdAt(time.Unix(0, 0), day))
	assert.Equal(t, uint64(0), epochIdAt(time.Unix(86399, 0), day))
	assert.Equal(t, uint64(1), epochIdAt(time.Unix(86400, 0), day))
	assert.Equal(t, uint64(3), epochIdAt(time.Unix(3*86400+5, 0), day))
	assert.Equal(t, uint64(24), epochIdAt(time.Unix(86400, 0), time.Hour))
}

func TestInflowLimitBoundary(t *testing.T) {
	s, _ := newTestSpoke(t)
	assert.NoError(t, s.config.SetInflowLimit(decimal.NewFromInt(100)))

	// exactly at the limit passes
	assert.NoError(t, s.CreditTransfer(testHubDomainId, "alice", decimal.NewFromInt(100)))
	acct, err := s.wdb.GetTokenAccount("alice")
	assert.NoError(t, err)
	assert.Equal(t, "100", acct.Balance.String())

	ec, err := s.wdb.GetEpochCounter(s.currentEpochId())
	assert.NoError(t, err)
	assert.Equal(t, "100", ec.Inflow.String())

	// one over the limit queues, and the counter stays put
	assert.NoError(t, s.CreditTransfer(testHubDomainId, "bob", decimal.NewFromInt(1)))
	acct, _ = s.wdb.GetTokenAccount("bob")
	assert.Equal(t, "0", acct.Balance.String())

	ec, _ = s.wdb.GetEpochCounter(s.currentEpochId())
	assert.Equal(t, "100", ec.Inflow.String())

	pts, err := s.wdb.GetAllPendingTransfers()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(pts))
	assert.Equal(t, "bob", pts[0].Recipient)
	assert.Equal(t, "1", pts[0].Amount.String())
}

func TestQueuedTransferRelease(t *testing.T) {
	s, _ := newTestSpoke(t)
	assert.NoError(t, s.config.SetInflowLimit(decimal.NewFromInt(10)))
	assert.NoError(t, s.config.SetQueueDelaySeconds(3600))

	base := time.Unix(1_700_000_000, 0)
	s.nowFn = func() time.Time { return base }

	assert.NoError(t, s.CreditTransfer(testHubDomainId, "carol", decimal.NewFromInt(50)))
	pts, _ := s.wdb.GetAllPendingTransfers()
	assert.Equal(t, 1, len(pts))
	pt := pts[0]
	assert.Equal(t, base.Unix()+3600, pt.ReadyAt)

	// too early
	err := s.ProcessQueued(pt.EpochIdAtQueue, pt.SourceDomainId, pt.Recipient, pt.Amount, pt.ReadyAt)
	assert.ErrorIs(t, err, schema.ErrTransferNotReady)
	acct, _ := s.wdb.GetTokenAccount("carol")
	assert.Equal(t, "0", acct.Balance.String())

	// past readyAt the release goes through and skips the inflow counter
	s.nowFn = func() time.Time { return base.Add(2 * time.Hour) }
	assert.NoError(t, s.ProcessQueued(pt.EpochIdAtQueue, pt.SourceDomainId, pt.Recipient, pt.Amount, pt.ReadyAt))
	acct, _ = s.wdb.GetTokenAccount("carol")
	assert.Equal(t, "50", acct.Balance.String())

	ec, _ := s.wdb.GetEpochCounter(pt.EpochIdAtQueue)
	assert.Equal(t, "0", ec.Inflow.String())

	// a second release finds nothing
	err = s.ProcessQueued(pt.EpochIdAtQueue, pt.SourceDomainId, pt.Recipient, pt.Amount, pt.ReadyAt)
	assert.ErrorIs(t, err, schema.ErrNotExist)
}

func TestPausedBridge(t *testing.T) {
	s, _ := newTestSpoke(t)
	assert.NoError(t, s.Pause())

	err := s.CreditTransfer(testHubDomainId, "alice", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, schema.ErrBridgePaused)

	err = s.ProcessQueued(0, testHubDomainId, "alice", decimal.NewFromInt(1), 0)
	assert.ErrorIs(t, err, schema.ErrBridgePaused)

	err = s.SendTransfer(testHubDomainId, "alice", "bob", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, schema.ErrBridgePaused)

	assert.NoError(t, s.Unpause())
	assert.NoError(t, s.CreditTransfer(testHubDomainId, "alice", decimal.NewFromInt(1)))
}

func TestSendTransferBurnsBeforeSend(t *testing.T) {
	s, tp := newTestSpoke(t)
	assert.NoError(t, s.CreditTransfer(testHubDomainId, "alice", decimal.NewFromInt(80)))

	assert.NoError(t, s.SendTransfer(testHubDomainId, "alice", "hub-bob", decimal.NewFromInt(30)))

	acct, _ := s.wdb.GetTokenAccount("alice")
	assert.Equal(t, "50", acct.Balance.String())
	circ, _ := s.wdb.GetTokenAccount(schema.CirculatingAccount)
	assert.Equal(t, "50", circ.Balance.String())

	ec, _ := s.wdb.GetEpochCounter(s.currentEpochId())
	assert.Equal(t, "30", ec.Outflow.String())

	msg, ok := tp.last()
	assert.True(t, ok)
	assert.Equal(t, testHubDomainId, msg.dest)
	assert.Equal(t, testSpokeDomainId, msg.env.SourceDomainId)
	assert.Equal(t, testSpokeAddr, msg.env.SourceAddress)
	assert.Equal(t, uint64(1), msg.env.Nonce)
	action, subtype, body, err := schema.DecodeMessageHead(msg.env.Payload)
	assert.NoError(t, err)
	assert.Equal(t, schema.ActionBridge, action)
	assert.Equal(t, schema.BridgeTransferCredit, subtype)
	assert.Contains(t, string(body), `"recipient":"hub-bob"`)
}

func TestSendTransferInsufficientBalance(t *testing.T) {
	s, tp := newTestSpoke(t)
	err := s.SendTransfer(testHubDomainId, "alice", "bob", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, schema.ErrInsufficientBalance)
	assert.Equal(t, 0, tp.count())
}

func TestSendTransferUnknownDomain(t *testing.T) {
	s, _ := newTestSpoke(t)
	err := s.SendTransfer(999, "alice", "bob", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, schema.ErrNotExist)
}

func TestHubCreditNeedsVaultBacking(t *testing.T) {
	s, _ := newTestHub(t)
	err := s.CreditTransfer(testSpokeDomainId, "alice", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, schema.ErrVaultUnderflow)

	// once the spoke reports a lock the vault can back the credit
	assert.NoError(t, s.wdb.LockVault(decimal.NewFromInt(10)))
	assert.NoError(t, s.CreditTransfer(testSpokeDomainId, "alice", decimal.NewFromInt(1)))
	vault, _ := s.wdb.GetTokenAccount(schema.VaultAccount)
	assert.Equal(t, "9", vault.Balance.String())
}

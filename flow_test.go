package crossfee

import (
	"testing"

	"github.com/permadao/crossfee/schema"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// pipeTransport delivers envelopes straight into the destination endpoint's
// inbox, standing in for the message queue.
type pipeTransport struct {
	peers map[uint64]*CrossFee
}

func (p *pipeTransport) Send(destDomainId uint64, env schema.Envelope) error {
	peer, ok := p.peers[destDomainId]
	if !ok {
		return schema.ErrNotExist
	}
	return peer.DispatchMessage(env)
}

func TestHubSpokeFlow(t *testing.T) {
	hub, _ := newTestHub(t)
	spoke, _ := newTestSpoke(t)

	pipe := &pipeTransport{peers: map[uint64]*CrossFee{
		testHubDomainId:   hub,
		testSpokeDomainId: spoke,
	}}
	hub.transport = pipe
	spoke.transport = pipe

	assert.NoError(t, hub.config.SetEmissionRateBps(4000))
	assert.NoError(t, hub.wdb.GrantDistributor(testDistAddr))

	// the spoke harvests 100 of fee token and reports it
	assert.NoError(t, spoke.NotifyAccrual(decimal.NewFromInt(100)))
	rec, err := hub.GetFeeDebt(testSpokeDomainId)
	assert.NoError(t, err)
	assert.Equal(t, "100", rec.Accrued.String())

	// the operator settles the debt on the hub
	assert.NoError(t, hub.SettleFee(testSpokeDomainId, decimal.NewFromInt(100)))

	// distribution mints 40 and pushes the rate event to the spoke
	mintAmount, err := hub.Distribute(testSpokeDomainId, testDistAddr)
	assert.NoError(t, err)
	assert.Equal(t, "40", mintAmount.String())

	vault, _ := hub.wdb.GetTokenAccount(schema.VaultAccount)
	assert.Equal(t, "40", vault.Balance.String())

	// the spoke applied the rate and credited its reward pool
	mr, err := spoke.CurrentMintRate()
	assert.NoError(t, err)
	assert.Equal(t, "400000000000000000", mr.Rate.String()) // 40 * 1e18 / 100
	assert.Equal(t, "100", mr.FeeAmountConsumed.String())

	pool, _ := spoke.wdb.GetTokenAccount(schema.RewardPoolAccount)
	assert.Equal(t, "40", pool.Balance.String())
	circ, _ := spoke.wdb.GetTokenAccount(schema.CirculatingAccount)
	assert.Equal(t, "40", circ.Balance.String())

	// nothing left to distribute
	_, err = hub.Distribute(testSpokeDomainId, testDistAddr)
	assert.ErrorIs(t, err, schema.ErrNothingToDistribute)
}

func TestHubSpokeBridgeRoundTrip(t *testing.T) {
	hub, _ := newTestHub(t)
	spoke, _ := newTestSpoke(t)

	pipe := &pipeTransport{peers: map[uint64]*CrossFee{
		testHubDomainId:   hub,
		testSpokeDomainId: spoke,
	}}
	hub.transport = pipe
	spoke.transport = pipe

	// spoke users locked 100 fee tokens into the native bridge
	assert.NoError(t, spoke.NotifyLock(decimal.NewFromInt(100)))
	vault, _ := hub.wdb.GetTokenAccount(schema.VaultAccount)
	assert.Equal(t, "100", vault.Balance.String())

	// hub credits a user, then the user bridges 30 back toward the spoke
	assert.NoError(t, hub.CreditTransfer(testSpokeDomainId, "alice", decimal.NewFromInt(100)))
	assert.NoError(t, hub.SendTransfer(testSpokeDomainId, "alice", "spoke-alice", decimal.NewFromInt(30)))

	// burn-before-send: the vault re-locked the 30 before the spoke minted it
	vault, _ = hub.wdb.GetTokenAccount(schema.VaultAccount)
	assert.Equal(t, "30", vault.Balance.String())
	acct, _ := spoke.wdb.GetTokenAccount("spoke-alice")
	assert.Equal(t, "30", acct.Balance.String())
	circ, _ := spoke.wdb.GetTokenAccount(schema.CirculatingAccount)
	assert.Equal(t, "30", circ.Balance.String())
}

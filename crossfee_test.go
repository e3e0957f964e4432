package crossfee

import (
	"sync"
	"testing"
	"time"

	"github.com/permadao/crossfee/config"
	"github.com/permadao/crossfee/schema"
	"github.com/stretchr/testify/assert"
)

const (
	testHubDomainId   = uint64(1)
	testSpokeDomainId = uint64(10)

	testHubAddr   = "0x1111111111111111111111111111111111111111"
	testSpokeAddr = "0x2222222222222222222222222222222222222222"
	testDistAddr  = "0x3333333333333333333333333333333333333333"
)

type sentMsg struct {
	dest uint64
	env  schema.Envelope
}

type recordTransport struct {
	lock sync.Mutex
	sent []sentMsg
}

func (t *recordTransport) Send(destDomainId uint64, env schema.Envelope) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.sent = append(t.sent, sentMsg{dest: destDomainId, env: env})
	return nil
}

func (t *recordTransport) last() (sentMsg, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.sent) == 0 {
		return sentMsg{}, false
	}
	return t.sent[len(t.sent)-1], true
}

func (t *recordTransport) count() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.sent)
}

func newTestService(t *testing.T, domainId uint64, canonical bool) (*CrossFee, *recordTransport) {
	dir := t.TempDir()
	wdb := NewSqliteDb(dir)
	assert.NoError(t, wdb.Migrate())

	kv, err := NewBoltStore(dir)
	assert.NoError(t, err)

	registry, err := NewRegistry(wdb)
	assert.NoError(t, err)

	cache, err := NewCache()
	assert.NoError(t, err)

	cfg := config.New("", dir, true)

	tp := &recordTransport{}
	senderAddr := testSpokeAddr
	if canonical {
		senderAddr = testHubAddr
	}
	s := &CrossFee{
		domainId:   domainId,
		canonical:  canonical,
		senderAddr: senderAddr,
		store:      kv,
		wdb:        wdb,
		registry:   registry,
		cache:      cache,
		config:     cfg,
		transport:  tp,
		nowFn:      time.Now,
	}
	s.emission = NewBpsSchedule(cfg)

	t.Cleanup(func() {
		cfg.Close()
		wdb.Close()
		_ = kv.Close()
	})
	return s, tp
}

func newTestHub(t *testing.T) (*CrossFee, *recordTransport) {
	s, tp := newTestService(t, testHubDomainId, true)
	assert.NoError(t, s.registry.RegisterPeer(testSpokeDomainId, testSpokeAddr, false))
	return s, tp
}

func newTestSpoke(t *testing.T) (*CrossFee, *recordTransport) {
	s, tp := newTestService(t, testSpokeDomainId, false)
	assert.NoError(t, s.registry.RegisterPeer(testHubDomainId, testHubAddr, true))
	return s, tp
}

func mustEncode(t *testing.T, action uint32, subtype byte, body interface{}) []byte {
	payload, err := schema.EncodeMessage(action, subtype, body)
	assert.NoError(t, err)
	return payload
}

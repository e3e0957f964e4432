package crossfee

import (
	"strings"
	"testing"

	"github.com/permadao/crossfee/schema"
	"github.com/stretchr/testify/assert"
)

func TestRegistryAuthenticity(t *testing.T) {
	s, _ := newTestHub(t)
	r := s.registry

	assert.True(t, r.IsAuthentic(testSpokeDomainId, testSpokeAddr))
	assert.False(t, r.IsAuthentic(testSpokeDomainId, testDistAddr))
	assert.False(t, r.IsAuthentic(999, testSpokeAddr))
	assert.False(t, r.IsAuthentic(testSpokeDomainId, "not-an-address"))

	// hex addresses compare case-insensitively
	mixed := "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	assert.NoError(t, r.RegisterPeer(40, mixed, false))
	assert.True(t, r.IsAuthentic(40, strings.ToLower(mixed)))
	assert.True(t, r.IsAuthentic(40, strings.ToUpper(mixed[2:])))
}

func TestRegistryRotation(t *testing.T) {
	s, _ := newTestHub(t)
	r := s.registry

	assert.NoError(t, r.RegisterPeer(testSpokeDomainId, testDistAddr, false))

	// old credential is dead immediately, one credential per domain
	assert.False(t, r.IsAuthentic(testSpokeDomainId, testSpokeAddr))
	assert.True(t, r.IsAuthentic(testSpokeDomainId, testDistAddr))
}

func TestRegistryRejectsBadCredential(t *testing.T) {
	s, _ := newTestHub(t)
	err := s.registry.RegisterPeer(20, "zzzz", false)
	assert.ErrorIs(t, err, schema.ErrBadMessage)
	_, ok := s.registry.GetDomain(20)
	assert.False(t, ok)
}

func TestRegistryReload(t *testing.T) {
	s, _ := newTestHub(t)

	// write behind the cache's back, as another replica would
	assert.NoError(t, s.wdb.UpsertDomain(schema.Domain{
		DomainId:       30,
		PeerCredential: testDistAddr,
	}))
	assert.False(t, s.registry.IsAuthentic(30, testDistAddr))

	assert.NoError(t, s.registry.Reload())
	assert.True(t, s.registry.IsAuthentic(30, testDistAddr))
}

func TestRegistryCanonicalFlag(t *testing.T) {
	s, _ := newTestSpoke(t)
	assert.True(t, s.registry.IsCanonicalDomain(testHubDomainId))
	assert.False(t, s.registry.IsCanonicalDomain(testSpokeDomainId))

	hubId, ok := s.hubDomainId()
	assert.True(t, ok)
	assert.Equal(t, testHubDomainId, hubId)
}

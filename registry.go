package crossfee

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/permadao/crossfee/schema"
)

// Registry pins one credential per remote domain. It is the sole perimeter
// defense against forged cross-domain messages; rotation is overwrite.
type Registry struct {
	wdb *Wdb

	lock    sync.RWMutex
	domains map[uint64]schema.Domain
}

func NewRegistry(wdb *Wdb) (*Registry, error) {
	all, err := wdb.GetAllDomains()
	if err != nil {
		return nil, err
	}
	domains := make(map[uint64]schema.Domain, len(all))
	for _, d := range all {
		domains[d.DomainId] = d
	}
	return &Registry{wdb: wdb, domains: domains}, nil
}

func (r *Registry) RegisterPeer(domainId uint64, credential string, isCanonical bool) error {
	if !ethcommon.IsHexAddress(credential) {
		return schema.ErrBadMessage
	}
	domain := schema.Domain{
		DomainId:       domainId,
		PeerCredential: ethcommon.HexToAddress(credential).Hex(),
		IsCanonical:    isCanonical,
	}
	if err := r.wdb.UpsertDomain(domain); err != nil {
		return err
	}
	r.lock.Lock()
	r.domains[domainId] = domain
	r.lock.Unlock()
	return nil
}

func (r *Registry) IsAuthentic(domainId uint64, claimedSender string) bool {
	r.lock.RLock()
	domain, ok := r.domains[domainId]
	r.lock.RUnlock()
	if !ok {
		return false
	}
	if !ethcommon.IsHexAddress(claimedSender) {
		return false
	}
	return ethcommon.HexToAddress(claimedSender) == ethcommon.HexToAddress(domain.PeerCredential)
}

func (r *Registry) IsCanonicalDomain(domainId uint64) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	domain, ok := r.domains[domainId]
	return ok && domain.IsCanonical
}

func (r *Registry) GetDomain(domainId uint64) (schema.Domain, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	domain, ok := r.domains[domainId]
	return domain, ok
}

func (r *Registry) Domains() []schema.Domain {
	r.lock.RLock()
	defer r.lock.RUnlock()
	res := make([]schema.Domain, 0, len(r.domains))
	for _, d := range r.domains {
		res = append(res, d)
	}
	return res
}

// Reload refreshes the cache from db, used by the scheduled jobs so that a
// credential rotated by another replica is picked up.
func (r *Registry) Reload() error {
	all, err := r.wdb.GetAllDomains()
	if err != nil {
		return err
	}
	domains := make(map[uint64]schema.Domain, len(all))
	for _, d := range all {
		domains[d.DomainId] = d
	}
	r.lock.Lock()
	r.domains = domains
	r.lock.Unlock()
	return nil
}

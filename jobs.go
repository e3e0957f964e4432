package crossfee

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/permadao/crossfee/schema"
)

func (s *CrossFee) runJobs() {
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.releaseReadyTransfers)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.refreshRegistry)
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.updateMetrics)

	s.scheduler.StartAsync()
}

// releaseReadyTransfers sweeps queued transfers whose readyAt has passed.
// ProcessQueued stays publicly callable; this job is the convenience path.
func (s *CrossFee) releaseReadyTransfers() {
	if s.config.Paused() {
		return
	}
	pts, err := s.wdb.GetReadyPendingTransfers(s.nowFn().Unix())
	if err != nil {
		log.Error("s.wdb.GetReadyPendingTransfers()", "err", err)
		return
	}
	if len(pts) == 0 {
		return
	}

	pool, err := ants.NewPool(10)
	if err != nil {
		log.Error("ants.NewPool(10)", "err", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, pt := range pts {
		pt := pt
		wg.Add(1)
		_ = pool.Submit(func() {
			defer wg.Done()
			err := s.ProcessQueued(pt.EpochIdAtQueue, pt.SourceDomainId, pt.Recipient, pt.Amount, pt.ReadyAt)
			// ErrNotExist means another releaser won the race
			if err != nil && err != schema.ErrNotExist {
				log.Warn("release queued transfer", "id", pt.ID, "err", err)
			}
		})
	}
	wg.Wait()
}

func (s *CrossFee) refreshRegistry() {
	if err := s.registry.Reload(); err != nil {
		log.Error("s.registry.Reload()", "err", err)
	}
}

func (s *CrossFee) updateMetrics() {
	recs, err := s.wdb.GetAllFeeDebts()
	if err == nil {
		for _, rec := range recs {
			s.metricFeeDebt(rec.SpokeDomainId)
		}
	}
	if pts, err := s.wdb.GetAllPendingTransfers(); err == nil {
		pendingTransferGauge.Set(float64(len(pts)))
	}
	if fms, err := s.wdb.GetAllFailedMessages(); err == nil {
		failedMessageGauge.Set(float64(len(fms)))
	}
	s.metricEpochFlow()
}

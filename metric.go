package crossfee

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricNameSpace = "crossfee"
)

var (
	feeDebtGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "fee_debt",
			Help:      "per-spoke fee debt by phase",
		},
		[]string{"spoke", "phase"},
	)
	pendingTransferGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "pending_transfers",
			Help:      "queued bridge transfers awaiting release",
		},
	)
	failedMessageGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "failed_messages",
			Help:      "dead-lettered envelopes awaiting replay",
		},
	)
	parkedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "parked_messages_total",
			Help:      "envelopes parked since start",
		},
	)
	epochFlowGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "epoch_flow",
			Help:      "current epoch bridged token flow",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		feeDebtGauge,
		pendingTransferGauge,
		failedMessageGauge,
		parkedCounter,
		epochFlowGauge,
	)
}

func (s *CrossFee) metricFeeDebt(spokeDomainId uint64) {
	rec, err := s.wdb.GetFeeDebt(spokeDomainId)
	if err != nil {
		return
	}
	spoke := strconv.FormatUint(spokeDomainId, 10)
	accrued, _ := rec.Accrued.Float64()
	settled, _ := rec.Settled.Float64()
	distributed, _ := rec.Distributed.Float64()
	feeDebtGauge.WithLabelValues(spoke, "accrued").Set(accrued)
	feeDebtGauge.WithLabelValues(spoke, "settled").Set(settled)
	feeDebtGauge.WithLabelValues(spoke, "distributed").Set(distributed)
}

func metricFailedMessageParked() {
	parkedCounter.Inc()
}

func (s *CrossFee) metricEpochFlow() {
	ec, err := s.wdb.GetEpochCounter(s.currentEpochId())
	if err != nil {
		return
	}
	inflow, _ := ec.Inflow.Float64()
	outflow, _ := ec.Outflow.Float64()
	epochFlowGauge.WithLabelValues("inflow").Set(inflow)
	epochFlowGauge.WithLabelValues("outflow").Set(outflow)
}

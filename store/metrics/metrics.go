package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

const namespace = "harvest"

var (
	VerifierMetrics = RegisterVerifierMetrics(prometheus.DefaultRegisterer)
	DBMetrics       = RegisterDBMetrics(prometheus.DefaultRegisterer)
)

// DbStats mirrors the connection pool statistics exposed by the sql drivers.
type DbStats interface {
	MaxOpen() int64
	Open() int64
	InUse() int64
	Idle() int64
	WaitCount() int64
	WaitDuration() time.Duration
	MaxIdleClosed() int64
	MaxLifetimeClosed() int64
}

// VerifierMetricsHandles groups the counters and timers for the vote and
// settlement paths.
type VerifierMetricsHandles struct {
	// The total number of votes applied
	VotesCounter prometheus.Counter
	// The total number of votes rejected as duplicates
	DuplicateVotesCounter prometheus.Counter
	// The total number of reports transitioned to verified
	VerifiedCounter prometheus.Counter
	// The total number of reports transitioned to rejected
	RejectedCounter prometheus.Counter
	// The total number of optimistic-concurrency retries
	ConflictRetriesCounter prometheus.Counter
	// The total number of settlement jobs executed
	SettlementJobsCounter prometheus.Counter
	// The total number of failed reward transfers
	RewardFailuresCounter prometheus.Counter
	// The total number of failed mint requests
	MintFailuresCounter prometheus.Counter

	ApplyVoteTimer  prometheus.Histogram
	SettlementTimer prometheus.Histogram
}

func RegisterVerifierMetrics(reg prometheus.Registerer) VerifierMetricsHandles {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      name,
			Help:      help,
		})
	}
	timer := func(name, help string) prometheus.Histogram {
		return factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "verifier",
			Name:      name,
			Help:      help,
		})
	}
	return VerifierMetricsHandles{
		VotesCounter:           counter("votes_total", "votes applied"),
		DuplicateVotesCounter:  counter("duplicate_votes_total", "votes rejected as duplicates"),
		VerifiedCounter:        counter("verified_total", "reports verified"),
		RejectedCounter:        counter("rejected_total", "reports rejected"),
		ConflictRetriesCounter: counter("conflict_retries_total", "optimistic lock retries"),
		SettlementJobsCounter:  counter("settlement_jobs_total", "settlement jobs executed"),
		RewardFailuresCounter:  counter("reward_failures_total", "failed reward transfers"),
		MintFailuresCounter:    counter("mint_failures_total", "failed mint requests"),
		ApplyVoteTimer:         timer("apply_vote_seconds", "vote application duration"),
		SettlementTimer:        timer("settlement_seconds", "settlement pass duration"),
	}
}

// DBMetricsHandles exports the pool stats as gauges.
type DBMetricsHandles struct {
	maxOpen           prometheus.Gauge
	open              prometheus.Gauge
	inUse             prometheus.Gauge
	idle              prometheus.Gauge
	waitCount         prometheus.Gauge
	waitDuration      prometheus.Gauge
	maxIdleClosed     prometheus.Gauge
	maxLifetimeClosed prometheus.Gauge
}

func RegisterDBMetrics(reg prometheus.Registerer) DBMetricsHandles {
	factory := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      name,
			Help:      help,
		})
	}
	return DBMetricsHandles{
		maxOpen:           gauge("max_open", "maximum open connections"),
		open:              gauge("open", "open connections, in use and idle"),
		inUse:             gauge("in_use", "connections currently in use"),
		idle:              gauge("idle", "idle connections"),
		waitCount:         gauge("wait_count", "total connections waited for"),
		waitDuration:      gauge("wait_seconds", "total time blocked waiting for a connection"),
		maxIdleClosed:     gauge("max_idle_closed", "connections closed by SetMaxIdleConns"),
		maxLifetimeClosed: gauge("max_lifetime_closed", "connections closed by SetConnMaxLifetime"),
	}
}

// Update pushes the current pool stats into the gauges.
func (m DBMetricsHandles) Update(stats DbStats) {
	m.maxOpen.Set(float64(stats.MaxOpen()))
	m.open.Set(float64(stats.Open()))
	m.inUse.Set(float64(stats.InUse()))
	m.idle.Set(float64(stats.Idle()))
	m.waitCount.Set(float64(stats.WaitCount()))
	m.waitDuration.Set(stats.WaitDuration().Seconds())
	m.maxIdleClosed.Set(float64(stats.MaxIdleClosed()))
	m.maxLifetimeClosed.Set(float64(stats.MaxLifetimeClosed()))
}

// ReportAndUpdateDuration logs an operation duration and records it in the
// given timer.
func ReportAndUpdateDuration(msg string, start time.Time, logger log.Logger, timer prometheus.Histogram) {
	since := time.Since(start)
	logger.Trace(msg, "duration", since)
	timer.Observe(since.Seconds())
}

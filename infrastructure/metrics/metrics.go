package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duniter_blocks_total",
		Help: "Total number of processed blocks, by outcome",
	}, []string{"status"})

	revertedBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duniter_reverted_blocks_total",
		Help: "Total number of reverted main branch blocks",
	})

	reforksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duniter_reforks_total",
		Help: "Total number of main branch switches",
	})

	syncedBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duniter_synced_blocks_total",
		Help: "Total number of blocks applied by bulk synchronization",
	})

	blockApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "duniter_block_apply_duration_seconds",
		Help:    "Duration of the application of a block, commit included",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	wotSizeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duniter_wot_size",
		Help: "Number of identities in the web of trust",
	})

	membersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duniter_wot_members",
		Help: "Number of enabled members of the web of trust",
	})

	orphansGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duniter_orphan_blocks",
		Help: "Number of blocks waiting for their parent",
	})

	currentBlockGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duniter_current_block_number",
		Help: "Number of the current block",
	})
)

// RecordBlock records the outcome of the processing of a block
func RecordBlock(status string) {
	blocksTotal.WithLabelValues(status).Inc()
}

// RecordRevertedBlocks records the reversion of count main branch blocks
func RecordRevertedBlocks(count int) {
	revertedBlocksTotal.Add(float64(count))
}

// RecordRefork records a switch of the main branch
func RecordRefork() {
	reforksTotal.Inc()
}

// RecordSyncedBlocks records count blocks applied by bulk synchronization
func RecordSyncedBlocks(count int) {
	syncedBlocksTotal.Add(float64(count))
}

// ObserveBlockApplyDuration records how long the application of a block took
func ObserveBlockApplyDuration(duration time.Duration) {
	blockApplyDuration.Observe(duration.Seconds())
}

// SetWoTSize records the size and the member count of the web of trust
func SetWoTSize(size, members int) {
	wotSizeGauge.Set(float64(size))
	membersGauge.Set(float64(members))
}

// SetOrphanCount records the size of the orphan pool
func SetOrphanCount(count int) {
	orphansGauge.Set(float64(count))
}

// SetCurrentBlockNumber records the number of the current block
func SetCurrentBlockNumber(number uint32) {
	currentBlockGauge.Set(float64(number))
}

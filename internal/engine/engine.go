// Package engine coordinates the lead pipeline: audited stage transitions,
// score recomputation, session deduplication, external cross-referencing,
// and streamed attribution aggregation over the store.
package engine

import (
	"hash/fnv"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/internal/scoring"
	"github.com/sells-group/lead-pipeline/internal/store"
)

// ErrDedupInProgress signals a deduplication request for a session that is
// already being deduplicated. The caller retries later; overlapping runs
// could delete a survivor out from under each other.
var ErrDedupInProgress = eris.New("engine: deduplication already in progress for session")

// ErrHistoryWriteFailed signals that a stage transition was rolled back
// because its audit entry could not be written. Stage and history never
// diverge: no entry, no transition.
var ErrHistoryWriteFailed = eris.New("engine: history write failed, transition rolled back")

// leadLockCount is the size of the striped lock table for per-lead mutual
// exclusion.
const leadLockCount = 64

// Options tunes engine throughput.
type Options struct {
	// PageSize bounds session scans. Default 500.
	PageSize int
	// BatchSize bounds bulk writes (score batches, delete batches). Default 200.
	BatchSize int
	// WriteRatePerSec throttles bulk store writes. Zero disables throttling.
	WriteRatePerSec float64
	// WriteConcurrency caps parallel batch writes. Default 4.
	WriteConcurrency int
	// Retry configures transient-failure retries on bulk writes.
	Retry resilience.RetryConfig
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = 500
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 200
	}
	if o.WriteConcurrency <= 0 {
		o.WriteConcurrency = 4
	}
	return o
}

// Engine is the pipeline facade. Safe for concurrent use.
type Engine struct {
	store store.LeadStore
	rules scoring.Rules
	opts  Options

	leadLocks [leadLockCount]sync.Mutex
	dedupes   sync.Map // session id -> in-flight marker
	limiter   *rate.Limiter
}

// New creates an Engine over the given store and scoring rules.
func New(s store.LeadStore, rules scoring.Rules, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{store: s, rules: rules, opts: opts}
	if opts.WriteRatePerSec > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.WriteRatePerSec), max(int(opts.WriteRatePerSec), 1))
	}
	return e
}

// Rules returns the scoring rules the engine was built with.
func (e *Engine) Rules() scoring.Rules {
	return e.rules
}

// lockFor returns the stripe lock guarding a lead ID.
func (e *Engine) lockFor(leadID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(leadID)) //nolint:errcheck
	return &e.leadLocks[h.Sum32()%leadLockCount]
}

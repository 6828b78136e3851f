package collector

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rawblock/ptk-huim/internal/numeric"
	"github.com/rawblock/ptk-huim/internal/upu"
	"github.com/rawblock/ptk-huim/pkg/model"
)

// lazySafetyMargin is the fraction of the latest known θ used as the
// cached fast-reject bound. Because it is always <= the true θ, rejecting
// a candidate against it can never falsely reject one that would have
// passed the true check (§4.7, §9 open question).
const lazySafetyMargin = 0.95

// Lazy fronts a single Baseline collector with a buffered, non-blocking
// queue. Once the underlying collector is full, candidates below the
// cached (conservative) threshold are rejected without ever touching the underlying collector's lock;
// everything else is enqueued and applied by a periodic drain that
// acquires the lock once for the whole batch. Snapshot drains
// synchronously before returning, so it always reflects every candidate
// offered before the call.
//
// Grounded on internal/mempool/poller.go's periodic-ticker broadcast loop
// (Poller.Run), generalized from "periodically push accumulated state
// outward" to "periodically pull accumulated candidates inward."
type Lazy struct {
	inner *Baseline

	queue chan *upu.List

	drainMu sync.Mutex // serializes drains, so Snapshot waits for an in-flight one

	cachedTheta atomic.Value // float64

	stop chan struct{}
	done chan struct{}
}

// NewLazy creates a lazy-batched collector retaining at most k patterns.
// drainInterval controls how often the background goroutine applies
// queued candidates; Close must be called once mining finishes to stop
// that goroutine.
func NewLazy(k int, drainInterval time.Duration, onAdmit func(model.Pattern, float64)) *Lazy {
	l := &Lazy{
		inner: NewBaseline(k, onAdmit),
		queue: make(chan *upu.List, 4096),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	l.cachedTheta.Store(0.0)

	if drainInterval <= 0 {
		drainInterval = time.Millisecond
	}
	go l.drainLoop(drainInterval)
	return l
}

func (l *Lazy) drainLoop(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			l.drain()
			return
		case <-ticker.C:
			l.drain()
		}
	}
}

// drain applies every currently-queued candidate to the underlying
// collector and refreshes the cached reject bound from its new θ.
func (l *Lazy) drain() {
	l.drainMu.Lock()
	defer l.drainMu.Unlock()
	for {
		select {
		case cand := <-l.queue:
			l.inner.TryAdmit(cand)
		default:
			theta := l.inner.AdmissionThreshold()
			cached := lazySafetyMargin * theta
			if cached > theta {
				// A negative θ scaled by the margin would rise above θ.
				cached = theta
			}
			l.cachedTheta.Store(cached)
			return
		}
	}
}

// Close stops the background drain goroutine, applying any remaining
// queued candidates first.
func (l *Lazy) Close() {
	close(l.stop)
	<-l.done
}

func (l *Lazy) TryAdmit(candidate *upu.List) bool {
	cached := l.cachedTheta.Load().(float64)
	if l.inner.atCapacityFast() && numeric.Less(candidate.ExpectedUtility, cached) {
		return false
	}
	select {
	case l.queue <- candidate:
		return true
	default:
		// Queue saturated: fall back to a direct (locked) admit rather
		// than silently dropping a candidate that passed the fast check.
		return l.inner.TryAdmit(candidate)
	}
}

// AdmissionThreshold returns the cached conservative bound, not the
// underlying collector's true θ — reading the true θ would require the
// lock this variant exists to avoid contending on.
func (l *Lazy) AdmissionThreshold() float64 {
	return l.cachedTheta.Load().(float64)
}

// Snapshot drains synchronously, so it always reflects every candidate
// offered before the call, then defers to the underlying collector.
func (l *Lazy) Snapshot() []model.Pattern {
	l.drain()
	return l.inner.Snapshot()
}

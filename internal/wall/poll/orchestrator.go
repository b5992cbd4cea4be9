// Package poll schedules the wall's device-list fetches: adaptive
// interval on success, exponential backoff with snapshot fallback on
// failure, and last-fetch-wins discarding of superseded responses.
package poll

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
)

// Poll intervals selectable from the wall.
const (
	IntervalFast   = 2 * time.Second
	IntervalNormal = 5 * time.Second
	IntervalSlow   = 10 * time.Second

	BaseBackoff = 15 * time.Second
	MaxBackoff  = 120 * time.Second
)

// Fetcher retrieves the aggregated device list from the server.
type Fetcher interface {
	FetchDevices(ctx context.Context) (domain.DeviceList, error)
}

// Update is delivered to the renderer after every settled fetch.
type Update struct {
	List       domain.DeviceList
	Stale      bool // List came from the fallback snapshot
	CapturedAt time.Time
	Err        error // last fetch error, nil on success
	ErrorCount int
	NextPoll   time.Time
}

// Backoff returns the retry delay after errCount consecutive failures:
// 15s, 30s, 60s, 120s, then capped.
func Backoff(errCount int) time.Duration {
	if errCount < 1 {
		errCount = 1
	}
	if errCount > 4 {
		return MaxBackoff
	}
	d := BaseBackoff << (errCount - 1)
	if d > MaxBackoff {
		return MaxBackoff
	}
	return d
}

// Orchestrator keeps exactly one fetch in flight and one pending timer.
// Refresh and interval changes cancel the pending schedule; a fetch
// superseded by a newer one has its response discarded.
type Orchestrator struct {
	fetcher  Fetcher
	snapshot *Snapshot
	updates  chan Update
	kick     chan struct{}
	nudge    chan struct{}

	mu       sync.Mutex
	interval time.Duration

	mutations atomic.Uint64

	// loop-owned state
	errorCount int
	lastGood   *domain.DeviceList
	goodAt     time.Time
}

// NewOrchestrator builds an orchestrator polling at interval. snapshot
// may be backed by an empty path to disable fallback persistence.
func NewOrchestrator(fetcher Fetcher, snapshot *Snapshot, interval time.Duration) *Orchestrator {
	if interval <= 0 {
		interval = IntervalNormal
	}
	return &Orchestrator{
		fetcher:  fetcher,
		snapshot: snapshot,
		updates:  make(chan Update, 8),
		kick:     make(chan struct{}, 1),
		nudge:    make(chan struct{}, 1),
		interval: interval,
	}
}

// Updates is the stream of settled fetch results.
func (o *Orchestrator) Updates() <-chan Update { return o.updates }

// Refresh cancels the pending schedule and fetches immediately.
func (o *Orchestrator) Refresh() {
	select {
	case o.kick <- struct{}{}:
	default:
	}
}

// SetInterval switches the success-path poll interval and refetches.
func (o *Orchestrator) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	o.mu.Lock()
	o.interval = d
	o.mu.Unlock()
	o.Refresh()
}

// Interval returns the current success-path interval.
func (o *Orchestrator) Interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

// NoteMutation records a local optimistic mutation. A response from a
// fetch issued before the mutation still lands, but a fast follow-up is
// scheduled instead of waiting out the full interval.
func (o *Orchestrator) NoteMutation() {
	o.mutations.Add(1)
	select {
	case o.nudge <- struct{}{}:
	default:
	}
}

type settled struct {
	id      uint64
	mutSeen uint64
	list    domain.DeviceList
	err     error
}

// Run drives the poll loop until ctx is cancelled. The first fetch is
// immediate.
func (o *Orchestrator) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	results := make(chan settled, 1)
	var nextID, acceptID uint64
	var fetching bool
	var cancelFetch context.CancelFunc

	launch := func() {
		if cancelFetch != nil {
			cancelFetch()
		}
		fctx, cancel := context.WithCancel(ctx)
		cancelFetch = cancel
		nextID++
		id := nextID
		acceptID = id
		fetching = true
		mutSeen := o.mutations.Load()
		go func() {
			list, err := o.fetcher.FetchDevices(fctx)
			select {
			case results <- settled{id: id, mutSeen: mutSeen, list: list, err: err}:
			case <-ctx.Done():
			}
		}()
	}

	stopTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if cancelFetch != nil {
				cancelFetch()
			}
			return
		case <-timer.C:
			launch()
		case <-o.kick:
			stopTimer()
			launch()
		case <-o.nudge:
			// Mutation with no fetch in flight: pull server truth soon.
			if !fetching {
				stopTimer()
				timer.Reset(IntervalFast)
			}
		case res := <-results:
			if res.id != acceptID {
				continue // superseded, last fetch wins
			}
			fetching = false
			delay := o.settle(res)
			if o.mutations.Load() != res.mutSeen {
				// A mutation raced this fetch; don't trust its staleness.
				delay = IntervalFast
			}
			stopTimer()
			timer.Reset(delay)
		}
	}
}

func (o *Orchestrator) settle(res settled) time.Duration {
	now := time.Now()
	if res.err == nil {
		o.errorCount = 0
		o.lastGood = &res.list
		o.goodAt = now
		if err := o.snapshot.Save(res.list, now); err != nil {
			slog.Warn("snapshot save failed", "error", err)
		}
		delay := o.Interval()
		o.emit(Update{
			List:       res.list,
			CapturedAt: now,
			NextPoll:   now.Add(delay),
		})
		return delay
	}

	o.errorCount++
	delay := Backoff(o.errorCount)
	up := Update{
		Err:        res.err,
		ErrorCount: o.errorCount,
		NextPoll:   now.Add(delay),
	}
	if o.lastGood == nil {
		if list, at, err := o.snapshot.Load(); err == nil {
			o.lastGood = &list
			o.goodAt = at
		}
	}
	if o.lastGood != nil && len(o.lastGood.Devices) > 0 {
		up.List = *o.lastGood
		up.Stale = true
		up.CapturedAt = o.goodAt
	}
	o.emit(up)
	return delay
}

func (o *Orchestrator) emit(up Update) {
	select {
	case o.updates <- up:
	default:
		// Renderer fell behind; drop the oldest and keep the fresh one.
		select {
		case <-o.updates:
		default:
		}
		select {
		case o.updates <- up:
		default:
		}
	}
}

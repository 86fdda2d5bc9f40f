package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/driftline/intentd/internal/config"
	"github.com/driftline/intentd/internal/decay"
	"github.com/driftline/intentd/internal/store"
	"github.com/driftline/intentd/internal/taxonomy"
	"github.com/driftline/intentd/internal/telemetry"
)

const msPerDay = 24 * 60 * 60 * 1000

// Engine owns all EntityScore mutation. It recomputes scores on ingest and on
// the periodic sweep, serialized per entity via keyed locks.
type Engine struct {
	DB       *store.DB
	Registry *taxonomy.Registry
	Cache    *Cache

	// Now is the injected clock basis for decay. Tests freeze it.
	Now func() time.Time

	cfg    config.ScoringConfig
	inst   *telemetry.Instruments
	locks  *entityLocks
	stopCh chan struct{}
	wg     sync.WaitGroup

	// sweepCancel cancels the in-flight sweep on Stop. Without it, Stop would
	// sit behind the whole batch instead of just the current entity.
	sweepCancel context.CancelFunc
}

// New creates an Engine. inst may be nil when telemetry is disabled.
func New(db *store.DB, reg *taxonomy.Registry, cache *Cache, cfg config.ScoringConfig, inst *telemetry.Instruments) *Engine {
	return &Engine{
		DB:       db,
		Registry: reg,
		Cache:    cache,
		Now:      time.Now,
		cfg:      cfg,
		inst:     inst,
		locks:    newEntityLocks(),
		stopCh:   make(chan struct{}),
	}
}

// OnIngest validates and persists a new signal event, then synchronously
// recomputes the affected entity. Contact signals tagged with a parent company
// also trigger a company recompute at the configured multiplier.
//
// The event is either fully persisted with scoring attempted, or not
// persisted at all: validation happens before the write, and the write is a
// single insert.
func (e *Engine) OnIngest(ctx context.Context, ev *store.SignalEvent) (*store.EntityScore, error) {
	if ev.EntityType != store.EntityCompany && ev.EntityType != store.EntityContact {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntityType, ev.EntityType)
	}
	if ev.Confidence < 0 || ev.Confidence > 1 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidConfidence, ev.Confidence)
	}
	if _, err := e.Registry.Lookup(ev.SignalType); err != nil {
		e.inst.SignalRejected(ctx)
		return nil, fmt.Errorf("%w: %q", ErrUnknownSignalType, ev.SignalType)
	}

	if err := e.withRetry(ctx, func() error { return e.DB.Append(ctx, ev) }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.inst.SignalIngested(ctx)

	snapshot, err := e.Recompute(ctx, ev.EntityID, ev.EntityType)
	if err != nil {
		return nil, err
	}

	if ev.EntityType == store.EntityContact && ev.CompanyID != "" {
		if _, err := e.Recompute(ctx, ev.CompanyID, store.EntityCompany); err != nil {
			// The contact's score is already updated; a company rollup failure
			// is repaired by the next sweep.
			log.Printf("rollup recompute for company %s: %v", ev.CompanyID, err)
		}
	}
	return snapshot, nil
}

// DismissSignal marks an active signal dismissed and recomputes the affected
// entity (and parent company for contact signals). Returns the entity's
// post-recompute snapshot.
func (e *Engine) DismissSignal(ctx context.Context, signalID string) (*store.EntityScore, error) {
	ev, err := e.DB.GetSignal(ctx, signalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: signal %s", ErrNotFound, signalID)
	}
	updated, err := e.DB.Dismiss(ctx, signalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !updated {
		return nil, fmt.Errorf("%w: signal %s is %s", ErrSignalNotActive, signalID, ev.Status)
	}

	snapshot, err := e.Recompute(ctx, ev.EntityID, ev.EntityType)
	if err != nil {
		return nil, err
	}
	if ev.EntityType == store.EntityContact && ev.CompanyID != "" {
		if _, err := e.Recompute(ctx, ev.CompanyID, store.EntityCompany); err != nil {
			log.Printf("rollup recompute for company %s: %v", ev.CompanyID, err)
		}
	}
	return snapshot, nil
}

// Recompute rebuilds one entity's score from its active signals. Serialized
// per entity; bounded by the configured recompute timeout.
func (e *Engine) Recompute(ctx context.Context, entityID, entityType string) (*store.EntityScore, error) {
	mu := e.locks.get(entityID)
	mu.Lock()
	defer mu.Unlock()

	timeout := time.Duration(e.cfg.RecomputeTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := e.recomputeLocked(rctx, entityID, entityType)
	if err != nil {
		e.inst.RecomputeError(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: entity %s", ErrRecomputeTimeout, entityID)
		}
		return nil, err
	}
	e.inst.Recomputed(ctx)
	return snapshot, nil
}

// recomputeLocked does the actual scoring pass. Caller holds the entity lock.
func (e *Engine) recomputeLocked(ctx context.Context, entityID, entityType string) (*store.EntityScore, error) {
	now := e.Now()

	prior, err := e.DB.GetScore(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	own, err := e.DB.ListActive(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	total := 0.0
	count := 0
	strongest := ""
	strongestContribution := -1.0

	consider := func(c float64, signalType string) {
		total += c
		count++
		if c > strongestContribution || (c == strongestContribution && signalType < strongest) {
			strongest = signalType
			strongestContribution = c
		}
	}

	for i := range own {
		c, expired, err := e.contribution(ctx, &own[i], now, true)
		if err != nil {
			return nil, err
		}
		if expired {
			continue
		}
		consider(c, own[i].SignalType)
	}

	// Companies also absorb their contacts' signals at a reduced weight: an
	// individual's engagement is a weaker indicator of company-level intent.
	if entityType == store.EntityCompany {
		rollups, err := e.DB.ListActiveContactSignals(ctx, entityID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		for i := range rollups {
			c, expired, err := e.contribution(ctx, &rollups[i], now, false)
			if err != nil {
				return nil, err
			}
			if expired {
				continue
			}
			consider(c*e.cfg.ContactCompanyWeight, rollups[i].SignalType)
		}
	}

	score := decay.Clamp(total, e.cfg.ScoreMin, e.cfg.ScoreMax)

	next := &store.EntityScore{
		EntityID:            entityID,
		EntityType:          entityType,
		OverallScore:        score,
		IntentCategory:      decay.Classify(score),
		StrongestSignalType: strongest,
		ActiveSignalCount:   count,
		LastRecomputedAt:    now.UnixMilli(),
	}

	switch {
	case count == 0:
		// All signals gone: drive to zero and report stable, not falling.
		next.ScoreTrend = decay.TrendStable
		if prior != nil {
			next.PreviousScore = prior.OverallScore
		}
	case prior == nil:
		// Lazily created on first signal.
		next.ScoreTrend = decay.Trend(0, score, e.cfg.TrendThreshold)
	case prior.OverallScore == score && prior.ActiveSignalCount == count && prior.StrongestSignalType == strongest:
		// Nothing moved; keep the trend rather than rotating it to stable.
		// This keeps back-to-back sweeps idempotent.
		next.ScoreTrend = prior.ScoreTrend
		next.PreviousScore = prior.PreviousScore
	default:
		next.ScoreTrend = decay.Trend(prior.OverallScore, score, e.cfg.TrendThreshold)
		next.PreviousScore = prior.OverallScore
	}

	if err := e.DB.SaveScore(ctx, next); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	e.Cache.Put(*next)
	return next, nil
}

// contribution computes one signal's current contribution. own says whether
// the signal belongs to the entity currently locked: only then may it be
// expired in the store. A company recompute sees its contacts' signals through
// the rollup but must not transition them; the contact would keep a stale
// score row and, with no active signals left, never be visited by a sweep
// again. The owner's own recompute does the expiry and zeroes the score.
func (e *Engine) contribution(ctx context.Context, ev *store.SignalEvent, now time.Time, own bool) (float64, bool, error) {
	entry, err := e.Registry.Lookup(ev.SignalType)
	if err != nil {
		// Taxonomy changed underneath a stored signal. Treat as expired so a
		// removed signal type stops contributing.
		log.Printf("recompute: signal %s has unregistered type %q, expiring", ev.ID, ev.SignalType)
		if own {
			if err := e.DB.Expire(ctx, ev.ID); err != nil {
				return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		return 0, true, nil
	}

	ageDays := float64(now.UnixMilli()-ev.DetectedAt) / msPerDay
	if ageDays < 0 {
		log.Printf("recompute: signal %s detected_at is in the future, treating as age 0", ev.ID)
		ageDays = 0
	}
	if ageDays >= float64(entry.MaxAgeDays) {
		if own {
			if err := e.DB.Expire(ctx, ev.ID); err != nil {
				return 0, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
			e.inst.SignalExpired(ctx)
		}
		return 0, true, nil
	}
	return decay.Contribution(entry, ageDays, ev.Confidence), false, nil
}

// Sweep visits every entity with at least one active signal, expires aged-out
// signals and recomputes scores. Per-entity errors are logged and skipped.
// Cancelling ctx stops the sweep between entities; the entity currently being
// recomputed always finishes.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	refs, err := e.DB.EntitiesWithActiveSignals(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	workers := e.cfg.SweepWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan store.EntityRef)
	var wg sync.WaitGroup
	var mu sync.Mutex
	swept := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				// The recompute context is deliberately not derived from the
				// sweep context: an in-flight entity finishes even during
				// shutdown, so an expire/recompute pair is never torn.
				if _, err := e.Recompute(context.Background(), ref.EntityID, ref.EntityType); err != nil {
					log.Printf("sweep: recompute %s: %v", ref.EntityID, err)
					continue
				}
				mu.Lock()
				swept++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, ref := range refs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- ref:
		}
	}
	close(jobs)
	wg.Wait()

	e.inst.SweepCompleted(ctx)
	return swept, ctx.Err()
}

// StartSweepTimer runs a sweep at startup and then on the configured
// interval until Stop is called.
func (e *Engine) StartSweepTimer(interval time.Duration) {
	runSweep := func(ctx context.Context) {
		if n, err := e.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("sweep error: %v", err)
		} else if n > 0 {
			log.Printf("sweep: recomputed %d entities", n)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.sweepCancel = cancel
	runSweep(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runSweep(ctx)
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop cancels any in-flight sweep and shuts down the scheduler. The entity
// currently being recomputed finishes; no further entities are fed.
func (e *Engine) Stop() {
	close(e.stopCh)
	if e.sweepCancel != nil {
		e.sweepCancel()
	}
	e.wg.Wait()
}

// withRetry retries transient store failures with doubling backoff, up to the
// configured attempt count.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	attempts := e.cfg.StoreRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := 50 * time.Millisecond

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

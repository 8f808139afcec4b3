// Package engine drives the tonal analysis pipeline: it pulls frames from a
// FrameSource on a fixed interval, runs pitch, chroma, key and scale
// inference, and publishes one Snapshot per tick to its subscribers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-tonal/algorithms/accel"
	"github.com/RyanBlaney/sonido-tonal/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/logging"
	"github.com/RyanBlaney/sonido-tonal/metrics"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// Subscription delivers snapshots. C is buffered; when a subscriber falls
// behind the oldest pending snapshot is dropped in favour of the newest.
type Subscription struct {
	ID string
	C  <-chan Snapshot

	ch chan Snapshot
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces time.Now, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder metrics.Recorder) Option {
	return func(e *Engine) {
		if recorder != nil {
			e.metrics = recorder
		}
	}
}

// WithCatalog sets the shared scale template catalog
func WithCatalog(catalog *theory.Catalog) Option {
	return func(e *Engine) {
		if catalog != nil {
			e.catalog = catalog
		}
	}
}

// WithStrategy sets the acceleration strategy for the pitch detectors
func WithStrategy(strategy accel.Strategy) Option {
	return func(e *Engine) {
		if strategy != nil {
			e.strategy = strategy
		}
	}
}

// Engine is the tonal analysis state machine. All methods are safe for
// concurrent use; ticks and lifecycle transitions are serialized.
type Engine struct {
	cfg      Config
	source   FrameSource
	logger   logging.Logger
	metrics  metrics.Recorder
	catalog  *theory.Catalog
	strategy accel.Strategy
	now      func() time.Time

	mu          sync.Mutex
	state       State
	generation  uint64
	cancel      context.CancelFunc
	snapshot    Snapshot
	subscribers map[string]*Subscription

	// halted is set by Stop before it takes the lock so an in-flight tick
	// drops its result
	halted atomic.Bool

	pitch      *tonal.PitchEstimator
	stabilizer *tonal.NoteStabilizer
	extractor  *chroma.Extractor
	history    *chroma.History
	ledger     *evidence.Ledger
	keys       *tonal.KeyEstimator
	scales     *tonal.ScaleInterpolator

	keyHistogram map[string]int
}

// New creates an Idle engine reading from src
func New(src FrameSource, cfg Config, opts ...Option) (*Engine, error) {
	if src == nil {
		return nil, ErrNoSource
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:         cfg,
		source:      src,
		logger:      logging.GetGlobalLogger(),
		metrics:     metrics.Noop{},
		catalog:     theory.DefaultCatalog(),
		strategy:    accel.Default(),
		now:         time.Now,
		subscribers: make(map[string]*Subscription),
		snapshot:    idleSnapshot(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithFields(logging.Fields{
		"component": "engine",
		"source":    src.Name(),
	})

	e.pitch = tonal.NewPitchEstimatorWithParams(cfg.Pitch, e.strategy)
	e.stabilizer = tonal.NewNoteStabilizer(cfg.Stabilizer)
	e.extractor = chroma.NewExtractor(cfg.Chroma)
	e.history = chroma.NewHistory(cfg.ChromaHistory)
	e.ledger = evidence.NewLedger(cfg.Ledger)
	e.keys = tonal.NewKeyEstimatorWithParams(cfg.Key)
	e.scales = tonal.NewScaleInterpolator(e.catalog, cfg.Scale)
	e.keyHistogram = make(map[string]int)

	return e, nil
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the most recently emitted snapshot
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// Catalog returns the scale template catalog the engine scores against
func (e *Engine) Catalog() *theory.Catalog {
	return e.catalog
}

// Start acquires the frame source, clears all rolling state and begins
// ticking. Starting a Listening engine is a no-op. If the source fails to
// start the engine stays Idle and an *AcquisitionError is returned.
// Cancelling ctx stops the engine.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == Listening {
		return nil
	}

	if err := e.source.Start(ctx); err != nil {
		e.metrics.Count(metrics.Acquisition, 1)
		e.logger.Error(err, "frame source failed to start")
		return &AcquisitionError{Source: e.source.Name(), Err: err}
	}

	e.resetLocked()
	e.halted.Store(false)
	e.state = Listening
	e.generation++
	gen := e.generation

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	snap := idleSnapshot()
	snap.IsListening = true
	snap.AccelerationAvailable = e.strategy.Accelerated()
	e.publishLocked(snap)

	e.logger.Info("engine listening", logging.Fields{
		"sample_rate":   e.cfg.SampleRate,
		"window_size":   e.cfg.WindowSize,
		"tick_interval": e.cfg.TickInterval.String(),
		"acceleration":  e.strategy.Name(),
	})

	if e.cfg.TickInterval > 0 {
		go e.run(runCtx, gen)
	} else {
		go e.watch(runCtx, gen)
	}
	return nil
}

// Stop cancels ticking, releases the frame source, clears all state and
// emits one terminal Idle snapshot. It is safe to call repeatedly; every
// call emits the same terminal snapshot.
func (e *Engine) Stop() {
	e.halted.Store(true)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	wasListening := e.state == Listening
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if wasListening {
		if err := e.source.Stop(); err != nil {
			e.logger.Warn("frame source stop failed", logging.Fields{"error": err.Error()})
		}
		e.logger.Info("engine stopped")
	}

	e.resetLocked()
	e.state = Idle
	e.publishLocked(idleSnapshot())
}

// Tick runs one analysis pass immediately. It is a no-op unless Listening.
// With a zero TickInterval this is the only way ticks happen.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Listening {
		return
	}
	e.tickLocked()
}

// run drives ticks until ctx is done. time.Ticker drops ticks for slow
// receivers, so a long tick skips rather than queues the next one.
func (e *Engine) run(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.stopGeneration(gen)
			return
		case <-ticker.C:
			started := time.Now()
			e.mu.Lock()
			if e.state == Listening && e.generation == gen {
				e.tickLocked()
			}
			e.mu.Unlock()
			if missed := int64(time.Since(started) / e.cfg.TickInterval); missed > 0 {
				e.metrics.Count(metrics.TickSkipped, missed)
			}
		}
	}
}

// watch stops a manually ticked engine when its context ends
func (e *Engine) watch(ctx context.Context, gen uint64) {
	<-ctx.Done()
	e.stopGeneration(gen)
}

// stopGeneration stops the engine if it is still in the run identified by gen
func (e *Engine) stopGeneration(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Listening && e.generation == gen {
		e.halted.Store(true)
		e.stopLocked()
	}
}

func (e *Engine) resetLocked() {
	e.stabilizer.Reset()
	e.history.Clear()
	e.ledger.Clear()
	clear(e.keyHistogram)
}

func (e *Engine) checkFrame(frame Frame) {
	if len(frame.TimeDomain) != e.cfg.WindowSize {
		panic(fmt.Sprintf("engine: frame source %s returned %d time-domain samples, want %d",
			e.source.Name(), len(frame.TimeDomain), e.cfg.WindowSize))
	}
	if len(frame.SpectrumDB) != e.cfg.WindowSize/2 {
		panic(fmt.Sprintf("engine: frame source %s returned %d spectrum bins, want %d",
			e.source.Name(), len(frame.SpectrumDB), e.cfg.WindowSize/2))
	}
	if frame.SampleRate != e.cfg.SampleRate {
		panic(fmt.Sprintf("engine: frame source %s reports %d Hz, want %d Hz",
			e.source.Name(), frame.SampleRate, e.cfg.SampleRate))
	}
}

func (e *Engine) tickLocked() {
	started := time.Now()
	now := e.now()

	frame := e.source.Frame()
	e.checkFrame(frame)

	rms := common.RMS(frame.TimeDomain)
	silent := rms < e.cfg.Stabilizer.SilenceRMS

	estimate, ok := e.pitch.Estimate(frame.TimeDomain, frame.SpectrumDB)
	stable := e.stabilizer.Update(estimate, ok, rms, now)
	if stable.Event != nil {
		e.recordNote(*stable.Event)
	}

	var cv chroma.ChromaVector
	if !silent {
		cv = e.extractor.Extract(frame.SpectrumDB, frame.SampleRate)
		e.history.Push(cv)
	}

	events := e.ledger.Events()
	summary := evidence.Summarize(events)
	prior := evidence.ComputePrior(events, summary, now, e.cfg.Prior)

	key := e.keys.Estimate(e.history, prior)
	if key.Found && key.Confidence > e.cfg.HistogramMinConfidence && !silent {
		e.keyHistogram[key.Key.Label()]++
		e.metrics.Count(metrics.KeyDetected, 1, "key:"+key.Key.Label())
	}

	candidates := e.scales.Interpolate(summary)

	if e.halted.Load() {
		return
	}

	snap := e.buildSnapshot(stable, cv, rms, key, summary, candidates)
	e.publishLocked(snap)

	e.metrics.Gauge(metrics.InputLevel, snap.InputLevel)
	e.metrics.Timing(metrics.TickDuration, time.Since(started))
}

func (e *Engine) recordNote(ev evidence.NoteEvent) {
	if err := e.ledger.Append(ev); err != nil {
		e.logger.Warn("note rejected", logging.Fields{"error": err.Error()})
		return
	}
	e.metrics.Count(metrics.NotesRecorded, 1, "pitch_class:"+ev.PitchClass.String())
	e.logger.Debug("note recorded", logging.Fields{
		"pitch_class": ev.PitchClass.String(),
		"duration":    ev.Duration.String(),
		"confidence":  ev.Confidence,
	})
}

func (e *Engine) buildSnapshot(stable tonal.StabilizedFrame, cv chroma.ChromaVector, rms float64,
	key tonal.KeyEstimate, summary evidence.Summary, candidates []tonal.ScaleCandidate) Snapshot {

	snap := idleSnapshot()
	snap.IsListening = true
	snap.AccelerationAvailable = e.strategy.Accelerated()
	snap.Chroma = cv
	snap.InputLevel = common.Clamp01(rms)
	snap.ScaleCandidates = candidates
	snap.TotalNotesObserved = e.ledger.TotalObserved()

	if stable.HasNote {
		snap.CurrentNote = newCurrentNote(stable.Note)
		freq := stable.Note.Frequency
		snap.CurrentNoteFrequency = &freq
	}

	if key.Found {
		snap.DetectedKey = newDetectedKey(key.Key)
		snap.KeyConfidence = key.Confidence
	}

	for label, n := range e.keyHistogram {
		snap.KeyHistogram[label] = n
	}

	occurrences := e.ledger.Occurrences()
	for pc, n := range occurrences {
		if n > 0 {
			snap.PitchClassOccurrences[theory.PitchClass(pc)] = n
		}
	}
	for pc, c := range summary.Classes {
		if c.Count > 0 {
			snap.PitchClassCompetence[theory.PitchClass(pc)] = c.Competence
		}
	}

	for _, ev := range e.ledger.Recent(e.cfg.RecentNotes) {
		snap.RecentNotes = append(snap.RecentNotes, ev.PitchClass)
	}

	return snap
}

// Subscribe registers a subscriber. The current snapshot is delivered
// immediately.
func (e *Engine) Subscribe() *Subscription {
	depth := max(e.cfg.SubscriptionBuffer, 1)
	ch := make(chan Snapshot, depth)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers[sub.ID] = sub
	deliver(sub, e.snapshot)
	e.metrics.Gauge(metrics.Subscribers, float64(len(e.subscribers)))
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. No snapshot is
// delivered to it after Unsubscribe returns.
func (e *Engine) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.subscribers[sub.ID]; !ok {
		return
	}
	delete(e.subscribers, sub.ID)
	close(sub.ch)
	e.metrics.Gauge(metrics.Subscribers, float64(len(e.subscribers)))
}

func (e *Engine) publishLocked(snap Snapshot) {
	e.snapshot = snap
	for _, sub := range e.subscribers {
		deliver(sub, snap)
	}
}

// deliver sends without blocking, evicting the oldest pending snapshot
// when the buffer is full. Only called with the engine lock held, so the
// engine is the sole sender.
func deliver(sub *Subscription, snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}

// File: pool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool owns the environments, the action queue, the state buffer ring and the
// workers. Send, Reset and Recv validate on the caller's goroutine and never
// touch an env without holding its mutex.

package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/envpool/adapters"
	"github.com/momentics/envpool/api"
	"github.com/momentics/envpool/array"
	"github.com/momentics/envpool/control"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/envspec"
	"github.com/momentics/envpool/internal/concurrency"
	"github.com/momentics/envpool/internal/statebuf"
)

// handle is one env plus the state the pool keeps for it.
type handle struct {
	mu         sync.Mutex
	env        env.Env
	action     env.Action
	elapsed    int
	needsReset bool
}

type counters struct {
	sendCalls  *atomic.Int64
	sendNanos  *atomic.Int64
	recvCalls  *atomic.Int64
	recvNanos  *atomic.Int64
	steps      *atomic.Int64
	stepErrors *atomic.Int64
	skipped    *atomic.Int64
}

func newCounters(mr *control.MetricsRegistry) counters {
	return counters{
		sendCalls:  mr.Counter("send.calls"),
		sendNanos:  mr.Counter("send.duration_ns"),
		recvCalls:  mr.Counter("recv.calls"),
		recvNanos:  mr.Counter("recv.duration_ns"),
		steps:      mr.Counter("worker.steps"),
		stepErrors: mr.Counter("worker.step_errors"),
		skipped:    mr.Counter("worker.skipped"),
	}
}

// Pool is a vectorized environment. Send, Reset, Recv and Close must be
// called from one goroutine.
type Pool struct {
	id     string
	spec   *envspec.Spec
	cfg    envspec.Config
	isSync bool
	log    *slog.Logger

	envs  []*handle
	queue *concurrency.ActionQueue
	ring  *statebuf.BufferRing

	// envs sent or reset whose rows have not been received yet
	stepping atomic.Int64
	stop     atomic.Bool
	closed   atomic.Bool
	wg       sync.WaitGroup

	ctrl *adapters.ControlAdapter
	m    counters
}

// New builds num_envs environments with factory and starts num_threads
// workers. Env construction runs concurrently; all failures are reported.
func New(spec *envspec.Spec, factory env.Factory, opts ...Option) (*Pool, error) {
	if spec == nil || factory == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "pool: nil spec or factory").
			WithContext("spec", spec != nil).WithContext("factory", factory != nil)
	}
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}

	cfg := spec.Config
	p := &Pool{
		id:     o.id,
		spec:   spec,
		cfg:    cfg,
		isSync: cfg.IsSync(),
		log:    o.logger.With("component", "pool", "pool_id", o.id),
		envs:   make([]*handle, cfg.NumEnvs),
	}
	if err := p.buildEnvs(factory); err != nil {
		return nil, err
	}

	p.queue = concurrency.NewActionQueue(cfg.NumEnvs)
	p.ring = statebuf.NewBufferRing(statebuf.RingConfig{
		Batch:      cfg.BatchSize,
		NumEnvs:    cfg.NumEnvs,
		MaxPlayers: cfg.MaxNumPlayers,
		Fields:     spec.State,
		Size:       o.ringSize,
		Warmers:    o.ringWarmers,
		Spares:     o.ringSpares,
	})
	p.initControl()

	p.wg.Add(cfg.NumThreads)
	for i := 0; i < cfg.NumThreads; i++ {
		go p.runWorker(i)
	}
	p.log.Info("pool started",
		"num_envs", cfg.NumEnvs, "batch_size", cfg.BatchSize,
		"num_threads", cfg.NumThreads, "sync", p.isSync, "ring_size", p.ring.Size())
	return p, nil
}

func (p *Pool) buildEnvs(factory env.Factory) error {
	errs := make([]error, len(p.envs))
	var wg sync.WaitGroup
	for i := range p.envs {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e, err := factory(p.spec, id)
			if err == nil && e == nil {
				err = errors.New("factory returned nil env")
			}
			if err != nil {
				errs[id] = fmt.Errorf("pool: env %d: %w", id, err)
				return
			}
			p.envs[id] = &handle{env: e, needsReset: true}
		}(i)
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (p *Pool) initControl() {
	store := control.NewConfigStore()
	snapshot := p.cfg.ToMap()
	snapshot["pool_id"] = p.id
	snapshot["sync"] = p.isSync
	snapshot["ring_size"] = p.ring.Size()
	store.SetConfig(snapshot)

	p.ctrl = adapters.NewControlAdapter(store, nil, nil)
	p.m = newCounters(p.ctrl.Metrics())
	p.ctrl.RegisterDebugProbe("queue.size_approx", func() any { return p.queue.SizeApprox() })
	p.ctrl.RegisterDebugProbe("pool.stepping", func() any { return p.stepping.Load() })
	for key := range p.ring.Stats() {
		p.ctrl.RegisterDebugProbe("ring."+key, func() any { return p.ring.Stats()[key] })
	}
}

// Send binds an action batch (one array per action field, in spec order)
// to the envs named by its env_id column and queues one step for each.
// Nothing is bound or queued if any part of the batch is invalid.
// The arrays are copied; the caller may reuse them once Send returns.
func (p *Pool) Send(batch []array.Array) error {
	if p.closed.Load() {
		return ErrClosed
	}
	start := time.Now()
	defer p.observe(p.m.sendCalls, p.m.sendNanos, start)

	ids, players, err := p.checkBatch(batch)
	if err != nil {
		return err
	}
	owned := make([]array.Array, len(batch))
	for i, a := range batch {
		owned[i] = a.Clone()
	}
	for row, id := range ids {
		h := p.envs[id]
		h.mu.Lock()
		h.action = env.NewAction(p.spec, owned, row, players[id])
		h.mu.Unlock()
	}
	return p.enqueue(ids, false)
}

// SendAction is Send for a structured action keyed by field name.
// players.env_id may be omitted for single-player envs.
func (p *Pool) SendAction(a envspec.Action) error {
	batch, err := p.spec.Flatten(a)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	return p.Send(batch)
}

// Reset queues a forced reset for each id.
func (p *Pool) Reset(ids []int) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.checkIDs(ids); err != nil {
		return err
	}
	return p.enqueue(ids, true)
}

// Recv blocks until a batch is ready. In lock-step mode the batch holds one
// row per env sent since the previous Recv, in submission order.
func (p *Pool) Recv() (*StateBatch, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer p.observe(p.m.recvCalls, p.m.recvNanos, start)

	additional := 0
	if p.isSync {
		additional = p.cfg.BatchSize - int(p.stepping.Load())
	}
	out := p.ring.Wait(additional)
	p.stepping.Add(-int64(out[0].Rows()))
	return &StateBatch{spec: p.spec, arrays: out}, nil
}

// Close stops the workers and releases the ring. Queued steps that no worker
// picked up are dropped. Safe to call more than once.
func (p *Pool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.stop.Store(true)
	// One no-op per worker; each worker consumes exactly one item after stop.
	for i := 0; i < p.cfg.NumThreads; i++ {
		if err := p.queue.EnqueueBulk([]concurrency.ActionSlice{{EnvID: -1, Order: concurrency.Unordered}}); err != nil {
			p.log.Error("cannot wake worker", "err", err)
		}
	}
	p.wg.Wait()
	p.ring.Close()
	p.log.Info("pool closed")
	return nil
}

// ID returns the pool id used in logs.
func (p *Pool) ID() string { return p.id }

// Spec returns the pool spec.
func (p *Pool) Spec() *envspec.Spec { return p.spec }

// Config returns the normalized configuration.
func (p *Pool) Config() envspec.Config { return p.cfg }

// IsSync reports whether the pool runs in lock-step mode.
func (p *Pool) IsSync() bool { return p.isSync }

// Control exposes config, metrics and debug probes.
func (p *Pool) Control() api.Control { return p.ctrl }

func (p *Pool) observe(calls, nanos *atomic.Int64, start time.Time) {
	calls.Add(1)
	nanos.Add(int64(time.Since(start)))
}

// checkIDs validates range and uniqueness, and in lock-step mode that the
// ids fit in the current batch.
func (p *Pool) checkIDs(ids []int) error {
	seen := make([]bool, len(p.envs))
	for _, id := range ids {
		if id < 0 || id >= len(p.envs) {
			return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidEnvID, id, len(p.envs))
		}
		if seen[id] {
			return fmt.Errorf("%w: %d", ErrDuplicateEnvID, id)
		}
		seen[id] = true
	}
	if p.isSync {
		if inflight := int(p.stepping.Load()); inflight+len(ids) > p.cfg.BatchSize {
			return fmt.Errorf("%w: %d in flight, %d more, batch %d",
				ErrTooManyInFlight, inflight, len(ids), p.cfg.BatchSize)
		}
	}
	return nil
}

// checkBatch validates a flattened action batch and returns the env ids in
// row order and, per env, the rows of the per-player fields it owns.
func (p *Pool) checkBatch(batch []array.Array) ([]int, map[int][]int, error) {
	fields := p.spec.Action
	if len(batch) != len(fields) {
		return nil, nil, fmt.Errorf("%w: %d arrays for %d action fields", ErrMalformedAction, len(batch), len(fields))
	}
	envIdx, _ := p.spec.ActionIndex(envspec.FieldEnvID)
	playerIdx, _ := p.spec.ActionIndex(envspec.FieldPlayersEnvID)
	rows, playerRows := batch[envIdx].Rows(), batch[playerIdx].Rows()

	for i, f := range fields {
		a := batch[i]
		want := rows
		if f.IsPlayer() {
			want = playerRows
		}
		switch {
		case a.DType() != f.DType:
			return nil, nil, fmt.Errorf("%w: field %q is %v, want %v", ErrMalformedAction, f.Name, a.DType(), f.DType)
		case a.RowSize() != f.RowSize():
			return nil, nil, fmt.Errorf("%w: field %q rows of %d, want %d", ErrMalformedAction, f.Name, a.RowSize(), f.RowSize())
		case a.Rows() != want:
			return nil, nil, fmt.Errorf("%w: field %q has %d rows, want %d", ErrMalformedAction, f.Name, a.Rows(), want)
		}
	}

	ids := make([]int, rows)
	for i, v := range batch[envIdx].Int32s() {
		ids[i] = int(v)
	}
	if err := p.checkIDs(ids); err != nil {
		return nil, nil, err
	}
	players := make(map[int][]int, rows)
	for j, v := range batch[playerIdx].Int32s() {
		id := int(v)
		if id < 0 || id >= len(p.envs) {
			return nil, nil, fmt.Errorf("%w: players.env_id %d at row %d", ErrInvalidEnvID, id, j)
		}
		players[id] = append(players[id], j)
	}
	return ids, players, nil
}

// enqueue queues one slice per id. In lock-step mode each slice is pinned
// to the next free row of the current batch.
func (p *Pool) enqueue(ids []int, reset bool) error {
	if len(ids) == 0 {
		return nil
	}
	base := int(p.stepping.Load())
	slices := make([]concurrency.ActionSlice, len(ids))
	for i, id := range ids {
		order := concurrency.Unordered
		if p.isSync {
			order = base + i
		}
		slices[i] = concurrency.ActionSlice{EnvID: id, Order: order, ForceReset: reset}
	}
	p.stepping.Add(int64(len(ids)))
	if err := p.queue.EnqueueBulk(slices); err != nil {
		p.stepping.Add(-int64(len(ids)))
		return err
	}
	return nil
}

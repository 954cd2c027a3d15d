// File: pool/worker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker loop: take one slice, step its env under the env mutex, release the
// slot. A failing env is logged and skipped; it never stops the worker.

package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/envpool/adapters"
	"github.com/momentics/envpool/affinity"
	"github.com/momentics/envpool/api"
	"github.com/momentics/envpool/env"
	"github.com/momentics/envpool/internal/concurrency"
	"github.com/momentics/envpool/internal/statebuf"
)

func (p *Pool) runWorker(id int) {
	defer p.wg.Done()
	log := p.log.With("worker", id)

	if cpu := affinity.WorkerCPU(p.cfg.ThreadAffinityOffset, id); cpu >= 0 {
		pin := adapters.NewAffinityAdapter()
		if err := pin.Pin(cpu); err != nil {
			log.Warn("cpu pinning failed", "cpu", cpu, "err", err)
		} else {
			defer pin.Unpin()
			log.Debug("worker pinned", "cpu", cpu)
		}
	}

	for {
		s := p.queue.Dequeue()
		if p.stop.Load() {
			return
		}
		p.process(log, s)
	}
}

func (p *Pool) process(log *slog.Logger, s concurrency.ActionSlice) {
	if s.EnvID < 0 || s.EnvID >= len(p.envs) || p.envs[s.EnvID] == nil {
		p.m.skipped.Add(1)
		log.Error("skipping action for unknown env", "env_id", s.EnvID)
		return
	}
	h := p.envs[s.EnvID]
	h.mu.Lock()
	defer h.mu.Unlock()

	reset := s.ForceReset || h.needsReset
	if reset {
		h.elapsed = 0
	} else {
		h.elapsed++
	}
	w := env.NewWriter(p.ring, p.spec, s.EnvID, s.Order, h.elapsed)

	err := invoke(h, w, reset)
	if err == nil && w.Allocated() == 0 {
		err = errNoState
	}
	if err != nil {
		p.m.stepErrors.Add(1)
		log.Error("env step failed", "env_id", s.EnvID, "reset", reset, "err", err)
		h.needsReset = true
		// The slot is still owed to the batch; hand it over truncated.
		if w.Allocated() == 0 {
			if aerr := p.placeholder(w); aerr != nil {
				log.Error("cannot write placeholder state", "env_id", s.EnvID, "err", aerr)
				return
			}
		}
		w.Finish(false, true)
		return
	}

	p.m.steps.Add(1)
	done := h.env.IsDone()
	trunc := p.cfg.MaxEpisodeSteps > 0 && h.elapsed >= p.cfg.MaxEpisodeSteps
	h.needsReset = done || trunc
	w.Finish(done, trunc)
}

// placeholder allocates the single-player row of a failed step. A full ring
// is retried with backoff until the row is granted or the pool stops.
func (p *Pool) placeholder(w *env.Writer) error {
	backoff := 50 * time.Microsecond
	for {
		_, err := w.Allocate(1)
		if err == nil || !errors.Is(err, statebuf.ErrBufferExhausted) || p.stop.Load() {
			return err
		}
		time.Sleep(backoff)
		if backoff < 10*time.Millisecond {
			backoff *= 2
		}
	}
}

// invoke runs the env call, turning a panic into an error. Internal
// invariant violations are not recovered.
func invoke(h *handle, w *env.Writer, reset bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, api.ErrInternal) {
				panic(r)
			}
			err = fmt.Errorf("env panic: %v", r)
		}
	}()
	if reset {
		return h.env.Reset(w)
	}
	return h.env.Step(w, h.action)
}

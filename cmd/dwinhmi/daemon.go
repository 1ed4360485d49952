package main

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"dwinhmi/internal/hmi"
	"dwinhmi/internal/ipc"
	"dwinhmi/internal/simprinter"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The controller is single-owner: Init, Tick and Snapshot only ever run on
// this goroutine. Other goroutines reach it through:
//   - the input queue (evdev readers push directly)
//   - the events channel (IPC, HTTP, WebSocket snapshot requests)
//   - Controller.Notify (printer backends, from their own goroutines)
//
// After every tick the loop publishes a snapshot when it differs from the
// previous one; the broadcaster coalesces and fans these out.
//
// ============================================================================

// daemon holds what the loop owns.
type daemon struct {
	ctrl  *hmi.Controller
	queue *hmi.InputQueue
	// sim is stepped by the loop; nil with a real printer.
	sim *simprinter.Printer

	broadcasts chan<- broadcast
	logger     *slog.Logger

	last      hmi.Snapshot
	published bool
}

// notify forwards a subsystem callback to the controller and to observers.
// Safe from any goroutine.
func (d *daemon) notify(n hmi.Notification) {
	d.ctrl.Notify(n)
	d.emit(broadcastNotification{Name: n.String(), At: time.Now().UTC()})
}

func (d *daemon) emit(b broadcast) {
	if d.broadcasts == nil {
		return
	}
	select {
	case d.broadcasts <- b:
	default:
		d.logger.Debug("broadcast queue full, dropping", "type", reflect.TypeOf(b).Name())
	}
}

// apply folds one external event into the loop.
func (d *daemon) apply(ev ipc.Event) {
	switch ev := ev.(type) {
	case ipc.Input:
		inputs, err := ev.Inputs()
		if err != nil {
			d.logger.Warn("dropping input event", "error", err)
			return
		}
		for _, in := range inputs {
			d.queue.Push(in)
		}

	case ipc.Notify:
		n, err := ev.Notification()
		if err != nil {
			d.logger.Warn("dropping notification", "error", err)
			return
		}
		d.notify(n)

	case ipc.SimMedia:
		if d.sim == nil {
			d.logger.Warn("sim_media ignored: printer backend is not the simulator")
			return
		}
		d.sim.SetMounted(ev.Mounted)

	case ipc.SimRunout:
		if d.sim == nil {
			d.logger.Warn("sim_runout ignored: printer backend is not the simulator")
			return
		}
		d.sim.SetRunout(ev.Runout)

	case ipc.RequestSnapshot:
		if ev.Reply == nil {
			return
		}
		select {
		case ev.Reply <- d.ctrl.Snapshot():
		default:
		}

	default:
		d.logger.Warn("unhandled event", "type", reflect.TypeOf(ev).String())
	}
}

// tick advances the simulation (if any) and the controller by one step.
func (d *daemon) tick(dt time.Duration) {
	if d.sim != nil {
		d.sim.Step(dt)
	}
	d.ctrl.Tick()
	d.publish()
}

// publish emits a state broadcast when the observable state changed.
func (d *daemon) publish() {
	snap := d.ctrl.Snapshot()
	cmp := snap
	cmp.At = time.Time{}
	if d.published && reflect.DeepEqual(cmp, d.last) {
		return
	}
	d.last = cmp
	d.published = true
	d.emit(broadcastState{Snapshot: snap})
}

// runDaemon initializes the controller and runs the tick loop until ctx is
// canceled or the events channel is closed.
func runDaemon(ctx context.Context, events <-chan ipc.Event, d *daemon, updateHz int) error {
	d.ctrl.Init()
	d.publish()

	updateInterval := time.Second / time.Duration(updateHz)
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				d.logger.Info("daemon stopping (events channel closed)")
				return nil
			}
			d.apply(ev)

		case now := <-ticker.C:
			dt := now.Sub(lastTick)
			lastTick = now
			// Cap catch-up after a stall so the simulation does not jump.
			d.tick(min(dt, 2*updateInterval))
		}
	}
}

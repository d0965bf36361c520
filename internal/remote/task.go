package remote

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listinvest/quadro2/internal/config"
)

// Task owns the remote link's state: connected sessions, the heartbeat
// timer, and inbound message dispatch. Like the sensing task, it is
// single-goroutine: everything below is only ever touched from Run.
type Task struct {
	inbox            chan Event
	sessions         map[Session]struct{}
	flightController FlightController
	log              *logrus.Logger

	lastContact    time.Time
	timeoutPending bool
	faultPongs     int
}

// NewTask builds a remote task. flightController may be nil, in which case
// inbound control commands are logged and dropped and emergency stop is a
// no-op, useful for running the telemetry link standalone in tests.
func NewTask(flightController FlightController, log *logrus.Logger) *Task {
	return &Task{
		inbox:            make(chan Event, config.RemoteQueueCapacity),
		sessions:         make(map[Session]struct{}),
		flightController: flightController,
		log:              log,
	}
}

// Submit delivers an event without blocking the caller, dropping it if the
// inbox is full, the same try-send discipline the sensing task uses.
func (t *Task) Submit(ev Event) {
	select {
	case t.inbox <- ev:
	default:
		t.log.Warn("remote inbox full, dropping event")
	}
}

// Run consumes the inbox and drives the heartbeat state machine until ctx
// is cancelled.
func (t *Task) Run(ctx context.Context) {
	ticker := time.NewTicker(config.HeartbeatWindow)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-t.inbox:
			t.handle(ev)
		case <-ticker.C:
			t.heartbeatTick()
		}
	}
}

func (t *Task) handle(ev Event) {
	switch ev.Kind {
	case Connected:
		t.sessions[ev.Session] = struct{}{}
		t.lastContact = time.Now()
		t.timeoutPending = false
	case Disconnected:
		delete(t.sessions, ev.Session)
	case MessageReceive:
		t.processMessage(ev.Session, ev.Payload)
		t.lastContact = time.Now()
		t.timeoutPending = false
	case MessageSend:
		t.sendMessage(ev.Session, ev.Payload)
	}
}

// processMessage implements the inbound frame dispatch: an 's'-tagged
// heartbeat reply (only the second byte is read), a 'c'-tagged control command forwarded opaquely to the
// flight controller, or anything else (reports aren't expected inbound,
// so they're ignored).
func (t *Task) processMessage(_ Session, data []byte) {
	if len(data) < 2 {
		return
	}
	switch data[0] {
	case 's':
		switch data[1] {
		case '1':
			// pong-ok: lastContact/timeoutPending already cleared by the
			// caller, nothing further to do.
		case '0':
			t.faultPongs++
			t.log.Warn("remote link reported a fault pong")
		}
	case 'c':
		if t.flightController == nil {
			t.log.Warn("control command received with no flight controller wired")
			return
		}
		if err := t.flightController.SendControlCommand(data[1:]); err != nil {
			t.log.WithError(err).Error("failed to forward control command")
		}
	}
}

func (t *Task) sendMessage(session Session, payload []byte) {
	if session != nil {
		if err := session.Send(payload); err != nil {
			t.log.WithError(err).Warn("failed to send to session")
		}
		return
	}
	for s := range t.sessions {
		if err := s.Send(payload); err != nil {
			t.log.WithError(err).Warn("failed to broadcast to session")
		}
	}
}

// heartbeatTick implements the link-loss state machine: no reply inside
// one heartbeat window pings the link and arms a pending timeout; a second
// consecutive miss escalates to an emergency stop.
func (t *Task) heartbeatTick() {
	if len(t.sessions) == 0 {
		return
	}
	if time.Since(t.lastContact) <= config.HeartbeatWindow {
		return
	}
	if t.timeoutPending {
		t.log.Error("remote link timed out, escalating to emergency stop")
		if t.flightController != nil {
			if err := t.flightController.EmergencyStop(); err != nil {
				t.log.WithError(err).Error("emergency stop failed")
			}
		}
		t.timeoutPending = false
		return
	}
	t.sendMessage(nil, []byte("s?"))
	t.timeoutPending = true
	t.lastContact = time.Now()
}

// FaultPongs reports how many 's0' fault replies have been received since
// startup. It is observed and logged but does not itself trigger an
// emergency stop; only two consecutive missed heartbeats do that.
func (t *Task) FaultPongs() int { return t.faultPongs }

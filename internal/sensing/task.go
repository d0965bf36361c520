package sensing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/listinvest/quadro2/internal/config"
)

// AxisFuser is the subset of fusion.Fuser the sensing task depends on. It is
// declared here, not imported from the fusion package, so fusion can import
// sensing without creating a cycle.
type AxisFuser interface {
	Handle(Event)
	Reset()
}

// routes maps each Kind to the axes that fuse it. ORIENTATION feeds no
// fuser; nothing here adds that transform.
var routes = map[Kind][]int{
	Acceleration: {axisX, axisY, axisZ},
	Position:     {axisX, axisY, axisZ},
	GroundSpeed:  {axisX, axisY},
	Ultrasonic:   {axisZ},
	Altimeter:    {axisZ},
}

const (
	axisX = iota
	axisY
	axisZ
)

// monitoredKinds are the sensors whose staleness the supervisor tracks.
// GNSS-sourced kinds (Position, GroundSpeed) are excluded: GNSS is expected
// to be intermittent.
var monitoredKinds = []Kind{Acceleration, Orientation, Ultrasonic, Altimeter}

// Task owns the sensor-fusion state machine. Like the original FreeRTOS
// task, it is single-goroutine: every fuser it drives is mutated only from
// the goroutine running Run, so none of them need their own locking.
type Task struct {
	inbox       chan Event
	homeReq     chan chan struct{}
	axes        [3]AxisFuser // indexed by axisX/axisY/axisZ
	drivers     []SensorDriver
	lastSeen    map[Kind]int64
	idleTimeout time.Duration
	log         *logrus.Logger
}

// NewTask builds a sensing task driving the three given axis fusers. Pass
// the axes in X, Y, Z order.
func NewTask(x, y, z AxisFuser, log *logrus.Logger) *Task {
	return &Task{
		inbox:       make(chan Event, config.SensorQueueCapacity),
		homeReq:     make(chan chan struct{}),
		axes:        [3]AxisFuser{x, y, z},
		lastSeen:    make(map[Kind]int64),
		idleTimeout: config.SensorSupervisorIdle,
		log:         log,
	}
}

// Init wires a set of sensor drivers into the task's inbox. Each driver
// delivers events through the same non-blocking path a direct producer
// would use.
func (t *Task) Init(drivers []SensorDriver) error {
	t.drivers = drivers
	for _, d := range drivers {
		if err := d.Start(t.Submit); err != nil {
			return err
		}
		t.log.WithField("driver", d.Name()).Info("sensor driver started")
	}
	return nil
}

// Submit delivers an event to the task's inbox without blocking the
// caller, mirroring xQueueSend(..., 0): a full inbox drops the event
// rather than stalling the producer.
func (t *Task) Submit(ev Event) {
	select {
	case t.inbox <- ev:
	default:
		t.log.WithField("kind", ev.Kind.String()).Warn("sensor inbox full, dropping event")
	}
}

// SetHome rebaselines all three fusers to a zero position/velocity prior
// without draining the inbox. It is safe to call concurrently with Run; the
// reset itself always executes on the task's own goroutine.
func (t *Task) SetHome(ctx context.Context) {
	done := make(chan struct{})
	select {
	case t.homeReq <- done:
		<-done
	case <-ctx.Done():
	}
}

// Run is a blocking receive with an idle timeout, the Go shape of
// xQueueReceive(queue, &event, IDLE_TICKS): each event received resets the
// wait, and a receive that times out with nothing to process logs a
// liveness heartbeat before waiting again.
func (t *Task) Run(ctx context.Context) {
	timer := time.NewTimer(t.idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case done := <-t.homeReq:
			for _, axis := range t.axes {
				axis.Reset()
			}
			t.lastSeen = make(map[Kind]int64)
			close(done)

		case ev := <-t.inbox:
			if !timer.Stop() {
				<-timer.C
			}
			t.resetQueueIfNearlyFull()
			t.dispatch(ev)
			timer.Reset(t.idleTimeout)

		case <-timer.C:
			t.log.Info("sensor task idle, no events received")
			timer.Reset(t.idleTimeout)
		}
	}
}

// resetQueueIfNearlyFull prefers bounded latency over draining a backlog:
// when the inbox has one slot or fewer of headroom left, drop everything
// currently queued.
func (t *Task) resetQueueIfNearlyFull() {
	if cap(t.inbox)-len(t.inbox) > 1 {
		return
	}
	t.log.Warn("sensor inbox nearly full, resetting queue")
	for {
		select {
		case <-t.inbox:
		default:
			return
		}
	}
}

// dispatch checks every monitored sensor for staleness against this
// event's own timestamp, then updates lastSeen and routes the event to its
// axes. Using the event's own timestamp as "now" means a sensor gone quiet
// is flagged as soon as any other event arrives to reveal it, not only on
// the next idle timeout.
func (t *Task) dispatch(ev Event) {
	t.checkTimeouts(ev.Timestamp)
	t.lastSeen[ev.Kind] = ev.Timestamp
	for _, axisIdx := range routes[ev.Kind] {
		t.axes[axisIdx].Handle(ev)
	}
}

func (t *Task) checkTimeouts(now int64) {
	for _, kind := range monitoredKinds {
		last, seen := t.lastSeen[kind]
		if !seen {
			continue
		}
		if now-last > config.SensorTimeout.Microseconds() {
			t.log.WithField("kind", kind.String()).Warn("sensor timeout")
		}
	}
}

// Package fusion implements the per-axis position/velocity estimators. Each
// Fuser wraps an ekf.Context bound to a double-integrator model (position,
// velocity) and fuses whichever sensors report a measurement along its axis.
//
// The three axes carry different numbers of measurement rows (Z fuses
// ultrasonic + barometer + GNSS altitude; Y fuses GNSS latitude + GNSS
// ground-speed; X fuses GNSS longitude alone), so the row layout is
// data-driven per instance rather than three hand-duplicated types.
package fusion

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/listinvest/quadro2/internal/ekf"
	"github.com/listinvest/quadro2/internal/matrix"
	"github.com/listinvest/quadro2/internal/sensing"
)

// largeVariance marks a row as having no fresh measurement this tick. A
// literal zero R there leaves the innovation covariance singular once more
// than one row exists; a large R drives the row's Kalman gain to ~0 instead.
const largeVariance = 1e9

// RowSpec binds one measurement row to the sensor kind that fills it and the
// measurement variance to use when that sensor is the one reporting.
type RowSpec struct {
	Kind     sensing.Kind
	Variance float64
	// StateIndex selects which state component this row's H observes: 0
	// for position, 1 for velocity. Every sensor except ground-speed
	// observes position; ground-speed observes velocity directly.
	StateIndex int
}

const (
	observesPosition = 0
	observesVelocity = 1
)

// Tuning holds the per-axis process-noise floor and velocity clamp
// (SENSORS_FUSE_*_LIMIT_VEL in the original source, q = |u| + floor).
type Tuning struct {
	ProcessNoiseFloor float64
	VelocityLimit     float64
}

// Fuser estimates position and velocity along one world axis from whichever
// subset of rows carries a fresh reading on a given tick.
type Fuser struct {
	name      string
	axisIndex int
	rows      []RowSpec
	rowIndex  map[sensing.Kind]int
	tuning    Tuning

	ctx  *ekf.Context
	x, P *mat.Dense
	z, r *mat.Dense
	u, q *mat.Dense

	lastTimestamp int64
	dt            float64

	log *logrus.Entry
}

// New builds a Fuser with the given ordered row layout. axisIndex selects
// which component of a 3-vector payload (Acceleration/Position/GroundSpeed)
// belongs to this axis: 0=X, 1=Y, 2=Z.
func New(name string, axisIndex int, rows []RowSpec, tuning Tuning, log *logrus.Logger) *Fuser {
	m := len(rows)
	f := &Fuser{
		name:      name,
		axisIndex: axisIndex,
		rows:      rows,
		tuning:    tuning,
		x:         mat.NewDense(2, 1, nil),
		P:         mat.NewDense(2, 2, nil),
		z:         mat.NewDense(m, 1, nil),
		r:         mat.NewDense(m, m, nil),
		u:         mat.NewDense(1, 1, nil),
		q:         mat.NewDense(2, 2, nil),
		log:       log.WithField("axis", name),
	}
	f.rowIndex = make(map[sensing.Kind]int, m)
	for i, row := range rows {
		f.rowIndex[row.Kind] = i
	}
	f.ctx = ekf.NewContext(2, m)
	f.ctx.Init(f.x, f.P, f.transition, f.measurement, nil)
	f.Reset()
	return f
}

// NewZ builds the Z-axis fuser: ultrasonic, barometric altimeter, GNSS
// altitude, in that row order.
func NewZ(tuning Tuning, ultrasonicVariance, altimeterVariance, gnssAltitudeVariance float64, log *logrus.Logger) *Fuser {
	return New("Z", 2, []RowSpec{
		{sensing.Ultrasonic, ultrasonicVariance, observesPosition},
		{sensing.Altimeter, altimeterVariance, observesPosition},
		{sensing.Position, gnssAltitudeVariance, observesPosition},
	}, tuning, log)
}

// NewY builds the Y-axis fuser: GNSS latitude (observes position), GNSS
// ground-speed (observes velocity directly).
func NewY(tuning Tuning, gnssLatVariance, gnssGroundSpeedVariance float64, log *logrus.Logger) *Fuser {
	return New("Y", 1, []RowSpec{
		{sensing.Position, gnssLatVariance, observesPosition},
		{sensing.GroundSpeed, gnssGroundSpeedVariance, observesVelocity},
	}, tuning, log)
}

// NewX builds the X-axis fuser: GNSS longitude alone. Ground-speed is not
// fused on X.
func NewX(tuning Tuning, gnssLonVariance float64, log *logrus.Logger) *Fuser {
	return New("X", 0, []RowSpec{
		{sensing.Position, gnssLonVariance, observesPosition},
	}, tuning, log)
}

// Reset zeroes state back to the power-on prior: zero position, zero
// velocity, zero position variance, unit velocity variance. Idempotent:
// every field it touches is set, never accumulated.
func (f *Fuser) Reset() {
	f.x.Zero()
	f.P.Set(0, 0, 0)
	f.P.Set(0, 1, 0)
	f.P.Set(1, 0, 0)
	f.P.Set(1, 1, 1)
	f.z.Zero()
	f.lastTimestamp = 0
}

// Handle dispatches one measurement event: acceleration advances the filter
// (predict), anything else the axis fuses updates it (correct). Events for
// sensors this axis doesn't fuse are silently ignored.
func (f *Fuser) Handle(ev sensing.Event) {
	if ev.Kind == sensing.Acceleration {
		f.predict(ev)
		return
	}
	idx, ok := f.rowIndex[ev.Kind]
	if !ok {
		return
	}
	f.correct(idx, f.scalarFor(ev))
}

func (f *Fuser) scalarFor(ev sensing.Event) float64 {
	switch ev.Kind {
	case sensing.Altimeter, sensing.Ultrasonic:
		return ev.Scalar
	default:
		return ev.Vector[f.axisIndex]
	}
}

// predict advances position/velocity using a double-integrator model driven
// by the axis component of the acceleration reading. Samples that arrive
// out of order relative to the last accepted one are dropped rather than
// rewinding the filter.
func (f *Fuser) predict(ev sensing.Event) {
	if ev.Timestamp < f.lastTimestamp {
		f.log.WithField("timestamp", ev.Timestamp).Debug("dropped out-of-order acceleration sample")
		return
	}
	dt := float64(ev.Timestamp-f.lastTimestamp) / 1e6
	f.lastTimestamp = ev.Timestamp
	f.dt = dt

	accel := ev.Vector[f.axisIndex]
	f.u.Set(0, 0, accel)

	q := math.Abs(accel) + f.tuning.ProcessNoiseFloor
	dt2 := dt * dt
	f.q.Set(0, 0, 0.25*q*dt2*dt2)
	f.q.Set(0, 1, 0.5*q*dt2*dt)
	f.q.Set(1, 0, 0.5*q*dt2*dt)
	f.q.Set(1, 1, q*dt2)

	if err := f.ctx.Predict(f.u, f.q); err != nil {
		f.log.WithError(err).Error("predict failed")
		return
	}

	vel := f.x.At(1, 0)
	limit := f.tuning.VelocityLimit
	switch {
	case vel > limit:
		f.x.Set(1, 0, limit)
	case vel < -limit:
		f.x.Set(1, 0, -limit)
	}
}

// correct writes value into row idx and runs a lazy measurement update: idx
// gets this axis's real variance for that row, every other row gets
// largeVariance so only idx materially moves the estimate. Each row reaches
// its own update independently; there is no shared path for two sensor
// kinds to fall into.
func (f *Fuser) correct(idx int, value float64) {
	f.z.Set(idx, 0, value)
	f.r.Zero()
	for i := range f.rows {
		f.r.Set(i, i, largeVariance)
	}
	f.r.Set(idx, idx, f.rows[idx].Variance)

	if err := f.ctx.LazyCorrect(f.z, f.r); err != nil {
		f.log.WithError(err).Error("correct failed")
	}
}

// transition is the shared double-integrator state-transition model:
// x' = F*x + G*u, where F=[[1,dt],[0,1]] and G=[0.5dt^2, dt]^T.
func (f *Fuser) transition(xp, Jf, x, u *mat.Dense, _ any) error {
	dt := f.dt
	Jf.Set(0, 0, 1.0)
	Jf.Set(0, 1, dt)
	Jf.Set(1, 0, 0.0)
	Jf.Set(1, 1, 1.0)

	if matrix.Mul(xp, Jf, x) == nil {
		return ekf.ErrComputationFailed
	}

	accel := u.At(0, 0)
	xp.Set(0, 0, xp.At(0, 0)+0.5*dt*dt*accel)
	xp.Set(1, 0, xp.At(1, 0)+dt*accel)
	return nil
}

// measurement builds H from each row's StateIndex: a row observes either
// the position or the velocity component of the state, per its RowSpec.
func (f *Fuser) measurement(zp, Jh, x *mat.Dense, _ any) error {
	for i, row := range f.rows {
		Jh.Set(i, 0, 0.0)
		Jh.Set(i, 1, 0.0)
		Jh.Set(i, row.StateIndex, 1.0)
	}
	if matrix.Mul(zp, Jh, x) == nil {
		return ekf.ErrComputationFailed
	}
	return nil
}

// Position returns the current position estimate.
func (f *Fuser) Position() float64 { return f.x.At(0, 0) }

// Velocity returns the current velocity estimate.
func (f *Fuser) Velocity() float64 { return f.x.At(1, 0) }

// LastTimestamp returns the timestamp of the last accepted acceleration
// sample, or 0 if none has been accepted since the last Reset.
func (f *Fuser) LastTimestamp() int64 { return f.lastTimestamp }

// Name returns the axis label ("X", "Y", or "Z") used in log fields.
func (f *Fuser) Name() string { return f.name }

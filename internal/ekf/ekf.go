// Package ekf implements a generic Extended Kalman Filter predict/correct
// engine. The state vector x and covariance P are bound by the caller at
// Init time, and every predict/correct call is driven by caller-supplied
// transition and measurement callbacks. All scratch matrices the engine
// needs are allocated once in NewContext and reused for its lifetime; no
// per-call allocation.
package ekf

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/listinvest/quadro2/internal/matrix"
)

// Errors mirror the C engine's eekf_return taxonomy: a failed matrix
// operation (singular inverse, shape mismatch from a miswired callback) is
// ErrComputationFailed; a caller-supplied matrix of the wrong shape is
// ErrParameterError.
var (
	ErrComputationFailed = errors.New("ekf: computation failed")
	ErrParameterError    = errors.New("ekf: parameter error")
)

// TransitionFunc computes the predicted state xp = f(x, u) and fills the
// state Jacobian Jf. userData carries call-specific context (e.g. the
// elapsed time step) the way the original engine threaded a void* through.
type TransitionFunc func(xp, Jf *mat.Dense, x, u *mat.Dense, userData any) error

// MeasurementFunc computes the predicted measurement zp = h(x) and fills
// the measurement Jacobian Jh. In the "lazy" form, Jh may zero out rows for
// sensors not present in the current update so the innovation only touches
// the rows being corrected.
type MeasurementFunc func(zp, Jh *mat.Dense, x *mat.Dense, userData any) error

// Context binds a state vector and covariance to a pair of model callbacks
// and owns all scratch space predict/correct need.
type Context struct {
	x, P        *mat.Dense
	transition  TransitionFunc
	measurement MeasurementFunc
	userData    any

	n, m int

	// predict scratch
	jf         *mat.Dense
	xp         *mat.Dense
	ft         *mat.Dense
	fp         *mat.Dense
	predicted  *mat.Dense

	// correct scratch
	jh         *mat.Dense
	zp         *mat.Dense
	innovation *mat.Dense
	ht         *mat.Dense
	hp         *mat.Dense
	s          *mat.Dense
	sinv       *mat.Dense
	phT        *mat.Dense
	k          *mat.Dense
	kh         *mat.Dense
	imkh       *mat.Dense
	correction *mat.Dense
	updatedCov *mat.Dense
	identity   *mat.Dense
}

// NewContext allocates scratch sized for an n-dimensional state and an
// m-dimensional measurement vector. Call once per axis fuser at startup.
func NewContext(n, m int) *Context {
	identity := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		identity.Set(i, i, 1.0)
	}
	return &Context{
		n: n, m: m,
		jf:        mat.NewDense(n, n, nil),
		xp:        mat.NewDense(n, 1, nil),
		ft:        mat.NewDense(n, n, nil),
		fp:        mat.NewDense(n, n, nil),
		predicted: mat.NewDense(n, n, nil),

		jh:         mat.NewDense(m, n, nil),
		zp:         mat.NewDense(m, 1, nil),
		innovation: mat.NewDense(m, 1, nil),
		ht:         mat.NewDense(n, m, nil),
		hp:         mat.NewDense(m, n, nil),
		s:          mat.NewDense(m, m, nil),
		sinv:       mat.NewDense(m, m, nil),
		phT:        mat.NewDense(n, m, nil),
		k:          mat.NewDense(n, m, nil),
		kh:         mat.NewDense(n, n, nil),
		imkh:       mat.NewDense(n, n, nil),
		correction: mat.NewDense(n, 1, nil),
		updatedCov: mat.NewDense(n, n, nil),
		identity:   identity,
	}
}

// Init binds storage and callbacks. x and P remain owned by the caller;
// the context only ever mutates them in place.
func (c *Context) Init(x, P *mat.Dense, transition TransitionFunc, measurement MeasurementFunc, userData any) {
	c.x = x
	c.P = P
	c.transition = transition
	c.measurement = measurement
	c.userData = userData
}

// Predict advances x and P by one time step using the bound transition
// model: x' = f(x, u), P' = F*P*F^T + Q.
func (c *Context) Predict(u, Q *mat.Dense) error {
	if r, cc := Q.Dims(); r != c.n || cc != c.n {
		return ErrParameterError
	}
	if err := c.transition(c.xp, c.jf, c.x, u, c.userData); err != nil {
		return err
	}

	c.x.Copy(c.xp)

	c.ft.CloneFrom(c.jf.T())
	if matrix.Mul(c.fp, c.jf, c.P) == nil {
		return ErrComputationFailed
	}
	if matrix.Mul(c.predicted, c.fp, c.ft) == nil {
		return ErrComputationFailed
	}
	if matrix.Add(c.P, c.predicted, Q) == nil {
		return ErrComputationFailed
	}
	return nil
}

// LazyCorrect performs a measurement update with an H that may zero out
// rows for sensors absent from this update, so z and R only need to carry
// meaningful values in the rows being corrected.
func (c *Context) LazyCorrect(z, R *mat.Dense) error {
	if r, cc := z.Dims(); r != c.m || cc != 1 {
		return ErrParameterError
	}
	if r, cc := R.Dims(); r != c.m || cc != c.m {
		return ErrParameterError
	}
	if err := c.measurement(c.zp, c.jh, c.x, c.userData); err != nil {
		return err
	}

	// innovation y = z - zp
	if matrix.Sub(c.innovation, z, c.zp) == nil {
		return ErrComputationFailed
	}

	// S = H*P*H^T + R
	c.ht.CloneFrom(c.jh.T())
	if matrix.Mul(c.hp, c.jh, c.P) == nil {
		return ErrComputationFailed
	}
	if matrix.Mul(c.s, c.hp, c.ht) == nil {
		return ErrComputationFailed
	}
	if matrix.Add(c.s, c.s, R) == nil {
		return ErrComputationFailed
	}

	// K = P*H^T*S^-1
	if err := matrix.Inverse(c.sinv, c.s); err != nil {
		return ErrComputationFailed
	}
	if matrix.Mul(c.phT, c.P, c.ht) == nil {
		return ErrComputationFailed
	}
	if matrix.Mul(c.k, c.phT, c.sinv) == nil {
		return ErrComputationFailed
	}

	// x <- x + K*y
	if matrix.Mul(c.correction, c.k, c.innovation) == nil {
		return ErrComputationFailed
	}
	if matrix.Add(c.x, c.x, c.correction) == nil {
		return ErrComputationFailed
	}

	// P <- (I - K*H)*P
	if matrix.Mul(c.kh, c.k, c.jh) == nil {
		return ErrComputationFailed
	}
	if matrix.Sub(c.imkh, c.identity, c.kh) == nil {
		return ErrComputationFailed
	}
	if matrix.Mul(c.updatedCov, c.imkh, c.P) == nil {
		return ErrComputationFailed
	}
	c.P.Copy(c.updatedCov)

	return nil
}

// State returns the bound state vector for read-only inspection.
func (c *Context) State() *mat.Dense { return c.x }

// Covariance returns the bound covariance matrix for read-only inspection.
func (c *Context) Covariance() *mat.Dense { return c.P }

// Package matrix provides fixed-shape dense matrix primitives used by the
// EKF engine. Every operation writes into a caller-supplied destination so
// scratch space can be allocated once per fuser and reused across predict
// and correct steps instead of allocated per call.
package matrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mul computes dst = a * b and returns dst, or nil if the shapes are
// incompatible. A nil result signals failure to the caller the way the
// original firmware's eekf_mat_mul returned a null pointer on error.
func Mul(dst, a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil
	}
	dr, dc := dst.Dims()
	if dr != ar || dc != bc {
		return nil
	}
	dst.Mul(a, b)
	return dst
}

// Add computes dst = a + b and returns dst, or nil on shape mismatch.
func Add(dst, a, b *mat.Dense) *mat.Dense {
	if !sameDims(a, b) || !sameDims(dst, a) {
		return nil
	}
	dst.Add(a, b)
	return dst
}

// Sub computes dst = a - b and returns dst, or nil on shape mismatch.
func Sub(dst, a, b *mat.Dense) *mat.Dense {
	if !sameDims(a, b) || !sameDims(dst, a) {
		return nil
	}
	dst.Sub(a, b)
	return dst
}

// Inverse inverts src into dst, returning an error if src is singular or
// the dimensions disagree. Mirrors the engine's need to signal a
// computation failure without panicking on a rank-deficient innovation
// covariance.
func Inverse(dst, src *mat.Dense) error {
	r, c := src.Dims()
	if r != c {
		return fmt.Errorf("matrix: inverse requires a square matrix, got %dx%d", r, c)
	}
	if err := dst.Inverse(src); err != nil {
		return fmt.Errorf("matrix: inverse failed: %w", err)
	}
	return nil
}

func sameDims(a, b *mat.Dense) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

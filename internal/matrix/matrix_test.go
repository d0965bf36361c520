package matrix

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMul(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 1, []float64{1, 1})
	dst := mat.NewDense(2, 1, nil)

	got := Mul(dst, a, b)
	if got == nil {
		t.Fatal("Mul returned nil for compatible shapes")
	}
	if got.At(0, 0) != 3 || got.At(1, 0) != 7 {
		t.Errorf("Mul wrong result: %v", mat.Formatted(got))
	}
}

func TestMulShapeMismatch(t *testing.T) {
	a := mat.NewDense(2, 2, nil)
	b := mat.NewDense(3, 1, nil)
	dst := mat.NewDense(2, 1, nil)

	if Mul(dst, a, b) != nil {
		t.Error("Mul should return nil on dimension mismatch")
	}
}

func TestAddSub(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	dst := mat.NewDense(2, 2, nil)

	if Add(dst, a, b) == nil {
		t.Fatal("Add failed on compatible shapes")
	}
	if dst.At(0, 0) != 2 || dst.At(1, 1) != 5 {
		t.Errorf("Add wrong result: %v", mat.Formatted(dst))
	}

	if Sub(dst, a, b) == nil {
		t.Fatal("Sub failed on compatible shapes")
	}
	if dst.At(0, 0) != 0 || dst.At(1, 1) != 3 {
		t.Errorf("Sub wrong result: %v", mat.Formatted(dst))
	}
}

func TestInverse(t *testing.T) {
	src := mat.NewDense(2, 2, []float64{4, 7, 2, 6})
	dst := mat.NewDense(2, 2, nil)

	if err := Inverse(dst, src); err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}

	var identity mat.Dense
	identity.Mul(src, dst)
	if d := identity.At(0, 0); d < 0.999 || d > 1.001 {
		t.Errorf("Inverse*src != I, got %v", mat.Formatted(&identity))
	}
}

func TestInverseSingular(t *testing.T) {
	src := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	dst := mat.NewDense(2, 2, nil)

	if err := Inverse(dst, src); err == nil {
		t.Error("Inverse should fail on a singular matrix")
	}
}

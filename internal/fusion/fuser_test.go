package fusion

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/listinvest/quadro2/internal/sensing"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestZAxisConvergesOnConstantAltitude(t *testing.T) {
	// The prior pins position at 0, so the process-noise floor has to be
	// large enough for the estimate to leave the constant-velocity line
	// through the origin within 5 s.
	tuning := Tuning{ProcessNoiseFloor: 10.0, VelocityLimit: 20.0}
	f := NewZ(tuning, 0.05, 0.5, 4.0, testLogger())

	var ts int64
	const dtMicros = int64(10000) // 100Hz
	for i := 0; i < 500; i++ {
		ts += dtMicros
		f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: ts, Vector: [3]float64{0, 0, 0}})
		f.Handle(sensing.Event{Kind: sensing.Altimeter, Timestamp: ts, Scalar: 10.0})
	}

	if math.Abs(f.Position()-10.0) > 0.2 {
		t.Errorf("expected Z position to converge near 10.0, got %v", f.Position())
	}
	if math.Abs(f.Velocity()) > 0.1 {
		t.Errorf("expected Z velocity to settle near 0, got %v", f.Velocity())
	}
}

func TestAccelerationOutOfOrderIsDropped(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 0.01, VelocityLimit: 20.0}
	f := NewZ(tuning, 0.05, 0.5, 4.0, testLogger())

	timestamps := []int64{1000, 3000, 2000, 4000}
	expectedLast := []int64{1000, 3000, 3000, 4000}

	for i, ts := range timestamps {
		f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: ts, Vector: [3]float64{0, 0, 0}})
		if got := f.LastTimestamp(); got != expectedLast[i] {
			t.Errorf("step %d: lastTimestamp = %d, want %d", i, got, expectedLast[i])
		}
	}
}

func TestVelocityIsClamped(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 0.01, VelocityLimit: 5.0}
	f := NewZ(tuning, 0.05, 0.5, 4.0, testLogger())

	var ts int64
	for i := 0; i < 50; i++ {
		ts += 100000 // 100ms steps, large dt to force a big velocity swing
		f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: ts, Vector: [3]float64{0, 0, 50.0}})
		if v := f.Velocity(); v > tuning.VelocityLimit+1e-9 || v < -tuning.VelocityLimit-1e-9 {
			t.Fatalf("velocity %v exceeded clamp %v at step %d", v, tuning.VelocityLimit, i)
		}
	}
}

func TestResetIsIdempotent(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 0.01, VelocityLimit: 20.0}
	f := NewZ(tuning, 0.05, 0.5, 4.0, testLogger())

	f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: 1000, Vector: [3]float64{0, 0, 1.0}})
	f.Handle(sensing.Event{Kind: sensing.Altimeter, Timestamp: 1000, Scalar: 7.0})

	f.Reset()
	first := snapshotState(f)
	f.Reset()
	second := snapshotState(f)

	if first != second {
		t.Errorf("Reset is not idempotent: %+v != %+v", first, second)
	}
	if first.position != 0 || first.velocity != 0 || first.lastTimestamp != 0 {
		t.Errorf("Reset did not restore power-on prior: %+v", first)
	}
}

type fuserSnapshot struct {
	position, velocity float64
	lastTimestamp      int64
}

func snapshotState(f *Fuser) fuserSnapshot {
	return fuserSnapshot{position: f.Position(), velocity: f.Velocity(), lastTimestamp: f.LastTimestamp()}
}

func TestYAxisPositionConvergesFromGNSSPosition(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 10.0, VelocityLimit: 20.0}
	f := NewY(tuning, 1.0, 0.3, testLogger())

	var ts int64
	const dtMicros = int64(10000) // 100Hz
	for i := 0; i < 500; i++ {
		ts += dtMicros
		f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: ts, Vector: [3]float64{0, 0, 0}})
		f.Handle(sensing.Event{Kind: sensing.Position, Timestamp: ts, Vector: [3]float64{0, 5.0, 0}})
	}

	if math.Abs(f.Position()-5.0) > 0.2 {
		t.Errorf("expected Y position to converge near 5.0, got %v", f.Position())
	}
}

// GROUNDSPEED observes velocity directly (StateIndex = observesVelocity), not
// position — the bug this guards against had every row observe position,
// which would have let a GROUNDSPEED correction directly overwrite the
// POSITION row's state component.
func TestYAxisGroundSpeedMovesVelocityNotPosition(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 0.01, VelocityLimit: 20.0}
	f := NewY(tuning, 1.0, 0.3, testLogger())

	var ts int64
	const dtMicros = int64(10000) // 100Hz
	for i := 0; i < 500; i++ {
		ts += dtMicros
		f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: ts, Vector: [3]float64{0, 0, 0}})
		f.Handle(sensing.Event{Kind: sensing.GroundSpeed, Timestamp: ts, Vector: [3]float64{0, 2.0, 0}})
	}

	if math.Abs(f.Velocity()-2.0) > 0.2 {
		t.Errorf("expected Y velocity to converge near 2.0 from GROUNDSPEED corrections alone, got %v", f.Velocity())
	}
	// Position is only dead-reckoned from the corrected velocity: about
	// 2 m/s over 5 s. Had GROUNDSPEED observed position, it would sit near 2.
	if math.Abs(f.Position()-10.0) > 0.2 {
		t.Errorf("expected position to follow the integrated velocity to about 10.0, got %v", f.Position())
	}
}

func TestXAxisIgnoresUnroutedKinds(t *testing.T) {
	tuning := Tuning{ProcessNoiseFloor: 0.01, VelocityLimit: 20.0}
	f := NewX(tuning, 2.0, testLogger())

	f.Handle(sensing.Event{Kind: sensing.GroundSpeed, Vector: [3]float64{9.0, 9.0, 9.0}})
	if f.Position() != 0 {
		t.Errorf("X fuser should ignore GROUNDSPEED entirely, got position %v", f.Position())
	}

	// One predict step gives position a non-zero variance, so a correction
	// can move it.
	f.Handle(sensing.Event{Kind: sensing.Acceleration, Timestamp: 10000})
	f.Handle(sensing.Event{Kind: sensing.Position, Timestamp: 10000, Vector: [3]float64{3.0, 0, 0}})
	if f.Position() == 0 {
		t.Error("expected POSITION to move the X estimate")
	}
}

// Package config collects the compile-time tuning constants that were
// #define's in the original firmware's sensors.h/remote.h.
package config

import "time"

const (
	// SensorQueueCapacity is the sensing task's inbox depth.
	SensorQueueCapacity = 16
	// RemoteQueueCapacity is the remote task's inbox depth.
	RemoteQueueCapacity = 32

	// SensorTimeout is how long a non-GNSS sensor may go silent before the
	// supervisor logs a timeout warning for it.
	SensorTimeout = 2 * time.Second
	// SensorSupervisorIdle is the receive timeout the sensing task blocks
	// on between inbox messages; when it expires with nothing received the
	// task logs a liveness heartbeat. The per-sensor timeout sweep runs on
	// each received event, not on this tick.
	SensorSupervisorIdle = 5 * time.Second

	// HeartbeatWindow is the remote link's heartbeat period: a ping goes
	// out, and a second consecutive miss inside this window escalates to
	// an emergency stop.
	HeartbeatWindow = 500 * time.Millisecond

	// AssetChunkSize bounds how many embedded-asset bytes one streamer
	// call emits.
	AssetChunkSize = 1024
	// MessageSizeCap bounds one redirected log frame, 'l' tag included
	// (mirrors the original's 128-byte malloc buffers). Other outbound
	// frames are not checked against it, and inbound websocket frames are
	// bounded by the server's own read limit instead.
	MessageSizeCap = 128
)

// AxisTuning is the process-noise floor and velocity clamp for one axis
// fuser (SENSORS_FUSE_*_LIMIT_VEL in the original source).
type AxisTuning struct {
	ProcessNoiseFloor float64
	VelocityLimit     float64
}

// MeasurementVariance holds the per-sensor measurement variances
// (SENSORS_FUSE_*_ERROR_* in the original source). Exact firmware constants
// were not recovered from the distilled spec; these are reasonable
// small-multirotor defaults in SI units (meters, m/s) and are expected to
// be re-tuned against a real sensor suite.
type MeasurementVariance struct {
	Ultrasonic    float64
	Barometer     float64
	GNSSAltitude  float64
	GNSSLatitude  float64
	GNSSLongitude float64
	GroundSpeed   float64
}

// Default returns the tuning set used when no override is supplied.
func Default() (AxisTuning, AxisTuning, AxisTuning, MeasurementVariance) {
	z := AxisTuning{ProcessNoiseFloor: 0.05, VelocityLimit: 15.0}
	y := AxisTuning{ProcessNoiseFloor: 0.05, VelocityLimit: 25.0}
	x := AxisTuning{ProcessNoiseFloor: 0.05, VelocityLimit: 25.0}
	variance := MeasurementVariance{
		Ultrasonic:    0.02,
		Barometer:     0.5,
		GNSSAltitude:  4.0,
		GNSSLatitude:  2.5,
		GNSSLongitude: 2.5,
		GroundSpeed:   0.3,
	}
	return z, y, x, variance
}

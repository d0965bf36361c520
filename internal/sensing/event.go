package sensing

// Kind tags the variant of a measurement event, mirroring the union-like
// enum in the original firmware's sensor_types.h.
type Kind int

const (
	Acceleration Kind = iota
	Orientation
	Altimeter
	Ultrasonic
	Position
	GroundSpeed
)

func (k Kind) String() string {
	switch k {
	case Acceleration:
		return "acceleration"
	case Orientation:
		return "orientation"
	case Altimeter:
		return "altimeter"
	case Ultrasonic:
		return "ultrasonic"
	case Position:
		return "position"
	case GroundSpeed:
		return "groundspeed"
	default:
		return "unknown"
	}
}

// Event is a tagged measurement record produced by a sensor driver.
// Timestamp is monotonic microseconds. Only the payload field matching Kind
// is meaningful: Vector for Acceleration/Position/GroundSpeed (world-frame
// ENU: X east, Y north, Z up), Quaternion for Orientation, Scalar for
// Altimeter/Ultrasonic.
type Event struct {
	Kind       Kind
	Timestamp  int64
	Accuracy   float64
	Vector     [3]float64
	Quaternion [4]float64
	Scalar     float64
}

package drivers

import (
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// emergencyStopFrame is sent verbatim on EmergencyStop. Interpreting or
// mixing control commands is the flight control law's job, entirely out
// of scope here: this driver only ever forwards bytes.
var emergencyStopFrame = []byte{'!', 'E', 'S', 'T', 'O', 'P'}

// SerialFlightController forwards opaque control-command payloads to a
// flight controller over a UART, the way the original firmware's MAVLink
// forwarding path did without ever parsing the messages it carried. It
// exists to give remote.FlightController a concrete, wireable
// implementation; it deliberately does not parse or construct MAVLink
// messages.
type SerialFlightController struct {
	mu   sync.Mutex
	port serial.Port
	log  *logrus.Logger
}

// NewSerialFlightController opens portName at baudRate immediately, where
// SerialGNSS defers opening its port to Start: a flight controller sink
// that fails to open fails construction, so startup stops rather than
// coming up silently unable to forward emergency stops.
func NewSerialFlightController(portName string, baudRate int, log *logrus.Logger) (*SerialFlightController, error) {
	mode := &serial.Mode{BaudRate: baudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}
	return &SerialFlightController{port: port, log: log}, nil
}

// SendControlCommand writes payload to the serial port unchanged.
func (s *SerialFlightController) SendControlCommand(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.port.Write(payload)
	return err
}

// EmergencyStop writes a fixed sentinel frame. What the flight controller
// on the other end does with it is outside this module's scope.
func (s *SerialFlightController) EmergencyStop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.port.Write(emergencyStopFrame)
	return err
}

// Close releases the underlying serial port.
func (s *SerialFlightController) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}

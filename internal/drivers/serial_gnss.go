// Package drivers holds reference peripheral implementations of the
// sensing.SensorDriver and remote.FlightController interfaces. Low-level
// sensor and wireless drivers are explicitly out of scope for this module;
// these exist only as a concrete, wireable example of the boundary the
// sensing and remote cores depend on, grounded on a BN-880Q-style GNSS
// module talking NMEA over a UART the way the original firmware's GNSS
// driver did.
package drivers

import (
	"bufio"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/listinvest/quadro2/internal/sensing"
)

// SerialGNSS reads NMEA GGA/VTG sentences off a UART and turns them into
// sensing.Position / sensing.GroundSpeed events. It only parses the two
// sentence types the sensing core actually fuses; every other NMEA
// sentence is ignored.
type SerialGNSS struct {
	portName string
	baudRate int
	log      *logrus.Logger

	port serial.Port
	stop chan struct{}
}

// NewSerialGNSS opens no port yet; the port is opened in Start so a
// misconfigured driver fails at wiring time rather than construction time.
func NewSerialGNSS(portName string, baudRate int, log *logrus.Logger) *SerialGNSS {
	return &SerialGNSS{portName: portName, baudRate: baudRate, log: log, stop: make(chan struct{})}
}

func (g *SerialGNSS) Name() string { return "gnss:" + g.portName }

// Start opens the serial port and begins delivering events to cb from a
// dedicated reader goroutine. It returns once the port is open; read
// errors after that point are logged and the goroutine exits.
func (g *SerialGNSS) Start(cb func(sensing.Event)) error {
	mode := &serial.Mode{BaudRate: g.baudRate, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	port, err := serial.Open(g.portName, mode)
	if err != nil {
		return err
	}
	g.port = port

	go g.readLoop(cb)
	return nil
}

// Close stops the reader goroutine and releases the serial port.
func (g *SerialGNSS) Close() error {
	close(g.stop)
	if g.port != nil {
		return g.port.Close()
	}
	return nil
}

func (g *SerialGNSS) readLoop(cb func(sensing.Event)) {
	scanner := bufio.NewScanner(g.port)
	for scanner.Scan() {
		select {
		case <-g.stop:
			return
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		ev, ok := parseNMEA(line)
		if !ok {
			continue
		}
		cb(ev)
	}
	if err := scanner.Err(); err != nil {
		g.log.WithError(err).Warn("gnss serial read failed")
	}
}

// parseNMEA recognizes $GxGGA (position fix) and $GxVTG (ground speed)
// sentences. Field positions follow the NMEA 0183 standard; checksum
// validation is skipped since this is a reference driver, not a production
// parser.
func parseNMEA(line string) (sensing.Event, bool) {
	if !strings.HasPrefix(line, "$") {
		return sensing.Event{}, false
	}
	fields := strings.Split(strings.SplitN(line, "*", 2)[0], ",")
	if len(fields) == 0 {
		return sensing.Event{}, false
	}

	now := time.Now().UnixMicro()
	switch {
	case strings.HasSuffix(fields[0], "GGA") && len(fields) >= 10:
		lat, latOK := parseLatLon(fields[2], fields[3], true)
		lon, lonOK := parseLatLon(fields[4], fields[5], false)
		alt, altOK := strconv.ParseFloat(fields[9], 64)
		if !latOK || !lonOK || !altOK {
			return sensing.Event{}, false
		}
		return sensing.Event{
			Kind:      sensing.Position,
			Timestamp: now,
			Vector:    [3]float64{lon, lat, alt},
		}, true

	case strings.HasSuffix(fields[0], "VTG") && len(fields) >= 8:
		knots, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return sensing.Event{}, false
		}
		speed := knots * 0.514444 // knots -> m/s
		return sensing.Event{
			Kind:      sensing.GroundSpeed,
			Timestamp: now,
			Vector:    [3]float64{0, speed, 0},
		}, true
	}
	return sensing.Event{}, false
}

// parseLatLon converts NMEA ddmm.mmmm + hemisphere into signed decimal
// degrees. isLatitude selects the 2-digit-degree (lat) vs 3-digit-degree
// (lon) field width.
func parseLatLon(value, hemisphere string, isLatitude bool) (float64, bool) {
	if value == "" {
		return 0, false
	}
	degreeDigits := 3
	if isLatitude {
		degreeDigits = 2
	}
	if len(value) < degreeDigits+1 {
		return 0, false
	}
	degrees, err := strconv.ParseFloat(value[:degreeDigits], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(value[degreeDigits:], 64)
	if err != nil {
		return 0, false
	}
	decimal := degrees + minutes/60.0
	if hemisphere == "S" || hemisphere == "W" {
		decimal = -decimal
	}
	return decimal, true
}

package sensing

// SensorDriver is anything that can deliver measurement events. Low-level
// bus/transport details (I2C, UART, SPI) live entirely behind this
// interface; the sensing task never touches a peripheral directly.
type SensorDriver interface {
	// Start begins delivering events to cb from the driver's own
	// goroutine(s) and returns once started (it does not block for the
	// driver's lifetime). The kind(s) it produces are inherent to the
	// driver and carried on each Event.
	Start(cb func(Event)) error

	// Name identifies the driver for logging.
	Name() string
}

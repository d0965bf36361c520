// quadro2 runs the sensor-fusion and remote-telemetry cores: three
// per-axis EKFs fusing accelerometer/ultrasonic/barometer/GNSS readings
// into a position/velocity estimate, and a persistent websocket link for
// telemetry, control commands, and log mirroring. Flight control law,
// motor mixing, and low-level peripheral drivers are outside this
// binary's scope; SerialGNSS and SerialFlightController are reference
// wiring only, enabled by flag.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/listinvest/quadro2/internal/assets"
	"github.com/listinvest/quadro2/internal/config"
	"github.com/listinvest/quadro2/internal/drivers"
	"github.com/listinvest/quadro2/internal/fusion"
	"github.com/listinvest/quadro2/internal/remote"
	"github.com/listinvest/quadro2/internal/sensing"
	"github.com/listinvest/quadro2/pkg/utils"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
	gitCommit = "unknown"

	httpAddr = flag.String("http-addr", ":8095", "HTTP listen address for the websocket and asset routes")
	logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	logFile  = flag.String("log-file", "stdout", "log output: stdout or a file path")

	gnssPort             = flag.String("gnss-port", "", "serial port for the reference GNSS driver; empty disables it")
	gnssBaud             = flag.Int("gnss-baud", 9600, "GNSS serial baud rate")
	flightControllerPort = flag.String("flight-controller-port", "", "serial port for the reference flight-controller sink; empty disables control forwarding")
	flightControllerBaud = flag.Int("flight-controller-baud", 57600, "flight-controller serial baud rate")
)

func main() {
	flag.Parse()

	log := utils.NewLogger(*logLevel, *logFile)
	log.WithField("version", version).WithField("build", buildTime).WithField("commit", gitCommit).Info("starting quadro2")

	var flightController remote.FlightController
	if *flightControllerPort != "" {
		fc, err := drivers.NewSerialFlightController(*flightControllerPort, *flightControllerBaud, log)
		if err != nil {
			log.WithError(err).Fatal("failed to open flight controller serial port")
		}
		defer fc.Close()
		flightController = fc
	}

	zTuning, yTuning, xTuning, variance := config.Default()
	zFuser := fusion.NewZ(fusion.Tuning(zTuning), variance.Ultrasonic, variance.Barometer, variance.GNSSAltitude, log)
	yFuser := fusion.NewY(fusion.Tuning(yTuning), variance.GNSSLatitude, variance.GroundSpeed, log)
	xFuser := fusion.NewX(fusion.Tuning(xTuning), variance.GNSSLongitude, log)

	sensorTask := sensing.NewTask(xFuser, yFuser, zFuser, log)

	var sensorDrivers []sensing.SensorDriver
	if *gnssPort != "" {
		gnss := drivers.NewSerialGNSS(*gnssPort, *gnssBaud, log)
		defer gnss.Close()
		sensorDrivers = append(sensorDrivers, gnss)
	}
	if err := sensorTask.Init(sensorDrivers); err != nil {
		log.WithError(err).Fatal("failed to initialize sensor drivers")
	}

	remoteTask := remote.NewTask(flightController, log)
	log.AddHook(remote.NewLogHook(remoteTask))

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", remote.HandleWebSocket(remoteTask, log))
	mux.Handle("/", assets.Handler())

	server := &http.Server{Addr: *httpAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sensorTask.Run(ctx)
	go remoteTask.Run(ctx)

	go func() {
		log.WithField("addr", *httpAddr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server did not shut down cleanly")
	}
}

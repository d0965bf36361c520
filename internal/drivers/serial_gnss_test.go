package drivers

import (
	"math"
	"testing"

	"github.com/listinvest/quadro2/internal/sensing"
)

func TestParseNMEAGGAProducesPositionEvent(t *testing.T) {
	line := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"
	ev, ok := parseNMEA(line)
	if !ok {
		t.Fatal("expected GGA sentence to parse")
	}
	if ev.Kind != sensing.Position {
		t.Errorf("expected Position kind, got %v", ev.Kind)
	}
	if math.Abs(ev.Vector[2]-545.4) > 1e-6 {
		t.Errorf("expected altitude 545.4, got %v", ev.Vector[2])
	}
	if ev.Vector[1] <= 0 {
		t.Errorf("expected northern-hemisphere latitude to be positive, got %v", ev.Vector[1])
	}
}

func TestParseNMEAVTGProducesGroundSpeedEvent(t *testing.T) {
	line := "$GPVTG,054.7,T,034.4,M,005.5,N,010.2,K,"
	ev, ok := parseNMEA(line)
	if !ok {
		t.Fatal("expected VTG sentence to parse")
	}
	if ev.Kind != sensing.GroundSpeed {
		t.Errorf("expected GroundSpeed kind, got %v", ev.Kind)
	}
	if ev.Vector[1] <= 0 {
		t.Errorf("expected positive ground speed, got %v", ev.Vector[1])
	}
}

func TestParseNMEARejectsUnrecognizedSentence(t *testing.T) {
	if _, ok := parseNMEA("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"); ok {
		t.Error("expected unrecognized sentence type to be rejected")
	}
	if _, ok := parseNMEA("not-nmea-at-all"); ok {
		t.Error("expected non-NMEA line to be rejected")
	}
}

func TestParseLatLonHemisphereSign(t *testing.T) {
	lat, ok := parseLatLon("4807.038", "N", true)
	if !ok || lat <= 0 {
		t.Errorf("expected positive latitude, got %v ok=%v", lat, ok)
	}
	lon, ok := parseLatLon("01131.000", "W", false)
	if !ok || lon >= 0 {
		t.Errorf("expected negative longitude for W hemisphere, got %v ok=%v", lon, ok)
	}
}

package measurement

import (
	"context"

	"github.com/tum-esm/hermes/message"
)

// WindSensor reports the aggregated wind conditions at the station.
type WindSensor interface {
	// Wind returns the most recent wind reading. ok is false if the sensor
	// has not produced any data recently.
	Wind(ctx context.Context) (r message.WindReading, ok bool, err error)
}

// AirSample is a single reading from one of the air inlet sensors.
//
// Temperature is in °C, humidity in %, pressure in hPa.
type AirSample struct {
	Temperature float64
	Humidity    float64
	Pressure    float64
}

// AirSensor measures the air at the inlet.
type AirSensor interface {
	Sample(ctx context.Context) (AirSample, error)
}

// CO2Sensor is the station's CO₂ sensor.
type CO2Sensor interface {
	// Concentration returns the current CO₂ concentration.
	Concentration(ctx context.Context) (message.CO2Reading, error)

	// ChamberTemperature returns the temperature inside the sensor's
	// measurement chamber, in °C.
	ChamberTemperature(ctx context.Context) (float64, error)

	// Compensate sets the humidity and pressure of the air that is being
	// measured.
	Compensate(ctx context.Context, humidity, pressure float64) error

	// Average sets the number of seconds over which the filtered
	// concentration is averaged.
	Average(ctx context.Context, seconds int) error
}

// Valves selects the air inlet that the station draws from.
type Valves interface {
	Open(ctx context.Context, valve int) error
}

// Pump draws air through the active inlet.
type Pump interface {
	SetFlowRate(ctx context.Context, litresPerMinute float64) error
}

// Hardware is the set of devices used by the measurement procedure.
type Hardware struct {
	Wind   WindSensor
	BME280 AirSensor
	SHT45  AirSensor
	CO2    CO2Sensor
	Valves Valves
	Pump   Pump
}

package configuration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Config is a station's configuration document.
type Config struct {
	// Revision is the configuration revision. It is assigned by the backend
	// and increases with every change.
	Revision uint32 `json:"revision"`

	// Version is the version of the station software that the configuration
	// is intended for.
	Version string `json:"version"`

	General     General     `json:"general"`
	Measurement Measurement `json:"measurement"`
	Hardware    Hardware    `json:"hardware"`
}

// General is the part of a Config that identifies the station.
type General struct {
	StationName string `json:"station_name"`
}

// Measurement is the part of a Config that controls the measurement
// procedure.
type Measurement struct {
	Timing                Timing     `json:"timing"`
	PumpedLitresPerMinute float64    `json:"pumped_litres_per_minute"`
	AirInlets             []AirInlet `json:"air_inlets"`
}

// Timing controls how often measurements are taken.
type Timing struct {
	// SecondsPerMeasurement is the time between consecutive CO₂ readings.
	SecondsPerMeasurement int `json:"seconds_per_measurement"`

	// SecondsPerMeasurementInterval is the duration of a measurement
	// interval. The air inlet is only changed between intervals.
	SecondsPerMeasurementInterval int `json:"seconds_per_measurement_interval"`
}

// AirInlet describes one of the tubes through which air is drawn into the
// station.
type AirInlet struct {
	// ValveNumber is the number of the valve that opens this inlet.
	ValveNumber int `json:"valve_number"`

	// Direction is the compass direction the inlet faces, in degrees.
	Direction float64 `json:"direction"`

	// TubeLength is the length of the tube, in metres.
	TubeLength float64 `json:"tube_length"`
}

// Hardware describes the physical characteristics of the station.
type Hardware struct {
	InnerTubeDiameterMillimetres float64 `json:"inner_tube_diameter_millimiters"`
}

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-(alpha|beta|rc)\.\d+)?$`)

// Validate returns an error if c is malformed.
func (c Config) Validate() error {
	if !versionPattern.MatchString(c.Version) {
		return fmt.Errorf("invalid version %q", c.Version)
	}

	if n := len(c.General.StationName); n < 3 || n > 256 {
		return fmt.Errorf("invalid general.station_name: length must be between 3 and 256, got %d", n)
	}

	t := c.Measurement.Timing
	if t.SecondsPerMeasurement < 1 {
		return fmt.Errorf("invalid measurement.timing.seconds_per_measurement: must be positive, got %d", t.SecondsPerMeasurement)
	}

	if t.SecondsPerMeasurementInterval < t.SecondsPerMeasurement {
		return fmt.Errorf(
			"invalid measurement.timing.seconds_per_measurement_interval: must be at least %d, got %d",
			t.SecondsPerMeasurement,
			t.SecondsPerMeasurementInterval,
		)
	}

	if c.Measurement.PumpedLitresPerMinute <= 0 {
		return fmt.Errorf("invalid measurement.pumped_litres_per_minute: must be positive, got %g", c.Measurement.PumpedLitresPerMinute)
	}

	if len(c.Measurement.AirInlets) == 0 {
		return fmt.Errorf("invalid measurement.air_inlets: must not be empty")
	}

	valves := map[int]struct{}{}
	for i, in := range c.Measurement.AirInlets {
		if _, ok := valves[in.ValveNumber]; ok {
			return fmt.Errorf("invalid measurement.air_inlets[%d].valve_number: %d is used more than once", i, in.ValveNumber)
		}
		valves[in.ValveNumber] = struct{}{}

		if in.Direction < 0 || in.Direction > 360 {
			return fmt.Errorf("invalid measurement.air_inlets[%d].direction: must be between 0 and 360, got %g", i, in.Direction)
		}

		if in.TubeLength <= 0 {
			return fmt.Errorf("invalid measurement.air_inlets[%d].tube_length: must be positive, got %g", i, in.TubeLength)
		}
	}

	if c.Hardware.InnerTubeDiameterMillimetres <= 0 {
		return fmt.Errorf(
			"invalid hardware.inner_tube_diameter_millimiters: must be positive, got %g",
			c.Hardware.InnerTubeDiameterMillimetres,
		)
	}

	return nil
}

// ReadFile reads and validates the configuration document at path.
func ReadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := decodeStrict(data, &c); err != nil {
		return Config{}, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("unable to load %s: %w", path, err)
	}

	return c, nil
}

// WriteFile atomically replaces the configuration document at path with c.
func WriteFile(path string, c Config) error {
	data, err := json.MarshalIndent(c, "", "    ")
	if err != nil {
		return err
	}

	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic replaces the file at path with data, such that the file
// contains either its previous content or data, even if the process is
// interrupted.
func writeFileAtomic(path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	tmp := f.Name()
	defer os.Remove(tmp) // nolint:errcheck

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp, mode); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// decodeStrict unmarshals data into v, rejecting any fields that v does not
// define.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

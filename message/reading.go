package message

// Reading is a value produced by one of the station's sensors. It is
// implemented by CO2Reading, WindReading and AirReading only.
type Reading interface {
	// Variant returns the wire discriminator for the reading.
	Variant() string

	// Validate returns an error if the reading is out of range.
	Validate() error

	isReading()
}

// CO2Reading is a CO₂ concentration reading, in ppm.
type CO2Reading struct {
	Raw         float64 `json:"raw"`
	Compensated float64 `json:"compensated"`
	Filtered    float64 `json:"filtered"`
}

// Variant returns "co2".
func (CO2Reading) Variant() string { return "co2" }

// Validate returns an error if any concentration is out of range.
func (r CO2Reading) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"raw", r.Raw},
		{"compensated", r.Compensated},
		{"filtered", r.Filtered},
	} {
		if err := checkRange(f.name, f.value, 0, 10_000); err != nil {
			return within("data", err)
		}
	}

	return nil
}

func (CO2Reading) isReading() {}

// WindReading is an aggregate of the wind sensor's recent samples.
//
// Directions are in degrees, speeds in m/s.
type WindReading struct {
	DirectionMin   float64 `json:"direction_min"`
	DirectionAvg   float64 `json:"direction_avg"`
	DirectionMax   float64 `json:"direction_max"`
	SpeedMin       float64 `json:"speed_min"`
	SpeedAvg       float64 `json:"speed_avg"`
	SpeedMax       float64 `json:"speed_max"`
	LastUpdateTime float64 `json:"last_update_time"`
}

// Variant returns "wind".
func (WindReading) Variant() string { return "wind" }

// Validate returns an error if any direction or speed is out of range.
func (r WindReading) Validate() error {
	checks := []error{
		checkRange("direction_min", r.DirectionMin, 0, 360),
		checkRange("direction_avg", r.DirectionAvg, 0, 360),
		checkRange("direction_max", r.DirectionMax, 0, 360),
		checkRange("speed_min", r.SpeedMin, 0, 100),
		checkRange("speed_avg", r.SpeedAvg, 0, 100),
		checkRange("speed_max", r.SpeedMax, 0, 100),
		checkRange("last_update_time", r.LastUpdateTime, 0, float64(MaxTimestamp.Unix())),
	}

	for _, err := range checks {
		if err != nil {
			return within("data", err)
		}
	}

	return nil
}

func (WindReading) isReading() {}

// AirReading holds the air inlet's temperature, humidity and pressure as
// measured by the BME280 and SHT45 sensors, and the temperature inside the CO₂
// sensor's chamber.
//
// Temperatures are in °C, humidity in %, pressure in hPa.
type AirReading struct {
	BME280Temperature  float64 `json:"bme280_temperature"`
	BME280Humidity     float64 `json:"bme280_humidity"`
	BME280Pressure     float64 `json:"bme280_pressure"`
	SHT45Temperature   float64 `json:"sht45_temperature"`
	SHT45Humidity      float64 `json:"sht45_humidity"`
	ChamberTemperature float64 `json:"chamber_temperature"`
}

// Variant returns "air".
func (AirReading) Variant() string { return "air" }

// Validate returns an error if any value is out of range.
func (r AirReading) Validate() error {
	checks := []error{
		checkRange("bme280_temperature", r.BME280Temperature, -50, 100),
		checkRange("bme280_humidity", r.BME280Humidity, 0, 100),
		checkRange("bme280_pressure", r.BME280Pressure, 500, 1500),
		checkRange("sht45_temperature", r.SHT45Temperature, -50, 100),
		checkRange("sht45_humidity", r.SHT45Humidity, 0, 100),
		checkRange("chamber_temperature", r.ChamberTemperature, -50, 100),
	}

	for _, err := range checks {
		if err != nil {
			return within("data", err)
		}
	}

	return nil
}

func (AirReading) isReading() {}

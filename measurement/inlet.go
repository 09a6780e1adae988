package measurement

import (
	"math"
	"time"

	"github.com/tum-esm/hermes/configuration"
)

// MinWindSpeed is the wind speed, in m/s, below which the station keeps
// drawing from its current inlet regardless of the wind direction.
const MinWindSpeed = 0.2

// AngularDistance returns the smallest angle, in degrees, between two compass
// directions.
func AngularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

// NearestInlet returns the inlet that faces closest to the given direction.
// Ties are resolved in favor of the inlet that appears first.
func NearestInlet(inlets []configuration.AirInlet, direction float64) configuration.AirInlet {
	best := inlets[0]
	dist := AngularDistance(best.Direction, direction)

	for _, in := range inlets[1:] {
		if d := AngularDistance(in.Direction, direction); d < dist {
			best, dist = in, d
		}
	}

	return best
}

// defaultInlet returns the inlet used when there is no wind data, which is
// the inlet on valve 1 if there is one.
func defaultInlet(inlets []configuration.AirInlet) configuration.AirInlet {
	for _, in := range inlets {
		if in.ValveNumber == 1 {
			return in
		}
	}

	return inlets[0]
}

// PumpingTime returns the time needed to replace the air in the tube of the
// given inlet.
func PumpingTime(c configuration.Config, in configuration.AirInlet) time.Duration {
	// Radius and length in decimetres, giving a volume in litres.
	r := c.Hardware.InnerTubeDiameterMillimetres * 0.5 * 0.01
	litres := math.Pi * r * r * in.TubeLength * 10

	seconds := litres / (c.Measurement.PumpedLitresPerMinute / 60)

	return time.Duration(seconds * float64(time.Second))
}

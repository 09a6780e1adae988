package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/linger"
	"github.com/tum-esm/hermes/configuration"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/queue"
)

// DefaultErrorDelay is the default time to wait before starting a new
// measurement interval after a hardware failure.
var DefaultErrorDelay = 30 * time.Second

// pumpSettleTime is the time the pump is given to reach its flow rate.
const pumpSettleTime = 500 * time.Millisecond

// HardwareError indicates that one of the station's devices failed.
type HardwareError struct {
	Device string
	Cause  error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("%s: %s", e.Device, e.Cause)
}

func (e *HardwareError) Unwrap() error {
	return e.Cause
}

// Procedure takes measurements and adds them to the outbound queue.
//
// Each measurement interval selects the air inlet facing the wind, flushes
// its tube, calibrates the CO₂ sensor against the inlet air and then records a
// CO₂ reading every few seconds until the interval has elapsed.
type Procedure struct {
	// Hardware is the set of devices to measure with.
	Hardware Hardware

	// ErrorDelay is the time to wait after a hardware failure. If it is
	// non-positive, DefaultErrorDelay is used.
	ErrorDelay time.Duration

	// Now returns the current time. If it is nil, time.Now is used.
	Now func() time.Time

	// Sleep blocks until d has elapsed or ctx is canceled. If it is nil,
	// linger.Sleep is used.
	Sleep func(ctx context.Context, d time.Duration) error

	// Logger is the target for log messages. If it is nil,
	// logging.DefaultLogger is used.
	Logger logging.Logger

	active          *configuration.AirInlet
	lastMeasurement time.Time
}

// Produce runs measurement intervals until ctx is canceled.
//
// config is called at the start of every interval, so configuration changes
// take effect from the next interval. Hardware failures are reported through
// r and do not stop the procedure.
func (p *Procedure) Produce(
	ctx context.Context,
	q *queue.Queue,
	r *queue.Reporter,
	config func() configuration.Config,
) error {
	for {
		err := p.Interval(ctx, q, config())

		var herr *HardwareError
		if !errors.As(err, &herr) {
			return err
		}

		if err := r.Error(ctx, "measurement failed", herr.Error()); err != nil {
			return err
		}

		// The state of the valves is unknown after a failure.
		p.active = nil

		if err := p.sleep(ctx, p.errorDelay()); err != nil {
			return err
		}
	}
}

// Interval performs a single measurement interval using configuration c.
//
// It returns a *HardwareError if a device fails.
func (p *Procedure) Interval(
	ctx context.Context,
	q *queue.Queue,
	c configuration.Config,
) error {
	logging.Log(p.Logger, "starting measurement interval")
	start := p.now()

	if err := p.Hardware.Pump.SetFlowRate(ctx, c.Measurement.PumpedLitresPerMinute); err != nil {
		return &HardwareError{"pump", err}
	}

	if err := p.sleep(ctx, pumpSettleTime); err != nil {
		return err
	}

	if err := p.Hardware.CO2.Average(ctx, c.Measurement.Timing.SecondsPerMeasurement); err != nil {
		return &HardwareError{"co2 sensor", err}
	}

	if err := p.selectInlet(ctx, q, c); err != nil {
		return err
	}

	if err := p.calibrate(ctx, q); err != nil {
		return err
	}

	period := time.Duration(c.Measurement.Timing.SecondsPerMeasurement) * time.Second
	interval := time.Duration(c.Measurement.Timing.SecondsPerMeasurementInterval) * time.Second

	for {
		wait := period - p.now().Sub(p.lastMeasurement)
		if wait > 0 {
			logging.Debug(p.Logger, "sleeping %s", wait)

			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}

		p.lastMeasurement = p.now()

		reading, err := p.Hardware.CO2.Concentration(ctx)
		if err != nil {
			return &HardwareError{"co2 sensor", err}
		}

		if err := p.enqueue(ctx, q, reading); err != nil {
			return err
		}

		if p.lastMeasurement.Sub(start) >= interval {
			break
		}
	}

	logging.Log(p.Logger, "finished measurement interval")

	return nil
}

// selectInlet switches to the inlet facing the wind, if necessary.
func (p *Procedure) selectInlet(
	ctx context.Context,
	q *queue.Queue,
	c configuration.Config,
) error {
	wind, ok, err := p.Hardware.Wind.Wind(ctx)
	if err != nil {
		return &HardwareError{"wind sensor", err}
	}

	inlets := c.Measurement.AirInlets
	next := defaultInlet(inlets)

	if ok {
		next = NearestInlet(inlets, wind.DirectionAvg)

		if err := p.enqueue(ctx, q, wind); err != nil {
			return err
		}
	} else {
		logging.Log(p.Logger, "no current wind data, using the inlet on valve %d", next.ValveNumber)
	}

	switch {
	case p.active == nil:
		logging.Log(p.Logger, "enabling the inlet on valve %d", next.ValveNumber)
	case ok && wind.SpeedAvg < MinWindSpeed:
		logging.Debug(p.Logger, "wind speed is very low (%g m/s)", wind.SpeedAvg)
		logging.Log(p.Logger, "staying at the inlet on valve %d", p.active.ValveNumber)
		return nil
	case p.active.ValveNumber == next.ValveNumber:
		logging.Log(p.Logger, "staying at the inlet on valve %d", next.ValveNumber)
		return nil
	default:
		logging.Log(p.Logger, "switching to the inlet on valve %d", next.ValveNumber)
	}

	return p.switchInlet(ctx, c, next)
}

// switchInlet opens the valve for the given inlet and pumps the air out of its
// tube.
func (p *Procedure) switchInlet(
	ctx context.Context,
	c configuration.Config,
	in configuration.AirInlet,
) error {
	if err := p.Hardware.Valves.Open(ctx, in.ValveNumber); err != nil {
		return &HardwareError{"valves", err}
	}

	d := PumpingTime(c, in)
	logging.Debug(p.Logger, "pumping for %s", d)

	if err := p.sleep(ctx, d); err != nil {
		return err
	}

	p.active = &in

	return nil
}

// calibrate sends the humidity and pressure of the inlet air to the CO₂
// sensor and records the air conditions.
func (p *Procedure) calibrate(ctx context.Context, q *queue.Queue) error {
	bme, err := p.Hardware.BME280.Sample(ctx)
	if err != nil {
		return &HardwareError{"bme280 sensor", err}
	}

	sht, err := p.Hardware.SHT45.Sample(ctx)
	if err != nil {
		return &HardwareError{"sht45 sensor", err}
	}

	chamber, err := p.Hardware.CO2.ChamberTemperature(ctx)
	if err != nil {
		return &HardwareError{"co2 sensor", err}
	}

	if err := p.Hardware.CO2.Compensate(ctx, sht.Humidity, bme.Pressure); err != nil {
		return &HardwareError{"co2 sensor", err}
	}

	return p.enqueue(ctx, q, message.AirReading{
		BME280Temperature:  bme.Temperature,
		BME280Humidity:     bme.Humidity,
		BME280Pressure:     bme.Pressure,
		SHT45Temperature:   sht.Temperature,
		SHT45Humidity:      sht.Humidity,
		ChamberTemperature: chamber,
	})
}

// enqueue adds a measurement message containing r to the queue.
//
// A reading that fails validation is treated as a hardware failure.
func (p *Procedure) enqueue(ctx context.Context, q *queue.Queue, r message.Reading) error {
	_, err := q.Enqueue(ctx, message.MeasurementBody{
		Timestamp: p.now().Unix(),
		Value:     r,
	})

	var verr *message.ValidationError
	if errors.As(err, &verr) {
		return &HardwareError{r.Variant() + " reading", err}
	}

	return err
}

func (p *Procedure) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}

	return time.Now()
}

func (p *Procedure) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	return linger.Sleep(ctx, d)
}

func (p *Procedure) errorDelay() time.Duration {
	if p.ErrorDelay > 0 {
		return p.ErrorDelay
	}

	return DefaultErrorDelay
}

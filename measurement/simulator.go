package measurement

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tum-esm/hermes/message"
)

// Simulator is a set of simulated devices that produce plausible readings.
//
// It is used to run a station without sensor hardware attached.
type Simulator struct {
	m        sync.Mutex
	rand     *rand.Rand
	valve    int
	flowRate float64
	average  int
	humidity float64
	pressure float64
}

// NewSimulator returns a simulator whose readings are derived from seed.
func NewSimulator(seed int64) *Simulator {
	return &Simulator{
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Hardware returns the simulated devices.
func (s *Simulator) Hardware() Hardware {
	return Hardware{
		Wind:   simulatedWind{s},
		BME280: simulatedAir{s, 0},
		SHT45:  simulatedAir{s, 0.3},
		CO2:    simulatedCO2{s},
		Valves: simulatedValves{s},
		Pump:   simulatedPump{s},
	}
}

// ActiveValve returns the number of the valve that is currently open, or
// zero if no valve has been opened.
func (s *Simulator) ActiveValve() int {
	s.m.Lock()
	defer s.m.Unlock()

	return s.valve
}

// FlowRate returns the pump's flow rate, in litres per minute.
func (s *Simulator) FlowRate() float64 {
	s.m.Lock()
	defer s.m.Unlock()

	return s.flowRate
}

// Compensation returns the humidity and pressure most recently sent to the
// CO₂ sensor, and its averaging time in seconds.
func (s *Simulator) Compensation() (humidity, pressure float64, average int) {
	s.m.Lock()
	defer s.m.Unlock()

	return s.humidity, s.pressure, s.average
}

// around returns a random value within spread of v.
func (s *Simulator) around(v, spread float64) float64 {
	s.m.Lock()
	defer s.m.Unlock()

	return v + (s.rand.Float64()*2-1)*spread
}

type simulatedWind struct{ s *Simulator }

func (w simulatedWind) Wind(context.Context) (message.WindReading, bool, error) {
	dir := math.Mod(w.s.around(180, 180)+360, 360)
	speed := math.Abs(w.s.around(2, 2))

	return message.WindReading{
		DirectionMin:   math.Max(dir-15, 0),
		DirectionAvg:   dir,
		DirectionMax:   math.Min(dir+15, 360),
		SpeedMin:       speed * 0.5,
		SpeedAvg:       speed,
		SpeedMax:       speed * 1.5,
		LastUpdateTime: float64(time.Now().Unix()),
	}, true, nil
}

type simulatedAir struct {
	s      *Simulator
	offset float64
}

func (a simulatedAir) Sample(context.Context) (AirSample, error) {
	return AirSample{
		Temperature: a.s.around(20, 5) + a.offset,
		Humidity:    a.s.around(50, 10) + a.offset,
		Pressure:    a.s.around(1013, 10),
	}, nil
}

type simulatedCO2 struct{ s *Simulator }

func (c simulatedCO2) Concentration(context.Context) (message.CO2Reading, error) {
	raw := c.s.around(415, 15)

	return message.CO2Reading{
		Raw:         raw,
		Compensated: raw + 1.5,
		Filtered:    raw + 1,
	}, nil
}

func (c simulatedCO2) ChamberTemperature(context.Context) (float64, error) {
	return c.s.around(30, 2), nil
}

func (c simulatedCO2) Compensate(_ context.Context, humidity, pressure float64) error {
	c.s.m.Lock()
	defer c.s.m.Unlock()

	c.s.humidity = humidity
	c.s.pressure = pressure

	return nil
}

func (c simulatedCO2) Average(_ context.Context, seconds int) error {
	c.s.m.Lock()
	defer c.s.m.Unlock()

	c.s.average = seconds

	return nil
}

type simulatedValves struct{ s *Simulator }

func (v simulatedValves) Open(_ context.Context, valve int) error {
	v.s.m.Lock()
	defer v.s.m.Unlock()

	v.s.valve = valve

	return nil
}

type simulatedPump struct{ s *Simulator }

func (p simulatedPump) SetFlowRate(_ context.Context, litresPerMinute float64) error {
	p.s.m.Lock()
	defer p.s.m.Unlock()

	p.s.flowRate = litresPerMinute

	return nil
}

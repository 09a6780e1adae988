package measurement_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/configuration"
	. "github.com/tum-esm/hermes/measurement"
)

var _ = DescribeTable(
	"func AngularDistance()",
	func(a, b, expect float64) {
		Expect(AngularDistance(a, b)).To(BeNumerically("~", expect, 1e-9))
		Expect(AngularDistance(b, a)).To(BeNumerically("~", expect, 1e-9))
	},
	Entry("same direction", 90.0, 90.0, 0.0),
	Entry("across north", 10.0, 350.0, 20.0),
	Entry("opposite", 0.0, 180.0, 180.0),
	Entry("obtuse", 300.0, 50.0, 110.0),
	Entry("full turn", 0.0, 360.0, 0.0),
)

var _ = Describe("func NearestInlet()", func() {
	inlets := config().Measurement.AirInlets

	It("returns the inlet facing closest to the direction", func() {
		Expect(NearestInlet(inlets, 320).ValveNumber).To(Equal(1))
		Expect(NearestInlet(inlets, 80).ValveNumber).To(Equal(2))
		Expect(NearestInlet(inlets, 10).ValveNumber).To(Equal(2))
	})

	It("prefers the first inlet when two are equally close", func() {
		Expect(NearestInlet(inlets, 175).ValveNumber).To(Equal(1))
	})
})

var _ = Describe("func PumpingTime()", func() {
	It("returns the time needed to pump the volume of the tube", func() {
		// π × (0.025 dm)² × 500 dm ≈ 0.9817 litres at 0.5 litres per minute.
		d := PumpingTime(config(), configuration.AirInlet{TubeLength: 50})
		Expect(d).To(BeNumerically("~", 117_809_724*time.Microsecond, time.Millisecond))
	})
})

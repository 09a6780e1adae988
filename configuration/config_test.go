package configuration_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/tum-esm/hermes/configuration"
)

var _ = Describe("type Config", func() {
	Describe("func Validate()", func() {
		It("accepts a well-formed configuration", func() {
			Expect(validConfig(1).Validate()).To(Succeed())
		})

		DescribeTable(
			"it rejects malformed configurations",
			func(modify func(*Config), expect string) {
				c := validConfig(1)
				modify(&c)
				Expect(c.Validate()).To(MatchError(expect))
			},
			Entry(
				"invalid version",
				func(c *Config) { c.Version = "latest" },
				`invalid version "latest"`,
			),
			Entry(
				"short station name",
				func(c *Config) { c.General.StationName = "ab" },
				"invalid general.station_name: length must be between 3 and 256, got 2",
			),
			Entry(
				"interval shorter than measurement",
				func(c *Config) { c.Measurement.Timing.SecondsPerMeasurementInterval = 5 },
				"invalid measurement.timing.seconds_per_measurement_interval: must be at least 10, got 5",
			),
			Entry(
				"no air inlets",
				func(c *Config) { c.Measurement.AirInlets = nil },
				"invalid measurement.air_inlets: must not be empty",
			),
			Entry(
				"duplicate valve",
				func(c *Config) { c.Measurement.AirInlets[1].ValveNumber = 1 },
				"invalid measurement.air_inlets[1].valve_number: 1 is used more than once",
			),
			Entry(
				"direction out of range",
				func(c *Config) { c.Measurement.AirInlets[0].Direction = 361 },
				"invalid measurement.air_inlets[0].direction: must be between 0 and 360, got 361",
			),
		)
	})
})

var _ = Describe("func ReadFile()", func() {
	It("reads a document written by WriteFile()", func() {
		path := writeConfig(validConfig(3))

		c, err := ReadFile(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(c).To(Equal(validConfig(3)))
	})

	It("uses the wire field names", func() {
		path := writeConfig(validConfig(3))

		Expect(readBytes(path)).To(MatchJSON(`{
			"revision": 3,
			"version": "0.1.0",
			"general": {"station_name": "station-1"},
			"measurement": {
				"timing": {
					"seconds_per_measurement": 10,
					"seconds_per_measurement_interval": 120
				},
				"pumped_litres_per_minute": 0.5,
				"air_inlets": [
					{"valve_number": 1, "direction": 300, "tube_length": 50},
					{"valve_number": 2, "direction": 50, "tube_length": 50}
				]
			},
			"hardware": {"inner_tube_diameter_millimiters": 5}
		}`))
	})

	It("rejects unknown fields", func() {
		path := filepath.Join(GinkgoT().TempDir(), "config.json")
		err := os.WriteFile(path, []byte(`{"revision": 1, "valves": {}}`), 0644)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = ReadFile(path)
		Expect(err).To(MatchError(ContainSubstring("valves")))
	})

	It("returns an error if the file does not exist", func() {
		_, err := ReadFile(filepath.Join(GinkgoT().TempDir(), "missing.json"))
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})

var _ = Describe("func DecodeRequest()", func() {
	It("stamps the configuration with the request revision", func() {
		req, err := DecodeRequest([]byte(`{
			"revision": 6,
			"configuration": {
				"version": "0.1.0",
				"general": {"station_name": "station-1"},
				"measurement": {
					"timing": {
						"seconds_per_measurement": 10,
						"seconds_per_measurement_interval": 120
					},
					"pumped_litres_per_minute": 0.5,
					"air_inlets": [
						{"valve_number": 1, "direction": 300, "tube_length": 50},
						{"valve_number": 2, "direction": 50, "tube_length": 50}
					]
				},
				"hardware": {"inner_tube_diameter_millimiters": 5}
			}
		}`))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(req.Revision).To(BeEquivalentTo(6))
		Expect(req.Config()).To(Equal(validConfig(6)))
	})

	It("ignores fields that it does not know", func() {
		req, err := DecodeRequest([]byte(`{
			"revision": 6,
			"issued_by": "operator",
			"configuration": {
				"version": "0.1.0",
				"general": {"station_name": "station-1"},
				"measurement": {
					"timing": {
						"seconds_per_measurement": 10,
						"seconds_per_measurement_interval": 120
					},
					"pumped_litres_per_minute": 0.5,
					"air_inlets": [
						{"valve_number": 1, "direction": 300, "tube_length": 50},
						{"valve_number": 2, "direction": 50, "tube_length": 50}
					]
				},
				"hardware": {"inner_tube_diameter_millimiters": 5},
				"calibration": {}
			}
		}`))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(req.Config()).To(Equal(validConfig(6)))
	})

	It("rejects a zero revision", func() {
		_, err := DecodeRequest([]byte(`{"revision": 0, "configuration": {}}`))
		Expect(err).To(MatchError(ContainSubstring("revision must be between 1 and")))
	})

	It("rejects malformed JSON", func() {
		_, err := DecodeRequest([]byte(`{`))
		Expect(err).To(MatchError(HavePrefix("unable to parse configuration request")))
	})
})

package message_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
)

var _ = Describe("type Message", func() {
	var m message.Message

	BeforeEach(func() {
		m = message.Message{
			Header: message.Header{
				ID:       1,
				Status:   message.Pending,
				Revision: 3,
				IssuedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			},
			Body: message.StatusBody{
				Severity: message.Info,
				Subject:  "startup",
				Details:  "station started",
			},
		}
	})

	Describe("func Validate()", func() {
		It("accepts a well-formed message", func() {
			Expect(m.Validate()).To(Succeed())
		})

		It("rejects an issue timestamp before 2022", func() {
			m.Header.IssuedAt = time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
			Expect(m.Validate()).To(MatchError(HavePrefix("invalid header.issue_timestamp")))
		})

		It("requires a success timestamp on delivered messages", func() {
			m.Header.Status = message.Delivered
			Expect(m.Validate()).To(MatchError(HavePrefix("invalid header.success_timestamp")))

			m.Header.DeliveredAt = m.Header.IssuedAt.Add(time.Minute)
			Expect(m.Validate()).To(Succeed())
		})

		It("forbids a success timestamp on messages that are not delivered", func() {
			m.Header.Status = message.Sent
			m.Header.DeliveredAt = m.Header.IssuedAt
			Expect(m.Validate()).To(MatchError("invalid header.success_timestamp: must be empty for sent messages"))
		})

		It("rejects an empty subject", func() {
			m.Body = message.StatusBody{Severity: message.Error, Details: "x"}
			Expect(m.Validate()).To(MatchError("invalid body.subject: length must be between 1 and 1024, got 0"))
		})

		It("rejects overly long details", func() {
			m.Body = message.StatusBody{
				Severity: message.Error,
				Subject:  "x",
				Details:  strings.Repeat("x", 1025),
			}
			Expect(m.Validate()).To(MatchError(HavePrefix("invalid body.details")))
		})

		It("rejects out-of-range readings", func() {
			m.Body = message.MeasurementBody{
				Timestamp: m.Header.IssuedAt.Unix(),
				Value: message.AirReading{
					BME280Temperature:  20,
					BME280Humidity:     40,
					BME280Pressure:     200,
					SHT45Temperature:   20,
					SHT45Humidity:      40,
					ChamberTemperature: 25,
				},
			}
			Expect(m.Validate()).To(MatchError("invalid body.value.data.bme280_pressure: must be between 500 and 1500, got 200"))
		})

		It("rejects a measurement without a reading", func() {
			m.Body = message.MeasurementBody{Timestamp: m.Header.IssuedAt.Unix()}
			Expect(m.Validate()).To(MatchError("invalid body.value: must not be empty"))
		})
	})
})

var _ = Describe("func Timestamp()", func() {
	It("truncates to millisecond precision in UTC", func() {
		t := time.Date(2024, 1, 1, 0, 0, 0, 123_456_789, time.FixedZone("X", 3600))
		Expect(message.Timestamp(t)).To(Equal(time.Date(2023, 12, 31, 23, 0, 0, 123_000_000, time.UTC)))
	})

	It("leaves the zero time alone", func() {
		Expect(message.Timestamp(time.Time{}).IsZero()).To(BeTrue())
	})
})

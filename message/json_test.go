package message_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
)

var _ = Describe("JSON wire format", func() {
	issuedAt := time.Unix(1_700_000_000, 500_000_000).UTC()

	Describe("type Header", func() {
		It("encodes an unpersisted, undelivered header with null fields", func() {
			data, err := json.Marshal(message.Header{
				Status:   message.Pending,
				Revision: 5,
				IssuedAt: issuedAt,
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(data).To(MatchJSON(`{
				"identifier": null,
				"status": "pending",
				"revision": 5,
				"issue_timestamp": 1700000000.5,
				"success_timestamp": null
			}`))
		})

		It("encodes a delivered header", func() {
			data, err := json.Marshal(message.Header{
				ID:          42,
				Status:      message.Delivered,
				Revision:    5,
				IssuedAt:    issuedAt,
				DeliveredAt: issuedAt.Add(2 * time.Second),
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(data).To(MatchJSON(`{
				"identifier": 42,
				"status": "delivered",
				"revision": 5,
				"issue_timestamp": 1700000000.5,
				"success_timestamp": 1700000002.5
			}`))
		})

		It("rejects unknown fields", func() {
			var h message.Header
			err := json.Unmarshal([]byte(`{
				"identifier": 1,
				"status": "sent",
				"revision": 1,
				"issue_timestamp": 1700000000,
				"success_timestamp": null,
				"priority": 3
			}`), &h)
			Expect(err).To(MatchError(ContainSubstring("priority")))
		})
	})

	Describe("type MeasurementBody", func() {
		It("encodes the reading as a tagged variant", func() {
			data, err := message.MarshalBody(message.MeasurementBody{
				Timestamp: 1_700_000_000,
				Value: message.WindReading{
					DirectionMin:   10,
					DirectionAvg:   20,
					DirectionMax:   30,
					SpeedMin:       0.5,
					SpeedAvg:       1.5,
					SpeedMax:       2.5,
					LastUpdateTime: 1_699_999_999,
				},
			})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(data).To(MatchJSON(`{
				"timestamp": 1700000000,
				"value": {
					"variant": "wind",
					"data": {
						"direction_min": 10,
						"direction_avg": 20,
						"direction_max": 30,
						"speed_min": 0.5,
						"speed_avg": 1.5,
						"speed_max": 2.5,
						"last_update_time": 1699999999
					}
				}
			}`))
		})

		It("decodes the reading based on its variant", func() {
			b, err := message.UnmarshalBody(
				message.MeasurementKind,
				[]byte(`{"timestamp": 1700000000, "value": {"variant": "co2", "data": {"raw": 410.5, "compensated": 411, "filtered": 412}}}`),
			)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(b).To(Equal(message.MeasurementBody{
				Timestamp: 1_700_000_000,
				Value: message.CO2Reading{
					Raw:         410.5,
					Compensated: 411,
					Filtered:    412,
				},
			}))
		})

		It("returns a validation error for an unknown variant", func() {
			_, err := message.UnmarshalBody(
				message.MeasurementKind,
				[]byte(`{"timestamp": 1700000000, "value": {"variant": "ch4", "data": {}}}`),
			)

			var verr *message.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
		})
	})

	Describe("type Message", func() {
		It("infers the body kind when decoding", func() {
			var m message.Message
			err := json.Unmarshal([]byte(`{
				"header": {
					"identifier": 7,
					"status": "sent",
					"revision": 2,
					"issue_timestamp": 1700000000.25,
					"success_timestamp": null
				},
				"body": {
					"severity": "warning",
					"subject": "pump",
					"details": "pump speed below target"
				}
			}`), &m)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(m).To(Equal(message.Message{
				Header: message.Header{
					ID:       7,
					Status:   message.Sent,
					Revision: 2,
					IssuedAt: time.Unix(1_700_000_000, 250_000_000).UTC(),
				},
				Body: message.StatusBody{
					Severity: message.Warning,
					Subject:  "pump",
					Details:  "pump speed below target",
				},
			}))
		})

		It("rejects a body that is neither a status nor a measurement", func() {
			var m message.Message
			err := json.Unmarshal([]byte(`{
				"header": {
					"identifier": null,
					"status": "pending",
					"revision": 0,
					"issue_timestamp": 1700000000,
					"success_timestamp": null
				},
				"body": {"text": "hello"}
			}`), &m)
			Expect(err).To(MatchError(ContainSubstring("neither a status nor a measurement")))
		})
	})
})

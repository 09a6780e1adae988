package providertest

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/internal/x/gomegax"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

func declareMessageTests(tc *TestContext) {
	ginkgo.Describe("outbound queue", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			dataStore = tc.SetupDataStore()
		})

		ginkgo.Describe("func Append()", func() {
			ginkgo.It("persists the message as pending with the current revision", func() {
				err := dataStore.SaveRevision(tc.Context, 4)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				before := time.Now().Truncate(time.Millisecond)
				m := appendStatus(tc, dataStore, "<subject>")
				after := time.Now()

				gomega.Expect(m.Header.ID).ToNot(gomega.BeZero())
				gomega.Expect(m.Header.Status).To(gomega.Equal(message.Pending))
				gomega.Expect(m.Header.Revision).To(gomega.BeEquivalentTo(4))
				gomega.Expect(m.Header.IssuedAt).To(gomega.BeTemporally(">=", before))
				gomega.Expect(m.Header.IssuedAt).To(gomega.BeTemporally("<=", after))
				gomega.Expect(m.Header.DeliveredAt.IsZero()).To(gomega.BeTrue())
				gomega.Expect(m.Body).To(gomega.Equal(statusBody("<subject>")))

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(pending).To(gomegax.EqualX([]message.Message{m}))
			})

			ginkgo.It("assigns strictly increasing IDs", func() {
				m1 := appendStatus(tc, dataStore, "<first>")
				m2 := appendStatus(tc, dataStore, "<second>")
				m3 := appendStatus(tc, dataStore, "<third>")

				gomega.Expect(m2.Header.ID).To(gomega.BeNumerically(">", m1.Header.ID))
				gomega.Expect(m3.Header.ID).To(gomega.BeNumerically(">", m2.Header.ID))
			})

			ginkgo.It("preserves measurement readings", func() {
				body := message.MeasurementBody{
					Timestamp: time.Now().Unix(),
					Value: message.AirReading{
						BME280Temperature:  21.5,
						BME280Humidity:     40.25,
						BME280Pressure:     1013.2,
						SHT45Temperature:   21.4,
						SHT45Humidity:      41,
						ChamberTemperature: 30.125,
					},
				}

				m, err := dataStore.Append(tc.Context, body)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(pending).To(gomega.HaveLen(1))
				gomega.Expect(pending[0].Header.ID).To(gomega.Equal(m.Header.ID))
				gomega.Expect(pending[0].Body).To(gomega.Equal(body))
			})

			ginkgo.It("never reuses IDs of removed messages", func() {
				m1 := appendStatus(tc, dataStore, "<first>")

				err := dataStore.Remove(tc.Context, m1.Header.ID)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				m2 := appendStatus(tc, dataStore, "<second>")
				gomega.Expect(m2.Header.ID).To(gomega.BeNumerically(">", m1.Header.ID))
			})
		})

		ginkgo.Describe("func ListPending()", func() {
			ginkgo.It("returns an empty result if the queue is empty", func() {
				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(pending).To(gomega.BeEmpty())
			})

			ginkgo.It("returns pending and sent messages in the order they were appended", func() {
				m1 := appendStatus(tc, dataStore, "<first>")
				m2 := appendStatus(tc, dataStore, "<second>")
				m3 := appendStatus(tc, dataStore, "<third>")

				_, err := dataStore.UpdateStatus(tc.Context, m2.Header.ID, message.Sent)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ids(pending)).To(gomega.Equal([]uint64{
					m1.Header.ID,
					m2.Header.ID,
					m3.Header.ID,
				}))
			})

			ginkgo.It("excludes delivered messages", func() {
				m1 := appendStatus(tc, dataStore, "<first>")
				m2 := appendStatus(tc, dataStore, "<second>")
				deliver(tc, dataStore, m1.Header.ID)

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ids(pending)).To(gomega.Equal([]uint64{m2.Header.ID}))
			})
		})

		ginkgo.Describe("func UpdateStatus()", func() {
			var m message.Message

			ginkgo.BeforeEach(func() {
				m = appendStatus(tc, dataStore, "<subject>")
			})

			ginkgo.It("moves a message forward through its lifecycle", func() {
				sent, err := dataStore.UpdateStatus(tc.Context, m.Header.ID, message.Sent)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(sent.Header.Status).To(gomega.Equal(message.Sent))
				gomega.Expect(sent.Header.DeliveredAt.IsZero()).To(gomega.BeTrue())

				before := time.Now().Truncate(time.Millisecond)
				delivered := deliver(tc, dataStore, m.Header.ID)

				gomega.Expect(delivered.Header.Status).To(gomega.Equal(message.Delivered))
				gomega.Expect(delivered.Header.DeliveredAt).To(gomega.BeTemporally(">=", before))
				gomega.Expect(delivered.Header.IssuedAt).To(gomega.Equal(m.Header.IssuedAt))
				gomega.Expect(delivered.Body).To(gomega.Equal(m.Body))
			})

			ginkgo.It("allows a pending message to be delivered directly", func() {
				delivered := deliver(tc, dataStore, m.Header.ID)
				gomega.Expect(delivered.Header.Status).To(gomega.Equal(message.Delivered))
			})

			ginkgo.DescribeTable(
				"it returns an InvalidTransitionError if the status does not move forward",
				func(setup []message.Status, to message.Status) {
					from := message.Pending

					for _, s := range setup {
						_, err := dataStore.UpdateStatus(tc.Context, m.Header.ID, s)
						gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
						from = s
					}

					_, err := dataStore.UpdateStatus(tc.Context, m.Header.ID, to)
					gomega.Expect(err).To(gomega.Equal(&persistence.InvalidTransitionError{
						ID:   m.Header.ID,
						From: from,
						To:   to,
					}))
				},
				ginkgo.Entry("pending -> pending", nil, message.Pending),
				ginkgo.Entry("sent -> sent", []message.Status{message.Sent}, message.Sent),
				ginkgo.Entry("sent -> pending", []message.Status{message.Sent}, message.Pending),
				ginkgo.Entry("delivered -> sent", []message.Status{message.Delivered}, message.Sent),
				ginkgo.Entry("delivered -> delivered", []message.Status{message.Delivered}, message.Delivered),
			)

			ginkgo.It("does not modify a delivered message when the transition is rejected", func() {
				delivered := deliver(tc, dataStore, m.Header.ID)

				_, err := dataStore.UpdateStatus(tc.Context, m.Header.ID, message.Delivered)
				gomega.Expect(err).To(gomega.HaveOccurred())

				again, err := dataStore.UpdateStatus(tc.Context, m.Header.ID, message.Sent)
				gomega.Expect(err).To(gomega.Equal(&persistence.InvalidTransitionError{
					ID:   m.Header.ID,
					From: message.Delivered,
					To:   message.Sent,
				}))
				gomega.Expect(again).To(gomega.Equal(message.Message{}))

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(pending).To(gomega.BeEmpty())
				gomega.Expect(delivered.Header.DeliveredAt.IsZero()).To(gomega.BeFalse())
			})

			ginkgo.It("returns an UnknownMessageError if the message does not exist", func() {
				_, err := dataStore.UpdateStatus(tc.Context, m.Header.ID+100, message.Sent)
				gomega.Expect(err).To(gomega.Equal(persistence.UnknownMessageError{ID: m.Header.ID + 100}))
			})
		})

		ginkgo.Describe("func Remove()", func() {
			ginkgo.It("removes the message from the queue", func() {
				m1 := appendStatus(tc, dataStore, "<first>")
				m2 := appendStatus(tc, dataStore, "<second>")

				err := dataStore.Remove(tc.Context, m1.Header.ID)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				pending, err := dataStore.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ids(pending)).To(gomega.Equal([]uint64{m2.Header.ID}))
			})

			ginkgo.It("returns an UnknownMessageError if the message does not exist", func() {
				err := dataStore.Remove(tc.Context, 999)
				gomega.Expect(err).To(gomega.Equal(persistence.UnknownMessageError{ID: 999}))
			})
		})
	})
}

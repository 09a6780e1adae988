package providertest

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

func declareCompactTests(tc *TestContext) {
	ginkgo.Describe("func Compact()", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			dataStore = tc.SetupDataStore()
		})

		ginkgo.It("removes messages delivered before the threshold", func() {
			m1 := appendStatus(tc, dataStore, "<first>")
			m2 := appendStatus(tc, dataStore, "<second>")
			m3 := appendStatus(tc, dataStore, "<third>")

			deliver(tc, dataStore, m1.Header.ID)
			deliver(tc, dataStore, m2.Header.ID)

			n, err := dataStore.Compact(tc.Context, time.Now().Add(time.Second))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(n).To(gomega.Equal(2))

			// Compacted messages are gone entirely, so they can not be
			// modified any further.
			_, err = dataStore.UpdateStatus(tc.Context, m1.Header.ID, message.Delivered)
			gomega.Expect(err).To(gomega.Equal(persistence.UnknownMessageError{ID: m1.Header.ID}))

			pending, err := dataStore.ListPending(tc.Context)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(ids(pending)).To(gomega.Equal([]uint64{m3.Header.ID}))
		})

		ginkgo.It("retains messages delivered after the threshold", func() {
			m := appendStatus(tc, dataStore, "<subject>")
			deliver(tc, dataStore, m.Header.ID)

			n, err := dataStore.Compact(tc.Context, time.Now().Add(-time.Hour))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			gomega.Expect(n).To(gomega.BeZero())

			err = dataStore.Remove(tc.Context, m.Header.ID)
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		})

		ginkgo.It("does not reuse the IDs of compacted messages", func() {
			m1 := appendStatus(tc, dataStore, "<first>")
			deliver(tc, dataStore, m1.Header.ID)

			_, err := dataStore.Compact(tc.Context, time.Now().Add(time.Second))
			gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

			m2 := appendStatus(tc, dataStore, "<second>")
			gomega.Expect(m2.Header.ID).To(gomega.BeNumerically(">", m1.Header.ID))
		})
	})
}

package providertest

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

func declareDataStoreTests(tc *TestContext) {
	ginkgo.Describe("type DataStore (interface)", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			dataStore = tc.SetupDataStore()
		})

		ginkgo.Describe("func Close()", func() {
			ginkgo.It("returns an error if the data-store is already closed", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.Close()
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})

			ginkgo.It("causes subsequent operations to fail", func() {
				err := dataStore.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				_, err = dataStore.Append(tc.Context, statusBody("<subject>"))
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.UpdateStatus(tc.Context, 1, message.Sent)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.ListPending(tc.Context)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				err = dataStore.Remove(tc.Context, 1)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.LoadRevision(tc.Context)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				err = dataStore.SaveRevision(tc.Context, 1)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))

				_, err = dataStore.Compact(tc.Context, time.Now())
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreClosed))
			})
		})
	})
}

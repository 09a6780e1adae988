package providertest

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

func declareProviderTests(tc *TestContext) {
	ginkgo.Describe("type Provider (interface)", func() {
		var provider persistence.Provider

		ginkgo.BeforeEach(func() {
			provider = tc.SetupProvider()
		})

		ginkgo.Describe("func Open()", func() {
			ginkgo.It("returns ErrDataStoreLocked if the data-store is already open", func() {
				tc.OpenDataStore(provider, DefaultStation)

				_, err := provider.Open(tc.Context, DefaultStation)
				gomega.Expect(err).To(gomega.Equal(persistence.ErrDataStoreLocked))
			})

			ginkgo.It("allows the data-store to be re-opened after it is closed", func() {
				ds, err := provider.Open(tc.Context, DefaultStation)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = ds.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				tc.OpenDataStore(provider, DefaultStation)
			})

			ginkgo.It("returns different instances for different stations", func() {
				ds1 := tc.OpenDataStore(provider, DefaultStation)
				ds2 := tc.OpenDataStore(provider, OtherStation)

				gomega.Expect(ds1).ToNot(gomega.BeIdenticalTo(ds2))
			})

			ginkgo.It("retains messages and the revision after the data-store is re-opened", func() {
				ds, err := provider.Open(tc.Context, DefaultStation)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = ds.SaveRevision(tc.Context, 7)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				m1 := appendStatus(tc, ds, "<first>")
				m2 := appendStatus(tc, ds, "<second>")

				_, err = ds.UpdateStatus(tc.Context, m1.Header.ID, message.Sent)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = ds.Close()
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				ds = tc.OpenDataStore(provider, DefaultStation)

				r, err := ds.LoadRevision(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r).To(gomega.BeEquivalentTo(7))

				pending, err := ds.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ids(pending)).To(gomega.Equal([]uint64{m1.Header.ID, m2.Header.ID}))
				gomega.Expect(pending[0].Header.Status).To(gomega.Equal(message.Sent))
				gomega.Expect(pending[1].Header.Status).To(gomega.Equal(message.Pending))
			})

			ginkgo.It("isolates the data of different stations", func() {
				ds1 := tc.OpenDataStore(provider, DefaultStation)
				ds2 := tc.OpenDataStore(provider, OtherStation)

				appendStatus(tc, ds1, "<subject>")

				err := ds1.SaveRevision(tc.Context, 3)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				pending, err := ds2.ListPending(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(pending).To(gomega.BeEmpty())

				r, err := ds2.LoadRevision(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r).To(gomega.BeZero())
			})
		})
	})
}

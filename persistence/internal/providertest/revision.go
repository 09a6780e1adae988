package providertest

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/persistence"
)

func declareRevisionTests(tc *TestContext) {
	ginkgo.Describe("configuration revision", func() {
		var dataStore persistence.DataStore

		ginkgo.BeforeEach(func() {
			dataStore = tc.SetupDataStore()
		})

		ginkgo.Describe("func LoadRevision()", func() {
			ginkgo.It("returns zero if no revision has been saved", func() {
				r, err := dataStore.LoadRevision(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r).To(gomega.BeZero())
			})

			ginkgo.It("returns the most recently saved revision", func() {
				err := dataStore.SaveRevision(tc.Context, 3)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				err = dataStore.SaveRevision(tc.Context, 10)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				r, err := dataStore.LoadRevision(tc.Context)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r).To(gomega.BeEquivalentTo(10))
			})
		})

		ginkgo.Describe("func SaveRevision()", func() {
			ginkgo.BeforeEach(func() {
				err := dataStore.SaveRevision(tc.Context, 5)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			})

			ginkgo.DescribeTable(
				"it returns a StaleRevisionError if the revision is not newer",
				func(r uint32) {
					err := dataStore.SaveRevision(tc.Context, r)
					gomega.Expect(err).To(gomega.Equal(&persistence.StaleRevisionError{
						Current:   5,
						Requested: r,
					}))

					current, err := dataStore.LoadRevision(tc.Context)
					gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
					gomega.Expect(current).To(gomega.BeEquivalentTo(5))
				},
				ginkgo.Entry("equal", uint32(5)),
				ginkgo.Entry("older", uint32(2)),
				ginkgo.Entry("zero", uint32(0)),
			)

			ginkgo.It("stamps subsequently appended messages with the new revision", func() {
				m1 := appendStatus(tc, dataStore, "<first>")

				err := dataStore.SaveRevision(tc.Context, 6)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				m2 := appendStatus(tc, dataStore, "<second>")

				gomega.Expect(m1.Header.Revision).To(gomega.BeEquivalentTo(5))
				gomega.Expect(m2.Header.Revision).To(gomega.BeEquivalentTo(6))
			})
		})
	})
}

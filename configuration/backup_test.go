package configuration_test

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/tum-esm/hermes/configuration"
)

var _ = Describe("type Guard", func() {
	var (
		path     string
		original []byte
	)

	BeforeEach(func() {
		path = writeConfig(validConfig(5))
		original = readBytes(path)
	})

	It("restores the original content on release", func() {
		g, err := Backup(path)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(WriteFile(path, validConfig(6))).To(Succeed())
		Expect(g.Release()).To(Succeed())

		Expect(readBytes(path)).To(Equal(original))
		Expect(path + ".backup").NotTo(BeAnExistingFile())
	})

	It("restores the original content if the document was removed", func() {
		g, err := Backup(path)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(os.Remove(path)).To(Succeed())
		Expect(g.Release()).To(Succeed())

		Expect(readBytes(path)).To(Equal(original))
	})

	It("keeps the new content when committed", func() {
		g, err := Backup(path)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(WriteFile(path, validConfig(6))).To(Succeed())
		Expect(g.Commit()).To(Succeed())
		Expect(g.Release()).To(Succeed())

		c, err := ReadFile(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(c.Revision).To(BeEquivalentTo(6))
		Expect(path + ".backup").NotTo(BeAnExistingFile())
	})

	It("fails if the document does not exist", func() {
		Expect(os.Remove(path)).To(Succeed())

		_, err := Backup(path)
		Expect(os.IsNotExist(err)).To(BeTrue())
	})
})

var _ = Describe("func RecoverBackup()", func() {
	It("restores a document that was being replaced", func() {
		path := writeConfig(validConfig(5))
		original := readBytes(path)

		// Simulate a crash in the middle of a change.
		_, err := Backup(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(WriteFile(path, validConfig(6))).To(Succeed())

		ok, err := RecoverBackup(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(readBytes(path)).To(Equal(original))
	})

	It("does nothing if there is no backup", func() {
		path := writeConfig(validConfig(5))

		ok, err := RecoverBackup(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})

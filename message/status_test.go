package message_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
)

var _ = Describe("type Status", func() {
	DescribeTable(
		"func Precedes()",
		func(from, to message.Status, expect bool) {
			Expect(from.Precedes(to)).To(Equal(expect))
		},
		Entry("pending -> sent", message.Pending, message.Sent, true),
		Entry("sent -> delivered", message.Sent, message.Delivered, true),
		Entry("pending -> delivered", message.Pending, message.Delivered, true),
		Entry("pending -> pending", message.Pending, message.Pending, false),
		Entry("sent -> pending", message.Sent, message.Pending, false),
		Entry("delivered -> sent", message.Delivered, message.Sent, false),
		Entry("delivered -> delivered", message.Delivered, message.Delivered, false),
		Entry("invalid -> sent", message.Status(0), message.Sent, false),
		Entry("pending -> invalid", message.Pending, message.Status(99), false),
	)

	Describe("func UnmarshalText()", func() {
		It("parses each wire value", func() {
			for _, s := range []message.Status{message.Pending, message.Sent, message.Delivered} {
				var v message.Status
				err := v.UnmarshalText([]byte(s.String()))
				Expect(err).ShouldNot(HaveOccurred())
				Expect(v).To(Equal(s))
			}
		})

		It("returns a validation error for unknown values", func() {
			var v message.Status
			err := v.UnmarshalText([]byte("archived"))

			var verr *message.ValidationError
			Expect(err).To(BeAssignableToTypeOf(verr))
			Expect(err).To(MatchError(ContainSubstring("archived")))
		})
	})

	Describe("func MarshalText()", func() {
		It("refuses to marshal an invalid status", func() {
			_, err := message.Status(0).MarshalText()
			Expect(err).Should(HaveOccurred())
		})
	})
})

var _ = Describe("type Severity", func() {
	It("accepts the defined severities", func() {
		Expect(message.Info.Validate()).To(Succeed())
		Expect(message.Warning.Validate()).To(Succeed())
		Expect(message.Error.Validate()).To(Succeed())
	})

	It("rejects anything else", func() {
		Expect(message.Severity("fatal").Validate()).To(MatchError(`invalid severity: must be one of info, warning or error, got "fatal"`))
	})
})

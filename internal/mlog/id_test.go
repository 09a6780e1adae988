package mlog_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/internal/mlog"
)

var _ = Describe("func FormatID()", func() {
	It("returns the decimal representation of the ID", func() {
		Expect(mlog.FormatID(1234)).To(Equal("1234"))
	})

	It("returns an empty string for unpersisted messages", func() {
		Expect(mlog.FormatID(0)).To(Equal(""))
	})
})

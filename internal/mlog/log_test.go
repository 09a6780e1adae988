package mlog_test

import (
	"errors"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tum-esm/hermes/internal/mlog"
	"github.com/tum-esm/hermes/message"
)

var _ = Describe("lifecycle log messages", func() {
	var (
		logger      *logging.BufferedLogger
		status      message.Message
		measurement message.Message
	)

	BeforeEach(func() {
		logger = &logging.BufferedLogger{}

		status = message.Message{
			Header: message.Header{
				ID:       12,
				Status:   message.Pending,
				Revision: 3,
			},
			Body: message.StatusBody{
				Severity: message.Warning,
				Subject:  "<subject>",
				Details:  "<details>",
			},
		}

		measurement = message.Message{
			Header: message.Header{
				ID:       13,
				Status:   message.Sent,
				Revision: 3,
			},
			Body: message.MeasurementBody{
				Timestamp: 1_700_000_000,
				Value:     message.CO2Reading{Raw: 400},
			},
		}
	})

	Describe("func LogEnqueue()", func() {
		It("logs in the correct format", func() {
			mlog.LogEnqueue(logger, status)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 12  ⋲ 3  ⊕    warning ● <subject>",
				},
			))
		})
	})

	Describe("func LogPublish()", func() {
		It("logs in the correct format", func() {
			mlog.LogPublish(logger, measurement, "/base/station/measurements", 0)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 13  ⋲ 3  ▲    measurement ● co2 ● /base/station/measurements",
				},
			))
		})

		It("shows a retry icon if the failure count is non-zero", func() {
			mlog.LogPublish(logger, measurement, "/base/station/measurements", 2)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 13  ⋲ 3  ▲ ↻  measurement ● co2 ● /base/station/measurements",
				},
			))
		})
	})

	Describe("func LogDelivered()", func() {
		It("logs in the correct format", func() {
			mlog.LogDelivered(logger, measurement)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 13  ⋲ 3  ▲ ✔  measurement ● co2",
				},
			))
		})
	})

	Describe("func LogPublishError()", func() {
		It("logs in the correct format", func() {
			mlog.LogPublishError(logger, status, errors.New("<error>"), 5*time.Second)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 12  ⋲ 3  △ ✖  warning ● <subject> ● <error> ● next retry in 5s",
				},
			))
		})
	})

	Describe("func LogDrop()", func() {
		It("logs in the correct format", func() {
			mlog.LogDrop(logger, status, errors.New("<error>"))

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "= 12  ⋲ 3  △ ✖  warning ● <subject> ● <error> ● message dropped",
				},
			))
		})
	})
})

var _ = Describe("configuration log messages", func() {
	var logger *logging.BufferedLogger

	BeforeEach(func() {
		logger = &logging.BufferedLogger{}
	})

	Describe("func LogConfigIgnored()", func() {
		It("logs in the correct format", func() {
			mlog.LogConfigIgnored(logger, 4, 7)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "⋲ 4  ▼    configuration ● ignored, current revision is 7",
				},
			))
		})
	})

	Describe("func LogConfigResult()", func() {
		It("logs a success", func() {
			mlog.LogConfigResult(logger, 8, nil)

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "⋲ 8  ▼    configuration ● applied successfully",
				},
			))
		})

		It("logs a failure", func() {
			mlog.LogConfigResult(logger, 8, errors.New("<error>"))

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "⋲ 8  ▽ ✖  configuration ● <error>",
				},
			))
		})
	})
})

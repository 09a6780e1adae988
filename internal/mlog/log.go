package mlog

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/tum-esm/hermes/message"
)

// LogEnqueue logs a message indicating that a message has been added to the
// outbound queue.
func LogEnqueue(
	log logging.Logger,
	m message.Message,
) {
	logging.LogString(
		log,
		String(
			ids(m),
			[]Icon{
				EnqueueIcon,
				"",
			},
			Describe(m.Body)...,
		),
	)
}

// LogPublish logs a message indicating that a message is being published to
// the broker.
//
// n is the number of previous failed attempts to publish this message.
func LogPublish(
	log logging.Logger,
	m message.Message,
	topic string,
	n uint,
) {
	logging.LogString(
		log,
		String(
			ids(m),
			[]Icon{
				ProduceIcon,
				retryIcon(n),
			},
			append(Describe(m.Body), topic)...,
		),
	)
}

// LogDelivered logs a message indicating that the broker has acknowledged a
// message.
func LogDelivered(
	log logging.Logger,
	m message.Message,
) {
	logging.LogString(
		log,
		String(
			ids(m),
			[]Icon{
				ProduceIcon,
				AckIcon,
			},
			Describe(m.Body)...,
		),
	)
}

// LogPublishError logs a message indicating that a message could not be
// delivered and will be retried after the given delay.
func LogPublishError(
	log logging.Logger,
	m message.Message,
	cause error,
	delay time.Duration,
) {
	logging.LogString(
		log,
		String(
			ids(m),
			[]Icon{
				ProduceErrorIcon,
				ErrorIcon,
			},
			append(
				Describe(m.Body),
				cause.Error(),
				fmt.Sprintf("next retry in %s", delay),
			)...,
		),
	)
}

// LogDrop logs a message indicating that a message has been removed from the
// queue without being delivered.
func LogDrop(
	log logging.Logger,
	m message.Message,
	cause error,
) {
	logging.LogString(
		log,
		String(
			ids(m),
			[]Icon{
				ProduceErrorIcon,
				ErrorIcon,
			},
			append(
				Describe(m.Body),
				cause.Error(),
				"message dropped",
			)...,
		),
	)
}

// LogConfigIgnored logs a message indicating that a configuration request was
// discarded because its revision is not newer than the current revision.
func LogConfigIgnored(
	log logging.Logger,
	requested, current uint32,
) {
	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				RevisionIcon.WithLabel("%d", requested),
			},
			[]Icon{
				ConsumeIcon,
				"",
			},
			"configuration",
			fmt.Sprintf("ignored, current revision is %d", current),
		),
	)
}

// LogConfigResult logs the outcome of applying a configuration request.
func LogConfigResult(
	log logging.Logger,
	revision uint32,
	err error,
) {
	icon := ConsumeIcon
	text := "applied successfully"

	if err != nil {
		icon = ConsumeErrorIcon
		text = err.Error()
	}

	logging.LogString(
		log,
		String(
			[]IconWithLabel{
				RevisionIcon.WithLabel("%d", revision),
			},
			[]Icon{
				icon,
				errorIcon(err),
			},
			"configuration",
			text,
		),
	)
}

// Describe returns text describing a message body, suitable for passing to
// String().
func Describe(b message.Body) []string {
	switch b := b.(type) {
	case message.StatusBody:
		return []string{
			string(b.Severity),
			b.Subject,
		}
	case message.MeasurementBody:
		variant := ""
		if b.Value != nil {
			variant = b.Value.Variant()
		}

		return []string{
			"measurement",
			variant,
		}
	default:
		return []string{
			fmt.Sprintf("%T", b),
		}
	}
}

func ids(m message.Message) []IconWithLabel {
	return []IconWithLabel{
		MessageIDIcon.WithID(m.Header.ID),
		RevisionIcon.WithLabel("%d", m.Header.Revision),
	}
}

func errorIcon(err error) Icon {
	if err == nil {
		return ""
	}

	return ErrorIcon
}

func retryIcon(n uint) Icon {
	if n == 0 {
		return ""
	}

	return RetryIcon
}

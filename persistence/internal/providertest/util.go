package providertest

import (
	"github.com/onsi/gomega"
	"github.com/tum-esm/hermes/message"
	"github.com/tum-esm/hermes/persistence"
)

// statusBody returns a status message body with the given subject.
func statusBody(subject string) message.StatusBody {
	return message.StatusBody{
		Severity: message.Info,
		Subject:  subject,
		Details:  "<details>",
	}
}

// appendStatus appends a status message to ds.
func appendStatus(
	tc *TestContext,
	ds persistence.DataStore,
	subject string,
) message.Message {
	m, err := ds.Append(tc.Context, statusBody(subject))
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return m
}

// deliver moves a message directly to the delivered status.
func deliver(
	tc *TestContext,
	ds persistence.DataStore,
	id uint64,
) message.Message {
	m, err := ds.UpdateStatus(tc.Context, id, message.Delivered)
	gomega.ExpectWithOffset(1, err).ShouldNot(gomega.HaveOccurred())
	return m
}

// ids returns the IDs of the given messages.
func ids(messages []message.Message) []uint64 {
	var result []uint64
	for _, m := range messages {
		result = append(result, m.Header.ID)
	}
	return result
}

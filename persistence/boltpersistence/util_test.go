package boltpersistence_test

import "github.com/tum-esm/hermes/message"

func statusBody() message.StatusBody {
	return message.StatusBody{
		Severity: message.Info,
		Subject:  "<subject>",
		Details:  "<details>",
	}
}

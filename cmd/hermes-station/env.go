package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/dogmatiq/dodeca/config"
)

// environment is the station's configuration as read from environment
// variables.
type environment struct {
	StationID    string
	MQTTHost     string
	MQTTPort     uint16
	MQTTUsername string
	MQTTPassword string
	BaseTopic    string
}

// loadEnvironment reads the station's environment variables from b.
func loadEnvironment(b config.Bucket) (environment, error) {
	env := environment{
		StationID:    config.AsStringDefault(b, "HERMES_STATION_IDENTIFIER", ""),
		MQTTHost:     config.AsStringDefault(b, "HERMES_MQTT_URL", ""),
		MQTTUsername: config.AsStringDefault(b, "HERMES_MQTT_USERNAME", ""),
		MQTTPassword: config.AsStringDefault(b, "HERMES_MQTT_PASSWORD", ""),
		BaseTopic:    config.AsStringDefault(b, "HERMES_MQTT_BASE_TOPIC", ""),
	}

	if err := checkLength("HERMES_STATION_IDENTIFIER", env.StationID, 3, 256); err != nil {
		return environment{}, err
	}

	if err := checkLength("HERMES_MQTT_URL", env.MQTTHost, 3, 256); err != nil {
		return environment{}, err
	}

	port := config.AsStringDefault(b, "HERMES_MQTT_PORT", "1883")
	n, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return environment{}, fmt.Errorf("HERMES_MQTT_PORT must be a port number, got %q", port)
	}
	env.MQTTPort = uint16(n)

	if err := checkLength("HERMES_MQTT_USERNAME", env.MQTTUsername, 8, 256); err != nil {
		return environment{}, err
	}

	if err := checkLength("HERMES_MQTT_PASSWORD", env.MQTTPassword, 8, 256); err != nil {
		return environment{}, err
	}

	return env, nil
}

// BrokerURL returns the URL of the MQTT broker using the given scheme.
func (e environment) BrokerURL(scheme string) string {
	return scheme + "://" + net.JoinHostPort(e.MQTTHost, strconv.Itoa(int(e.MQTTPort)))
}

func checkLength(name, v string, min, max int) error {
	if n := len(v); n < min || n > max {
		return fmt.Errorf("%s must be between %d and %d characters long, got %d", name, min, max, n)
	}

	return nil
}

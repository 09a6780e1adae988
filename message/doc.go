// Package message defines the messages that a station reports to the backend,
// and their JSON wire representation.
package message

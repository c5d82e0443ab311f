package kafka

import "errors"

var (
	ErrProducerClosed = errors.New("kafka producer is closed")

	// ErrEmptyKey is returned for unkeyed messages. Every event is keyed by its aggregate.
	ErrEmptyKey = errors.New("message key cannot be empty")

	ErrEmptyValue = errors.New("message value cannot be empty")
)

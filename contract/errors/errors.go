package errors

// Error codes for the bus contracts. Keep stable; used across adapters, bus and the HTTP layer.
const (
	ErrCodeHandlerTypeMismatch = "servicebus.handler_type_mismatch"
	ErrCodeSubscriberFailed    = "servicebus.subscriber_failed"
	ErrCodeBusClosed           = "servicebus.bus_closed"
	ErrCodeNotFound            = "product.not_found"
	ErrCodeInvalidEntity       = "product.invalid_entity"
	ErrCodePublishFailed       = "sink.publish_failed"
	ErrCodeSerializationFailed = "sink.serialization_failed"
	ErrCodeNotConfigured       = "sink.not_configured"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrSubscriberFailed    = Code(ErrCodeSubscriberFailed)
	ErrBusClosed           = Code(ErrCodeBusClosed)
	ErrNotFound            = Code(ErrCodeNotFound)
	ErrInvalidEntity       = Code(ErrCodeInvalidEntity)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
	ErrNotConfigured       = Code(ErrCodeNotConfigured)
)

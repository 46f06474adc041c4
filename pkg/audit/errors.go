package audit

import "errors"

var (
	// ErrInvalidEvent indicates the event is missing required fields.
	ErrInvalidEvent = errors.New("audit: invalid event")

	// ErrStorageUnavailable indicates the storage backend rejected a write.
	ErrStorageUnavailable = errors.New("audit: storage unavailable")

	// ErrWriterClosed indicates the async writer has shut down.
	ErrWriterClosed = errors.New("audit: writer closed")

	// ErrSpoolFailed indicates the local spool could not accept events; the
	// events carried by the operation are lost.
	ErrSpoolFailed = errors.New("audit: spool write failed")
)

package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrNameTaken         = fmt.Errorf("display name already taken")
	ErrInvalidName       = fmt.Errorf("invalid display name")
	ErrRecipientNotFound = fmt.Errorf("recipient not registered")
	ErrSessionClosed     = fmt.Errorf("session closed")
	ErrServerFull        = fmt.Errorf("connection limit reached")
	ErrMalformedRecord   = fmt.Errorf("malformed wire record")
	ErrEmptyWords        = fmt.Errorf("no censored words have been found")
)

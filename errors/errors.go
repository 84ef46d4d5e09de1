package errors

import "fmt"

var (
	ErrNicknameTaken     = fmt.Errorf("nickname already in use")
	ErrEmptyNickname     = fmt.Errorf("nickname must not be empty")
	ErrAlreadyBound      = fmt.Errorf("connection already bound to another nickname")
	ErrGraceAlreadyArmed = fmt.Errorf("grace entry already pending")
	ErrUnknownEvent      = fmt.Errorf("unknown event")
	ErrInvalidPayload    = fmt.Errorf("invalid payload")
	ErrUnknownConnection = fmt.Errorf("unknown connection")
	ErrSinkFull          = fmt.Errorf("sink buffer full")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)

package dispatcher

import (
	"errors"
	"net/http"

	"github.com/linemk/auth-service/internal/service"
)

type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindValidation
	KindUnauthorized
	KindUnverified
	KindNotFound
	KindMethodNotAllowed
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInternal         = "Internal server error"
)

// Status возвращает HTTP-статус для вида ошибки
func (k Kind) Status() int {
	switch k {
	case KindConflict, KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnverified:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error - ошибка, которая уходит клиенту как {"error": Message}
type Error struct {
	Kind    Kind
	Message string
	UserID  *int64 // для KindUnverified
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// classify сопоставляет ошибки сервиса с видами. Всё неизвестное - KindInternal с непрозрачным текстом.
func classify(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	var notVerified *service.NotVerifiedError
	if errors.As(err, &notVerified) {
		id := notVerified.UserID
		return &Error{Kind: KindUnverified, Message: "Email not verified", UserID: &id, Err: err}
	}

	switch {
	case errors.Is(err, service.ErrEmailExists):
		return &Error{Kind: KindConflict, Message: "Email already exists", Err: err}
	case errors.Is(err, service.ErrNicknameTaken):
		return &Error{Kind: KindConflict, Message: "Nickname already taken", Err: err}
	case errors.Is(err, service.ErrInvalidVerificationCode):
		return &Error{Kind: KindValidation, Message: "Invalid verification code", Err: err}
	case errors.Is(err, service.ErrInvalidResetCode):
		return &Error{Kind: KindValidation, Message: "Invalid reset code", Err: err}
	case errors.Is(err, service.ErrResetCodeExpired):
		return &Error{Kind: KindValidation, Message: "Reset code expired", Err: err}
	case errors.Is(err, service.ErrInvalidCredentials):
		return &Error{Kind: KindUnauthorized, Message: "Invalid credentials", Err: err}
	case errors.Is(err, service.ErrEmailNotFound):
		return &Error{Kind: KindNotFound, Message: "Email not found", Err: err}
	case errors.Is(err, service.ErrUserNotFound):
		return &Error{Kind: KindNotFound, Message: "User not found", Err: err}
	}
	return &Error{Kind: KindInternal, Message: msgInternal, Err: err}
}

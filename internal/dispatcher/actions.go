package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Action - одна из операций запроса. Реализуется только типами этого пакета.
type Action interface {
	action() string
}

type Register struct {
	Email    string  `json:"email" validate:"required"`
	Password string  `json:"password" validate:"required"`
	Nickname *string `json:"nickname"`
}

type Verify struct {
	UserID int64  `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VerifyWithPassword - вход по user_id и паролю после подтверждения email
type VerifyWithPassword struct {
	UserID   int64  `json:"user_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ForgotPassword struct {
	Email string `json:"email" validate:"required"`
}

type ResetPassword struct {
	UserID      int64  `json:"user_id" validate:"required"`
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type UpdateNickname struct {
	UserID   int64  `json:"user_id" validate:"required"`
	Nickname string `json:"nickname" validate:"required"`
}

func (*Register) action() string           { return "register" }
func (*Verify) action() string             { return "verify" }
func (*Login) action() string              { return "login" }
func (*VerifyWithPassword) action() string { return "verify_with_password" }
func (*ForgotPassword) action() string     { return "forgot_password" }
func (*ResetPassword) action() string      { return "reset_password" }
func (*UpdateNickname) action() string     { return "update_nickname" }

var actions = map[string]func() Action{
	"register":             func() Action { return &Register{} },
	"verify":               func() Action { return &Verify{} },
	"login":                func() Action { return &Login{} },
	"verify_with_password": func() Action { return &VerifyWithPassword{} },
	"forgot_password":      func() Action { return &ForgotPassword{} },
	"reset_password":       func() Action { return &ResetPassword{} },
	"update_nickname":      func() Action { return &UpdateNickname{} },
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// в сообщениях об ошибках используем имена полей из JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode разбирает тело POST-запроса в конкретное действие и проверяет обязательные поля.
// Неизвестное или отсутствующее action даёт MethodNotAllowed.
func Decode(body string) (Action, error) {
	if strings.TrimSpace(body) == "" {
		body = "{}"
	}

	var envelope struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, validationErr("Invalid request body", err)
	}

	newAction, ok := actions[envelope.Action]
	if !ok {
		return nil, &Error{Kind: KindMethodNotAllowed, Message: msgMethodNotAllowed}
	}

	act := newAction()
	if err := json.Unmarshal([]byte(body), act); err != nil {
		return nil, validationErr("Invalid request body", err)
	}
	if err := validate.Struct(act); err != nil {
		return nil, validationErr(describe(err), err)
	}
	return act, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fmt.Sprintf("Missing required fields: %s", strings.Join(fields, ", "))
}

func validationErr(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

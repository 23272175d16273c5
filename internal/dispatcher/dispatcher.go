package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/auth-service/internal/domain/models"
	"github.com/linemk/auth-service/internal/service"
)

const DefaultMaxAge = 86400

// Request - входящий запрос в виде события: метод, тело-строка JSON, query-параметры (не используются)
type Request struct {
	HTTPMethod            string            `json:"httpMethod"`
	Body                  string            `json:"body"`
	QueryStringParameters map[string]string `json:"queryStringParameters,omitempty"`
}

type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

type Dispatcher struct {
	log    *slog.Logger
	auth   service.AuthService
	maxAge int
}

// New создаёт диспетчер. maxAge - срок кэширования preflight-ответа в секундах.
func New(log *slog.Logger, auth service.AuthService, maxAge int) *Dispatcher {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Dispatcher{log: log, auth: auth, maxAge: maxAge}
}

// Dispatch маршрутизирует запрос по методу и action
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	const op = "dispatcher.Dispatch"
	logger := d.log.With(slog.String("op", op), slog.String("method", req.HTTPMethod))

	switch req.HTTPMethod {
	case http.MethodOptions:
		return d.preflight()
	case http.MethodPost:
	default:
		return errorResponse(&Error{Kind: KindMethodNotAllowed, Message: msgMethodNotAllowed})
	}

	act, err := Decode(req.Body)
	if err != nil {
		derr := classify(err)
		logger.Warn("invalid request", slog.Any("error", err))
		return errorResponse(derr)
	}
	logger = logger.With(slog.String("action", act.action()))

	body, err := d.handle(ctx, act)
	if err != nil {
		derr := classify(err)
		if derr.Kind == KindInternal {
			logger.Error("action failed", slog.Any("error", err))
		} else {
			logger.Info("action rejected", slog.String("reason", derr.Message))
		}
		return errorResponse(derr)
	}

	return jsonResponse(http.StatusOK, body)
}

// handle выполняет действие и возвращает тело успешного ответа
func (d *Dispatcher) handle(ctx context.Context, act Action) (any, error) {
	switch a := act.(type) {
	case *Register:
		nickname := ""
		if a.Nickname != nil {
			nickname = *a.Nickname
		}
		reg, err := d.auth.Register(ctx, a.Email, a.Password, nickname)
		if err != nil {
			return nil, err
		}
		return registerResponse{
			Success:          true,
			UserID:           reg.UserID,
			VerificationCode: reg.VerificationCode,
			Message:          "Registration successful. Verification code sent to email.",
		}, nil

	case *Verify:
		if err := d.auth.Verify(ctx, a.UserID, a.Code); err != nil {
			return nil, err
		}
		return messageResponse{Success: true, Message: "Email verified successfully"}, nil

	case *Login:
		user, err := d.auth.Login(ctx, a.Email, a.Password)
		if err != nil {
			return nil, err
		}
		return loginResponse{Success: true, User: toUserView(user)}, nil

	case *VerifyWithPassword:
		user, err := d.auth.LoginByID(ctx, a.UserID, a.Password)
		if err != nil {
			return nil, err
		}
		return loginResponse{Success: true, User: toUserView(user)}, nil

	case *ForgotPassword:
		reset, err := d.auth.ForgotPassword(ctx, a.Email)
		if err != nil {
			return nil, err
		}
		return forgotPasswordResponse{
			Success:   true,
			ResetCode: reset.ResetCode,
			UserID:    reset.UserID,
			Message:   "Reset code sent to email",
		}, nil

	case *ResetPassword:
		if err := d.auth.ResetPassword(ctx, a.UserID, a.Code, a.NewPassword); err != nil {
			return nil, err
		}
		return messageResponse{Success: true, Message: "Password reset successfully"}, nil

	case *UpdateNickname:
		if err := d.auth.UpdateNickname(ctx, a.UserID, a.Nickname); err != nil {
			return nil, err
		}
		return nicknameResponse{Success: true, Nickname: a.Nickname}, nil
	}
	return nil, fmt.Errorf("unhandled action %T", act)
}

func (d *Dispatcher) preflight() Response {
	return Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
			"Access-Control-Allow-Headers": "Content-Type, X-User-Id",
			"Access-Control-Max-Age":       strconv.Itoa(d.maxAge),
		},
		Body: "",
	}
}

type errorBody struct {
	Error  string `json:"error"`
	UserID *int64 `json:"user_id,omitempty"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type registerResponse struct {
	Success          bool   `json:"success"`
	UserID           int64  `json:"user_id"`
	VerificationCode string `json:"verification_code"`
	Message          string `json:"message"`
}

type userView struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	Nickname *string `json:"nickname"`
	Balance  float64 `json:"balance"`
}

type loginResponse struct {
	Success bool     `json:"success"`
	User    userView `json:"user"`
}

type forgotPasswordResponse struct {
	Success   bool   `json:"success"`
	ResetCode string `json:"reset_code"`
	UserID    int64  `json:"user_id"`
	Message   string `json:"message"`
}

type nicknameResponse struct {
	Success  bool   `json:"success"`
	Nickname string `json:"nickname"`
}

func toUserView(u *models.User) userView {
	return userView{ID: u.ID, Email: u.Email, Nickname: u.NicknameOrNil(), Balance: u.Balance}
}

func errorResponse(e *Error) Response {
	return jsonResponse(e.Kind.Status(), errorBody{Error: e.Message, UserID: e.UserID})
}

func jsonResponse(status int, body any) Response {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"` + msgInternal + `"}`)
	}
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                "application/json",
			"Access-Control-Allow-Origin": "*",
		},
		Body: string(raw),
	}
}

package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/linemk/auth-service/internal/dispatcher"
)

// maxBodyBytes ограничивает размер тела запроса
const maxBodyBytes = 1 << 20

// Dispatcher обрабатывает запрос в виде события
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatcher.Request) dispatcher.Response
}

// AuthHandler – HTTP-обработчик единственного эндпоинта, переводит http.Request в событие диспетчера
func AuthHandler(log *slog.Logger, d Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AuthHandler"
		logger := log.With(slog.String("op", op))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			logger.Error("failed to read request body", slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Invalid request body"}`)
			return
		}

		req := dispatcher.Request{
			HTTPMethod:            r.Method,
			Body:                  string(body),
			QueryStringParameters: queryParams(r),
		}

		resp := d.Dispatch(r.Context(), req)

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body == "" {
			return
		}
		if _, err := io.WriteString(w, resp.Body); err != nil {
			logger.Error("failed to write response", slog.Any("error", err))
		}
	}
}

func queryParams(r *http.Request) map[string]string {
	q := r.URL.Query()
	if len(q) == 0 {
		return nil
	}
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	return params
}

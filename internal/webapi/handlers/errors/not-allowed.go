package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/toni86moon/telegram-bot/lib/api/response"
)

func NotAllowed(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, 405)
		render.JSON(w, r, response.Error("Method not allowed"))
	}
}

package userhandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/lib/api/response"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

type Core interface {
	Points(telegramId int64) (int64, error)
	UserActivity(telegramId int64, limit int64) ([]*entity.Activity, error)
}

const activityLimit = 50

type pointsResult struct {
	TelegramId int64 `json:"telegram_id"`
	Points     int64 `json:"points"`
}

func Points(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.user"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := userId(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		points, err := handler.Points(id)
		if err != nil {
			logger.Error("get points", sl.User(id), sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("Get points: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(pointsResult{TelegramId: id, Points: points}))
	}
}

// Activity returns the latest audit records for a user, newest first.
func Activity(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.user"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := userId(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		records, err := handler.UserActivity(id, activityLimit)
		if err != nil {
			logger.Error("get activity", sl.User(id), sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("Get activity: %v", err)))
			return
		}
		if records == nil {
			records = make([]*entity.Activity, 0)
		}

		render.JSON(w, r, response.Ok(records))
	}
}

func userId(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

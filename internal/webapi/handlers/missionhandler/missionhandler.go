package missionhandler

import (
	"errors"
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
	CreateMission(m *entity.Mission) (*entity.Mission, error)
	GetMission(id int64) (*entity.Mission, error)
	SetMissionActive(id int64, active bool) error
	ListMissions() ([]*entity.Mission, error)
	CompletionCount(missionId int64) (int64, error)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (a *activeRequest) Bind(_ *http.Request) error {
	if a.Active == nil {
		return fmt.Errorf("active field is required")
	}
	return nil
}

type missionStats struct {
	Mission     *entity.Mission `json:"mission"`
	Completions int64           `json:"completions"`
}

func Create(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.mission"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var mission entity.Mission
		if err := render.Bind(r, &mission); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		created, err := handler.CreateMission(&mission)
		if err != nil {
			logger.Error("create mission", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Create mission: %v", err)))
			return
		}
		logger.Info("mission created",
			sl.Mission(created.Id),
			slog.String("type", string(created.Type)),
		)

		render.JSON(w, r, response.Ok(created))
	}
}

func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.mission"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		missions, err := handler.ListMissions()
		if err != nil {
			logger.Error("list missions", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("List missions: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(missions))
	}
}

// Stats returns one mission together with its completion count.
func Stats(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.mission"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := missionId(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid mission id"))
			return
		}
		logger = logger.With(sl.Mission(id))

		mission, err := handler.GetMission(id)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				render.Status(r, 404)
				render.JSON(w, r, response.Error("Mission not found"))
				return
			}
			logger.Error("get mission", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("Get mission: %v", err)))
			return
		}

		count, err := handler.CompletionCount(id)
		if err != nil {
			logger.Error("count completions", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("Count completions: %v", err)))
			return
		}

		render.JSON(w, r, response.Ok(missionStats{Mission: mission, Completions: count}))
	}
}

// SetActive toggles the soft-disable flag of a mission.
func SetActive(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.mission"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, err := missionId(r)
		if err != nil {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid mission id"))
			return
		}
		logger = logger.With(sl.Mission(id))

		var req activeRequest
		if err = render.Bind(r, &req); err != nil {
			logger.Error("bind request", sl.Err(err))
			render.Status(r, 400)
			render.JSON(w, r, response.Error(fmt.Sprintf("Invalid request: %v", err)))
			return
		}

		err = handler.SetMissionActive(id, *req.Active)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				render.Status(r, 404)
				render.JSON(w, r, response.Error("Mission not found"))
				return
			}
			logger.Error("set mission active", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error(fmt.Sprintf("Set mission active: %v", err)))
			return
		}
		logger.Info("mission state changed", slog.Bool("active", *req.Active))

		render.JSON(w, r, response.Ok(nil))
	}
}

func missionId(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

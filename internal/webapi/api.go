// Package webapi exposes the admin HTTP API: mission management and
// read-only stats, guarded by a static bearer token.
package webapi

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/toni86moon/telegram-bot/internal/config"
	"github.com/toni86moon/telegram-bot/internal/webapi/handlers/errors"
	"github.com/toni86moon/telegram-bot/internal/webapi/handlers/missionhandler"
	"github.com/toni86moon/telegram-bot/internal/webapi/handlers/userhandler"
	"github.com/toni86moon/telegram-bot/internal/webapi/middleware/authenticate"
	"github.com/toni86moon/telegram-bot/internal/webapi/middleware/timeout"
	"github.com/toni86moon/telegram-bot/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	missionhandler.Core
	userhandler.Core
}

func New(conf *config.Config, log *slog.Logger, auth authenticate.Authenticate, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, auth))
		rootApi.Route("/missions", func(missions chi.Router) {
			missions.Post("/", missionhandler.Create(log, handler))
			missions.Get("/", missionhandler.List(log, handler))
			missions.Get("/{id}", missionhandler.Stats(log, handler))
			missions.Put("/{id}/active", missionhandler.SetActive(log, handler))
		})
		rootApi.Route("/users", func(users chi.Router) {
			users.Get("/{id}/points", userhandler.Points(log, handler))
			users.Get("/{id}/activity", userhandler.Activity(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}

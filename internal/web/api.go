package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phuslu/log"
)

type ApiConfig struct {
	ListenAddr     string
	AllowedOrigins []string
}

// Api is the local control surface of a tracking session. It never serves
// coordinates: responses carry status, distances and elapsed time only.
type Api struct {
	r      chi.Router
	s      *http.Server
	config *ApiConfig
	log    log.Logger
	disp   *Dispatcher
}

type ApiParam struct {
	Session Control
	// mounted at GET /stream when set
	Stream http.Handler
	// mounted at GET /monitor when set
	Monitor http.Handler
}

func NewApi(param *ApiParam, config *ApiConfig) *Api {
	api := &Api{config: config}
	api.log = log.DefaultLogger
	api.log.Context = log.NewContext(nil).Str("module", "api-server").Value()
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Recoverer)

	disp := NewDispatcher()
	control := NewControlApi(param.Session)
	disp.Add("Start", control.Start)
	disp.Add("Stop", control.Stop)
	disp.Add("Status", control.Status)
	disp.Add("Distance", control.Distance)
	api.disp = disp

	r.Post("/func/{name}", func(w http.ResponseWriter, r *http.Request) {
		disp.Call(chi.URLParam(r, "name"), w, r)
	})
	if param.Stream != nil {
		r.Get("/stream", param.Stream.ServeHTTP)
	}
	if param.Monitor != nil {
		r.Get("/monitor", param.Monitor.ServeHTTP)
	}

	api.r = r
	api.s = &http.Server{
		Addr:           config.ListenAddr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return api
}

func (api *Api) Handler() http.Handler {
	return api.r
}

// Run serves until Shutdown is called.
func (api *Api) Run() error {
	api.log.Info().Msgf("starting api-server on : %s", api.s.Addr)
	err := api.s.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		api.log.Error().Err(err).Msg("")
		return err
	}
	return nil
}

func (api *Api) Shutdown(ctx context.Context) error {
	return api.s.Shutdown(ctx)
}

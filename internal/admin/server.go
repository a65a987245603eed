package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"robotfleet/internal/fleet"
	"robotfleet/internal/logging"
	"robotfleet/internal/metrics"
)

// ViewSource provides the latest published view model.
type ViewSource interface {
	Current() fleet.ViewModel
}

type Server struct {
	views    ViewSource
	gatherer prometheus.Gatherer
	tpl      *template.Template
	mapTpl   *template.Template
	router   *mux.Router
}

//go:embed templates/index.html templates/map.html
var content embed.FS

// NewServer builds the admin UI over views. Metrics are served from gatherer.
func NewServer(views ViewSource, gatherer prometheus.Gatherer) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	mapTpl := template.Must(template.New("map.html").ParseFS(content, "templates/map.html"))
	s := &Server{views: views, gatherer: gatherer, tpl: tpl, mapTpl: mapTpl}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Handle("/", metrics.Middleware("index", http.HandlerFunc(s.handleIndex))).Methods(http.MethodGet)
	r.Handle("/map", metrics.Middleware("map", http.HandlerFunc(s.handleMap))).Methods(http.MethodGet)

	r.Handle("/api/robots", metrics.Middleware("robots", http.HandlerFunc(s.handleRobots))).Methods(http.MethodGet)
	r.Handle("/api/robots/{id}", metrics.Middleware("robot", http.HandlerFunc(s.handleRobot))).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router = r
}

// Handler returns the admin HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("admin server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("admin server stopped")
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	vm := s.views.Current()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, vm); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.mapTpl.Execute(w, nil); err != nil {
		logging.FromContext(r.Context()).Error("render map", "err", err)
	}
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.views.Current())
}

func (s *Server) handleRobot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rb, ok := s.views.Current().Robot(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "robot not found", "id": id})
		return
	}
	writeJSON(w, http.StatusOK, rb)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	vm := s.views.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    vm.Version,
		"robots":     len(vm.Robots),
		"critical":   vm.CriticalCount(),
		"updated_at": vm.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

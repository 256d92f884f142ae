package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mx44-utils/src/server"
	"mx44-utils/src/server/config"
	"mx44-utils/src/server/feed"
	"mx44-utils/src/server/host"
	"mx44-utils/src/server/matrix"
	"mx44-utils/src/server/session"

	"github.com/gorilla/mux"
)

const version = "1.0.0"

type App struct {
	session   *session.Session
	hub       *feed.Hub
	startedAt time.Time
	saveCfg   func(config.Config) error
}

// MatrixPayload is the host-facing view of the matrix, served over HTTP and
// pushed to WebSocket observers.
type MatrixPayload struct {
	Type          string                  `json:"type"`
	Model         string                  `json:"model"`
	Routes        map[int]int             `json:"routes"`
	InputOutputs  map[int][]int           `json:"inputOutputs"`
	SelectedInput int                     `json:"selectedInput"`
	Variables     map[string]string       `json:"variables"`
	Feedbacks     host.FeedbackStates     `json:"feedbacks"`
	Connection    session.ConnectionState `json:"connection"`
	ConnectedFor  string                  `json:"connectedFor,omitempty"`
	Polling       bool                    `json:"polling"`
	Uptime        string                  `json:"uptime"`
}

func NewApp(cfg config.Config) *App {
	app := &App{
		session:   session.New(cfg),
		startedAt: time.Now(),
		saveCfg:   config.Save,
	}
	app.hub = feed.NewHub(version, func() any {
		return app.matrixPayload(app.session.State())
	})
	app.session.Subscribe(func(st session.State) {
		app.hub.Broadcast(app.matrixPayload(st))
	})
	return app
}

func (app *App) Start() {
	app.session.Start()
}

func (app *App) Stop() {
	app.session.Stop()
	app.hub.Close()
}

func (app *App) matrixPayload(st session.State) MatrixPayload {
	now := time.Now()
	payload := MatrixPayload{
		Type:          "matrix-update",
		Model:         app.session.Spec().Name,
		Routes:        st.Matrix.Routes,
		InputOutputs:  st.Matrix.InputOutputs,
		SelectedInput: st.Matrix.SelectedInput,
		Variables:     host.Variables(st.Matrix),
		Feedbacks:     host.EvaluateFeedbacks(st.Matrix),
		Connection:    st.Connection,
		Polling:       st.Polling,
		Uptime:        server.FormatUptime(now.Sub(app.startedAt)),
	}
	if st.Connection.Status == "connected" {
		payload.ConnectedFor = server.FormatSince(st.Connection.Since, now)
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeIntentResult maps session and host errors onto HTTP statuses.
func writeIntentResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, session.ErrInvalidPort), errors.Is(err, host.ErrBadOption):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, host.ErrUnknownAction):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNotConnected), errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (app *App) rootHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": "mx44-utils", "version": version})
}

func (app *App) getMatrixHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.matrixPayload(app.session.State()))
}

func (app *App) getDefinitionsHandler(w http.ResponseWriter, r *http.Request) {
	spec := app.session.Spec()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model":     spec,
		"actions":   host.Actions(spec),
		"feedbacks": host.Feedbacks(spec),
		"variables": host.VariableDefinitions(spec),
	})
}

func (app *App) selectInputHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input int `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeIntentResult(w, app.session.SelectInput(r.Context(), req.Input))
}

func (app *App) switchOutputHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Output int `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeIntentResult(w, app.session.SwitchOutput(r.Context(), req.Output))
}

func (app *App) routeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input  int `json:"input"`
		Output int `json:"output"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeIntentResult(w, app.session.Route(r.Context(), req.Input, req.Output))
}

func (app *App) routeAllHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input    int  `json:"input"`
		Selected bool `json:"selected"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeIntentResult(w, app.session.RouteAll(r.Context(), req.Input, req.Selected))
}

func (app *App) pollHandler(w http.ResponseWriter, r *http.Request) {
	writeIntentResult(w, app.session.PollNow(r.Context()))
}

// actionHandler runs a host action by id with its raw option map.
func (app *App) actionHandler(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	var options map[string]any
	if err := json.NewDecoder(r.Body).Decode(&options); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	writeIntentResult(w, host.Execute(r.Context(), app.session, action, options))
}

func (app *App) getConfigHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.session.State().Config)
}

func (app *App) putConfigHandler(w http.ResponseWriter, r *http.Request) {
	current := app.session.State().Config
	cfg := current
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	cfg.InstanceID = current.InstanceID
	cfg.Model = current.Model
	cfg.Normalize()

	if err := app.session.UpdateConfig(r.Context(), cfg); err != nil {
		writeIntentResult(w, err)
		return
	}
	if err := app.saveCfg(cfg); err != nil {
		log.Printf("Config: failed to save: %v", err)
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (app *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", app.rootHandler).Methods("GET")
	r.HandleFunc("/api/matrix", app.getMatrixHandler).Methods("GET")
	r.HandleFunc("/api/matrix/definitions", app.getDefinitionsHandler).Methods("GET")
	r.HandleFunc("/api/matrix/select-input", app.selectInputHandler).Methods("POST")
	r.HandleFunc("/api/matrix/switch-output", app.switchOutputHandler).Methods("POST")
	r.HandleFunc("/api/matrix/route", app.routeHandler).Methods("POST")
	r.HandleFunc("/api/matrix/route-all", app.routeAllHandler).Methods("POST")
	r.HandleFunc("/api/matrix/poll", app.pollHandler).Methods("POST")
	r.HandleFunc("/api/matrix/actions/{action}", app.actionHandler).Methods("POST")
	r.Handle("/api/matrix/ws", app.hub).Methods("GET")
	r.HandleFunc("/api/config", app.getConfigHandler).Methods("GET")
	r.HandleFunc("/api/config", app.putConfigHandler).Methods("PUT")

	return r
}

func main() {
	os.Args[0] = "mx44-utils"

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Config: failed to load, using defaults: %v", err)
		cfg.Normalize()
	}

	app := NewApp(cfg)
	app.Start()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: app.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		fmt.Printf("MX44 Utils (%s matrix API) starting on %s\n", matrix.DefaultModel, cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	app.Stop()
}

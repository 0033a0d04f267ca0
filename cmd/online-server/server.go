package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/skypies/geo"

	"github.com/unklstewy/navmap-online/internal/online"
	"github.com/unklstewy/navmap-online/internal/onlinedb"
	"github.com/unklstewy/navmap-online/pkg/config"
	"github.com/unklstewy/navmap-online/pkg/coordinates"
	"github.com/unklstewy/navmap-online/pkg/log"
	"github.com/unklstewy/navmap-online/pkg/whazzup"
)

// session is the part of the online controller the API uses.
type session interface {
	Info() online.Info
	HasData() bool
	NumClients() int
	GetAircraft(box geo.LatlongBox, layer *online.Layer, lazy bool) ([]online.Aircraft, bool)
	FilterOnlineShadowAircraft(online, sim []online.Aircraft) []online.Aircraft
	GetShadowAircraft(sim online.Aircraft) (online.Aircraft, bool)
	ClientRecordByID(id int64) (whazzup.Client, error)
	StartProcessing()
	OptionsChanged(cfg *config.Config)
}

// store lists controllers and servers.
type store interface {
	Atc() ([]whazzup.Client, error)
	Servers() ([]whazzup.Server, error)
	Healthy() bool
	TableCounts(ctx context.Context) (map[string]int, error)
}

// Server holds the HTTP router and its dependencies
type Server struct {
	router  *chi.Mux
	session session
	store   store
	sim     *remoteSimulator
	hub     *Hub
	conf    *configStore
	lg      *log.Logger
}

func NewServer(conf *configStore, sess session, st store, sim *remoteSimulator, hub *Hub, lg *log.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		session: sess,
		store:   st,
		sim:     sim,
		hub:     hub,
		conf:    conf,
		lg:      lg.With("component", "api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/ws", s.hub.ServeWS)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Compress(5))

		r.Get("/status", s.handleStatus)
		r.Get("/aircraft", s.handleGetAircraft)
		r.Get("/clients/{id}", s.handleGetClient)
		r.Get("/atc", s.handleGetAtc)
		r.Get("/servers", s.handleGetServers)

		r.Put("/simulator", s.handlePutSimulator)
		r.Get("/simulator/shadow/{registration}", s.handleGetShadow)

		r.Post("/refresh", s.handleRefresh)
		r.Post("/options", s.handleOptions)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.lg.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dbStatus := "healthy"
	if !s.store.Healthy() {
		dbStatus = "unhealthy"
	}

	tables, err := s.store.TableCounts(r.Context())
	if err != nil {
		s.lg.Warn("Cannot count stored rows", "error", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"session":     s.session.Info(),
		"has_data":    s.session.HasData(),
		"clients":     s.session.NumClients(),
		"subscribers": s.hub.Subscribers(),
		"database":    dbStatus,
		"tables":      tables,
	})
}

// handleGetAircraft returns the online aircraft in a rectangle. Online
// clients shown by the simulator as shadow aircraft are left out.
func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var edges [4]float64
	for i, name := range []string{"north", "west", "south", "east"} {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			http.Error(w, fmt.Sprintf("Invalid or missing %s", name), http.StatusBadRequest)
			return
		}
		edges[i] = v
	}
	if edges[0] < edges[2] || edges[0] > 90 || edges[2] < -90 {
		http.Error(w, "Invalid latitude range", http.StatusBadRequest)
		return
	}
	box := coordinates.NewBox(edges[0], edges[1], edges[2], edges[3])

	lazy, _ := strconv.ParseBool(q.Get("lazy"))

	var layer *online.Layer
	if d := q.Get("detail"); d != "" {
		detail, err := strconv.Atoi(d)
		if err != nil {
			http.Error(w, "Invalid detail", http.StatusBadRequest)
			return
		}
		layer = &online.Layer{Detail: detail, OnlineAircraft: true}
	}

	list, overflow := s.session.GetAircraft(box, layer, lazy)
	list = s.session.FilterOnlineShadowAircraft(list, s.sim.all())

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"aircraft": list,
		"count":    len(list),
		"overflow": overflow,
	})
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid client ID", http.StatusBadRequest)
		return
	}

	client, err := s.session.ClientRecordByID(id)
	if errors.Is(err, onlinedb.ErrNoClient) {
		http.Error(w, "Client not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.lg.Error("Error getting client", "id", id, "error", err)
		http.Error(w, "Failed to get client", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, client)
}

func (s *Server) handleGetAtc(w http.ResponseWriter, r *http.Request) {
	atc, err := s.store.Atc()
	if err != nil {
		s.lg.Error("Error getting atc", "error", err)
		http.Error(w, "Failed to get atc", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"atc":   atc,
		"count": len(atc),
	})
}

func (s *Server) handleGetServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.store.Servers()
	if err != nil {
		s.lg.Error("Error getting servers", "error", err)
		http.Error(w, "Failed to get servers", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"servers": servers,
		"count":   len(servers),
	})
}

func (s *Server) handlePutSimulator(w http.ResponseWriter, r *http.Request) {
	var state SimulatorState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.sim.Set(state)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": state.Connected,
		"ai":        len(state.AI),
	})
}

func (s *Server) handleGetShadow(w http.ResponseWriter, r *http.Request) {
	registration := chi.URLParam(r, "registration")

	sim, ok := s.sim.find(registration)
	if !ok {
		http.Error(w, "Simulator aircraft not found", http.StatusNotFound)
		return
	}

	shadow, ok := s.session.GetShadowAircraft(sim)
	if !ok {
		http.Error(w, "No online client for aircraft", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, shadow)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.session.StartProcessing()
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
	})
}

// handleOptions merges the posted online section into the configuration,
// saves it and restarts the session.
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	cfg := s.conf.Snapshot()
	if err := json.NewDecoder(r.Body).Decode(&cfg.Online); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.conf.Update(cfg); err != nil {
		s.lg.Error("Error saving configuration", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}
	s.session.OptionsChanged(cfg)

	respondJSON(w, http.StatusOK, cfg.Online)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Package api provides the HTTP API server for the print quoting service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"printquote/internal/configstore"
	"printquote/internal/estimate"
	"printquote/internal/geometry"
	"printquote/internal/mesh"
	"printquote/internal/quote"
	perrors "printquote/pkg/errors"
	"printquote/pkg/units"
)

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	store      *configstore.Store
	config     *Config
	log        zerolog.Logger
}

// Config holds server configuration.
type Config struct {
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxUploadSize int64
	CORSOrigins   []string
	JWTSecret     []byte
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:          8080,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  60 * time.Second,
		MaxUploadSize: 50 * 1024 * 1024, // 50MiB upload bound
		CORSOrigins:   []string{"*"},
	}
}

// NewServer creates a new API server around the configuration store.
func NewServer(store *configstore.Store, config *Config, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	return &Server{
		store:  store,
		config: config,
		log:    log,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.corsMiddleware)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/settings", s.handleSettings)
		r.Get("/materials", s.handleMaterials)
		r.Get("/machines", s.handleMachines)
		r.Get("/material-groups", s.handleMaterialGroups)
		r.Post("/estimate", s.handleEstimate)
		r.Post("/quote", s.handleQuote)

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(roleStaff))
			r.Post("/staff/quote", s.handleStaffQuote)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireRole(roleAdmin))
			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handlePutConfig)
			r.Get("/audit", s.handleAudit)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.log.Info().Int("port", s.config.Port).Msg("API server starting")
	return s.httpServer.ListenAndServe()
}

// StartWithGracefulShutdown starts the server and drains it on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
		s.log.Info().Msg("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		allowed := false
		for _, o := range s.config.CORSOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}
		// Chrome on LAN deployments can require the private network header.
		w.Header().Set("Access-Control-Allow-Private-Network", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// HEALTH AND CATALOG ENDPOINTS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap.Settings)
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if callerRole(r, s.config.JWTSecret).atLeast(roleStaff) {
		s.jsonResponse(w, http.StatusOK, snap.ActiveMaterials())
		return
	}
	s.jsonResponse(w, http.StatusOK, snap.PublicMaterials())
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap.ActiveMachines())
}

// MaterialGroup is the UI helper shape: materials grouped by display name
// with one option per color.
type MaterialGroup struct {
	GroupID   string           `json:"group_id"`
	GroupName string           `json:"group_name"`
	Options   []MaterialOption `json:"options"`
}

// MaterialOption is one selectable color variant within a group.
type MaterialOption struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	PricePerKg  float64 `json:"price_per_kg"`
	WastePct    float64 `json:"waste_pct"`
	DensityGCm3 float64 `json:"density_g_cm3,omitempty"`
	Notes       string  `json:"notes"`
}

func (s *Server) handleMaterialGroups(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	groups := groupMaterials(snap.PublicMaterials())
	s.jsonResponse(w, http.StatusOK, map[string][]MaterialGroup{"material_groups": groups})
}

// =============================================================================
// ESTIMATE ENDPOINT
// =============================================================================

// EstimateResponse is the API response for mesh-based estimation.
type EstimateResponse struct {
	VolumeCm3        float64            `json:"volume_cm3"`
	BBoxMM           map[string]float64 `json:"bbox_mm"`
	EstimatedGrams   float64            `json:"estimated_grams"`
	EstimatedMinutes int                `json:"estimated_minutes"`
	Warnings         []string           `json:"warnings"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "file upload is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}

	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	materialID := r.FormValue("material_id")
	mat, ok := snap.MaterialByID(materialID)
	if !ok {
		s.jsonError(w, http.StatusBadRequest, "unknown material_id: "+materialID)
		return
	}

	m, err := mesh.Decode(data, header.Filename)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	measurement, err := geometry.Measure(m)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	warnings := []string{}
	if measurement.Approximate {
		warnings = append(warnings, "Mesh not watertight; used convex-hull volume (approx).")
	}

	volumeCm3 := units.Cm3FromMm3(measurement.VolumeMM3)
	params := estimate.ParamsFromSettings(snap.Settings)
	quality := estimate.ParseQuality(r.FormValue("quality"))
	result := estimate.Estimate(volumeCm3, mat.Density(), params, quality)

	s.jsonResponse(w, http.StatusOK, EstimateResponse{
		VolumeCm3: units.Round2(volumeCm3),
		BBoxMM: map[string]float64{
			"x": units.Round2(measurement.BBoxMM[0]),
			"y": units.Round2(measurement.BBoxMM[1]),
			"z": units.Round2(measurement.BBoxMM[2]),
		},
		EstimatedGrams:   units.Round1(result.Grams),
		EstimatedMinutes: units.RoundMinutes(result.Minutes),
		Warnings:         warnings,
	})
}

// =============================================================================
// QUOTE ENDPOINTS
// =============================================================================

// QuoteRequest is the API request for a monetary quote.
type QuoteRequest struct {
	MaterialID       string  `json:"material_id"`
	MachineID        string  `json:"machine_id"`
	Qty              int     `json:"qty"`
	FilamentGrams    float64 `json:"filament_grams"`
	PrintTimeMinutes float64 `json:"print_time_minutes"`
	PostProHours     float64 `json:"post_pro_hours"`
	Extras           float64 `json:"extras"`
}

// QuoteResponse is the itemized quote with whole-unit terms.
type QuoteResponse struct {
	Material     float64 `json:"material_t"`
	Power        float64 `json:"power_t"`
	Depreciation float64 `json:"depreciation_t"`
	Maintenance  float64 `json:"maintenance_t"`
	Labor        float64 `json:"coloring_t"`
	Overhead     float64 `json:"overhead_t"`
	Extras       float64 `json:"extras"`
	Total        float64 `json:"total"`
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	s.handleQuoteWith(w, r, quote.ComputePublic)
}

func (s *Server) handleStaffQuote(w http.ResponseWriter, r *http.Request) {
	s.handleQuoteWith(w, r, quote.Compute)
}

func (s *Server) handleQuoteWith(w http.ResponseWriter, r *http.Request,
	compute func(quote.Request, *configstore.Snapshot) (*quote.Breakdown, error)) {

	req := QuoteRequest{Qty: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	breakdown, err := compute(quote.Request{
		MaterialID:          req.MaterialID,
		MachineID:           req.MachineID,
		Qty:                 req.Qty,
		GramsPerItem:        req.FilamentGrams,
		MinutesPerItem:      req.PrintTimeMinutes,
		PostProHoursPerItem: req.PostProHours,
		Extras:              req.Extras,
	}, snap)
	if err != nil {
		s.errorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, QuoteResponse{
		Material:     breakdown.Material.InexactFloat64(),
		Power:        breakdown.Power.InexactFloat64(),
		Depreciation: breakdown.Depreciation.InexactFloat64(),
		Maintenance:  breakdown.Maintenance.InexactFloat64(),
		Labor:        breakdown.Labor.InexactFloat64(),
		Overhead:     breakdown.Overhead.InexactFloat64(),
		Extras:       breakdown.Extras.InexactFloat64(),
		Total:        breakdown.Total.InexactFloat64(),
	})
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Read()
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, snap)
}

func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	var snap configstore.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		s.jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if err := s.store.Replace(&snap, callerSubject(r, s.config.JWTSecret)); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	n := 50
	if raw := r.URL.Query().Get("n"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	records, err := s.store.TailAudit(n)
	if err != nil {
		s.errorResponse(w, err)
		return
	}
	if records == nil {
		records = []configstore.AuditRecord{}
	}
	s.jsonResponse(w, http.StatusOK, records)
}

// =============================================================================
// HELPERS
// =============================================================================

func groupMaterials(materials []configstore.Material) []MaterialGroup {
	byKey := make(map[string]*MaterialGroup)
	var order []string
	for _, m := range materials {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		g, ok := byKey[key]
		if !ok {
			g = &MaterialGroup{
				GroupID:   strings.ReplaceAll(key, " ", "_"),
				GroupName: name,
			}
			byKey[key] = g
			order = append(order, key)
		}
		label := m.Color
		if label == "" {
			label = m.ID
		}
		g.Options = append(g.Options, MaterialOption{
			ID:          m.ID,
			Label:       label,
			PricePerKg:  m.PricePerKg,
			WastePct:    m.WastePct,
			DensityGCm3: m.DensityGCm3,
			Notes:       m.Notes,
		})
	}

	sort.Strings(order)
	groups := make([]MaterialGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		sort.Slice(g.Options, func(i, j int) bool {
			return strings.ToLower(g.Options[i].Label) < strings.ToLower(g.Options[j].Label)
		})
		groups = append(groups, *g)
	}
	return groups
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorResponse maps structured pipeline errors onto HTTP statuses.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch perrors.CodeOf(err) {
	case perrors.ErrCodeUnsupportedFormat, perrors.ErrCodeParseFailed,
		perrors.ErrCodeEmptyScene, perrors.ErrCodeUnsupportedMeshType,
		perrors.ErrCodeModelPartNotFound, perrors.ErrCodeEmptyMesh,
		perrors.ErrCodeVolumeUnavailable, perrors.ErrCodeUnknownMaterial,
		perrors.ErrCodeUnknownMachine, perrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case perrors.ErrCodeDuplicateID:
		status = http.StatusUnprocessableEntity
	}
	s.jsonError(w, status, err.Error())
}

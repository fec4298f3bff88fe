package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dris-project/impact-engine/internal/config"
	"github.com/dris-project/impact-engine/internal/filter"
	"github.com/dris-project/impact-engine/internal/report"
)

func newRouter(env *Env, srvCfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger(env.Log))
	r.Use(rateLimit(rate.Limit(srvCfg.RatePerSecond), srvCfg.RateBurst))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: srvCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/reports/hazard-impact", env.handleHazardImpact)
		r.Get("/reports/most-damaging", env.handleMostDamaging)
		r.Get("/reports/effects", env.handleEffectDetails)
		r.Get("/disasters/{id}/disaggregation", env.handleDisaggregation)
		r.Get("/sectors/{id}/tree", env.handleSectorTree)
	})

	return r
}

// requestID stamps each request with a uuid, echoed in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (e *Env) handleHazardImpact(w http.ResponseWriter, r *http.Request) {
	req, err := parseFilterRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := e.Reports.HazardImpact(r.Context(), req, requestOptions(r))
	if err != nil {
		e.Log.Error("hazard impact report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	writeData(w, rep)
}

func (e *Env) handleMostDamaging(w http.ResponseWriter, r *http.Request) {
	req, err := parseFilterRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep := e.Reports.MostDamagingEvents(r.Context(), req, parsePageRequest(r), requestOptions(r))
	writeData(w, rep)
}

func (e *Env) handleEffectDetails(w http.ResponseWriter, r *http.Request) {
	req, err := parseFilterRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rep, err := e.Reports.EffectDetails(r.Context(), req, requestOptions(r))
	if err != nil {
		e.Log.Error("effect details report failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "report failed")
		return
	}
	writeData(w, rep)
}

func (e *Env) handleDisaggregation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid disaster event id")
		return
	}
	summary, err := e.Disagg.Aggregate(r.Context(), id)
	if err != nil {
		e.Log.Error("disaggregation failed", zap.Int64("event", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "aggregation failed")
		return
	}
	writeData(w, summary)
}

func (e *Env) handleSectorTree(w http.ResponseWriter, r *http.Request) {
	set, err := e.Sectors.Expand(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		e.Log.Error("sector expansion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sector expansion failed")
		return
	}
	writeData(w, map[string]any{"sectorIds": set.Sorted()})
}

// parseFilterRequest maps query parameters onto the engine filter
// request. The tenant id is the only required parameter.
func parseFilterRequest(r *http.Request) (filter.Request, error) {
	q := r.URL.Query()

	tenant, err := strconv.ParseInt(q.Get("countryAccountsId"), 10, 64)
	if err != nil || tenant <= 0 {
		return filter.Request{}, errBadTenant
	}

	return filter.Request{
		TenantID:          tenant,
		ApprovalStatus:    q.Get("approvalStatus"),
		SectorID:          q.Get("sectorId"),
		SubSectorID:       q.Get("subSectorId"),
		HazardTypeID:      optInt64(q.Get("hazardTypeId")),
		HazardClusterID:   optInt64(q.Get("hazardClusterId")),
		SpecificHazardID:  optInt64(q.Get("specificHazardId")),
		GeographicLevelID: optInt64(q.Get("geographicLevelId")),
		FromDate:          q.Get("fromDate"),
		ToDate:            q.Get("toDate"),
		DisasterEventID:   optInt64(q.Get("disasterEventId")),
	}, nil
}

func parsePageRequest(r *http.Request) report.PageRequest {
	q := r.URL.Query()
	return report.PageRequest{
		Page:          int(optInt64(q.Get("page"))),
		PageSize:      int(optInt64(q.Get("pageSize"))),
		SortBy:        report.SortBy(q.Get("sortBy")),
		SortDirection: report.SortDirection(q.Get("sortDirection")),
	}
}

func requestOptions(r *http.Request) report.Options {
	opts := reportOptions(r.URL.Query().Get("assessedBy"))
	return opts
}

func optInt64(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

type apiError struct{ msg string }

func (e apiError) Error() string { return e.msg }

var errBadTenant = apiError{"countryAccountsId is required"}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/mulecatcher/internal/domain"
	"github.com/opensource-finance/mulecatcher/internal/rules"
	"github.com/opensource-finance/mulecatcher/internal/workbench"
)

// Handler exposes the workbench operations over HTTP. Mutating endpoints
// reply with the full post-operation snapshot so the dashboard can re-render
// from a single response.
type Handler struct {
	workbench *workbench.Workbench
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	engine    *rules.Engine

	maxUploadBytes int64
	version        string
}

// NewHandler creates an API handler.
func NewHandler(wb *workbench.Workbench, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *rules.Engine, maxUploadBytes int64, version string) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &Handler{
		workbench:      wb,
		repo:           repo,
		cache:          cache,
		bus:            bus,
		engine:         engine,
		maxUploadBytes: maxUploadBytes,
		version:        version,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeSnapshot replies with the current workbench state.
func (h *Handler) writeSnapshot(w http.ResponseWriter, status int) {
	writeJSON(w, status, h.workbench.Snapshot())
}

// GetSnapshot returns the full workbench state.
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	h.writeSnapshot(w, http.StatusOK)
}

// StageFile accepts a multipart upload and stages it for analysis.
func (h *Handler) StageFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	h.workbench.StageFile(&workbench.StagedFile{
		Name: header.Filename,
		Data: data,
	})

	slog.Info("file staged",
		"file", header.Filename,
		"bytes", len(data),
		"trace_id", GetTraceID(r.Context()),
	)
	h.writeSnapshot(w, http.StatusOK)
}

// UnstageFile clears the staged file.
func (h *Handler) UnstageFile(w http.ResponseWriter, r *http.Request) {
	h.workbench.StageFile(nil)
	h.writeSnapshot(w, http.StatusOK)
}

// ValidateFile runs structural validation on the staged file.
func (h *Handler) ValidateFile(w http.ResponseWriter, r *http.Request) {
	h.workbench.ValidateFile()
	h.writeSnapshot(w, http.StatusOK)
}

// RunAnalysis sends the staged file to the scoring backend and commits the
// resulting case.
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	err := h.workbench.RunAnalysis(r.Context())
	switch {
	case err == nil:
		h.writeSnapshot(w, http.StatusOK)
	case errors.Is(err, workbench.ErrAnalysisInFlight):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// ResetAnalysis returns the workbench to the idle state.
func (h *Handler) ResetAnalysis(w http.ResponseWriter, r *http.Request) {
	h.workbench.ResetAnalysis(r.Context())
	h.writeSnapshot(w, http.StatusOK)
}

// LoadSampleData installs the built-in demo case.
func (h *Handler) LoadSampleData(w http.ResponseWriter, r *http.Request) {
	h.workbench.LoadSampleData(r.Context())
	h.writeSnapshot(w, http.StatusOK)
}

// GetHistory lists the case history, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases": snap.Cases,
		"count": len(snap.Cases),
	})
}

// GetAccounts lists the flagged accounts of the current case.
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": snap.Accounts,
		"count":    len(snap.Accounts),
	})
}

// GetRings lists the fraud rings of the current case.
func (h *Handler) GetRings(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rings": snap.Rings,
		"count": len(snap.Rings),
	})
}

// GetEdges lists the transaction graph edges of the current case.
func (h *Handler) GetEdges(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"edges": snap.Edges,
		"count": len(snap.Edges),
	})
}

// AddIntervention appends an action to the what-if scenario.
func (h *Handler) AddIntervention(w http.ResponseWriter, r *http.Request) {
	var action domain.InterventionAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if action.Kind == "" {
		writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	h.workbench.AddIntervention(action)
	h.writeSnapshot(w, http.StatusOK)
}

// RemoveIntervention removes the scenario action at the given position.
// Out-of-range positions leave the scenario unchanged.
func (h *Handler) RemoveIntervention(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	h.workbench.RemoveIntervention(index)
	h.writeSnapshot(w, http.StatusOK)
}

// GetInterventions lists the current scenario.
func (h *Handler) GetInterventions(w http.ResponseWriter, r *http.Request) {
	snap := h.workbench.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"interventions": snap.Interventions,
		"count":         len(snap.Interventions),
		"summary":       snap.Summary,
	})
}

// PreviewIntervention computes the before/after mitigation projection.
func (h *Handler) PreviewIntervention(w http.ResponseWriter, r *http.Request) {
	h.workbench.PreviewIntervention()
	h.writeSnapshot(w, http.StatusOK)
}

// ApplyIntervention commits the previewed projection onto the current case.
func (h *Handler) ApplyIntervention(w http.ResponseWriter, r *http.Request) {
	h.workbench.ApplyIntervention(r.Context())
	h.writeSnapshot(w, http.StatusOK)
}

// ResetIntervention clears the scenario and any pending projection.
func (h *Handler) ResetIntervention(w http.ResponseWriter, r *http.Request) {
	h.workbench.ResetIntervention()
	h.writeSnapshot(w, http.StatusOK)
}

// GetSelection returns the panel selection state.
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workbench.Snapshot().Selection)
}

// SelectAccount sets or clears the selected account. A null or absent id
// clears the selection.
func (h *Handler) SelectAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID *string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.workbench.SelectAccount(req.AccountID)
	h.writeSnapshot(w, http.StatusOK)
}

// SelectRing sets or clears the selected ring.
func (h *Handler) SelectRing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RingID *string `json:"ringId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.workbench.SelectRing(req.RingID)
	h.writeSnapshot(w, http.StatusOK)
}

// SetRingFocus toggles ring focus mode.
func (h *Handler) SetRingFocus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.workbench.SetRingFocus(req.Enabled)
	h.writeSnapshot(w, http.StatusOK)
}

// OpenWhyPanel shows the explanation panel for an account.
func (h *Handler) OpenWhyPanel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"accountId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "accountId is required")
		return
	}

	h.workbench.OpenWhyPanel(req.AccountID)
	h.writeSnapshot(w, http.StatusOK)
}

// CloseWhyPanel hides the explanation panel.
func (h *Handler) CloseWhyPanel(w http.ResponseWriter, r *http.Request) {
	h.workbench.CloseWhyPanel()
	h.writeSnapshot(w, http.StatusOK)
}

// ListRules returns the rules currently loaded in the scoring engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"rules": []*domain.RuleConfig{},
			"count": 0,
		})
		return
	}

	loaded := h.engine.GetLoadedRules()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": loaded,
		"count": len(loaded),
	})
}

// CreateRule validates, persists, and hot-loads a rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not configured")
		return
	}

	var rule domain.RuleConfig
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Name == "" || rule.Expression == "" {
		writeError(w, http.StatusBadRequest, "name and expression are required")
		return
	}
	if rule.Version == "" {
		rule.Version = "1.0.0"
	}

	if err := h.engine.ValidateRule(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule expression: "+err.Error())
		return
	}

	if h.repo != nil {
		if err := h.repo.SaveRuleConfig(r.Context(), &rule); err != nil {
			slog.Error("failed to save rule", "rule_id", rule.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save rule")
			return
		}
	}

	if rule.Enabled {
		if err := h.engine.LoadRule(&rule); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load rule: "+err.Error())
			return
		}
	}

	slog.Info("rule created",
		"rule_id", rule.ID,
		"name", rule.Name,
		"enabled", rule.Enabled,
	)
	writeJSON(w, http.StatusCreated, &rule)
}

// ReloadRules replaces the engine's rule set from the repository. The swap
// is atomic: a bad stored rule leaves the running set untouched.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil || h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "rule engine not configured")
		return
	}

	configs, err := h.repo.ListRuleConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	if err := h.engine.ReloadRules(configs); err != nil {
		writeError(w, http.StatusBadRequest, "reload failed: "+err.Error())
		return
	}

	slog.Info("rules reloaded", "count", h.engine.RulesCount())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"count":  h.engine.RulesCount(),
	})
}

// Health reports component health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := "healthy"
	components := make(map[string]string)

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			components["repository"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			components["repository"] = "healthy"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			components["cache"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			components["cache"] = "healthy"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			components["eventbus"] = "unhealthy: " + err.Error()
			status = "degraded"
		} else {
			components["eventbus"] = "healthy"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"version":    h.version,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports whether the service can accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

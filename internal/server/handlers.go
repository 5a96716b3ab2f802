package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/subscription"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/errors"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			s.logger.WithError(err).Error("Failed to encode response")
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	payload := &errors.AppError{
		Type:    errors.ErrorTypeInternal,
		Code:    errors.CodeInternalError,
		Message: err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		payload = appErr
		if appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
	}
	s.writeJSON(w, status, &errors.ErrorResponse{
		Error:     payload,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]string{"status": status, "version": Version})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"version":   Version,
		"commit":    GitCommit,
		"buildDate": BuildDate,
		"goVersion": runtime.Version(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error": map[string]string{"code": "NOT_FOUND", "message": "resource not found"},
		"path":  r.URL.Path,
	})
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := s.store.ListDashboards(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": dashboards})
}

func (s *Server) handleCreateDashboard(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "request body must be JSON"))
		return
	}
	if body.Title == "" {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "title is required"))
		return
	}

	stored, err := s.store.SaveDashboard(r.Context(), models.NewDashboard(body.Title))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.dashboardSaves.Inc()
	s.writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.LoadDashboard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSaveDashboard(w http.ResponseWriter, r *http.Request) {
	var d models.Dashboard
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "request body must be a dashboard document"))
		return
	}
	d.ID = mux.Vars(r)["id"]

	stored, err := s.store.SaveDashboard(r.Context(), &d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.dashboardSaves.Inc()
	s.writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDashboard(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWidgetTypes(w http.ResponseWriter, r *http.Request) {
	type typeInfo struct {
		Type         string `json:"type"`
		Category     string `json:"category"`
		Label        string `json:"label"`
		Description  string `json:"description"`
		DefaultSizeX int    `json:"defaultSizeX"`
		DefaultSizeY int    `json:"defaultSizeY"`
	}
	defs := s.registry.All()
	out := make([]typeInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, typeInfo{
			Type:         def.Type,
			Category:     string(def.Category),
			Label:        def.Label,
			Description:  def.Description,
			DefaultSizeX: def.DefaultSizeX,
			DefaultSizeY: def.DefaultSizeY,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": out})
}

// handleWidgetData fetches one widget's current snapshot and renders it
// through the resolved widget type.
func (s *Server) handleWidgetData(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	d, err := s.store.LoadDashboard(r.Context(), vars["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if d.Configuration == nil {
		s.writeError(w, r, errors.NewDocumentError(errors.CodeWidgetNotFound, "widget not found"))
		return
	}
	widget, ok := d.Configuration.Widgets[vars["widgetId"]]
	if !ok {
		s.writeError(w, r, errors.NewDocumentError(errors.CodeWidgetNotFound, "widget not found"))
		return
	}

	var (
		datasources []*models.Datasource
		timewindow  *models.Timewindow
	)
	if widget.Config != nil {
		datasources = widget.Config.Datasources
		timewindow = widget.Config.Timewindow
	}
	if timewindow == nil {
		timewindow = d.Configuration.Timewindow
	}

	snap := subscription.FetchSnapshot(r.Context(), s.telemetry, datasources, timewindow)

	def, resolution := s.registry.Resolve(widget)
	result, err := def.Renderer.Render(widget, &snap)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"resolution": resolution,
		"snapshot":   snap,
		"render":     result,
	})
}

func (s *Server) handleReadTimeseries(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	keys := splitKeys(r.URL.Query().Get("keys"))
	if len(keys) == 0 {
		s.writeError(w, r, errors.NewDocumentError("INVALID_QUERY", "keys parameter is required"))
		return
	}

	now := time.Now().UnixMilli()
	startTs := queryInt64(r, "startTs", now-models.DefaultTimewindowMs)
	endTs := queryInt64(r, "endTs", now)

	data, err := s.telemetry.ReadTimeseries(r.Context(), deviceID, keys, startTs, endTs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleWriteTimeseries(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]

	// Accept either {"key": value} latest-style payloads or
	// {"key": [{"ts":..,"value":..}]} full series payloads.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "request body must be JSON"))
		return
	}

	now := time.Now().UnixMilli()
	values := make(map[string][]models.TsValue, len(raw))
	for key, payload := range raw {
		var series []models.TsValue
		if err := json.Unmarshal(payload, &series); err == nil {
			values[key] = series
			continue
		}
		values[key] = []models.TsValue{{Ts: now, Value: scalarString(payload)}}
	}

	if err := s.telemetry.WriteTimeseries(r.Context(), deviceID, values); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.telemetryWrites.Inc()
	s.hub.PublishTimeseries(deviceID, values)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleReadAttributes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	keys := splitKeys(r.URL.Query().Get("keys"))
	attrs, err := s.telemetry.ReadLatestAttributes(r.Context(), vars["deviceId"], vars["scope"], keys)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if attrs == nil {
		attrs = []models.AttributeValue{}
	}
	s.writeJSON(w, http.StatusOK, attrs)
}

func (s *Server) handleWriteAttributes(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["deviceId"]
	scope := vars["scope"]

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "request body must be JSON"))
		return
	}

	now := time.Now().UnixMilli()
	values := make([]models.AttributeValue, 0, len(raw))
	for key, payload := range raw {
		values = append(values, models.AttributeValue{
			Key:          key,
			Value:        scalarString(payload),
			LastUpdateTs: now,
		})
	}

	if err := s.telemetry.WriteAttributes(r.Context(), deviceID, scope, values); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.metrics.telemetryWrites.Inc()
	s.hub.PublishAttributes(deviceID, scope, values)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleDeviceRPC(w http.ResponseWriter, r *http.Request) {
	if s.invoker == nil {
		s.writeError(w, r, errors.NewCommandError(errors.CodeCommandFailed, "command forwarding is not configured"))
		return
	}
	deviceID := mux.Vars(r)["deviceId"]

	var req models.RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method == "" {
		s.writeError(w, r, errors.NewDocumentError("INVALID_BODY", "request body must carry an RPC method"))
		return
	}
	twoWay := r.URL.Query().Get("twoWay") == "true"

	resp, err := s.invoker.Send(r.Context(), deviceID, req, twoWay)
	if err != nil {
		s.metrics.commandsForwarded.WithLabelValues("error").Inc()
		s.writeError(w, r, err)
		return
	}
	s.metrics.commandsForwarded.WithLabelValues("ok").Inc()
	if !twoWay || resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func splitKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func queryInt64(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// scalarString renders a JSON scalar as its telemetry string form.
// Quoted strings lose their quotes; everything else keeps its literal.
func scalarString(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}

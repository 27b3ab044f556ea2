// Package api serves the part cost estimator over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/philipparndt/partquote/internal/history"
	"github.com/philipparndt/partquote/internal/pipeline"
	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
)

// HistoryStore is the estimate history used by the history endpoint
type HistoryStore interface {
	Recorder
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Handler holds the endpoint implementations
type Handler struct {
	advisor         *advisor.Advisor
	runs            *Registry
	history         HistoryStore
	defaultMaterial string
	version         string
}

type estimateRequest struct {
	GeometryMetrics *analysis.GeometryMetrics `json:"geometryMetrics"`
	Material        string                    `json:"material"`
}

type estimateResponse struct {
	Success  bool               `json:"success"`
	Estimate cost.Breakdown     `json:"estimate"`
	Method   advisor.Provenance `json:"method"`
	Warning  string             `json:"warning,omitempty"`
}

type materialView struct {
	Name string  `json:"name"`
	Rate float64 `json:"rate"`
}

type estimateView struct {
	cost.Breakdown
	Method  advisor.Provenance `json:"method"`
	Warning string             `json:"warning,omitempty"`
}

type runView struct {
	ID        string                    `json:"id"`
	Stage     pipeline.Stage            `json:"stage"`
	Progress  int                       `json:"progress"`
	Message   string                    `json:"message,omitempty"`
	FileName  string                    `json:"fileName"`
	Material  string                    `json:"material"`
	HasMesh   bool                      `json:"hasMesh"`
	Metrics   *analysis.GeometryMetrics `json:"geometryMetrics,omitempty"`
	Estimate  *estimateView             `json:"estimate,omitempty"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

// meshPayload is the msgpack body of the mesh endpoint
type meshPayload struct {
	Positions []float32 `msgpack:"positions"`
	Normals   []float32 `msgpack:"normals"`
	Indices   []uint32  `msgpack:"indices"`
}

func newEstimateView(result advisor.Result) *estimateView {
	view := &estimateView{Breakdown: result.Breakdown, Method: result.Provenance}
	if result.Err != nil {
		view.Warning = result.Err.Error()
	}
	return view
}

func newRunView(s pipeline.State) runView {
	view := runView{
		ID:        s.RunID,
		Stage:     s.Stage,
		Progress:  s.Progress,
		Message:   s.Message,
		FileName:  s.FileName,
		Material:  s.Material,
		HasMesh:   s.Mesh != nil,
		Metrics:   s.Metrics,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Estimate != nil {
		view.Estimate = newEstimateView(*s.Estimate)
	}
	return view
}

// HandleHealth returns server health status
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"runs":    h.runs.Len(),
	})
}

// HandleMaterials lists the rate table
func (h *Handler) HandleMaterials(c echo.Context) error {
	rates := h.advisor.Model().Rates()
	materials := make([]materialView, 0, len(rates))
	for _, name := range rates.Names() {
		materials = append(materials, materialView{Name: name, Rate: rates[name]})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"materials": materials,
		"default":   h.defaultMaterial,
	})
}

// HandleEstimateCost estimates the cost of a part from its metrics
func (h *Handler) HandleEstimateCost(c echo.Context) error {
	var req estimateRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.GeometryMetrics == nil {
		return NewBadRequestError("missing geometry metrics", nil)
	}
	if req.GeometryMetrics.Volume < 0 || req.GeometryMetrics.SurfaceArea < 0 {
		return NewBadRequestError("volume and surface area must not be negative", nil)
	}
	if req.Material == "" {
		req.Material = h.defaultMaterial
	}

	result := h.advisor.Estimate(c.Request().Context(), *req.GeometryMetrics, req.Material)
	resp := estimateResponse{
		Success:  true,
		Estimate: result.Breakdown,
		Method:   result.Provenance,
	}
	if result.Err != nil {
		resp.Warning = result.Err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleCreateRun accepts a multipart part file and starts processing it.
// With ?wait=true the response is sent once the run finished.
func (h *Handler) HandleCreateRun(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("missing file", err)
	}
	f, err := fh.Open()
	if err != nil {
		return NewBadRequestError("failed to open upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return NewBadRequestError("failed to read upload", err)
	}

	material := c.FormValue("material")
	if material == "" {
		material = h.defaultMaterial
	}

	state, err := h.runs.Start(pipeline.Input{Name: fh.Filename, Data: data}, material)
	if err != nil {
		return runError(err)
	}

	if c.QueryParam("wait") != "true" {
		return c.JSON(http.StatusAccepted, newRunView(state))
	}

	state, err = h.runs.Wait(c.Request().Context(), state.RunID)
	if err != nil {
		return runError(err)
	}
	return c.JSON(http.StatusOK, newRunView(state))
}

// HandleGetRun returns the state of a run
func (h *Handler) HandleGetRun(c echo.Context) error {
	id := c.Param("id")
	state, ok := h.runs.Get(id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	return c.JSON(http.StatusOK, newRunView(state))
}

// HandleGetRunMesh returns the display mesh of a run in MessagePack format
func (h *Handler) HandleGetRunMesh(c echo.Context) error {
	id := c.Param("id")
	state, ok := h.runs.Get(id)
	if !ok {
		return NewNotFoundError("run", id)
	}
	if state.Mesh == nil {
		return NewConflictError("mesh not available yet", nil)
	}

	data, err := msgpack.Marshal(meshPayload{
		Positions: state.Mesh.Positions(),
		Normals:   state.Mesh.Normals(),
		Indices:   state.Mesh.Indices(),
	})
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleDeleteRun cancels and removes a run
func (h *Handler) HandleDeleteRun(c echo.Context) error {
	id := c.Param("id")
	if !h.runs.Delete(id) {
		return NewNotFoundError("run", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleHistory lists recent estimates
func (h *Handler) HandleHistory(c echo.Context) error {
	if h.history == nil {
		return NewServiceUnavailableError("history is disabled")
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return NewBadRequestError("invalid limit", err)
		}
		limit = n
	}

	entries, err := h.history.Recent(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to read history", err)
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"entries": entries})
}

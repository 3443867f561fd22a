package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gocoex/adapters/spatial"
	"gocoex/adapters/stats/estimate"
	"gocoex/adapters/stats/local"
	"gocoex/app"
	"gocoex/domain/core"
	"gocoex/domain/dataset"
	"gocoex/domain/run"
	apperrors "gocoex/internal/errors"
	"gocoex/ports"
)

// AnalysisPayload is the request body for POST /v1/analyses. Callers either
// inline the expression matrix or name a workbook source for the resolver;
// inline values win when both are present.
type AnalysisPayload struct {
	Source   string         `json:"source,omitempty"`
	Entities []string       `json:"entities,omitempty"`
	Spots    []string       `json:"spots,omitempty"`
	Values   [][]float64    `json:"values,omitempty"`
	Coords   [][2]float64   `json:"coords,omitempty"`
	Pairs    []string       `json:"pairs" binding:"required"`
	Params   run.Parameters `json:"params"`
}

// handleHealth reports service liveness
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleCreateAnalysis runs a full analysis and returns the run record.
// Results are fetched separately via /v1/analyses/:id/result.
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	var payload AnalysisPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	bundle, err := s.resolveBundle(c.Request.Context(), payload)
	if err != nil {
		s.respondError(c, err)
		return
	}

	pairs, err := dataset.PairsFromKeys(payload.Pairs)
	if err != nil {
		s.respondError(c, err)
		return
	}

	params := payload.Params
	s.applyDefaults(&params)

	out, err := s.service.Run(c.Request.Context(), app.AnalysisRequest{
		Bundle: bundle,
		Pairs:  pairs,
		Params: params,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, out.Run)
}

// handleListAnalyses returns persisted runs, newest first
func (s *Server) handleListAnalyses(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}

	runs, err := s.service.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// handleGetAnalysis returns a single run record with its pair summaries
func (s *Server) handleGetAnalysis(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ar, err := s.service.GetRun(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ar)
}

// handleGetResult returns the full per-spot result payload for a run
func (s *Server) handleGetResult(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.service.GetResult(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleListMethods advertises the supported statistics, kernels and estimators
func (s *Server) handleListMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods":    local.Methods(),
		"kernels":    spatial.Families(),
		"estimators": estimate.Estimators(),
	})
}

// resolveBundle turns a payload into an expression bundle, either from the
// inline matrix or through the workbook resolver.
func (s *Server) resolveBundle(ctx context.Context, payload AnalysisPayload) (*dataset.ExpressionBundle, error) {
	if len(payload.Values) > 0 {
		if len(payload.Entities) == 0 {
			return nil, apperrors.Validation("inline values need entity names")
		}
		if len(payload.Spots) > 0 && len(payload.Spots) != len(payload.Values) {
			return nil, apperrors.Validationf("got %d spot names for %d value rows", len(payload.Spots), len(payload.Values))
		}

		spots := make([]core.SpotID, len(payload.Values))
		for i := range spots {
			if len(payload.Spots) > 0 {
				spots[i] = core.SpotID(payload.Spots[i])
			} else {
				spots[i] = core.SpotID(fmt.Sprintf("spot_%04d", i))
			}
		}
		entities := make([]core.EntityKey, len(payload.Entities))
		for i, e := range payload.Entities {
			entities[i] = core.EntityKey(e)
		}
		return dataset.NewExpressionBundle(spots, entities, payload.Values, payload.Coords)
	}

	source := payload.Source
	if source == "" {
		source = s.workbook
	}
	if source == "" {
		return nil, apperrors.Validation("request needs inline values or a workbook source")
	}
	if s.resolver == nil {
		return nil, apperrors.Configuration("no workbook resolver configured")
	}
	return s.resolver.ResolveBundle(ctx, ports.BundleResolutionRequest{
		Source:   source,
		Entities: payload.Entities,
	})
}

// applyDefaults fills structural gaps from the server configuration. Numeric
// zero values are taken literally (permutations 0 means skip the tester), only
// fields the engine cannot interpret empty are defaulted.
func (s *Server) applyDefaults(p *run.Parameters) {
	if p.Method == "" {
		p.Method = s.defaults.Method
	}
	if p.KernelFamily == "" {
		p.KernelFamily = s.defaults.KernelFamily
	}
	if p.KernelParam == 0 {
		p.KernelParam = s.defaults.KernelParameter
	}
	if p.KernelCutoff == nil && p.NNeighbors == 0 {
		cutoff := s.defaults.KernelCutoff
		p.KernelCutoff = &cutoff
	}
}

// respondError maps domain error codes onto HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.HasCode(err, apperrors.CodeValidation),
		apperrors.HasCode(err, apperrors.CodeConfiguration),
		core.IsValidationError(err):
		status = http.StatusBadRequest
	case apperrors.HasCode(err, apperrors.CodeNotFound), core.IsNotFoundError(err):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/blueprintx-backend/internal/http/response"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

type AnalysisHandler struct {
	log      *logger.Logger
	analysis services.AnalysisService
}

func NewAnalysisHandler(log *logger.Logger, analysis services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{log: log.With("handler", "AnalysisHandler"), analysis: analysis}
}

// GET /api/analyses
func (h *AnalysisHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.analysis.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error("List analyses failed", "error", err, "user_id", userID)
		response.RespondError(c, http.StatusInternalServerError, "load_analyses_failed", nil)
		return
	}
	response.RespondOK(c, gin.H{"analyses": rows})
}

// GET /api/analyses/:id
func (h *AnalysisHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	row, err := h.analysis.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "load_analysis_failed")
		return
	}
	response.RespondOK(c, gin.H{"analysis": row})
}

// DELETE /api/analyses/:id
func (h *AnalysisHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.analysis.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondAPIError(c, err, "delete_analysis_failed")
		return
	}
	c.Status(http.StatusNoContent)
}

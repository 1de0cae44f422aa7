package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/http/response"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

type StudyPlanHandler struct {
	log   *logger.Logger
	plans services.StudyPlanService
}

func NewStudyPlanHandler(log *logger.Logger, plans services.StudyPlanService) *StudyPlanHandler {
	return &StudyPlanHandler{log: log.With("handler", "StudyPlanHandler"), plans: plans}
}

type createPlanRequest struct {
	AnalysisID string          `json:"analysis_id"`
	Topics     json.RawMessage `json:"topics"`
	Title      string          `json:"title"`
	StartDate  *types.Date     `json:"start_date"`
	DailyHours *float64        `json:"daily_hours"`
	DaysOff    []int           `json:"days_off"`
}

// POST /api/study-plans
func (h *StudyPlanHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	in := services.CreatePlanInput{
		Title:      req.Title,
		StartDate:  req.StartDate,
		DailyHours: req.DailyHours,
		DaysOff:    req.DaysOff,
	}
	if s := strings.TrimSpace(req.AnalysisID); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_analysis_id", err)
			return
		}
		in.AnalysisID = &id
	} else if !isJSONAbsent(req.Topics) {
		in.Topics = req.Topics
	}

	view, err := h.plans.Create(c.Request.Context(), userID, in)
	if err != nil {
		h.log.Warn("Create study plan failed", "error", err)
		response.RespondAPIError(c, err, "create_plan_failed")
		return
	}
	response.RespondCreated(c, view)
}

// GET /api/study-plans
func (h *StudyPlanHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	plans, err := h.plans.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.log.Error("List study plans failed", "error", err, "user_id", userID)
		response.RespondError(c, http.StatusInternalServerError, "load_plans_failed", nil)
		return
	}
	response.RespondOK(c, gin.H{"study_plans": plans})
}

// GET /api/study-plans/:id
func (h *StudyPlanHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	view, err := h.plans.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.RespondAPIError(c, err, "load_plan_failed")
		return
	}
	response.RespondOK(c, view)
}

type completionRequest struct {
	Path      []int `json:"path"`
	Completed *bool `json:"completed"`
}

// PATCH /api/study-plans/:id/topics/completion
func (h *StudyPlanHandler) SetCompletion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Completed == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("completed is required"))
		return
	}
	view, err := h.plans.SetCompletion(c.Request.Context(), userID, id, req.Path, *req.Completed)
	if err != nil {
		response.RespondAPIError(c, err, "update_plan_failed")
		return
	}
	response.RespondOK(c, view)
}

// DELETE /api/study-plans/:id
func (h *StudyPlanHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.plans.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondAPIError(c, err, "delete_plan_failed")
		return
	}
	c.Status(http.StatusNoContent)
}

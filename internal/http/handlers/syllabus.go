package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/blueprintx-backend/internal/http/response"
	"github.com/yungbote/blueprintx-backend/internal/platform/ctxutil"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
	"github.com/yungbote/blueprintx-backend/internal/services"
)

const defaultMaxUploadBytes int64 = 10 << 20

type SyllabusHandler struct {
	log            *logger.Logger
	analysis       services.AnalysisService
	maxUploadBytes int64
}

func NewSyllabusHandler(log *logger.Logger, analysis services.AnalysisService, maxUploadBytes int64) *SyllabusHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &SyllabusHandler{
		log:            log.With("handler", "SyllabusHandler"),
		analysis:       analysis,
		maxUploadBytes: maxUploadBytes,
	}
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

// POST /api/syllabus/upload
func (h *SyllabusHandler) Upload(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	// room for the multipart envelope around the file itself
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+(1<<20))

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large") {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file is %d bytes, limit is %d", fh.Size, h.maxUploadBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_file", err)
		return
	}
	if int64(len(data)) > h.maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", nil)
		return
	}

	row, err := h.analysis.Upload(c.Request.Context(), userID, fh.Filename,
		fh.Header.Get("Content-Type"), data, c.PostForm("provider"))
	if err != nil {
		h.log.Warn("Upload analysis failed", "error", err, "filename", fh.Filename)
		response.RespondAPIError(c, err, "analysis_failed")
		return
	}
	response.RespondCreated(c, gin.H{"analysis": row})
}

type analyzeRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	Provider string `json:"provider"`
}

// POST /api/syllabus/analyze
func (h *SyllabusHandler) Analyze(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	row, err := h.analysis.Analyze(c.Request.Context(), userID, services.AnalyzeInput{
		Text:     req.Text,
		Filename: req.Filename,
		Provider: req.Provider,
	})
	if err != nil {
		h.log.Warn("Analysis failed", "error", err)
		response.RespondAPIError(c, err, "analysis_failed")
		return
	}
	response.RespondCreated(c, gin.H{"analysis": row})
}

type normalizeRequest struct {
	Topics json.RawMessage `json:"topics"`
}

// POST /api/syllabus/normalize
func (h *SyllabusHandler) Normalize(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if isJSONAbsent(req.Topics) {
		response.RespondError(c, http.StatusBadRequest, "missing_topics", errors.New("topics is required"))
		return
	}
	res, err := h.analysis.Normalize(c.Request.Context(), req.Topics)
	if err != nil {
		response.RespondAPIError(c, err, "normalize_failed")
		return
	}
	response.RespondOK(c, res)
}

func isJSONAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || string(t) == "null"
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

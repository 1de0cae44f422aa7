package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/yungbote/blueprintx-backend/internal/data/repos"
	types "github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/extractor"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/providers"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/apierr"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// RawTopicCache stores provider output keyed by provider and content hash.
type RawTopicCache interface {
	Get(ctx context.Context, provider, contentHash string) ([]byte, bool, error)
	Set(ctx context.Context, provider, contentHash string, payload []byte) error
}

type AnalyzeInput struct {
	Text     string
	Filename string
	Provider string
}

type AnalysisService interface {
	Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (*types.SyllabusAnalysis, error)
	Upload(ctx context.Context, userID uuid.UUID, filename, mimeType string, data []byte, provider string) (*types.SyllabusAnalysis, error)
	Normalize(ctx context.Context, raw []byte) (*analyzer.Result, error)
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.SyllabusAnalysis, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.SyllabusAnalysis, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type analysisService struct {
	log      *logger.Logger
	repo     repos.AnalysisRepo
	registry *providers.Registry
	analyzer *analyzer.Analyzer
	cache    RawTopicCache
	metrics  *observability.Metrics
}

// NewAnalysisService wires the analysis flow. cache and metrics may be nil.
func NewAnalysisService(
	log *logger.Logger,
	repo repos.AnalysisRepo,
	registry *providers.Registry,
	an *analyzer.Analyzer,
	cache RawTopicCache,
	metrics *observability.Metrics,
) AnalysisService {
	return &analysisService{
		log:      log.With("service", "AnalysisService"),
		repo:     repo,
		registry: registry,
		analyzer: an,
		cache:    cache,
		metrics:  metrics,
	}
}

func (s *analysisService) Upload(ctx context.Context, userID uuid.UUID, filename, mimeType string, data []byte, provider string) (*types.SyllabusAnalysis, error) {
	doc, err := extractor.Extract(filename, mimeType, data)
	if err != nil {
		switch {
		case errors.Is(err, extractor.ErrUnsupported):
			return nil, apierr.New(http.StatusUnsupportedMediaType, "unsupported_file", err)
		case errors.Is(err, extractor.ErrEmpty):
			return nil, apierr.New(http.StatusBadRequest, "empty_document", err)
		default:
			return nil, apierr.New(http.StatusUnprocessableEntity, "extract_failed", err)
		}
	}
	s.log.Debug("Extracted document", "filename", filename, "kind", string(doc.Kind), "chars", len(doc.Text))
	return s.Analyze(ctx, userID, AnalyzeInput{Text: doc.Text, Filename: filename, Provider: provider})
}

func (s *analysisService) Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (*types.SyllabusAnalysis, error) {
	ctx, span := observability.Tracer().Start(ctx, "AnalysisService.Analyze")
	defer span.End()

	if strings.TrimSpace(in.Text) == "" {
		return nil, apierr.New(http.StatusBadRequest, "empty_document", providers.ErrEmptyInput)
	}
	chain, err := s.registry.Chain(in.Provider)
	if err != nil {
		return nil, apierr.New(http.StatusBadRequest, "unknown_provider", err)
	}

	hash := ContentHash(in.Text)
	span.SetAttributes(
		attribute.String("analysis.provider", chain.Primary()),
		attribute.String("analysis.content_hash", hash),
		attribute.Int("analysis.text_chars", len(in.Text)),
	)

	start := time.Now()
	res, usedProvider, err := s.extractAndNormalize(ctx, chain, hash, in.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.ObserveAnalysis(chain.Primary(), analysisOutcome(err), time.Since(start), 0, 0)
		return nil, mapAnalysisError(err)
	}
	s.metrics.ObserveAnalysis(usedProvider, "ok", time.Since(start), len(res.Dropped), len(res.Coerced))
	span.SetAttributes(
		attribute.String("analysis.used_provider", usedProvider),
		attribute.Int("analysis.dropped", len(res.Dropped)),
	)

	row, err := s.buildRow(userID, in, hash, usedProvider, res)
	if err != nil {
		return nil, err
	}
	prior, err := s.repo.CountByHash(ctx, nil, userID, hash)
	if err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}
	row.Version = int(prior) + 1

	if _, err := s.repo.Create(ctx, nil, row); err != nil {
		s.log.Error("Failed to persist analysis", "error", err, "user_id", userID)
		return nil, apierr.New(http.StatusInternalServerError, "persist_failed", err)
	}
	s.log.Info("Syllabus analyzed",
		"analysis_id", row.ID,
		"provider", usedProvider,
		"version", row.Version,
		"dropped", len(res.Dropped),
	)
	return row, nil
}

// extractAndNormalize consults the cache under the primary provider before
// calling the chain. Fresh provider output is cached under the provider that
// produced it.
func (s *analysisService) extractAndNormalize(ctx context.Context, chain *providers.Chain, hash, text string) (*analyzer.Result, string, error) {
	primary := chain.Primary()
	if s.cache != nil {
		payload, ok, err := s.cache.Get(ctx, primary, hash)
		switch {
		case err != nil:
			s.metrics.IncCache("error")
			s.log.Warn("Analysis cache lookup failed", "error", err)
		case ok:
			s.metrics.IncCache("hit")
			res, nerr := s.analyzer.NormalizeJSON(payload)
			if nerr == nil {
				return res, primary, nil
			}
			s.log.Warn("Ignoring unusable cached topics", "error", nerr)
		default:
			s.metrics.IncCache("miss")
		}
	}

	raw, used, err := chain.Extract(ctx, text)
	if err != nil {
		return nil, "", err
	}
	if s.cache != nil {
		if payload, merr := json.Marshal(raw); merr == nil {
			if serr := s.cache.Set(ctx, used, hash, payload); serr != nil {
				s.log.Warn("Analysis cache store failed", "error", serr)
			}
		}
	}
	res, err := s.analyzer.Normalize(raw)
	if err != nil {
		return nil, used, err
	}
	return res, used, nil
}

func (s *analysisService) buildRow(userID uuid.UUID, in AnalyzeInput, hash, provider string, res *analyzer.Result) (*types.SyllabusAnalysis, error) {
	if res.Topics == nil {
		res.Topics = []*types.Topic{}
	}
	if res.PriorityTopics == nil {
		res.PriorityTopics = []*types.Topic{}
	}
	topics, err := json.Marshal(res.Topics)
	if err != nil {
		return nil, fmt.Errorf("marshal topics: %w", err)
	}
	priority, err := json.Marshal(res.PriorityTopics)
	if err != nil {
		return nil, fmt.Errorf("marshal priority topics: %w", err)
	}
	dropped := []byte("[]")
	if len(res.Dropped) > 0 {
		if dropped, err = json.Marshal(res.Dropped); err != nil {
			return nil, fmt.Errorf("marshal dropped nodes: %w", err)
		}
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		filename = "untitled.txt"
	}
	return &types.SyllabusAnalysis{
		UserID:          userID,
		Filename:        filename,
		ContentHash:     hash,
		Provider:        provider,
		Topics:          datatypes.JSON(topics),
		PriorityTopics:  datatypes.JSON(priority),
		DroppedNodes:    datatypes.JSON(dropped),
		TotalStudyHours: res.TotalHours,
	}, nil
}

func (s *analysisService) Normalize(ctx context.Context, raw []byte) (*analyzer.Result, error) {
	_, span := observability.Tracer().Start(ctx, "AnalysisService.Normalize")
	defer span.End()

	res, err := s.analyzer.NormalizeJSON(raw)
	if err != nil {
		span.RecordError(err)
		return nil, mapAnalysisError(err)
	}
	return res, nil
}

func (s *analysisService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.SyllabusAnalysis, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	out, err := s.repo.ListByUser(ctx, nil, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	return out, nil
}

func (s *analysisService) Get(ctx context.Context, userID, id uuid.UUID) (*types.SyllabusAnalysis, error) {
	row, err := s.repo.GetByID(ctx, nil, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	if row == nil {
		return nil, apierr.New(http.StatusNotFound, "not_found", errors.New("analysis not found"))
	}
	return row, nil
}

func (s *analysisService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.SoftDelete(ctx, nil, userID, id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if !ok {
		return apierr.New(http.StatusNotFound, "not_found", errors.New("analysis not found"))
	}
	return nil
}

// ContentHash is the hex sha256 of the trimmed text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

func mapAnalysisError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, analyzer.ErrInvalidTree):
		return apierr.New(http.StatusUnprocessableEntity, "invalid_tree", err)
	case errors.Is(err, providers.ErrEmptyInput):
		return apierr.New(http.StatusBadRequest, "empty_document", err)
	case errors.Is(err, providers.ErrUnavailable):
		return apierr.New(http.StatusServiceUnavailable, "provider_unavailable", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusGatewayTimeout, "analysis_timeout", err)
	default:
		return apierr.New(http.StatusBadGateway, "provider_failed", err)
	}
}

func analysisOutcome(err error) string {
	switch {
	case errors.Is(err, analyzer.ErrInvalidTree):
		return "invalid_tree"
	case errors.Is(err, providers.ErrUnavailable):
		return "unavailable"
	default:
		return "provider_error"
	}
}

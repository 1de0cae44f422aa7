package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/providers"
	"github.com/yungbote/blueprintx-backend/internal/platform/apierr"
)

func TestAnalyzePersistsAndUsesCache(t *testing.T) {
	stub := &stubProvider{name: "stub", raw: rawTree()}
	cache := newMemCache()
	f := newFixture(t, cache, "stub", nil, stub)
	ctx := context.Background()
	userID := uuid.New()

	first, err := f.analysis.Analyze(ctx, userID, AnalyzeInput{Text: "Week 1: limits", Filename: "calc.txt"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.Provider != "stub" || first.Version != 1 || first.Filename != "calc.txt" {
		t.Fatalf("unexpected row: %+v", first)
	}
	if first.TotalStudyHours == nil || *first.TotalStudyHours != 2.5 {
		t.Fatalf("total hours: %v", first.TotalStudyHours)
	}
	var priority []map[string]any
	if err := json.Unmarshal(first.PriorityTopics, &priority); err != nil {
		t.Fatalf("priority json: %v", err)
	}
	if len(priority) != 1 || priority[0]["name"] != "Limits" {
		t.Fatalf("priority: %v", priority)
	}

	second, err := f.analysis.Analyze(ctx, userID, AnalyzeInput{Text: "  Week 1: limits\n"})
	if err != nil {
		t.Fatalf("Analyze (cached): %v", err)
	}
	if stub.Calls() != 1 {
		t.Fatalf("expected provider to be called once, got %d", stub.Calls())
	}
	if second.Version != 2 || second.ContentHash != first.ContentHash {
		t.Fatalf("expected version 2 for the same content, got %+v", second)
	}
	if string(second.Topics) != string(first.Topics) {
		t.Fatalf("cached analysis differs:\n%s\n%s", first.Topics, second.Topics)
	}
	n, err := promtest.GatherAndCount(f.metrics.Registry(), "test_analysis_cache_lookups_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected miss and hit series, got %d", n)
	}

	list, err := f.analysis.List(ctx, userID, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("List: n=%d err=%v", len(list), err)
	}
}

func TestAnalyzeFallsBackAndCachesUnderAnsweringProvider(t *testing.T) {
	down := &stubProvider{name: "primary", err: fmt.Errorf("%w: circuit open", providers.ErrUnavailable)}
	backup := &stubProvider{name: "backup", raw: rawTree()}
	cache := newMemCache()
	f := newFixture(t, cache, "primary", []string{"backup"}, down, backup)

	row, err := f.analysis.Analyze(context.Background(), uuid.New(), AnalyzeInput{Text: "x"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if row.Provider != "backup" {
		t.Fatalf("provider: %q", row.Provider)
	}
	if _, ok := cache.data["backup:"+ContentHash("x")]; !ok {
		t.Fatalf("expected raw topics cached under backup, keys=%v", cache.data)
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		provider *stubProvider
		text     string
		pick     string
		status   int
		code     string
	}{
		{
			name:     "empty text",
			provider: &stubProvider{name: "stub", raw: rawTree()},
			text:     "   ",
			status:   http.StatusBadRequest,
			code:     "empty_document",
		},
		{
			name:     "unknown provider",
			provider: &stubProvider{name: "stub", raw: rawTree()},
			text:     "x",
			pick:     "nope",
			status:   http.StatusBadRequest,
			code:     "unknown_provider",
		},
		{
			name:     "not a list",
			provider: &stubProvider{name: "stub", raw: "oops"},
			text:     "x",
			status:   http.StatusUnprocessableEntity,
			code:     "invalid_tree",
		},
		{
			name:     "circuit open",
			provider: &stubProvider{name: "stub", err: providers.ErrUnavailable},
			text:     "x",
			status:   http.StatusServiceUnavailable,
			code:     "provider_unavailable",
		},
		{
			name:     "bad response",
			provider: &stubProvider{name: "stub", err: providers.ErrNoTopics},
			text:     "x",
			status:   http.StatusBadGateway,
			code:     "provider_failed",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil, "stub", nil, tc.provider)
			_, err := f.analysis.Analyze(context.Background(), uuid.New(), AnalyzeInput{Text: tc.text, Provider: tc.pick})
			var ae *apierr.Error
			if !errors.As(err, &ae) {
				t.Fatalf("expected apierr, got %v", err)
			}
			if ae.Status != tc.status || ae.Code != tc.code {
				t.Fatalf("got %d/%s want %d/%s (%v)", ae.Status, ae.Code, tc.status, tc.code, err)
			}
		})
	}
}

func TestUploadUsesExtractorAndOutline(t *testing.T) {
	f := newFixture(t, nil, "outline", nil, providers.NewOutline())
	text := "# Calculus I\n\n## Limits (core)\n- Definition of a limit (2h)\n- One-sided limits\n"

	row, err := f.analysis.Upload(context.Background(), uuid.New(), "calc.md", "text/markdown", []byte(text), "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if row.Provider != "outline" || !strings.Contains(string(row.Topics), "Definition of a limit") {
		t.Fatalf("unexpected analysis: provider=%s topics=%s", row.Provider, row.Topics)
	}

	_, err = f.analysis.Upload(context.Background(), uuid.New(), "blob.bin", "application/octet-stream", []byte{0x00, 0x01, 0xff, 0xfe}, "")
	var ae *apierr.Error
	if !errors.As(err, &ae) || ae.Status != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %v", err)
	}
}

func TestNormalizeAndOwnership(t *testing.T) {
	f := newFixture(t, nil, "stub", nil, &stubProvider{name: "stub", raw: rawTree()})
	ctx := context.Background()

	res, err := f.analysis.Normalize(ctx, []byte(`[{"name":"A","estimated_hours":"bad"}]`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.TotalHours == nil || *res.TotalHours != 0.5 {
		t.Fatalf("total: %v", res.TotalHours)
	}
	if _, err := f.analysis.Normalize(ctx, []byte(`{"name":"A"}`)); err == nil {
		t.Fatalf("expected invalid tree")
	}

	owner := uuid.New()
	row, err := f.analysis.Analyze(ctx, owner, AnalyzeInput{Text: "x"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, err := f.analysis.Get(ctx, uuid.New(), row.ID); apierr.From(err, "").Status != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign user, got %v", err)
	}
	if err := f.analysis.Delete(ctx, owner, row.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.analysis.Delete(ctx, owner, row.ID); apierr.From(err, "").Status != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %v", err)
	}
}

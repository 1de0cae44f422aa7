// Command plan schedules a syllabus file offline: it extracts the text, builds a
// topic tree from its outline and prints the dated plan as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/analyzer"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/extractor"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/providers"
	"github.com/yungbote/blueprintx-backend/internal/modules/syllabus/scheduler"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

type dayList []int

func (l *dayList) String() string {
	parts := make([]string, 0, len(*l))
	for _, d := range *l {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func (l *dayList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("day off %q: %w", part, err)
		}
		*l = append(*l, d)
	}
	return nil
}

func main() {
	var (
		file   string
		start  string
		daily  float64
		off    dayList
		agenda bool
	)
	flag.StringVar(&file, "file", "", "syllabus file (pdf, docx, pptx, html, md, txt)")
	flag.StringVar(&start, "start", "", "start date YYYY-MM-DD (default today, UTC)")
	flag.Float64Var(&daily, "daily", scheduler.DefaultDailyHours, "study hours per day")
	flag.Var(&off, "off", "weekday index to skip, 0=Monday..6=Sunday (repeatable or comma separated)")
	flag.BoolVar(&agenda, "agenda", false, "print the per-day agenda instead of the dated tree")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(2)
	}
	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	startDate := syllabus.DateOf(time.Now().UTC())
	if start != "" {
		if startDate, err = syllabus.ParseDate(start); err != nil {
			fmt.Fprintf(os.Stderr, "bad -start: %v\n", err)
			os.Exit(2)
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", file, err)
		os.Exit(1)
	}
	doc, err := extractor.Extract(filepath.Base(file), "", data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extract: %v\n", err)
		os.Exit(1)
	}
	raw, err := providers.NewOutline().ExtractTopics(context.Background(), doc.Text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "outline: %v\n", err)
		os.Exit(1)
	}
	res, err := analyzer.New(log, analyzer.DefaultOptions()).Normalize(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
	plan, err := scheduler.New(log).Schedule(res.Topics, scheduler.Params{
		StartDate:  startDate,
		DailyHours: daily,
		DaysOff:    off,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedule: %v\n", err)
		os.Exit(1)
	}

	var out any = map[string]any{
		"topics":            plan.Topics,
		"total_study_hours": res.TotalHours,
		"priority_topics":   res.PriorityTopics,
		"completion_date":   plan.CompletionDate,
	}
	if agenda {
		out = scheduler.Agenda(plan.Topics)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
}

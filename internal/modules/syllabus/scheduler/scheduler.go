package scheduler

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/yungbote/blueprintx-backend/internal/domain/syllabus"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

// ErrInvalidConfiguration is returned before any date is assigned when the
// scheduling parameters cannot produce a schedule.
var ErrInvalidConfiguration = errors.New("invalid schedule configuration")

const (
	DefaultDailyHours = 2.0

	// budgetEpsilon absorbs float drift when summing fractional hours.
	budgetEpsilon = 1e-9
)

type Params struct {
	StartDate  syllabus.Date
	DailyHours float64
	// DaysOff holds weekday indices, 0 = Monday through 6 = Sunday.
	DaysOff []int
}

type Result struct {
	Topics         []*syllabus.Topic `json:"topics"`
	CompletionDate syllabus.Date     `json:"completion_date"`
	LeafCount      int               `json:"leaf_count"`
}

type Scheduler struct {
	log *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{log: log.With("component", "CalendarScheduler")}
}

// Validate reports whether p can produce a schedule.
func (p Params) Validate() error {
	if math.IsNaN(p.DailyHours) || math.IsInf(p.DailyHours, 0) || p.DailyHours <= 0 {
		return fmt.Errorf("%w: daily hours must be a positive number, got %v", ErrInvalidConfiguration, p.DailyHours)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidConfiguration)
	}
	var seen [7]bool
	off := 0
	for _, d := range p.DaysOff {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: day off %d is not a weekday index (0-6)", ErrInvalidConfiguration, d)
		}
		if !seen[d] {
			seen[d] = true
			off++
		}
	}
	if off == 7 {
		return fmt.Errorf("%w: every weekday is a day off", ErrInvalidConfiguration)
	}
	return nil
}

type cursor struct {
	date      syllabus.Date
	committed float64
	placed    int
	daysOff   [7]bool
	daily     float64
	leaves    int
}

func (c *cursor) isDayOff(d syllabus.Date) bool { return c.daysOff[d.WeekdayIndex()] }

// advanceToNextValidDay moves to the next calendar day that is not a day off.
func (c *cursor) advanceToNextValidDay() {
	c.date = c.date.AddDays(1)
	c.skipDaysOff()
}

func (c *cursor) skipDaysOff() {
	// Validate guarantees at least one working weekday, so this ends within 6 steps.
	for c.isDayOff(c.date) {
		c.date = c.date.AddDays(1)
	}
}

// Schedule assigns a date to every leaf of topics in pre-order, mutating the tree
// in place. Leaves are never split; a leaf that does not fit the remaining budget
// starts the next working day.
func (s *Scheduler) Schedule(topics []*syllabus.Topic, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c := &cursor{date: p.StartDate, daily: p.DailyHours}
	for _, d := range p.DaysOff {
		c.daysOff[d] = true
	}
	c.skipDaysOff()

	s.walk(topics, c)

	s.log.Debug("schedule built",
		"start_date", p.StartDate.String(),
		"completion_date", c.date.String(),
		"leaves", c.leaves,
		"daily_hours", p.DailyHours,
	)
	return &Result{Topics: topics, CompletionDate: c.date, LeafCount: c.leaves}, nil
}

func (s *Scheduler) walk(topics []*syllabus.Topic, c *cursor) {
	for _, t := range topics {
		if t == nil {
			continue
		}
		if !t.IsLeaf() {
			t.ScheduledDate = nil
			s.walk(t.Subtopics, c)
			continue
		}
		h := t.Hours(syllabus.DefaultLeafHours)
		// an empty day always takes the leaf, even when it exceeds the budget
		if c.placed > 0 && c.committed+h > c.daily+budgetEpsilon {
			c.advanceToNextValidDay()
			c.committed = 0
			c.placed = 0
		}
		c.committed += h
		c.placed++
		d := c.date
		t.ScheduledDate = &d
		c.leaves++
	}
}

// Day is one calendar day of a scheduled tree.
type Day struct {
	Date   syllabus.Date     `json:"date"`
	Hours  float64           `json:"hours"`
	Topics []*syllabus.Topic `json:"topics"`
}

// Agenda groups scheduled leaves by date, keeping traversal order within a day.
// Unscheduled leaves are skipped.
func Agenda(topics []*syllabus.Topic) []Day {
	byDate := map[syllabus.Date]int{}
	var days []Day
	for _, leaf := range syllabus.Leaves(topics) {
		if leaf.ScheduledDate == nil {
			continue
		}
		d := *leaf.ScheduledDate
		i, ok := byDate[d]
		if !ok {
			i = len(days)
			byDate[d] = i
			days = append(days, Day{Date: d, Topics: []*syllabus.Topic{}})
		}
		days[i].Hours += leaf.Hours(syllabus.DefaultLeafHours)
		days[i].Topics = append(days[i].Topics, leaf)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

package hub

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/madhatter5501/StudyHub/streak"
)

// Weekdays are the planner column headers, Sunday first.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Planner builds the weekly and monthly planner views and stores weekly plans.
type Planner struct {
	mu    sync.Mutex
	store Store
	notes *Notes
}

// NewPlanner creates the planner. notes marks days that have a daily note.
func NewPlanner(store Store, notes *Notes) *Planner {
	return &Planner{store: store, notes: notes}
}

func (p *Planner) plans(ctx context.Context) (map[string]string, error) {
	plans, _, err := loadJSON[map[string]string](ctx, p.store, KeyPlanner)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = make(map[string]string)
	}
	return plans, nil
}

func (p *Planner) noted(ctx context.Context) (map[streak.Day]bool, error) {
	out := make(map[streak.Day]bool)
	if p.notes == nil {
		return out, nil
	}
	days, err := p.notes.DaysWithContent(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range days {
		out[d] = true
	}
	return out, nil
}

// Month returns the month grid for year and month.
func (p *Planner) Month(ctx context.Context, year int, month time.Month, today streak.Day) (MonthView, error) {
	noted, err := p.noted(ctx)
	if err != nil {
		return MonthView{}, err
	}
	p.mu.Lock()
	plans, err := p.plans(ctx)
	p.mu.Unlock()
	if err != nil {
		return MonthView{}, err
	}

	first := streak.NewDay(year, month, 1)
	view := MonthView{
		Title:         first.Month().String() + " " + strconv.Itoa(first.Year()),
		Year:          first.Year(),
		Month:         first.Month(),
		Weekdays:      Weekdays,
		LeadingBlanks: int(first.Weekday()),
	}
	for d := first; d.Month() == first.Month(); d = d.AddDays(1) {
		view.Days = append(view.Days, PlannerDay{
			Day:      d,
			Number:   d.Day(),
			Weekday:  Weekdays[d.Weekday()],
			IsToday:  d.Equal(today),
			HasNotes: noted[d],
			Plan:     plans[d.String()],
		})
	}
	return view, nil
}

// Week returns the Sunday-to-Saturday week containing anchor.
func (p *Planner) Week(ctx context.Context, anchor, today streak.Day) (WeekView, error) {
	noted, err := p.noted(ctx)
	if err != nil {
		return WeekView{}, err
	}
	p.mu.Lock()
	plans, err := p.plans(ctx)
	p.mu.Unlock()
	if err != nil {
		return WeekView{}, err
	}

	start := anchor.AddDays(-int(anchor.Weekday()))
	view := WeekView{Start: start, End: start.AddDays(6)}
	for i := 0; i < 7; i++ {
		d := start.AddDays(i)
		view.Days = append(view.Days, PlannerDay{
			Day:      d,
			Number:   d.Day(),
			Weekday:  Weekdays[i],
			IsToday:  d.Equal(today),
			HasNotes: noted[d],
			Plan:     plans[d.String()],
		})
	}
	return view, nil
}

// SetPlan stores the weekly plan text for day. Blank text removes it.
func (p *Planner) SetPlan(ctx context.Context, day streak.Day, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	plans, err := p.plans(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		if _, ok := plans[day.String()]; !ok {
			return nil
		}
		delete(plans, day.String())
	} else {
		plans[day.String()] = text
	}
	return saveJSON(ctx, p.store, KeyPlanner, plans)
}

// Plan returns the plan text for day.
func (p *Planner) Plan(ctx context.Context, day streak.Day) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	plans, err := p.plans(ctx)
	if err != nil {
		return "", err
	}
	return plans[day.String()], nil
}

// Package calendar watches a Google Calendar for finished tutoring lessons
// so they can be billed or recorded as debts.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tyunth/finance-bot/internal/categories"
)

// settleDelay is how long after a lesson's end it becomes billable: lessons
// often run over, so billing right at the end time double-counts.
const settleDelay = 30 * time.Minute

// Lesson is a finished calendar lesson.
type Lesson struct {
	EventID     string
	Summary     string
	StudentName string
	Subject     string
	End         time.Time
}

// Service defines the interface for lesson calendar operations
type Service interface {
	// RecentLessons returns today's lessons that finished long enough ago
	RecentLessons() ([]Lesson, error)

	// DeleteEvent removes an event; a missing event counts as deleted
	DeleteEvent(eventID string) error
}

// GoogleCalendar implements Service on the Google Calendar API
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleCalendar creates a GoogleCalendar using a service account key
// file.
func NewGoogleCalendar(keyFile, calendarID string) (*GoogleCalendar, error) {
	ctx := context.Background()
	svc, err := gcal.NewService(ctx, option.WithCredentialsFile(keyFile))
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID}, nil
}

// RecentLessons returns today's lessons that finished long enough ago
func (g *GoogleCalendar) RecentLessons() ([]Lesson, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	events, err := g.svc.Events.List(g.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(now.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing calendar events: %w", err)
	}

	lessons := filterLessons(events.Items, now)
	slog.Info("calendar polled", "events", len(events.Items), "lessons", len(lessons))
	return lessons, nil
}

// filterLessons keeps keyword-matching events whose end time has settled.
func filterLessons(events []*gcal.Event, now time.Time) []Lesson {
	lessons := make([]Lesson, 0)
	for _, event := range events {
		if event == nil || !isLessonSummary(event.Summary) {
			continue
		}
		end, ok := eventEnd(event)
		if !ok {
			continue
		}
		if now.Sub(end) < settleDelay {
			slog.Debug("lesson not settled yet", "summary", event.Summary, "end", end)
			continue
		}

		student, subject := ParseLessonInfo(event.Summary)
		lessons = append(lessons, Lesson{
			EventID:     event.Id,
			Summary:     event.Summary,
			StudentName: student,
			Subject:     subject,
			End:         end,
		})
	}
	return lessons
}

func isLessonSummary(summary string) bool {
	lower := strings.ToLower(summary)
	for _, kw := range categories.CalendarKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func eventEnd(event *gcal.Event) (time.Time, bool) {
	if event.End == nil {
		return time.Time{}, false
	}
	raw := event.End.DateTime
	if raw == "" {
		raw = event.End.Date
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// DeleteEvent removes an event; a missing event counts as deleted
func (g *GoogleCalendar) DeleteEvent(eventID string) error {
	err := g.svc.Events.Delete(g.calendarID, eventID).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("deleting calendar event: %w", err)
	}
	return nil
}

// ParseLessonInfo reads the student and subject from an event summary: the
// first word names the student, a "го" mention switches the subject from
// the default math.
func ParseLessonInfo(summary string) (studentName, subject string) {
	parts := strings.Fields(summary)
	if len(parts) > 0 {
		studentName = parts[0]
	}
	subject = "Математика"
	if strings.Contains(strings.ToLower(summary), "го") {
		subject = "Го"
	}
	return studentName, subject
}

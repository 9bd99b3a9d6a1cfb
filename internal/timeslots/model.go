package timeslots

import (
	"fmt"
	"time"
)

// Status is the availability state of a slot.
type Status string

const (
	StatusOpen              Status = "OPEN"
	StatusClosed            Status = "CLOSED"
	StatusDoctorUnavailable Status = "DOCTOR_UNAVAILABLE"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// MaxGenerateDays bounds a single generation request.
	MaxGenerateDays = 92
)

// TimeSlot is one bookable interval for a doctor on a date.
type TimeSlot struct {
	ID        int64  `json:"id"`
	DoctorID  int64  `json:"doctorId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    Status `json:"status"`
}

// Available is the public view of an open slot.
type Available struct {
	TimeSlotID int64  `json:"timeSlotId"`
	StartTime  string `json:"startTime"`
}

// StatusResponse is returned by the admin close and open endpoints.
type StatusResponse struct {
	TimeSlotID int64  `json:"timeSlotId"`
	Status     Status `json:"status"`
}

// SlotSpec is a slot to be created by Generate.
type SlotSpec struct {
	Date      string
	StartTime string
	EndTime   string
}

// GenerateRequest is the body of POST /admin/timeslots/generate.
type GenerateRequest struct {
	DoctorID    int64  `json:"doctorId"`
	From        string `json:"from"`
	To          string `json:"to"`
	DayStart    string `json:"dayStart"`
	DayEnd      string `json:"dayEnd"`
	SlotMinutes int    `json:"slotMinutes"`
	// Weekdays uses time.Weekday numbering (0 = Sunday). Empty means Mon-Fri.
	Weekdays []int `json:"weekdays"`
}

// GenerateResponse reports how many slots were created.
type GenerateResponse struct {
	Created int `json:"created"`
}

// BuildSlots expands a date range and daily window into slot specs. A slot
// never runs past dayEnd, so a trailing partial interval is dropped.
func BuildSlots(from, to time.Time, dayStart, dayEnd string, minutes int, weekdays []time.Weekday) ([]SlotSpec, error) {
	if minutes <= 0 || minutes > 240 {
		return nil, ErrInvalidWindow
	}
	start, err := time.Parse(TimeLayout, dayStart)
	if err != nil {
		return nil, ErrInvalidWindow
	}
	end, err := time.Parse(TimeLayout, dayEnd)
	if err != nil || !end.After(start) {
		return nil, ErrInvalidWindow
	}
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxGenerateDays {
		return nil, fmt.Errorf("%w: at most %d days per request", ErrInvalidRange, MaxGenerateDays)
	}
	if len(weekdays) == 0 {
		weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	}
	allowed := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		allowed[wd] = true
	}

	step := time.Duration(minutes) * time.Minute
	var out []SlotSpec
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if !allowed[day.Weekday()] {
			continue
		}
		date := day.Format(DateLayout)
		for t := start; !t.Add(step).After(end); t = t.Add(step) {
			out = append(out, SlotSpec{
				Date:      date,
				StartTime: t.Format(TimeLayout),
				EndTime:   t.Add(step).Format(TimeLayout),
			})
		}
	}
	return out, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

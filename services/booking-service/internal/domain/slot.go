package domain

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Slot is one bookable (court, date, time) unit.
type Slot struct {
	CourtID string
	Date    string
	Time    string
}

// Normalize trims whitespace and checks the date and time formats.
func (s Slot) Normalize() (Slot, error) {
	s.CourtID = strings.TrimSpace(s.CourtID)
	s.Date = strings.TrimSpace(s.Date)
	s.Time = strings.TrimSpace(s.Time)
	if s.CourtID == "" {
		return s, &ValidationError{Field: "court_id", Reason: "required"}
	}
	if err := ValidateDate(s.Date); err != nil {
		return s, err
	}
	if _, err := time.Parse(TimeLayout, s.Time); err != nil || len(s.Time) != len(TimeLayout) {
		return s, &ValidationError{Field: "time", Reason: "must be HH:MM"}
	}
	return s, nil
}

func ValidateDate(d string) error {
	if _, err := time.Parse(DateLayout, d); err != nil || len(d) != len(DateLayout) {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	return nil
}

// Package capacity defines per-slot capacity accounting.
//
// A slot is a (tenant, activity, date, time) bucket. Its booked count is
// derived from confirmed reservations of every origin plus approved requests
// that have not been converted yet, so status changes alone move capacity.
package capacity

import (
	"fmt"
	"time"

	"github.com/Strob0t/TourBridge/internal/domain"
)

const (
	// DateLayout is the wire and storage format of slot dates.
	DateLayout = "2006-01-02"
	// TimeLayout is the wire and storage format of slot start times.
	TimeLayout = "15:04"
)

// Key identifies a slot.
type Key struct {
	TenantID   int64  `json:"tenantId"`
	ActivityID int64  `json:"activityId"`
	Date       string `json:"date"`
	Time       string `json:"time"`
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%d/%s/%s", k.TenantID, k.ActivityID, k.Date, k.Time)
}

// Validate checks that the key is complete and well-formed.
func (k Key) Validate() error {
	if k.TenantID <= 0 || k.ActivityID <= 0 {
		return domain.Validationf("tenant and activity are required")
	}
	if err := ValidateDate(k.Date); err != nil {
		return err
	}
	return ValidateTime(k.Time)
}

// ValidateDate checks a YYYY-MM-DD date string.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return domain.Validationf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return nil
}

// ValidateTime checks an HH:MM time string.
func ValidateTime(s string) error {
	if len(s) != len(TimeLayout) {
		return domain.Validationf("invalid time %q (want HH:MM)", s)
	}
	if _, err := time.Parse(TimeLayout, s); err != nil {
		return domain.Validationf("invalid time %q (want HH:MM)", s)
	}
	return nil
}

// Slot is a capacity bucket with its derived booked count.
type Slot struct {
	Key
	TotalSlots  int `json:"totalSlots"`
	BookedSlots int `json:"bookedSlots"`
	Version     int `json:"-"`
}

// Available returns the free places; never negative.
func (s Slot) Available() int {
	if s.BookedSlots >= s.TotalSlots {
		return 0
	}
	return s.TotalSlots - s.BookedSlots
}

// Reserve checks that guests fit and books them on the in-memory copy.
// It returns a *domain.CapacityError when they do not.
func (s *Slot) Reserve(guests int) error {
	if guests < 1 {
		return domain.Validationf("guests must be >= 1")
	}
	if guests > s.Available() {
		return &domain.CapacityError{Requested: guests, Available: s.Available()}
	}
	s.BookedSlots += guests
	return nil
}

// Fits reports whether guests currently fit without mutating the slot.
func (s Slot) Fits(guests int) error {
	c := s
	return c.Reserve(guests)
}

// Resize validates a new total against what is already booked.
func (s *Slot) Resize(total int) error {
	if total < 0 {
		return domain.Validationf("totalSlots must be non-negative")
	}
	if total < s.BookedSlots {
		return &domain.CapacityError{Requested: s.BookedSlots, Available: total}
	}
	s.TotalSlots = total
	return nil
}

// View is the read model returned by availability queries.
type View struct {
	Date           string `json:"date"`
	Time           string `json:"time"`
	TotalSlots     int    `json:"totalSlots"`
	BookedSlots    int    `json:"bookedSlots"`
	AvailableSlots int    `json:"availableSlots"`
}

// ToView projects a slot into its read model.
func (s Slot) ToView() View {
	booked := s.BookedSlots
	if booked > s.TotalSlots {
		booked = s.TotalSlots
	}
	return View{
		Date:           s.Date,
		Time:           s.Time,
		TotalSlots:     s.TotalSlots,
		BookedSlots:    booked,
		AvailableSlots: s.TotalSlots - booked,
	}
}

// MaxRangeDays bounds availability queries.
const MaxRangeDays = 62

// ValidateRange checks a [start, end] date range.
func ValidateRange(start, end string) error {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return domain.Validationf("invalid startDate %q", start)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return domain.Validationf("invalid endDate %q", end)
	}
	if e.Before(s) {
		return domain.Validationf("endDate before startDate")
	}
	if e.Sub(s) > MaxRangeDays*24*time.Hour {
		return domain.Validationf("range exceeds %d days", MaxRangeDays)
	}
	return nil
}

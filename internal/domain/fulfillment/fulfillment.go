// Package fulfillment matches reservations against independently recorded
// dispatch records that may or may not carry a reservation reference.
package fulfillment

import (
	"strings"
	"time"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// DispatchRecord is an operational log entry, e.g. a driver or pilot manifest line.
type DispatchRecord struct {
	ID            int64     `json:"id"`
	TenantID      int64     `json:"tenantId"`
	ReservationID *int64    `json:"reservationId,omitempty"`
	ActivityID    *int64    `json:"activityId,omitempty"`
	Date          string    `json:"date"`
	CustomerName  string    `json:"customerName"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateDispatchRequest holds the fields for recording a dispatch.
type CreateDispatchRequest struct {
	ReservationID *int64 `json:"reservationId,omitempty"`
	ActivityID    *int64 `json:"activityId,omitempty"`
	Date          string `json:"date"`
	CustomerName  string `json:"customerName"`
	Note          string `json:"note,omitempty"`
}

// Validate checks the dispatch request. A record needs at least one way of
// being matched besides its date.
func (r *CreateDispatchRequest) Validate() error {
	if err := capacity.ValidateDate(r.Date); err != nil {
		return err
	}
	if r.ReservationID == nil && r.ActivityID == nil && strings.TrimSpace(r.CustomerName) == "" {
		return domain.Validationf("one of reservationId, activityId or customerName is required")
	}
	return nil
}

// Strictness selects which match rules apply.
type Strictness string

const (
	StrictnessStrict   Strictness = "strict"   // reservation reference only
	StrictnessStandard Strictness = "standard" // plus activity and date
	StrictnessLenient  Strictness = "lenient"  // plus customer name and date
)

// ParseStrictness returns the strictness for s, defaulting to lenient.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessLenient:
		return StrictnessLenient, nil
	case StrictnessStandard:
		return StrictnessStandard, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	default:
		return "", domain.Validationf("unknown strictness %q", s)
	}
}

// Method names the rule that produced a match.
type Method string

const (
	MethodNone          Method = "none"
	MethodReservationID Method = "reservation_id"
	MethodActivityDate  Method = "activity_date"
	MethodNameDate      Method = "name_date"
)

// Confidence grades a match.
type Confidence string

const (
	ConfidenceConfirmed Confidence = "confirmed"
	ConfidenceProbable  Confidence = "probable"
	ConfidencePossible  Confidence = "possible"
	ConfidenceNone      Confidence = "none"
)

// Target is the part of a reservation the matcher looks at.
type Target struct {
	ReservationID int64
	ActivityID    int64
	Date          string
	CustomerName  string
}

// MatchResult is the fulfilment view of one reservation.
type MatchResult struct {
	ReservationID int64      `json:"reservationId"`
	Matched       bool       `json:"matched"`
	Method        Method     `json:"method"`
	Confidence    Confidence `json:"confidence"`
	RecordID      *int64     `json:"recordId,omitempty"`
}

// Match finds the best dispatch record for target. Rules are tried in
// priority order and the first hit wins. The composite rules look only at
// activity, date and name, so a record referencing another reservation can
// still match them.
func Match(target Target, records []DispatchRecord, strictness Strictness) MatchResult {
	res := MatchResult{ReservationID: target.ReservationID, Method: MethodNone, Confidence: ConfidenceNone}

	if rec := find(records, func(r *DispatchRecord) bool {
		return r.ReservationID != nil && *r.ReservationID == target.ReservationID
	}); rec != nil {
		return hit(res, rec, MethodReservationID, ConfidenceConfirmed)
	}
	if strictness == StrictnessStrict {
		return res
	}

	if rec := find(records, func(r *DispatchRecord) bool {
		return r.ActivityID != nil && *r.ActivityID == target.ActivityID && r.Date == target.Date
	}); rec != nil {
		return hit(res, rec, MethodActivityDate, ConfidenceProbable)
	}
	if strictness != StrictnessLenient {
		return res
	}

	name := NormalizeName(target.CustomerName)
	if name == "" {
		return res
	}
	if rec := find(records, func(r *DispatchRecord) bool {
		return r.Date == target.Date && NormalizeName(r.CustomerName) == name
	}); rec != nil {
		return hit(res, rec, MethodNameDate, ConfidencePossible)
	}
	return res
}

func find(records []DispatchRecord, pred func(*DispatchRecord) bool) *DispatchRecord {
	for i := range records {
		if pred(&records[i]) {
			return &records[i]
		}
	}
	return nil
}

func hit(res MatchResult, rec *DispatchRecord, m Method, c Confidence) MatchResult {
	id := rec.ID
	res.Matched = true
	res.Method = m
	res.Confidence = c
	res.RecordID = &id
	return res
}

var foldReplacer = strings.NewReplacer(
	"ı", "i", "İ", "i", "ş", "s", "Ş", "s", "ğ", "g", "Ğ", "g",
	"ü", "u", "Ü", "u", "ö", "o", "Ö", "o", "ç", "c", "Ç", "c",
)

// NormalizeName folds case, Turkish letters and whitespace so that
// "  AYŞE  yılmaz" and "Ayse Yilmaz" compare equal.
func NormalizeName(s string) string {
	s = foldReplacer.Replace(s)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

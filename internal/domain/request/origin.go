package request

import (
	"regexp"
	"strings"
)

// Legacy requests carried their origin as a bracketed marker inside the
// free-text notes. New requests store OriginKind explicitly; the markers are
// only read for rows created before that column existed.
var (
	partnerMarker = regexp.MustCompile(`(?i)\[\s*partner\s*:\s*[^\]]+\]`)
	viewerMarker  = regexp.MustCompile(`(?i)\[\s*viewer\s*:\s*[^\]]+\]`)
)

// PartnerMarker renders the legacy notes marker for a partner-sourced request.
func PartnerMarker(partnerName string) string {
	return "[Partner: " + strings.TrimSpace(partnerName) + "]"
}

// ClassifyNotes derives a requester type from a legacy notes marker.
// A partner marker takes precedence over a viewer marker.
func ClassifyNotes(notes *string) RequesterType {
	if notes == nil {
		return RequesterUnknown
	}
	switch {
	case partnerMarker.MatchString(*notes):
		return RequesterPartner
	case viewerMarker.MatchString(*notes):
		return RequesterViewer
	default:
		return RequesterUnknown
	}
}

// Classify returns the requester type, preferring the explicit origin.
func (r *Request) Classify() RequesterType {
	switch r.OriginKind {
	case OriginPartner:
		return RequesterPartner
	case OriginViewer:
		return RequesterViewer
	}
	return ClassifyNotes(r.Notes)
}

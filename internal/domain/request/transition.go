package request

import (
	"github.com/Strob0t/TourBridge/internal/domain"
)

// Party is the side of a request a tenant acts as.
type Party int

const (
	PartyNone Party = iota
	PartyOwner
	PartySender
)

// transitions lists the statuses reachable from each status and which party may cause them.
var transitions = map[Status]map[Status]Party{
	StatusPending: {
		StatusApproved:  PartyOwner,
		StatusRejected:  PartyOwner,
		StatusCancelled: PartySender,
		StatusDeleted:   PartySender,
	},
	StatusApproved: {
		StatusConverted: PartyOwner,
		StatusCancelled: PartySender,
	},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	_, ok := transitions[from][to]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// PartyOf returns the role tenantID plays on r. A same-tenant request makes
// the tenant both owner and sender; the owner role wins and sender-only
// actions are still allowed through Transition.
func (r *Request) PartyOf(tenantID int64) Party {
	switch tenantID {
	case r.OwnerTenantID:
		return PartyOwner
	case r.OriginTenantID:
		return PartySender
	default:
		return PartyNone
	}
}

// Transition moves the request to status to on behalf of tenantID.
// Validation order: state edge first, then acting party, so callers learn
// the current status before being told they lack the right.
func (r *Request) Transition(tenantID int64, to Status) error {
	need, ok := transitions[r.Status][to]
	if !ok {
		return &domain.TransitionError{Entity: "request", From: string(r.Status), To: string(to)}
	}
	if !r.actsAs(tenantID, need) {
		return domain.ErrUnauthorizedParty
	}
	r.Status = to
	return nil
}

func (r *Request) actsAs(tenantID int64, p Party) bool {
	switch p {
	case PartyOwner:
		return tenantID == r.OwnerTenantID
	case PartySender:
		return tenantID == r.OriginTenantID
	default:
		return false
	}
}

// MarkConverted stamps the resulting reservation id.
func (r *Request) MarkConverted(tenantID, reservationID int64) error {
	if err := r.Transition(tenantID, StatusConverted); err != nil {
		return err
	}
	r.ReservationID = &reservationID
	return nil
}

package settlement

import (
	"strings"

	"github.com/Strob0t/TourBridge/internal/domain"
)

// RequestDeletion opens a deletion handshake on behalf of by.
func (t *Transaction) RequestDeletion(by int64) error {
	if !t.IsParty(by) {
		return domain.ErrUnauthorizedParty
	}
	switch t.DeletionStatus {
	case DeletionNone, DeletionRejected:
	case DeletionPending:
		return domain.ErrDeletionConflict
	default:
		return &domain.TransitionError{Entity: "transaction deletion", From: string(t.DeletionStatus), To: string(DeletionPending)}
	}
	t.DeletionStatus = DeletionPending
	t.DeletionRequestedByTenantID = &by
	t.DeletionRejectionReason = nil
	return nil
}

// ApproveDeletion accepts a pending deletion. Only the counterparty of the
// requester may approve; the transaction is retired, not purged.
func (t *Transaction) ApproveDeletion(by int64) error {
	if err := t.checkCounterparty(by, DeletionApproved); err != nil {
		return err
	}
	t.DeletionStatus = DeletionApproved
	t.Status = StatusRetired
	return nil
}

// RejectDeletion refuses a pending deletion with a mandatory reason. The
// transaction stays active and a new request may be filed later.
func (t *Transaction) RejectDeletion(by int64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Validationf("reason is required")
	}
	if err := t.checkCounterparty(by, DeletionRejected); err != nil {
		return err
	}
	t.DeletionStatus = DeletionRejected
	t.DeletionRejectionReason = &reason
	t.Status = StatusActive
	return nil
}

func (t *Transaction) checkCounterparty(by int64, to DeletionStatus) error {
	if t.DeletionStatus != DeletionPending {
		return &domain.TransitionError{Entity: "transaction deletion", From: string(t.DeletionStatus), To: string(to)}
	}
	if !t.IsParty(by) {
		return domain.ErrUnauthorizedParty
	}
	if t.DeletionRequestedByTenantID != nil && *t.DeletionRequestedByTenantID == by {
		return domain.ErrUnauthorizedParty
	}
	return nil
}

package request

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Strob0t/TourBridge/internal/domain"
	"github.com/Strob0t/TourBridge/internal/domain/capacity"
)

// MaxGuests bounds a single request.
const MaxGuests = 500

var validCollections = map[PaymentCollection]bool{
	CollectReceiverFull: true,
	CollectSenderFull:   true,
	CollectSenderPart:   true,
}

// Validate checks the create request. unitPrice is the partner-facing price
// used to bound the amount collected by the sender.
func (r *CreateRequest) Validate(unitPrice decimal.Decimal) error {
	if r.OwnerTenantID <= 0 {
		return domain.Validationf("ownerTenantId is required")
	}
	if r.ActivityID <= 0 {
		return domain.Validationf("activityId is required")
	}
	if err := capacity.ValidateDate(r.Date); err != nil {
		return err
	}
	if err := capacity.ValidateTime(r.Time); err != nil {
		return err
	}
	if strings.TrimSpace(r.CustomerName) == "" {
		return domain.Validationf("customerName is required")
	}
	if strings.TrimSpace(r.CustomerPhone) == "" {
		return domain.Validationf("customerPhone is required")
	}
	if r.Guests < 1 || r.Guests > MaxGuests {
		return domain.Validationf("guests must be between 1 and %d", MaxGuests)
	}
	if r.PaymentCollectionType == "" {
		r.PaymentCollectionType = CollectReceiverFull
	}
	if !validCollections[r.PaymentCollectionType] {
		return domain.Validationf("invalid paymentCollectionType %q", r.PaymentCollectionType)
	}

	total := unitPrice.Mul(decimal.NewFromInt(int64(r.Guests)))
	switch r.PaymentCollectionType {
	case CollectReceiverFull:
		if !r.AmountCollectedBySender.IsZero() {
			return domain.Validationf("amountCollectedBySender must be 0 for receiver_full")
		}
	case CollectSenderFull:
		if r.AmountCollectedBySender.IsZero() {
			r.AmountCollectedBySender = total
		}
		if !r.AmountCollectedBySender.Equal(total) {
			return domain.Validationf("amountCollectedBySender must equal the total %s for sender_full", total)
		}
	case CollectSenderPart:
		if !r.AmountCollectedBySender.IsPositive() || !r.AmountCollectedBySender.LessThan(total) {
			return domain.Validationf("amountCollectedBySender must be between 0 and the total %s for sender_partial", total)
		}
	}
	return nil
}

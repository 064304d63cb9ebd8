package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"homechef/entity"
	"homechef/pkg/apperr"
)

const (
	MinQuantity        = 1
	MaxQuantity        = 50
	MaxSpecialRequests = 200
	MaxCustomerNotes   = 300
)

// OrderRequest is the checkout payload. TotalAmount is what the client displayed;
// it is only compared, never stored.
type OrderRequest struct {
	Items           []CartLine              `json:"items"`
	OrderType       entity.OrderType        `json:"orderType"`
	PaymentMethod   entity.PaymentMethod    `json:"paymentMethod"`
	DeliveryAddress *entity.DeliveryAddress `json:"deliveryAddress"`
	CustomerNotes   string                  `json:"notes"`
	TotalAmount     decimal.Decimal         `json:"totalAmount"`

	// NotesAlias accepts the customerNotes spelling used by older clients.
	NotesAlias string `json:"customerNotes,omitempty"`
}

// MenuIDs returns the distinct menus referenced by the cart in first-seen order.
func (r *OrderRequest) MenuIDs() []uint {
	seen := make(map[uint]bool, len(r.Items))
	var ids []uint
	for _, l := range r.Items {
		if !seen[l.MenuID] {
			seen[l.MenuID] = true
			ids = append(ids, l.MenuID)
		}
	}
	return ids
}

// OrderValidator checks a request against the menus it references. It reports
// every problem it finds rather than stopping at the first.
type OrderValidator struct{}

func (OrderValidator) Validate(req *OrderRequest, menus Catalog, now time.Time) error {
	v := &apperr.ValidationError{}

	if len(req.Items) == 0 {
		v.Add(apperr.KindValidation, "cart is empty")
	}
	if !req.OrderType.Valid() {
		v.Add(apperr.KindValidation, fmt.Sprintf("orderType must be delivery or pickup, got %q", req.OrderType))
	}
	if !req.PaymentMethod.Valid() {
		v.Add(apperr.KindValidation, fmt.Sprintf("paymentMethod must be cash, online or upi, got %q", req.PaymentMethod))
	}
	if utf8.RuneCountInString(req.CustomerNotes) > MaxCustomerNotes {
		v.Add(apperr.KindValidation, fmt.Sprintf("notes must be at most %d characters", MaxCustomerNotes))
	}
	if req.OrderType == entity.OrderTypeDelivery {
		var missing []string
		if req.DeliveryAddress == nil {
			missing = entity.DeliveryAddress{}.MissingFields()
		} else {
			missing = req.DeliveryAddress.MissingFields()
		}
		for _, f := range missing {
			v.AddErr(apperr.ErrAddressRequired, "delivery address "+f+" is required")
		}
	}

	checked := make(map[uint]bool)
	sellers := make(map[uint]bool)
	for i, l := range req.Items {
		if l.Quantity < MinQuantity || l.Quantity > MaxQuantity {
			v.Add(apperr.KindValidation, fmt.Sprintf("items[%d]: quantity must be between %d and %d", i, MinQuantity, MaxQuantity))
		}
		if utf8.RuneCountInString(l.SpecialRequests) > MaxSpecialRequests {
			v.Add(apperr.KindValidation, fmt.Sprintf("items[%d]: specialRequests must be at most %d characters", i, MaxSpecialRequests))
		}

		m, item, ok := menus.item(l.MenuID, l.ItemID)
		if m.ID == 0 {
			if !checked[l.MenuID] {
				checked[l.MenuID] = true
				v.AddErr(apperr.ErrMenuNotFound, fmt.Sprintf("menu %d not found", l.MenuID))
			}
			continue
		}
		if !ok {
			v.AddErr(apperr.ErrItemNotFound, fmt.Sprintf("items[%d]: %s not found", i, entity.ItemRef(l.MenuID, l.ItemID)))
		} else if !item.InStock() {
			v.AddErr(apperr.ErrItemUnavailable, fmt.Sprintf("items[%d]: %s is not available", i, item.Name))
		}
		sellers[m.SellerID] = true

		if checked[m.ID] {
			continue
		}
		checked[m.ID] = true
		if !m.IsActive {
			v.AddErr(apperr.ErrMenuInactive, fmt.Sprintf("menu %d is not active", m.ID))
		}
		if now.After(m.OrderDeadline) {
			v.AddErr(apperr.ErrDeadlinePassed, fmt.Sprintf("menu %d stopped taking orders at %s", m.ID, m.OrderDeadline.UTC().Format(time.RFC3339)))
		}
		switch {
		case req.OrderType == entity.OrderTypeDelivery && !m.DeliveryAvailable:
			v.AddErr(apperr.ErrOrderTypeUnavailable, fmt.Sprintf("menu %d does not offer delivery", m.ID))
		case req.OrderType == entity.OrderTypePickup && !m.PickupAvailable:
			v.AddErr(apperr.ErrOrderTypeUnavailable, fmt.Sprintf("menu %d does not offer pickup", m.ID))
		}
	}

	if len(sellers) > 1 {
		v.AddErr(apperr.ErrMultiSellerCart, "")
	} else if len(req.MenuIDs()) > 1 {
		v.Add(apperr.KindValidation, "all items must come from one menu")
	}

	return v.Err()
}

// NormalizeRequest trims free-text fields in place.
func NormalizeRequest(req *OrderRequest) {
	if req.CustomerNotes == "" {
		req.CustomerNotes = req.NotesAlias
	}
	req.NotesAlias = ""
	req.CustomerNotes = strings.TrimSpace(req.CustomerNotes)
	req.OrderType = entity.OrderType(strings.ToLower(strings.TrimSpace(string(req.OrderType))))
	req.PaymentMethod = entity.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	if req.DeliveryAddress != nil {
		a := req.DeliveryAddress.Trimmed()
		req.DeliveryAddress = &a
	}
}

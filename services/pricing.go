package services

import (
	"strings"

	"github.com/shopspring/decimal"

	"homechef/configs"
	"homechef/entity"
	"homechef/pkg/apperr"
)

// CartLine is one requested item. Client prices are never read.
type CartLine struct {
	MenuID          uint   `json:"menuId"`
	ItemID          uint   `json:"itemId"`
	Quantity        int    `json:"quantity"`
	SpecialRequests string `json:"specialRequests"`
}

// Catalog is the authoritative menu snapshot keyed by menu id.
type Catalog map[uint]entity.Menu

func (c Catalog) item(menuID, itemID uint) (entity.Menu, entity.MenuItem, bool) {
	m, ok := c[menuID]
	if !ok {
		return m, entity.MenuItem{}, false
	}
	for _, it := range m.Items {
		if it.ID == itemID {
			return m, it, true
		}
	}
	return m, entity.MenuItem{}, false
}

type PriceOptions struct {
	OrderType entity.OrderType
	Area      string
	Discount  decimal.Decimal
	// ClientTotal is compared with the computed total when set.
	ClientTotal *decimal.Decimal
}

type PricedOrder struct {
	SellerID    uint
	MenuID      uint
	Items       []entity.OrderItem
	ItemsTotal  decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
	// EstimatedMinutes is the slowest item's preparation time plus the area's delivery time.
	EstimatedMinutes int
}

type PricingEngine struct {
	TaxRate            decimal.Decimal
	Tolerance          decimal.Decimal
	DefaultDeliveryFee decimal.Decimal
}

func NewPricingEngine(cfg configs.PricingConfig) *PricingEngine {
	return &PricingEngine{
		TaxRate:            cfg.TaxRate,
		Tolerance:          cfg.TotalTolerance,
		DefaultDeliveryFee: cfg.DefaultDeliveryFee,
	}
}

// Price computes the order totals from catalog prices. The result does not depend
// on the order of lines.
func (p *PricingEngine) Price(lines []CartLine, catalog Catalog, opt PriceOptions) (*PricedOrder, error) {
	if len(lines) == 0 {
		return nil, apperr.ErrValidation.With("cart is empty")
	}

	out := &PricedOrder{Items: make([]entity.OrderItem, 0, len(lines))}
	var menu entity.Menu
	itemsTotal := decimal.Zero
	prep := 0
	for i, l := range lines {
		m, it, ok := catalog.item(l.MenuID, l.ItemID)
		if !ok {
			if m.ID == 0 {
				return nil, apperr.ErrMenuNotFound
			}
			return nil, apperr.ErrItemNotFound.With(apperr.ErrItemNotFound.Message, entity.ItemRef(l.MenuID, l.ItemID))
		}
		if i == 0 {
			menu = m
		} else if m.SellerID != menu.SellerID {
			return nil, apperr.ErrMultiSellerCart
		}
		if !it.InStock() {
			return nil, apperr.ErrItemUnavailable.With(it.Name+" is not available", entity.ItemRef(l.MenuID, l.ItemID))
		}

		lineTotal := it.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		itemsTotal = itemsTotal.Add(lineTotal)
		prep = max(prep, it.PreparationMinutes)
		out.Items = append(out.Items, entity.OrderItem{
			MenuItemID:      it.ID,
			Name:            it.Name,
			UnitPrice:       it.Price,
			Quantity:        l.Quantity,
			LineTotal:       lineTotal,
			SpecialRequests: strings.TrimSpace(l.SpecialRequests),
		})
	}

	fee, minutes, err := p.deliveryFee(menu, opt)
	if err != nil {
		return nil, err
	}

	out.SellerID = menu.SellerID
	out.MenuID = menu.ID
	out.ItemsTotal = itemsTotal
	out.DeliveryFee = fee
	out.Tax = itemsTotal.Mul(p.TaxRate).Round(2)
	out.Discount = opt.Discount
	out.TotalAmount = itemsTotal.Add(fee).Add(out.Tax).Sub(opt.Discount)
	out.EstimatedMinutes = prep + minutes

	if opt.ClientTotal != nil && !p.WithinTolerance(*opt.ClientTotal, out.TotalAmount) {
		return nil, apperr.ErrTotalMismatch.With(
			"total amount mismatch",
			"expected "+out.TotalAmount.StringFixed(2),
			"received "+opt.ClientTotal.StringFixed(2),
		)
	}
	return out, nil
}

// WithinTolerance reports |a-b| <= tolerance.
func (p *PricingEngine) WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(p.Tolerance)
}

func (p *PricingEngine) deliveryFee(m entity.Menu, opt PriceOptions) (decimal.Decimal, int, error) {
	if opt.OrderType != entity.OrderTypeDelivery {
		return decimal.Zero, 0, nil
	}
	if len(m.DeliveryAreas) == 0 {
		return p.DefaultDeliveryFee, 0, nil
	}
	area := strings.TrimSpace(opt.Area)
	for _, a := range m.DeliveryAreas {
		if strings.EqualFold(strings.TrimSpace(a.Area), area) {
			return a.DeliveryFee, a.EstimatedMinutes, nil
		}
	}
	return decimal.Zero, 0, apperr.ErrAreaNotServed.With("menu does not deliver to " + area)
}

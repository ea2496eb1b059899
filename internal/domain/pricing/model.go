package pricing

import (
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Buy button actions understood by the front end.
const (
	ActionPurchase = "purchase" // logged-in user adds the course to the cart
	ActionGuest    = "guest"    // guest checkout without an account
	ActionLogin    = "login"    // guest must log in first
)

// Button labels.
const (
	LabelFree = "Enroll for Free"
	LabelPaid = "Get Course"
)

// Price holds the host pricing fields of a course. Amounts are in minor units.
type Price struct {
	Amount       int64
	HasAmount    bool // false when the host has no price stored
	SaleAmount   int64
	HasSale      bool
	SaleStartsAt time.Time // zero means no lower bound
	SaleEndsAt   time.Time // zero means no upper bound
}

// IsFree returns true when no price is stored or the price is zero.
func (p Price) IsFree() bool {
	return !p.HasAmount || p.Amount == 0
}

// SaleActive returns true when a sale price exists and now is within its window.
// PRE: none
// POST: returns false when HasSale is false
func (p Price) SaleActive(now time.Time) bool {
	if !p.HasSale || p.SaleAmount <= 0 {
		return false
	}
	if !p.SaleStartsAt.IsZero() && now.Before(p.SaleStartsAt) {
		return false
	}
	if !p.SaleEndsAt.IsZero() && !now.Before(p.SaleEndsAt) {
		return false
	}
	return true
}

// Effective returns the amount to charge at now and whether it is a sale price.
func (p Price) Effective(now time.Time) (amount int64, onSale bool) {
	if p.SaleActive(now) {
		return p.SaleAmount, true
	}
	return p.Amount, false
}

// Offer is the buy panel shown to users without access.
type Offer struct {
	Label        string
	DisplayPrice string // empty for free courses
	OnSale       bool
	Action       string
}

// OfferInput carries the inputs for BuildOffer.
type OfferInput struct {
	Price         Price
	LoggedIn      bool
	GuestCheckout bool
	Currency      string // ISO 4217 code
	Now           time.Time
}

// BuildOffer decides the buy button label, price and action.
// PRE: Currency is a valid ISO code or empty (defaults to USD)
// POST: DisplayPrice is set only for paid courses
func BuildOffer(in OfferInput) Offer {
	o := Offer{Label: LabelPaid, Action: action(in.LoggedIn, in.GuestCheckout)}
	if in.Price.IsFree() {
		o.Label = LabelFree
		return o
	}
	amount, onSale := in.Price.Effective(in.Now)
	o.OnSale = onSale
	o.DisplayPrice = Format(amount, in.Currency)
	return o
}

func action(loggedIn, guestCheckout bool) string {
	switch {
	case loggedIn:
		return ActionPurchase
	case guestCheckout:
		return ActionGuest
	default:
		return ActionLogin
	}
}

// Format renders minor units with the currency symbol, e.g. "$ 49.00".
func Format(minor int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(language.English)
	return p.Sprint(currency.Symbol(unit.Amount(float64(minor) / 100)))
}

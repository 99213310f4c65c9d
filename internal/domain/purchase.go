package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	Key        string `json:"key"`
	PriceCents int64  `json:"price_cents"`
	Credits    int64  `json:"credits"`
	Name       string `json:"name"`
}

// CreditPackages is the fixed shop catalog, keyed by package key.
var CreditPackages = map[string]CreditPackage{
	"small":  {Key: "small", PriceCents: 299, Credits: 300, Name: "$2.99 - 300 Credits"},
	"medium": {Key: "medium", PriceCents: 499, Credits: 500, Name: "$4.99 - 500 Credits"},
	"large":  {Key: "large", PriceCents: 999, Credits: 1100, Name: "$9.99 - 1,100 Credits (+10%)"},
	"xl":     {Key: "xl", PriceCents: 1999, Credits: 2400, Name: "$19.99 - 2,400 Credits (+20%)"},
	"mega":   {Key: "mega", PriceCents: 4999, Credits: 6500, Name: "$49.99 - 6,500 Credits (+30%)"},
}

// Purchase records a completed credit purchase, keyed by the provider's
// checkout session so duplicate webhook deliveries are detected.
type Purchase struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	PackageKey      string    `json:"package"`
	Credits         int64     `json:"credits"`
	AmountPaidCents int64     `json:"amount_paid_cents"`
	SessionID       string    `json:"session_id"`
	CreatedAt       time.Time `json:"created_at"`
}

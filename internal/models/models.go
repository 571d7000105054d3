package models

import "time"

type Direction string

type PaymentRail string

type Cadence string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"

	RailCard  PaymentRail = "Card"
	RailACH   PaymentRail = "ACH"
	RailZelle PaymentRail = "Zelle"
	RailWire  PaymentRail = "Wire"
	RailCheck PaymentRail = "Check"
	RailATM   PaymentRail = "ATM"

	CadenceWeekly    Cadence = "weekly"
	CadenceBiweekly  Cadence = "biweekly"
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceYearly    Cadence = "yearly"
	CadenceUnknown   Cadence = "unknown"
)

type Merchant struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// Transaction — неизменяемая запись о движении по счету, идентичность — пара (accountId, id).
type Transaction struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"accountId"`
	PostedAt    time.Time   `json:"postedAt"`
	Direction   Direction   `json:"direction"`
	Amount      float64     `json:"amount"`
	Merchant    Merchant    `json:"merchant"`
	IsPending   bool        `json:"isPending"`
	PaymentRail PaymentRail `json:"paymentRail,omitempty"`
	CardLast4   string      `json:"cardLast4,omitempty"`
}

type Balance struct {
	AccountID string    `json:"accountId"`
	Available float64   `json:"available"`
	Current   float64   `json:"current"`
	AsOf      time.Time `json:"asOf"`
}

type RecurringPayment struct {
	Merchant      string    `json:"merchant"`
	Cadence       Cadence   `json:"cadence"`
	AverageAmount float64   `json:"averageAmount"`
	Occurrences   int       `json:"occurrences"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

package insurance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierCentral  Tier = "central"
	TierProvince Tier = "province"
	TierDistrict Tier = "district"
	TierCommune  Tier = "commune"
)

var validTiers = map[Tier]bool{
	TierCentral: true, TierProvince: true, TierDistrict: true, TierCommune: true,
}

type State string

const (
	StateValid   State = "valid"
	StateExpired State = "expired"
)

// NumberLength is the fixed length of a national insurance card number.
const NumberLength = 15

// CoverageRate is the share of a bill paid by a valid policy.
var CoverageRate = decimal.New(8, -1)

// Policy maps to the insurance_policy table. State is derived, never stored.
type Policy struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	Number          string     `db:"number" json:"number"`
	InitialFacility *string    `db:"initial_facility" json:"initial_facility,omitempty"`
	Tier            Tier       `db:"tier" json:"tier,omitempty"`
	ExpiryDate      *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	State           State      `db:"-" json:"state"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// StateOn reports the policy state on the calendar day today. A policy with
// no expiry date never expires.
func StateOn(expiry *time.Time, today time.Time) State {
	if expiry == nil {
		return StateValid
	}
	y1, m1, d1 := expiry.Date()
	y2, m2, d2 := today.Date()
	exp := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	day := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	if exp.Before(day) {
		return StateExpired
	}
	return StateValid
}

func (p *Policy) StateOn(today time.Time) State {
	return StateOn(p.ExpiryDate, today)
}

// Split divides amount between insurer and patient. The insurer share is
// rounded to two places and the patient pays the remainder, so the parts
// always add up to amount.
func Split(amount decimal.Decimal, covered bool) (insurer, patient decimal.Decimal) {
	if !covered {
		return decimal.Zero, amount
	}
	insurer = amount.Mul(CoverageRate).Round(2)
	return insurer, amount.Sub(insurer)
}

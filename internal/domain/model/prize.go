package model

import (
	"encoding/json"
	"fmt"
)

// PrizeKind discriminates the prize variants.
type PrizeKind string

const (
	PrizeCash     PrizeKind = "cash"
	PrizeUpgrade  PrizeKind = "upgrade"
	PrizeTangible PrizeKind = "tangible"
)

// Prize is one of CashPrize, UpgradePrize or TangiblePrize.
type Prize interface {
	Kind() PrizeKind
	validate() error
}

// CashPrize pays an amount in minor currency units.
type CashPrize struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// UpgradePrize grants an account tier for a number of days.
type UpgradePrize struct {
	Tier         string `json:"tier"`
	DurationDays int    `json:"durationDays"`
}

// TangiblePrize ships a physical item.
type TangiblePrize struct {
	SKU         string `json:"sku"`
	Description string `json:"description,omitempty"`
}

func (CashPrize) Kind() PrizeKind     { return PrizeCash }
func (UpgradePrize) Kind() PrizeKind  { return PrizeUpgrade }
func (TangiblePrize) Kind() PrizeKind { return PrizeTangible }

func (p CashPrize) validate() error {
	if p.Amount <= 0 || len(p.Currency) != 3 {
		return fmt.Errorf("%w: cash needs a positive amount and an ISO currency", ErrInvalidPrize)
	}
	return nil
}

func (p UpgradePrize) validate() error {
	if p.Tier == "" || p.DurationDays <= 0 {
		return fmt.Errorf("%w: upgrade needs a tier and a positive duration", ErrInvalidPrize)
	}
	return nil
}

func (p TangiblePrize) validate() error {
	if p.SKU == "" {
		return fmt.Errorf("%w: tangible prize needs a sku", ErrInvalidPrize)
	}
	return nil
}

// Prizes is a list of prizes encoded with a "kind" discriminator.
type Prizes []Prize

type prizeEnvelope struct {
	Kind PrizeKind `json:"kind"`
}

func (ps Prizes) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ps))
	for _, p := range ps {
		var body any
		switch v := p.(type) {
		case CashPrize:
			body = struct {
				Kind PrizeKind `json:"kind"`
				CashPrize
			}{v.Kind(), v}
		case UpgradePrize:
			body = struct {
				Kind PrizeKind `json:"kind"`
				UpgradePrize
			}{v.Kind(), v}
		case TangiblePrize:
			body = struct {
				Kind PrizeKind `json:"kind"`
				TangiblePrize
			}{v.Kind(), v}
		default:
			return nil, fmt.Errorf("%w: unsupported prize %T", ErrInvalidPrize, p)
		}
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return json.Marshal(out)
}

func (ps *Prizes) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	list := make(Prizes, 0, len(raws))
	for _, raw := range raws {
		var env prizeEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return err
		}
		switch env.Kind {
		case PrizeCash:
			var p CashPrize
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			list = append(list, p)
		case PrizeUpgrade:
			var p UpgradePrize
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			list = append(list, p)
		case PrizeTangible:
			var p TangiblePrize
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			list = append(list, p)
		default:
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidPrize, env.Kind)
		}
	}
	*ps = list
	return nil
}

package ballot

import (
	"github.com/shopspring/decimal"
)

// PercentPlaces is the rounding precision of every percentage.
const PercentPlaces = 3

var hundred = decimal.NewFromInt(100)

// Percentage is a computed share. Defined is false when the denominator was
// zero or absent, or the counted value was not entered.
type Percentage struct {
	Value   decimal.Decimal
	Defined bool
}

// Undefined is the explicit marker for an uncomputable percentage.
var Undefined = Percentage{}

// MarshalJSON renders undefined percentages as the string "undefined".
func (p Percentage) MarshalJSON() ([]byte, error) {
	if !p.Defined {
		return []byte(`"undefined"`), nil
	}
	return []byte(`"` + p.Value.StringFixed(PercentPlaces) + `"`), nil
}

func (p Percentage) String() string {
	if !p.Defined {
		return "undefined"
	}
	return p.Value.StringFixed(PercentPlaces)
}

// Percent computes count/base*100, rounded half up to PercentPlaces.
func Percent(count decimal.NullDecimal, base decimal.NullDecimal) Percentage {
	if !count.Valid || !base.Valid || base.Decimal.IsZero() {
		return Undefined
	}
	ratio := count.Decimal.Mul(hundred).DivRound(base.Decimal, PercentPlaces)
	return Percentage{Value: ratio, Defined: true}
}

// ValueTally is one counted column of an option.
type ValueTally struct {
	Value   Value               `json:"value"`
	Count   decimal.NullDecimal `json:"count"`
	Percent *Percentage         `json:"percent,omitempty"`
}

// OptionTally is the result row of one option.
type OptionTally struct {
	OptionID uint64       `json:"option_id"`
	Values   []ValueTally `json:"values"`
}

// Result is the tally of a whole poll.
type Result struct {
	VoteMethod   VoteMethod          `json:"vote_method"`
	PercentBase  PercentBase         `json:"percent_base"`
	Options      []OptionTally       `json:"options"`
	VotesValid   decimal.NullDecimal `json:"votes_valid"`
	VotesInvalid decimal.NullDecimal `json:"votes_invalid"`
	VotesCast    decimal.NullDecimal `json:"votes_cast"`
}

// Tally computes raw counts and percentages of a recorded sheet. entitled is
// only read for AllEntitledVoters. The function is pure: tallying the same
// sheet twice yields identical results.
//
// AllValidVotes without votes_valid falls back to the counted votes: the
// option's own Yes/No/Abstain total for yes/no methods, the sum of all
// options for PlainVotes.
func Tally(method VoteMethod, base PercentBase, sheet Sheet, entitled decimal.NullDecimal) Result {
	columns := method.Values()

	var shared decimal.NullDecimal
	switch base {
	case AllValidVotes:
		shared = sheet.VotesValid
		if !shared.Valid && method == PlainVotes {
			shared = countedSum(sheet.Options, Votes)
		}
	case AllCastVotes:
		shared = sheet.VotesCast
	case AllEntitledVoters:
		shared = entitled
	}

	result := Result{
		VoteMethod:   method,
		PercentBase:  base,
		Options:      make([]OptionTally, 0, len(sheet.Options)),
		VotesValid:   sheet.VotesValid,
		VotesInvalid: sheet.VotesInvalid,
		VotesCast:    sheet.VotesCast,
	}
	for _, opt := range sheet.Options {
		denominator := shared
		if base == AllValidVotes && !sheet.VotesValid.Valid && method != PlainVotes {
			denominator = countedSum([]OptionVotes{opt}, columns...)
		}

		row := OptionTally{OptionID: opt.OptionID, Values: make([]ValueTally, 0, len(columns))}
		for _, col := range columns {
			vt := ValueTally{Value: col, Count: opt.Get(col)}
			if base != DisabledBase {
				p := Percent(vt.Count, denominator)
				vt.Percent = &p
			}
			row.Values = append(row.Values, vt)
		}
		result.Options = append(result.Options, row)
	}
	return result
}

// countedSum adds the entered values of the given columns. It is NULL when
// nothing was entered.
func countedSum(options []OptionVotes, columns ...Value) decimal.NullDecimal {
	sum, counted := decimal.Zero, false
	for _, opt := range options {
		for _, col := range columns {
			if v := opt.Get(col); v.Valid {
				sum = sum.Add(v.Decimal)
				counted = true
			}
		}
	}
	return decimal.NullDecimal{Decimal: sum, Valid: counted}
}

// Lookup returns the tally of one option column, for callers that only need
// a single figure.
func (r Result) Lookup(optionID uint64, v Value) (ValueTally, bool) {
	for _, opt := range r.Options {
		if opt.OptionID != optionID {
			continue
		}
		for _, vt := range opt.Values {
			if vt.Value == v {
				return vt, true
			}
		}
	}
	return ValueTally{}, false
}

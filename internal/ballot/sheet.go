package ballot

import (
	"sort"

	"github.com/localnerve/assemblydb/internal/types"
	"github.com/shopspring/decimal"
)

// VoteScale is the number of decimal places a vote value may carry. The
// vote columns are stored as decimal(20,6).
const VoteScale = 6

// exceedsScale reports whether d would be rounded when stored
func exceedsScale(d decimal.Decimal) bool {
	return !d.Equal(d.Truncate(VoteScale))
}

// OptionVotes are the recorded columns of one option. A missing column or an
// invalid NullDecimal means "not counted".
type OptionVotes struct {
	OptionID uint64
	Values   map[Value]decimal.NullDecimal
}

// Get returns the recorded value of a column.
func (o OptionVotes) Get(v Value) decimal.NullDecimal {
	if o.Values == nil {
		return decimal.NullDecimal{}
	}
	return o.Values[v]
}

// Sheet is a complete ballot submission for one poll.
type Sheet struct {
	Options      []OptionVotes
	VotesValid   decimal.NullDecimal
	VotesInvalid decimal.NullDecimal
	VotesCast    decimal.NullDecimal
}

// Validate checks a submission against the poll's method and options. It
// returns InvalidVoteData for malformed data and InconsistentTotals when a
// plain votes ballot counts more votes than were cast.
func Validate(method VoteMethod, optionIDs []uint64, sheet Sheet) error {
	if method.Values() == nil {
		return types.NewError(types.KindInvalidVoteData, string(method), "unknown vote method")
	}

	expected := make(map[uint64]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		expected[id] = struct{}{}
	}

	seen := make(map[uint64]struct{}, len(sheet.Options))
	for _, opt := range sheet.Options {
		if _, ok := expected[opt.OptionID]; !ok {
			return types.NewError(types.KindInvalidVoteData, opt.OptionID, "option does not belong to the poll")
		}
		if _, dup := seen[opt.OptionID]; dup {
			return types.NewError(types.KindInvalidVoteData, opt.OptionID, "option submitted twice")
		}
		seen[opt.OptionID] = struct{}{}

		for value, count := range opt.Values {
			if !method.Recognizes(value) {
				return types.NewError(types.KindInvalidVoteData, string(value), "value not recognized for %s", method)
			}
			if count.Valid && count.Decimal.IsNegative() {
				return types.NewError(types.KindInvalidVoteData, count.Decimal.String(), "negative vote count for option %d", opt.OptionID)
			}
			if count.Valid && exceedsScale(count.Decimal) {
				return types.NewError(types.KindInvalidVoteData, count.Decimal.String(),
					"vote count for option %d has more than %d decimal places", opt.OptionID, VoteScale)
			}
		}
	}
	if len(seen) != len(expected) {
		missing := make([]uint64, 0)
		for id := range expected {
			if _, ok := seen[id]; !ok {
				missing = append(missing, id)
			}
		}
		sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
		return types.NewError(types.KindInvalidVoteData, missing, "options missing from submission")
	}

	for name, total := range map[string]decimal.NullDecimal{
		"votesvalid":   sheet.VotesValid,
		"votesinvalid": sheet.VotesInvalid,
		"votescast":    sheet.VotesCast,
	} {
		if total.Valid && total.Decimal.IsNegative() {
			return types.NewError(types.KindInvalidVoteData, total.Decimal.String(), "%s must not be negative", name)
		}
		if total.Valid && exceedsScale(total.Decimal) {
			return types.NewError(types.KindInvalidVoteData, total.Decimal.String(),
				"%s has more than %d decimal places", name, VoteScale)
		}
	}

	if method == PlainVotes && sheet.VotesCast.Valid {
		sum := decimal.Zero
		for _, opt := range sheet.Options {
			if v := opt.Get(Votes); v.Valid {
				sum = sum.Add(v.Decimal)
			}
		}
		if sum.GreaterThan(sheet.VotesCast.Decimal) {
			return types.NewError(types.KindInconsistentTotals, sum.String(),
				"sum of votes exceeds votes cast (%s)", sheet.VotesCast.Decimal.String())
		}
	}
	return nil
}

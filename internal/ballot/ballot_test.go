package ballot_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/localnerve/assemblydb/internal/ballot"
	"github.com/localnerve/assemblydb/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func plain(id uint64, v int64) ballot.OptionVotes {
	return ballot.OptionVotes{OptionID: id, Values: map[ballot.Value]decimal.NullDecimal{ballot.Votes: num(v)}}
}

func TestAutoVoteMethod(t *testing.T) {
	// two candidates competing for one post is a contested race
	assert.Equal(t, ballot.PlainVotes, ballot.AutoVoteMethod(2, 1, 0))
	assert.Equal(t, ballot.YesNoAbstain, ballot.AutoVoteMethod(1, 1, 0))
	assert.Equal(t, ballot.YesNoAbstain, ballot.AutoVoteMethod(2, 3, 1))
	assert.Equal(t, ballot.PlainVotes, ballot.AutoVoteMethod(1, 2, 2))
}

func TestValuesPerMethod(t *testing.T) {
	assert.Equal(t, []ballot.Value{ballot.Yes, ballot.No, ballot.Abstain}, ballot.YesNoAbstain.Values())
	assert.Equal(t, []ballot.Value{ballot.Yes, ballot.No}, ballot.YesNo.Values())
	assert.Equal(t, []ballot.Value{ballot.Votes}, ballot.PlainVotes.Values())
	assert.Nil(t, ballot.VoteMethod("Approval").Values())

	_, err := ballot.ParseVoteMethod("Approval")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
	_, err = ballot.ParsePercentBase("Everyone")
	assert.True(t, errors.Is(err, types.ErrInvalidInput))
}

func TestValidate(t *testing.T) {
	options := []uint64{1, 2}

	t.Run("accepts complete sheet", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 10), plain(2, 5)}, VotesCast: num(17)}
		require.NoError(t, ballot.Validate(ballot.PlainVotes, options, sheet))
	})

	t.Run("missing option", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 10)}}
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("foreign option", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 10), plain(2, 1), plain(9, 1)}}
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("negative value", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, -1), plain(2, 1)}}
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("negative total", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 1), plain(2, 1)}, VotesInvalid: num(-2)}
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("scale beyond storage", func(t *testing.T) {
		fine := decimal.NewNullDecimal(decimal.RequireFromString("1.250000"))
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{
			{OptionID: 1, Values: map[ballot.Value]decimal.NullDecimal{ballot.Votes: fine}},
			plain(2, 1),
		}, VotesCast: decimal.NewNullDecimal(decimal.RequireFromString("4.0000000"))}
		require.NoError(t, ballot.Validate(ballot.PlainVotes, options, sheet))

		sheet.Options[0].Values[ballot.Votes] = decimal.NewNullDecimal(decimal.RequireFromString("1.0000001"))
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))

		sheet.Options[0].Values[ballot.Votes] = fine
		sheet.VotesValid = decimal.NewNullDecimal(decimal.RequireFromString("2.1234567"))
		err = ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("unrecognized column", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{
			{OptionID: 1, Values: map[ballot.Value]decimal.NullDecimal{ballot.Abstain: num(1)}},
			{OptionID: 2},
		}}
		err := ballot.Validate(ballot.YesNo, options, sheet)
		assert.True(t, errors.Is(err, types.ErrInvalidVoteData))
	})

	t.Run("votes exceed cast", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 10), plain(2, 8)}, VotesCast: num(17)}
		err := ballot.Validate(ballot.PlainVotes, options, sheet)
		assert.Equal(t, types.KindInconsistentTotals, types.KindOf(err))
	})

	t.Run("uncounted values are allowed", func(t *testing.T) {
		sheet := ballot.Sheet{Options: []ballot.OptionVotes{
			{OptionID: 1, Values: map[ballot.Value]decimal.NullDecimal{ballot.Yes: {}, ballot.No: num(2)}},
			{OptionID: 2},
		}}
		require.NoError(t, ballot.Validate(ballot.YesNoAbstain, options, sheet))
	})
}

func TestTallyAllCastVotes(t *testing.T) {
	sheet := ballot.Sheet{
		Options:      []ballot.OptionVotes{plain(1, 10), plain(2, 5)},
		VotesInvalid: num(2),
		VotesCast:    num(17),
	}
	require.NoError(t, ballot.Validate(ballot.PlainVotes, []uint64{1, 2}, sheet))

	result := ballot.Tally(ballot.PlainVotes, ballot.AllCastVotes, sheet, decimal.NullDecimal{})
	first, ok := result.Lookup(1, ballot.Votes)
	require.True(t, ok)
	second, ok := result.Lookup(2, ballot.Votes)
	require.True(t, ok)

	assert.Equal(t, "58.824", first.Percent.String())
	assert.Equal(t, "29.412", second.Percent.String())
	assert.True(t, first.Count.Decimal.Equal(decimal.NewFromInt(10)))

	again := ballot.Tally(ballot.PlainVotes, ballot.AllCastVotes, sheet, decimal.NullDecimal{})
	assert.Equal(t, result, again)
}

func TestTallyAllValidVotes(t *testing.T) {
	sheet := ballot.Sheet{Options: []ballot.OptionVotes{{
		OptionID: 1,
		Values: map[ballot.Value]decimal.NullDecimal{
			ballot.Yes: num(3), ballot.No: num(1), ballot.Abstain: {},
		},
	}}}

	// without votes_valid the option's own counted values are the base
	result := ballot.Tally(ballot.YesNoAbstain, ballot.AllValidVotes, sheet, decimal.NullDecimal{})
	yes, _ := result.Lookup(1, ballot.Yes)
	abstain, _ := result.Lookup(1, ballot.Abstain)
	assert.Equal(t, "75.000", yes.Percent.String())
	assert.False(t, abstain.Percent.Defined)

	sheet.VotesValid = num(8)
	result = ballot.Tally(ballot.YesNoAbstain, ballot.AllValidVotes, sheet, decimal.NullDecimal{})
	yes, _ = result.Lookup(1, ballot.Yes)
	no, _ := result.Lookup(1, ballot.No)
	assert.Equal(t, "37.500", yes.Percent.String())
	assert.Equal(t, "12.500", no.Percent.String())
}

func TestTallyAllValidVotesFallback(t *testing.T) {
	motion := ballot.Sheet{Options: []ballot.OptionVotes{{
		OptionID: 1,
		Values: map[ballot.Value]decimal.NullDecimal{
			ballot.Yes: num(30), ballot.No: num(10), ballot.Abstain: num(5),
		},
	}}}
	result := ballot.Tally(ballot.YesNoAbstain, ballot.AllValidVotes, motion, decimal.NullDecimal{})
	for value, want := range map[ballot.Value]string{
		ballot.Yes:     "66.667",
		ballot.No:      "22.222",
		ballot.Abstain: "11.111",
	} {
		vt, ok := result.Lookup(1, value)
		require.True(t, ok)
		assert.Equal(t, want, vt.Percent.String(), value)
	}

	race := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 10), plain(2, 5)}}
	result = ballot.Tally(ballot.PlainVotes, ballot.AllValidVotes, race, decimal.NullDecimal{})
	first, _ := result.Lookup(1, ballot.Votes)
	second, _ := result.Lookup(2, ballot.Votes)
	assert.Equal(t, "66.667", first.Percent.String())
	assert.Equal(t, "33.333", second.Percent.String())

	empty := ballot.Sheet{Options: []ballot.OptionVotes{{OptionID: 1}}}
	result = ballot.Tally(ballot.YesNo, ballot.AllValidVotes, empty, decimal.NullDecimal{})
	yes, _ := result.Lookup(1, ballot.Yes)
	assert.False(t, yes.Percent.Defined)
}

func TestTallyUndefinedAndDisabled(t *testing.T) {
	sheet := ballot.Sheet{Options: []ballot.OptionVotes{plain(1, 4)}, VotesCast: num(0)}

	result := ballot.Tally(ballot.PlainVotes, ballot.AllCastVotes, sheet, decimal.NullDecimal{})
	vt, _ := result.Lookup(1, ballot.Votes)
	require.NotNil(t, vt.Percent)
	assert.False(t, vt.Percent.Defined)

	result = ballot.Tally(ballot.PlainVotes, ballot.AllEntitledVoters, sheet, decimal.NullDecimal{})
	vt, _ = result.Lookup(1, ballot.Votes)
	assert.False(t, vt.Percent.Defined)

	result = ballot.Tally(ballot.PlainVotes, ballot.AllEntitledVoters, sheet, num(8))
	vt, _ = result.Lookup(1, ballot.Votes)
	assert.Equal(t, "50.000", vt.Percent.String())

	result = ballot.Tally(ballot.PlainVotes, ballot.DisabledBase, sheet, num(8))
	vt, _ = result.Lookup(1, ballot.Votes)
	assert.Nil(t, vt.Percent)
}

func TestPercentageJSON(t *testing.T) {
	out, err := json.Marshal(ballot.Undefined)
	require.NoError(t, err)
	assert.JSONEq(t, `"undefined"`, string(out))

	out, err = json.Marshal(ballot.Percent(num(1), num(3)))
	require.NoError(t, err)
	assert.JSONEq(t, `"33.333"`, string(out))
}

func TestPercentRoundsOnce(t *testing.T) {
	// 100/66667 is 0.0014999925..., which must not be rounded up via 0.0015
	assert.Equal(t, "0.001", ballot.Percent(num(1), num(66667)).String())
	assert.Equal(t, "66.667", ballot.Percent(num(2), num(3)).String())
	assert.Equal(t, "0.002", ballot.Percent(num(1), num(50000)).String())
}

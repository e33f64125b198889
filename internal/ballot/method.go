// Package ballot holds the vote method and percent base rules of the poll
// engine. It has no storage dependencies: callers hand it the raw numbers of
// a ballot and get validation errors or a tally back.
package ballot

import (
	"github.com/localnerve/assemblydb/internal/types"
)

// VoteMethod selects the value columns a poll records per option.
type VoteMethod string

const (
	YesNoAbstain VoteMethod = "YesNoAbstain"
	YesNo        VoteMethod = "YesNo"
	PlainVotes   VoteMethod = "PlainVotes"
)

// Value is one recognized vote column.
type Value string

const (
	Yes     Value = "Yes"
	No      Value = "No"
	Abstain Value = "Abstain"
	Votes   Value = "Votes"
)

// Values returns the recognized columns of the method, in display order.
func (m VoteMethod) Values() []Value {
	switch m {
	case YesNoAbstain:
		return []Value{Yes, No, Abstain}
	case YesNo:
		return []Value{Yes, No}
	case PlainVotes:
		return []Value{Votes}
	}
	return nil
}

// Recognizes reports whether v is a column of the method.
func (m VoteMethod) Recognizes(v Value) bool {
	for _, known := range m.Values() {
		if known == v {
			return true
		}
	}
	return false
}

// ParseVoteMethod validates a method name.
func ParseVoteMethod(s string) (VoteMethod, error) {
	switch m := VoteMethod(s); m {
	case YesNoAbstain, YesNo, PlainVotes:
		return m, nil
	}
	return "", types.NewError(types.KindInvalidInput, s, "unknown vote method")
}

// AutoVoteMethod picks the method for an assignment ballot. Small races are
// yes/no/abstain decisions, contested races are plain votes. The rule compares
// candidates against the posts still open, ballot layouts depend on it.
func AutoVoteMethod(candidates, openPosts, elected int) VoteMethod {
	if candidates <= openPosts-elected {
		return YesNoAbstain
	}
	return PlainVotes
}

// PercentBase selects the denominator used for percentages.
type PercentBase string

const (
	AllValidVotes     PercentBase = "AllValidVotes"
	AllCastVotes      PercentBase = "AllCastVotes"
	AllEntitledVoters PercentBase = "AllEntitledVoters"
	DisabledBase      PercentBase = "DisabledBase"
)

// ParsePercentBase validates a percent base name.
func ParsePercentBase(s string) (PercentBase, error) {
	switch b := PercentBase(s); b {
	case AllValidVotes, AllCastVotes, AllEntitledVoters, DisabledBase:
		return b, nil
	}
	return "", types.NewError(types.KindInvalidInput, s, "unknown percent base")
}

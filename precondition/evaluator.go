package precondition

import (
	"context"
	"errors"

	"github.com/jathurchan/davlock/header"
)

// EvaluateCondition tests a single condition. A condition with neither an
// entity tag nor a state token is false whether or not it is negated.
func EvaluateCondition(c header.Condition, info ResourceInformation) bool {
	var result bool
	switch {
	case !c.Valid():
		return false
	case c.ETag != nil:
		result = info.HasETag(*c.ETag)
	default:
		result = info.HasStateToken(c.StateToken)
	}
	return result != c.Not
}

// EvaluateList is true when every condition of l holds.
func EvaluateList(l header.List, info ResourceInformation) bool {
	if len(l) == 0 {
		return false
	}
	for _, c := range l {
		if !EvaluateCondition(c, info) {
			return false
		}
	}
	return true
}

// EvaluateNoTagList tests an untagged list against the request target.
func EvaluateNoTagList(l header.NoTagList, info ResourceInformation) bool {
	return EvaluateList(l.List, info)
}

// EvaluateTaggedList is true when any list of t holds for info, the state of
// the resource t refers to.
func EvaluateTaggedList(t header.TaggedList, info ResourceInformation) bool {
	for _, l := range t.Lists {
		if EvaluateList(l, info) {
			return true
		}
	}
	return false
}

// Evaluate decides whether h is satisfied.
//
// Tagged headers are evaluated entry by entry in order, fetching each
// referenced resource through acc, and succeed on the first entry that
// holds. An entry whose resource cannot be fetched contributes no match.
// Untagged headers fetch the request target once and succeed if any list
// holds.
//
// Returns an error only when the context ends or the request target itself
// cannot be fetched; the result is then false.
func Evaluate(ctx context.Context, h header.IfHeader, acc Accessor) (bool, error) {
	if h.IsZero() {
		return false, header.ErrEmptyIfHeader
	}

	if h.IsTagged() {
		for _, t := range h.TaggedLists() {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			info, err := acc.ResourceInformation(ctx, t.Reference)
			if err != nil {
				if isContextError(err) {
					return false, err
				}
				continue
			}
			if EvaluateTaggedList(t, info) {
				return true, nil
			}
		}
		return false, nil
	}

	info, err := acc.RequestInformation(ctx)
	if err != nil {
		return false, err
	}
	for _, l := range h.NoTagLists() {
		if EvaluateNoTagList(l, info) {
			return true, nil
		}
	}
	return false, nil
}

// Check parses raw as an If header value and evaluates it. Malformed input
// yields a *header.SyntaxError.
func Check(ctx context.Context, raw string, acc Accessor) (bool, error) {
	h, err := header.ParseIf(raw)
	if err != nil {
		return false, err
	}
	return Evaluate(ctx, h, acc)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

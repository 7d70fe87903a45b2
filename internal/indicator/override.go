package indicator

import (
	"errors"
	"fmt"
)

// ErrScoreOutOfRange is returned for user-supplied scores outside [0, 100].
var ErrScoreOutOfRange = errors.New("score must be between 0 and 100")

// MinScore and MaxScore bound every indicator score.
const (
	MinScore = 0
	MaxScore = 100
)

func validateScore(v int) error {
	if v < MinScore || v > MaxScore {
		return fmt.Errorf("%d: %w", v, ErrScoreOutOfRange)
	}
	return nil
}

// SetOverride makes v the effective value regardless of the computed score.
// Out-of-range values are rejected and the previous override is kept.
func (i *Indicator) SetOverride(v int) error {
	if err := validateScore(v); err != nil {
		return fmt.Errorf("override %q: %w", i.name, err)
	}
	if i.override != nil && *i.override == v {
		return nil
	}
	i.override = &v
	i.emit()
	return nil
}

// ClearOverride reverts the effective value to the computed score.
func (i *Indicator) ClearOverride() {
	if i.override == nil {
		return
	}
	i.override = nil
	i.emit()
}

// Override returns the user override, if any.
func (i *Indicator) Override() (int, bool) {
	if i.override == nil {
		return 0, false
	}
	return *i.override, true
}

func (i *Indicator) OverrideComment() string { return i.comment }

func (i *Indicator) SetOverrideComment(comment string) {
	if i.comment == comment {
		return
	}
	i.comment = comment
	i.emit()
}

// Overridden lists every indicator under root (inclusive) carrying an override,
// in depth-first order.
func Overridden(root *Indicator) []*Indicator {
	var out []*Indicator
	root.Walk(func(ind *Indicator) bool {
		if ind.override != nil {
			out = append(out, ind)
		}
		return true
	})
	return out
}

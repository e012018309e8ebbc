package auxparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrModeUnderflow is returned when a mode string needs more parameters
// than the line supplied.
var ErrModeUnderflow = errors.New("mode parameter underflow")

// ModeChange is one mode letter out of a mode string. HasParam is false
// for flag modes and for group C modes being removed. Timestamp is zero
// unless the caller filled it in from a server timestamp.
type ModeChange struct {
	Mode      rune
	Param     string
	HasParam  bool
	Adding    bool
	Timestamp int64
}

func (c ModeChange) String() string {
	sign := "-"
	if c.Adding {
		sign = "+"
	}
	if !c.HasParam {
		return sign + string(c.Mode)
	}
	return sign + string(c.Mode) + " " + c.Param
}

// ModeScanner walks a mode string one change at a time, consuming
// parameters as it goes. A scanner is used once.
//
//	s := NewModeScanner("+ov-k", params, groups, prefix)
//	for s.Scan() {
//		c := s.Change()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type ModeScanner struct {
	modes  []rune
	pos    int
	params []string

	addSet    string
	removeSet string
	adding    bool

	cur ModeChange
	err error
}

// NewModeScanner prepares a scan of modes. Status modes from prefix
// consume a parameter in both directions, as do groups A and B. Group C
// consumes one only when adding. params is copied.
func NewModeScanner(modes string, params []string, groups ModeGroups, prefix *PrefixTable) *ModeScanner {
	status := string(prefix.Modes())
	return &ModeScanner{
		modes:     []rune(modes),
		params:    append([]string(nil), params...),
		addSet:    groups[0] + groups[1] + groups[2] + status,
		removeSet: groups[0] + groups[1] + status,
		adding:    true,
	}
}

// Scan advances to the next mode letter. It returns false at the end of
// the string or on underflow; check Err to tell them apart.
func (s *ModeScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for s.pos < len(s.modes) {
		c := s.modes[s.pos]
		s.pos++

		switch c {
		case '+':
			s.adding = true
			continue
		case '-':
			s.adding = false
			continue
		}

		set := s.removeSet
		if s.adding {
			set = s.addSet
		}

		s.cur = ModeChange{Mode: c, Adding: s.adding}
		if strings.ContainsRune(set, c) {
			if len(s.params) == 0 {
				s.err = fmt.Errorf("%w: no parameter for %c", ErrModeUnderflow, c)
				return false
			}
			s.cur.Param, s.cur.HasParam = s.params[0], true
			s.params = s.params[1:]
		}
		return true
	}
	return false
}

// Change returns the change produced by the last successful Scan.
func (s *ModeScanner) Change() ModeChange {
	return s.cur
}

// Err returns the underflow error, if scanning stopped on one.
func (s *ModeScanner) Err() error {
	return s.err
}

// Remaining returns the parameters not consumed so far.
func (s *ModeScanner) Remaining() []string {
	return s.params
}

// ParseModes scans a whole mode string. On underflow it returns the
// changes parsed before the failure along with the error.
func ParseModes(modes string, params []string, groups ModeGroups, prefix *PrefixTable) ([]ModeChange, error) {
	var out []ModeChange
	s := NewModeScanner(modes, params, groups, prefix)
	for s.Scan() {
		out = append(out, s.Change())
	}
	return out, s.Err()
}

// Package auxparse implements the small grammars IRC layers on top of the
// line format: ISUPPORT tokens, PREFIX tables, mode strings, WHO flags and
// CTCP framing.
package auxparse

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	// ErrUnbalancedPrefix is returned when a PREFIX token has a different
	// number of mode letters and symbols.
	ErrUnbalancedPrefix = errors.New("unbalanced prefix")

	prefixRe = regexp.MustCompile(`^\(([A-Za-z0-9]+)\)(.+)$`)
)

// PrefixTable maps channel status mode letters to their symbols and back.
type PrefixTable struct {
	modes   []rune
	symbols []rune
	toSym   map[rune]rune
	toMode  map[rune]rune
}

// DefaultPrefix is the RFC1459 table, used until the server says otherwise.
const DefaultPrefix = "(ov)@+"

// ParsePrefixTable parses a PREFIX value such as "(ov)@+". Input that does
// not look like a prefix table at all yields an empty table and no error.
func ParsePrefixTable(value string) (*PrefixTable, error) {
	p := &PrefixTable{
		toSym:  make(map[rune]rune),
		toMode: make(map[rune]rune),
	}

	m := prefixRe.FindStringSubmatch(value)
	if m == nil {
		return p, nil
	}

	modes, symbols := []rune(m[1]), []rune(m[2])
	if len(modes) != len(symbols) {
		return nil, fmt.Errorf("%w: %q has %d modes and %d symbols",
			ErrUnbalancedPrefix, value, len(modes), len(symbols))
	}

	p.modes, p.symbols = modes, symbols
	for i := range modes {
		p.toSym[modes[i]] = symbols[i]
		p.toMode[symbols[i]] = modes[i]
	}
	return p, nil
}

// Symbol returns the symbol for a status mode letter.
func (p *PrefixTable) Symbol(mode rune) (rune, bool) {
	if p == nil {
		return 0, false
	}
	s, ok := p.toSym[mode]
	return s, ok
}

// Mode returns the status mode letter for a symbol.
func (p *PrefixTable) Mode(symbol rune) (rune, bool) {
	if p == nil {
		return 0, false
	}
	m, ok := p.toMode[symbol]
	return m, ok
}

// Lookup maps in either direction: a mode letter gives its symbol and a
// symbol gives its mode letter.
func (p *PrefixTable) Lookup(c rune) (rune, bool) {
	if s, ok := p.Symbol(c); ok {
		return s, true
	}
	return p.Mode(c)
}

// Modes returns the status mode letters, highest rank first.
func (p *PrefixTable) Modes() []rune {
	if p == nil {
		return nil
	}
	return append([]rune(nil), p.modes...)
}

// Symbols returns the status symbols, highest rank first.
func (p *PrefixTable) Symbols() []rune {
	if p == nil {
		return nil
	}
	return append([]rune(nil), p.symbols...)
}

func (p *PrefixTable) IsMode(c rune) bool {
	_, ok := p.Symbol(c)
	return ok
}

func (p *PrefixTable) IsSymbol(c rune) bool {
	_, ok := p.Mode(c)
	return ok
}

// Len returns the number of status modes.
func (p *PrefixTable) Len() int {
	if p == nil {
		return 0
	}
	return len(p.modes)
}

// ParseStatusPrefix strips leading status symbols from a NAMES entry and
// returns the corresponding mode letters along with the bare nick.
func ParseStatusPrefix(entry string, prefix *PrefixTable) (modes []rune, nick string) {
	nick = entry
	for nick != "" {
		r, size := utf8.DecodeRuneInString(nick)
		m, ok := prefix.Mode(r)
		if !ok {
			break
		}
		modes = append(modes, m)
		nick = nick[size:]
	}
	return modes, nick
}

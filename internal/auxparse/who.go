package auxparse

import "log"

// WhoFlags is the flags field of a WHO reply, e.g. "H*@".
type WhoFlags struct {
	Operator bool
	Away     bool
	Modes    map[rune]bool
}

// ParseWhoFlags parses a WHO flags string. Status symbols land in Modes.
// Letters and digits other than G and H are logged and skipped.
func ParseWhoFlags(flags string) WhoFlags {
	w := WhoFlags{Modes: make(map[rune]bool)}
	for _, c := range flags {
		switch {
		case c == '*':
			w.Operator = true
		case c == 'G':
			w.Away = true
		case c == 'H':
			w.Away = false
		case !isAlnum(c):
			w.Modes[c] = true
		default:
			log.Printf("who: unknown flag %q in %q", c, flags)
		}
	}
	return w
}

func isAlnum(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

package auxparse

import (
	"strings"

	"golang.org/x/text/cases"
)

// CaseMapping is a server's rule for comparing nicks and channel names,
// as advertised by ISUPPORT CASEMAPPING.
type CaseMapping int

const (
	// CaseUnicode is used for mappings we do not know, such as rfc7613.
	CaseUnicode CaseMapping = iota
	CaseASCII
	CaseRFC1459
	CaseStrictRFC1459
)

// DefaultCaseMapping applies until the server says otherwise.
const DefaultCaseMapping = "rfc1459"

// RFC 1459 treats []\^ as the upper case of {}|~.
var (
	asciiFold         = strings.NewReplacer(pairs("ABCDEFGHIJKLMNOPQRSTUVWXYZ", "abcdefghijklmnopqrstuvwxyz")...)
	rfc1459Fold       = strings.NewReplacer(pairs("ABCDEFGHIJKLMNOPQRSTUVWXYZ[]\\^", "abcdefghijklmnopqrstuvwxyz{}|~")...)
	strictRFC1459Fold = strings.NewReplacer(pairs("ABCDEFGHIJKLMNOPQRSTUVWXYZ[]\\", "abcdefghijklmnopqrstuvwxyz{}|")...)
)

func pairs(upper, lower string) []string {
	out := make([]string, 0, 2*len(upper))
	for i := range upper {
		out = append(out, upper[i:i+1], lower[i:i+1])
	}
	return out
}

// ParseCaseMapping maps a CASEMAPPING value to a CaseMapping.
func ParseCaseMapping(name string) CaseMapping {
	switch strings.ToLower(name) {
	case "ascii":
		return CaseASCII
	case "rfc1459":
		return CaseRFC1459
	case "strict-rfc1459":
		return CaseStrictRFC1459
	}
	return CaseUnicode
}

func (m CaseMapping) String() string {
	switch m {
	case CaseASCII:
		return "ascii"
	case CaseRFC1459:
		return "rfc1459"
	case CaseStrictRFC1459:
		return "strict-rfc1459"
	}
	return "unicode"
}

// Fold returns s in the mapping's lower case.
func (m CaseMapping) Fold(s string) string {
	switch m {
	case CaseASCII:
		return asciiFold.Replace(s)
	case CaseRFC1459:
		return rfc1459Fold.Replace(s)
	case CaseStrictRFC1459:
		return strictRFC1459Fold.Replace(s)
	}
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(s)
}

// Equal reports whether a and b name the same nick or channel.
func (m CaseMapping) Equal(a, b string) bool {
	return m.Fold(a) == m.Fold(b)
}

package auxparse

import "testing"

func TestCaseMapping(t *testing.T) {
	tests := []struct {
		mapping CaseMapping
		a, b    string
		equal   bool
	}{
		{CaseRFC1459, "Nick[A]", "nick{a}", true},
		{CaseRFC1459, "a\\b^", "A|B~", true},
		{CaseStrictRFC1459, "a[b]\\", "A{B}|", true},
		{CaseStrictRFC1459, "a^", "a~", false},
		{CaseASCII, "NICK", "nick", true},
		{CaseASCII, "nick[", "nick{", false},
		{CaseASCII, "ÉCOLE", "école", false},
		{CaseUnicode, "ÉCOLE", "école", true},
	}
	for _, tt := range tests {
		if got := tt.mapping.Equal(tt.a, tt.b); got != tt.equal {
			t.Errorf("%s.Equal(%q, %q) = %v, want %v", tt.mapping, tt.a, tt.b, got, tt.equal)
		}
	}
}

func TestParseCaseMapping(t *testing.T) {
	tests := map[string]CaseMapping{
		"ascii":          CaseASCII,
		"RFC1459":        CaseRFC1459,
		"strict-rfc1459": CaseStrictRFC1459,
		"rfc7613":        CaseUnicode,
	}
	for name, want := range tests {
		if got := ParseCaseMapping(name); got != want {
			t.Errorf("ParseCaseMapping(%q) = %s, want %s", name, got, want)
		}
	}
}

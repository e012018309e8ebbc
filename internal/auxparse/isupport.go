package auxparse

import (
	"log"
	"strconv"
	"strings"
)

// Kind says which shape an ISUPPORT value has.
type Kind int

const (
	KindFlag    Kind = iota // TOKEN
	KindString              // TOKEN=value
	KindPair                // TOKEN=key:value
	KindList                // TOKEN=a,b:c,...
	KindRemoved             // -TOKEN
)

// Item is one comma-separated part of an ISUPPORT value. IsPair is set when
// the part contained a ':'; HasValue is false for "key:" with nothing after.
type Item struct {
	Key      string
	Value    string
	IsPair   bool
	HasValue bool
}

func (it Item) String() string {
	if !it.IsPair {
		return it.Key
	}
	return it.Key + ":" + it.Value
}

// Value is a parsed ISUPPORT value.
type Value struct {
	Kind  Kind
	Items []Item
}

// String returns the value of a KindString token, or the raw text of any
// other kind.
func (v Value) String() string {
	return v.Raw()
}

// Raw reassembles the value text as the server sent it.
func (v Value) Raw() string {
	parts := make([]string, len(v.Items))
	for i, it := range v.Items {
		parts[i] = it.String()
	}
	return strings.Join(parts, ",")
}

// Pair returns the single sub-key/value pair of a KindPair token.
func (v Value) Pair() (Item, bool) {
	if v.Kind != KindPair {
		return Item{}, false
	}
	return v.Items[0], true
}

// List returns the parts of the value. Single values come back as a
// one-element slice.
func (v Value) List() []Item {
	return v.Items
}

// ISupport holds ISUPPORT tokens by name.
type ISupport map[string]Value

// ParseISupport parses the tokens of a single 005 line (the parameters
// between the target nick and the trailing text).
func ParseISupport(tokens []string) ISupport {
	is := make(ISupport, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if tok[0] == '-' {
			is[tok[1:]] = Value{Kind: KindRemoved}
			continue
		}

		key, value, _ := strings.Cut(tok, "=")
		if value == "" {
			is[key] = Value{Kind: KindFlag}
			continue
		}

		parts := strings.Split(value, ",")
		v := Value{Items: make([]Item, len(parts))}
		for i, part := range parts {
			k, data, sep := strings.Cut(part, ":")
			if !sep {
				v.Items[i] = Item{Key: part}
				continue
			}
			v.Items[i] = Item{Key: k, Value: data, IsPair: true, HasValue: data != ""}
		}

		switch {
		case len(v.Items) > 1:
			v.Kind = KindList
		case v.Items[0].IsPair:
			v.Kind = KindPair
		default:
			v.Kind = KindString
		}
		is[key] = v
	}
	return is
}

// Merge applies a parsed delta. Removed tokens are deleted.
func (is ISupport) Merge(delta ISupport) {
	for k, v := range delta {
		if v.Kind == KindRemoved {
			delete(is, k)
			continue
		}
		is[k] = v
	}
}

// Has reports whether a token is present.
func (is ISupport) Has(key string) bool {
	_, ok := is[key]
	return ok
}

// String returns the raw value of key, or def when the token is absent or
// is a bare flag.
func (is ISupport) String(key, def string) string {
	v, ok := is[key]
	if !ok || v.Kind == KindFlag {
		return def
	}
	return v.Raw()
}

// Int returns the integer value of key, or def.
func (is ISupport) Int(key string, def int) int {
	v, ok := is[key]
	if !ok || v.Kind != KindString {
		return def
	}
	n, err := strconv.Atoi(v.Items[0].Key)
	if err != nil {
		log.Printf("isupport: %s=%q is not a number", key, v.Items[0].Key)
		return def
	}
	return n
}

// ModeGroups holds the four CHANMODES groups: A (list modes), B (always a
// parameter), C (parameter only when set) and D (never a parameter).
type ModeGroups [4]string

// DefaultChanModes is what RFC1459 servers implicitly support.
var DefaultChanModes = ModeGroups{"b", "k", "l", "imnpst"}

// ParseChanModes parses a CHANMODES value. Groups beyond the fourth are
// ignored and missing groups are empty.
func ParseChanModes(raw string) ModeGroups {
	var g ModeGroups
	parts := strings.SplitN(raw, ",", 5)
	for i := 0; i < len(parts) && i < 4; i++ {
		g[i] = parts[i]
	}
	return g
}

// A returns the list-mode group.
func (g ModeGroups) A() string { return g[0] }

// B returns the always-parameter group.
func (g ModeGroups) B() string { return g[1] }

// C returns the parameter-when-set group.
func (g ModeGroups) C() string { return g[2] }

// D returns the flag group.
func (g ModeGroups) D() string { return g[3] }

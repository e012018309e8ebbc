package line

import "strings"

// Hostmask is the source of a line: nick!user@host, nick@host, or a bare
// server name (host only). Other combinations of fields cannot be sent;
// Valid reports them.
type Hostmask struct {
	Nick string
	User string
	Host string
}

// ParseHostmask parses a source token (without the leading ':').
// It returns nil for an empty string.
//
// Without an '@' the whole token is taken as a host, which is what servers
// send as the source of their own lines.
func ParseHostmask(raw string) *Hostmask {
	if raw == "" {
		return nil
	}

	h := &Hostmask{}
	at := strings.IndexByte(raw, '@')
	if at < 0 {
		h.Host = raw
		return h
	}

	h.Host = raw[at+1:]
	nu := raw[:at]
	if bang := strings.IndexByte(nu, '!'); bang >= 0 {
		h.Nick = nu[:bang]
		h.User = nu[bang+1:]
	} else {
		h.Nick = nu
	}
	return h
}

// String returns the canonical form, built from the current fields.
func (h *Hostmask) String() string {
	if h == nil {
		return ""
	}

	switch {
	case h.Nick == "" && h.User == "":
		return h.Host
	case h.Host == "" && h.User == "":
		return h.Nick
	case h.Host == "":
		return h.Nick + "!" + h.User
	case h.User == "":
		return h.Nick + "@" + h.Host
	}
	return h.Nick + "!" + h.User + "@" + h.Host
}

// Valid reports whether h is one of the three forms that parse back to the
// same fields. A nick or user without a host would be read as a host.
func (h *Hostmask) Valid() bool {
	if h == nil {
		return true
	}
	if h.Host == "" || strings.ContainsAny(h.Nick+h.User+h.Host, " \r\n\x00") {
		return false
	}
	if strings.ContainsAny(h.Nick, "!@") || strings.Contains(h.User, "@") {
		return false
	}
	if h.Nick == "" {
		return h.User == "" && !strings.Contains(h.Host, "@")
	}
	return true
}

// Equal compares the nick, user and host fields.
func (h *Hostmask) Equal(o *Hostmask) bool {
	if h == nil || o == nil {
		return h == o
	}
	return h.Nick == o.Nick && h.User == o.User && h.Host == o.Host
}

// IsServer reports whether the hostmask carries only a host.
func (h *Hostmask) IsServer() bool {
	return h != nil && h.Nick == "" && h.User == "" && h.Host != ""
}

package line

import (
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Tag is a single IRCv3 message tag. HasValue distinguishes "key" (no value
// at all) from "key=" (present but empty).
type Tag struct {
	Key      string
	Value    string
	HasValue bool
}

// Tags is an ordered set of message tags. It is never mutated after parsing.
type Tags struct {
	list []Tag
}

// NewTags builds a Tags value from the given tags, keeping their order.
// Later duplicates of a key replace the earlier value in place.
func NewTags(tags ...Tag) *Tags {
	t := &Tags{}
	for _, tag := range tags {
		t.set(tag)
	}
	return t
}

// ParseTags parses the tag block of a line, without the leading '@'.
// It returns nil for an empty block.
func ParseTags(raw string) *Tags {
	if raw == "" {
		return nil
	}

	t := &Tags{}
	for _, part := range strings.Split(raw, ";") {
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if key == "" {
			continue
		}
		tag := Tag{Key: key, HasValue: found}
		if found {
			tag.Value = ircmsg.UnescapeTagValue(value)
		}
		t.set(tag)
	}
	if len(t.list) == 0 {
		return nil
	}
	return t
}

func (t *Tags) set(tag Tag) {
	for i := range t.list {
		if t.list[i].Key == tag.Key {
			t.list[i] = tag
			return
		}
	}
	t.list = append(t.list, tag)
}

// Get returns the value of key. ok reports whether the tag is present at all.
func (t *Tags) Get(key string) (value string, hasValue bool, ok bool) {
	if t == nil {
		return "", false, false
	}
	for _, tag := range t.list {
		if tag.Key == key {
			return tag.Value, tag.HasValue, true
		}
	}
	return "", false, false
}

// Has reports whether key is present.
func (t *Tags) Has(key string) bool {
	_, _, ok := t.Get(key)
	return ok
}

// Len returns the number of tags.
func (t *Tags) Len() int {
	if t == nil {
		return 0
	}
	return len(t.list)
}

// All returns a copy of the tags in wire order.
func (t *Tags) All() []Tag {
	if t == nil {
		return nil
	}
	out := make([]Tag, len(t.list))
	copy(out, t.list)
	return out
}

// Keys returns the tag keys in wire order.
func (t *Tags) Keys() []string {
	if t == nil {
		return nil
	}
	keys := make([]string, len(t.list))
	for i, tag := range t.list {
		keys[i] = tag.Key
	}
	return keys
}

// Equal reports whether both tag sets hold the same tags in the same order.
func (t *Tags) Equal(o *Tags) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := 0; i < t.Len(); i++ {
		if t.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// String serializes the tags without the leading '@'.
func (t *Tags) String() string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for i, tag := range t.list {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(tag.Key)
		if tag.HasValue {
			b.WriteByte('=')
			b.WriteString(ircmsg.EscapeTagValue(tag.Value))
		}
	}
	return b.String()
}

package nostr

import "slices"

type Tag []string

type Tags []Tag

// Find returns the first tag with the given key that also has a value
// (i.e. at least 2 items), or nil.
func (tags Tags) Find(key string) Tag {
	for _, v := range tags {
		if len(v) >= 2 && v[0] == key {
			return v
		}
	}
	return nil
}

// FindWithMarker returns the first tag with the given key whose fourth
// item is the given NIP-10 marker ("root", "reply", "mention"), or nil.
func (tags Tags) FindWithMarker(key, marker string) Tag {
	for _, v := range tags {
		if len(v) >= 4 && v[0] == key && v[3] == marker {
			return v
		}
	}
	return nil
}

// FindLast is like Find, but starts at the end.
func (tags Tags) FindLast(key string) Tag {
	for i := len(tags) - 1; i >= 0; i-- {
		v := tags[i]
		if len(v) >= 2 && v[0] == key {
			return v
		}
	}
	return nil
}

// ContainsAny reports whether any tag with the given key has a value
// present in values.
func (tags Tags) ContainsAny(key string, values []string) bool {
	for _, tag := range tags {
		if len(tag) < 2 {
			continue
		}

		if tag[0] != key {
			continue
		}

		if slices.Contains(values, tag[1]) {
			return true
		}
	}

	return false
}

// marshalTo appends the JSON encoded tags to dst using the same escaping
// rules as the canonical event serialization.
func (tags Tags) marshalTo(dst []byte) []byte {
	dst = append(dst, '[')
	for i, tag := range tags {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, '[')
		for j, item := range tag {
			if j > 0 {
				dst = append(dst, ',')
			}
			dst = escapeString(dst, item)
		}
		dst = append(dst, ']')
	}
	return append(dst, ']')
}

// Package resolve looks up dotted, indexed paths such as
// "users[0].address?.city" in a render context.
//
// A segment is an identifier, an optional "[n]" index and an optional
// trailing "?". Lookups are own-key only. Once a segment marked "?" is
// reached, any later miss stops resolution and yields the empty string;
// misses before any optional segment are errors. A type mismatch on an
// indexed segment is always an error.
package resolve

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
)

// Segment is one dot-separated step of a path.
type Segment struct {
	Key      string
	Index    int
	Indexed  bool
	Optional bool
}

// String renders the segment back in path syntax.
func (s Segment) String() string {
	var b strings.Builder
	b.WriteString(s.Key)
	if s.Indexed {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteByte(']')
	}
	if s.Optional {
		b.WriteByte('?')
	}

	return b.String()
}

var indexedKey = regexp.MustCompile(`^([\w-]+)\[(-?\d+)\]$`)

// Parse splits path into segments.
func Parse(path string) []Segment {
	parts := strings.Split(path, ".")
	segments := make([]Segment, 0, len(parts))

	for _, part := range parts {
		segments = append(segments, parseSegment(part))
	}

	return segments
}

func parseSegment(raw string) Segment {
	raw = strings.TrimSpace(raw)

	var seg Segment
	if strings.HasSuffix(raw, "?") {
		seg.Optional = true
		raw = strings.TrimSpace(strings.TrimSuffix(raw, "?"))
	}

	if m := indexedKey.FindStringSubmatch(raw); m != nil {
		if idx, err := strconv.Atoi(m[2]); err == nil {
			seg.Key = m[1]
			seg.Index = idx
			seg.Indexed = true

			return seg
		}
	}

	seg.Key = raw

	return seg
}

// Resolve looks up path in ctx and returns the stringified value.
func Resolve(ctx data.Context, path string) (string, error) {
	value, found, err := Lookup(ctx, path)
	if err != nil || !found {
		return "", err
	}

	return data.Stringify(value), nil
}

// Lookup returns the raw value at path. found is false when an optional
// segment short-circuited the walk.
func Lookup(ctx data.Context, path string) (value any, found bool, err error) {
	return walk(ctx, Parse(path))
}

func walk(ctx data.Context, segments []Segment) (any, bool, error) {
	var track any = ctx
	prev := ""
	optional := false

	for _, seg := range segments {
		optional = optional || seg.Optional

		child, ok := property(track, seg.Key)
		if !ok {
			if optional {
				return nil, false, nil
			}
			return nil, false, markuperrors.PropertyNotFound(seg.Key, prev)
		}

		if seg.Indexed {
			items, isSeq := data.AsSlice(child)
			if !isSeq {
				return nil, false, markuperrors.NotAnArray(seg.Key)
			}

			if seg.Index < 0 || seg.Index >= len(items) {
				if optional {
					return nil, false, nil
				}
				return nil, false, markuperrors.IndexOutOfBounds(seg.Key, seg.Index)
			}

			child = items[seg.Index]
		}

		track = child
		prev = seg.Key
	}

	return track, true, nil
}

// property returns the own property key of v. Maps expose their keys,
// sequences expose "length" and their numeric indices, strings expose
// "length".
func property(v any, key string) (any, bool) {
	if data.IsMap(v) {
		return data.Field(v, key)
	}

	if s, ok := v.(string); ok {
		if key == "length" {
			return utf8.RuneCountInString(s), true
		}
		return nil, false
	}

	if items, ok := data.AsSlice(v); ok {
		if key == "length" {
			return len(items), true
		}
		if idx, err := strconv.Atoi(key); err == nil && strconv.Itoa(idx) == key && idx >= 0 && idx < len(items) {
			return items[idx], true
		}
	}

	return nil, false
}

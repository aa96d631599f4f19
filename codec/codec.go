// Package codec converts setting values to and from the single stored-string
// representation shared by every storage backend.
//
// Plain strings pass through untouched so stored data stays readable; only a
// leading '@' is escaped by doubling it, because '@' introduces the tagged
// forms used for everything that is not a plain string. Numbers and booleans
// render as their canonical decimal text and deliberately parse back as
// strings, since the reader declares the wanted type and coercion happens
// there. Parsing never fails: unrecognized input is returned verbatim as a
// string.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	tagInvalid   = "@Invalid()"
	tagByteArray = "@ByteArray("
	tagString    = "@String("
	tagList      = "@List("
	tagDateTime  = "@DateTime("
)

// Render converts a value into its stored-string form.
func Render(value any) string {
	switch v := value.(type) {
	case nil:
		return tagInvalid
	case string:
		return renderString(v)
	case []byte:
		return tagByteArray + string(v) + ")"
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return tagDateTime + v.Format(time.RFC3339Nano) + ")"
	case []string:
		elems := make([]string, len(v))
		for i, e := range v {
			elems[i] = escapeElement(renderString(e))
		}
		return tagList + strings.Join(elems, ", ") + ")"
	case []any:
		elems := make([]string, len(v))
		for i, e := range v {
			elems[i] = escapeElement(Render(e))
		}
		return tagList + strings.Join(elems, ", ") + ")"
	default:
		return renderString(fmt.Sprint(v))
	}
}

// Parse converts a stored string back into a value. Tagged forms yield their
// original type; everything else comes back as the string itself, including
// rendered numbers and booleans.
func Parse(stored string) any {
	if !strings.HasPrefix(stored, "@") {
		return stored
	}

	if strings.HasSuffix(stored, ")") {
		switch {
		case stored == tagInvalid:
			return nil
		case strings.HasPrefix(stored, tagByteArray):
			return []byte(stored[len(tagByteArray) : len(stored)-1])
		case strings.HasPrefix(stored, tagString):
			return stored[len(tagString) : len(stored)-1]
		case strings.HasPrefix(stored, tagDateTime):
			inner := stored[len(tagDateTime) : len(stored)-1]
			if t, err := time.Parse(time.RFC3339Nano, inner); err == nil {
				return t
			}
			return stored
		case strings.HasPrefix(stored, tagList):
			inner := stored[len(tagList) : len(stored)-1]
			elems := splitElements(inner)
			values := make([]any, len(elems))
			for i, e := range elems {
				values[i] = Parse(e)
			}
			return values
		}
	}

	if strings.HasPrefix(stored, "@@") {
		return stored[1:]
	}
	return stored
}

func renderString(s string) string {
	if strings.ContainsRune(s, 0) {
		return tagString + s + ")"
	}
	if strings.HasPrefix(s, "@") {
		return "@" + s
	}
	return s
}

// escapeElement protects the list element separators. Backslash and comma
// are the only characters with meaning inside a rendered list.
func escapeElement(s string) string {
	if !strings.ContainsAny(s, `\,`) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\', ',':
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// splitElements splits a rendered list body on unescaped commas and removes
// the element escaping again. An empty body yields no elements.
func splitElements(inner string) []string {
	if inner == "" {
		return nil
	}

	var elems []string
	var sb strings.Builder
	for i := 0; i < len(inner); i++ {
		switch c := inner[i]; c {
		case '\\':
			if i+1 < len(inner) {
				i++
				sb.WriteByte(inner[i])
			}
		case ',':
			elems = append(elems, sb.String())
			sb.Reset()
			// Skip the canonical space after the separator.
			if i+1 < len(inner) && inner[i+1] == ' ' {
				i++
			}
		default:
			sb.WriteByte(c)
		}
	}
	elems = append(elems, sb.String())
	return elems
}

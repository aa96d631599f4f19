package inifile

import (
	"bytes"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// Logical keys map onto the INI document by their first path segment:
// "window/width" lands in section [window] as key "width", single-segment
// keys land in [General]. A settings group literally named General is
// written as [%General] so it cannot collide with the root section.
const (
	rootSection        = "General"
	escapedRootSection = "%General"
)

const hexDigits = "0123456789ABCDEF"

// sectionAndKey splits a logical key into its INI coordinates. Root keys
// report an empty section.
func sectionAndKey(logical string) (string, string) {
	slash := strings.IndexByte(logical, '/')
	if slash < 0 {
		return "", logical
	}
	return logical[:slash], logical[slash+1:]
}

// sectionName maps a logical section to the name written in the document.
func sectionName(section string) string {
	switch section {
	case "":
		return rootSection
	case rootSection:
		return escapedRootSection
	}
	return iniEscape(section, "[];#")
}

// logicalSection reverses sectionName for a name read from the document.
func logicalSection(name string) string {
	switch name {
	case rootSection, ini.DefaultSection:
		return ""
	case escapedRootSection:
		return rootSection
	}
	return iniUnescape(name)
}

// serialize renders the merged key view as a deterministic INI document:
// General first, the remaining sections and all keys in lexical order.
func serialize(view map[string]string) ([]byte, error) {
	sections := make(map[string]map[string]string)
	for logical, value := range view {
		section, key := sectionAndKey(logical)
		if sections[section] == nil {
			sections[section] = make(map[string]string)
		}
		sections[section][key] = value
	}

	names := make([]string, 0, len(sections))
	for name := range sections {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := sections[""]; ok {
		names = append([]string{""}, names...)
	}

	doc := ini.Empty()
	for _, name := range names {
		sec, err := doc.NewSection(sectionName(name))
		if err != nil {
			return nil, err
		}

		keys := make([]string, 0, len(sections[name]))
		for key := range sections[name] {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			if _, err := sec.NewKey(iniEscape(key, "=:;#[]"), iniEscape(sections[name][key], `;#"`)); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parse reads an INI document back into a logical key view.
func parse(blob []byte) (map[string]string, error) {
	doc, err := ini.Load(blob)
	if err != nil {
		return nil, err
	}

	view := make(map[string]string)
	for _, sec := range doc.Sections() {
		section := logicalSection(sec.Name())
		for _, key := range sec.Keys() {
			name := iniUnescape(key.Name())
			if name == "" {
				continue
			}

			logical := name
			if section != "" {
				logical = section + "/" + name
			}
			view[logical] = iniUnescape(key.Value())
		}
	}

	return view, nil
}

// iniEscape percent-encodes the bytes that would disturb the INI structure:
// '%' itself, control bytes, the given specials, and edge whitespace. UTF-8
// multibyte sequences pass through untouched.
func iniEscape(s string, specials string) string {
	needs := func(i int, c byte) bool {
		if c == '%' || c < 0x20 || c == 0x7F {
			return true
		}
		if strings.IndexByte(specials, c) >= 0 {
			return true
		}
		return (c == ' ' || c == '\t') && (i == 0 || i == len(s)-1)
	}

	escaped := false
	for i := 0; i < len(s); i++ {
		if needs(i, s[i]) {
			escaped = true
			break
		}
	}
	if !escaped {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needs(i, c) {
			sb.WriteByte('%')
			sb.WriteByte(hexDigits[c>>4])
			sb.WriteByte(hexDigits[c&0xF])
		} else {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// iniUnescape reverses iniEscape. Malformed escapes are kept verbatim.
func iniUnescape(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+2 < len(s) {
			hi := hexValue(s[i+1])
			lo := hexValue(s[i+2])
			if hi >= 0 && lo >= 0 {
				sb.WriteByte(byte(hi<<4 | lo))
				i += 2
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	}
	return -1
}

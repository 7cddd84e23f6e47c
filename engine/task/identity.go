package task

import (
	"strconv"
	"strings"
	"unicode"
)

// Dialect selects the id character rules. YAML-style dialects reserve the
// colon, so it is rewritten on derivation and rejected on validation.
type Dialect int

const (
	DialectDefault Dialect = iota
	DialectYAML
)

func DialectFor(yamlMode bool) Dialect {
	if yamlMode {
		return DialectYAML
	}
	return DialectDefault
}

func (d Dialect) AllowsColon() bool {
	return d != DialectYAML
}

func (d Dialect) String() string {
	if d == DialectYAML {
		return "yaml"
	}
	return "default"
}

// DefaultName is the name given to an unnamed task at position index.
func DefaultName(index int) string {
	return "task-" + strconv.Itoa(index)
}

// NormalizeID assigns or validates t's id in place.
//
// An unnamed task is named task-{index}; when it has no id either, the id
// takes the same value. A named task without an id gets one derived from its
// name. An explicit id is validated and left untouched.
func NormalizeID(t *Task, index int, d Dialect) error {
	if t.Name == "" {
		t.Name = DefaultName(index)
		if t.ID == "" {
			t.ID = t.Name
			return nil
		}
	}
	if t.ID == "" {
		t.ID = DeriveID(t.Name, d)
		return nil
	}
	return ValidateID(t.ID, d)
}

// DeriveID transliterates a task name into an id: '_' and '-' are kept,
// spaces become '-', ':' is kept or becomes '-' depending on the dialect,
// letters and digits are lower-cased, and every other character is dropped.
func DeriveID(name string, d Dialect) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			sb.WriteRune(r)
		case r == ':':
			if d.AllowsColon() {
				sb.WriteRune(r)
			} else {
				sb.WriteRune('-')
			}
		case r == ' ':
			sb.WriteRune('-')
		case isLetterOrDigit(r):
			sb.WriteRune(unicode.ToLower(r))
		}
	}
	return sb.String()
}

// ValidateID checks that id is non-empty and that every character is a
// letter, digit, '_', '-' or, when the dialect allows it, ':'.
func ValidateID(id string, d Dialect) error {
	if id == "" {
		return &InvalidIdentifierError{Dialect: d, Position: -1}
	}
	for i, r := range id {
		if isLetterOrDigit(r) || r == '_' || r == '-' {
			continue
		}
		if r == ':' && d.AllowsColon() {
			continue
		}
		return &InvalidIdentifierError{ID: id, Char: r, Position: i, Dialect: d}
	}
	return nil
}

func isLetterOrDigit(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

package sku

import "strings"

type Parser struct {
	prefix           string
	separator        string
	categoryField    int
	subcategoryField int
}

type Parsed struct {
	Category    string
	Subcategory string
	Suffix      string
}

func New(prefix, separator string, categoryField, subcategoryField int) Parser {
	return Parser{
		prefix:           strings.ToUpper(strings.TrimSpace(prefix)),
		separator:        separator,
		categoryField:    categoryField,
		subcategoryField: subcategoryField,
	}
}

// Parse returns ok=false for anything that is not a well-formed identifier;
// foreign SKUs are rejected, never errored.
func (p Parser) Parse(raw string) (Parsed, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return Parsed{}, false
	}
	if s != p.prefix && !strings.HasPrefix(s, p.prefix+p.separator) {
		return Parsed{}, false
	}

	fields := strings.Split(s, p.separator)
	last := p.categoryField
	if p.subcategoryField > last {
		last = p.subcategoryField
	}
	if len(fields) <= last {
		return Parsed{}, false
	}

	category := fields[p.categoryField]
	subcategory := fields[p.subcategoryField]
	if category == "" || subcategory == "" {
		return Parsed{}, false
	}

	suffix := ""
	if len(fields) > last+1 {
		suffix = strings.Join(fields[last+1:], p.separator)
	}

	return Parsed{Category: category, Subcategory: subcategory, Suffix: suffix}, true
}

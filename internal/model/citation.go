package model

import (
	"encoding/json"
	"strings"
)

type LegalReference struct {
	Name string  `json:"name"`
	URL  *string `json:"url"`
}

func NewLegalReference(name, url string) LegalReference {
	ref := LegalReference{Name: strings.TrimSpace(name)}
	if url != "" {
		ref.URL = &url
	}
	return ref
}

func (r LegalReference) HasURL() bool {
	return r.URL != nil && *r.URL != ""
}

func (r LegalReference) URLString() string {
	if r.URL == nil {
		return ""
	}
	return *r.URL
}

func (r LegalReference) clone() LegalReference {
	if r.URL == nil {
		return r
	}
	url := *r.URL
	return LegalReference{Name: r.Name, URL: &url}
}

// Citation is one legal reference as emitted by the analysis model: either a
// bare string or an object with a name and an optional url.
type Citation interface {
	Reference() LegalReference
}

type StringCitation string

func (c StringCitation) Reference() LegalReference {
	return NewLegalReference(string(c), "")
}

type ObjectCitation struct {
	Name string
	URL  string
}

func (c ObjectCitation) Reference() LegalReference {
	return NewLegalReference(c.Name, c.URL)
}

// ParseCitation decodes a single citation. Values that are neither strings
// nor objects are kept as their literal JSON text. A JSON null yields nil.
func ParseCitation(raw json.RawMessage) (Citation, error) {
	trimmed := trimJSON(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return StringCitation(s), nil
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		name, ok := obj["name"].(string)
		if !ok {
			name = string(trimmed)
		}
		url, _ := obj["url"].(string)
		return ObjectCitation{Name: name, URL: url}, nil
	default:
		return StringCitation(string(trimmed)), nil
	}
}

// DecodeCitations accepts a list of citations, a single citation, or null,
// and normalizes every entry into a LegalReference.
func DecodeCitations(raw json.RawMessage) ([]LegalReference, error) {
	trimmed := trimJSON(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []LegalReference{}, nil
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
	} else {
		items = []json.RawMessage{trimmed}
	}

	refs := make([]LegalReference, 0, len(items))
	for _, item := range items {
		citation, err := ParseCitation(item)
		if err != nil {
			return nil, err
		}
		if citation == nil {
			continue
		}
		refs = append(refs, citation.Reference())
	}
	return refs, nil
}

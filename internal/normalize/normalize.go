package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
)

// Record is one raw case-law record as decoded from a source file. Sources
// (Harvard CAP, CourtListener, Justia exports) disagree on almost every field
// name, so extraction goes through ordered fallback rules.
type Record map[string]interface{}

// CaseRecord is the canonical post-normalization shape. Optional fields are
// empty strings when the source carries nothing usable.
type CaseRecord struct {
	ID           string
	Court        string
	Citation     string
	DecisionDate string
	Title        string
	Jurisdiction string
	Reporter     string
	CaseType     string
	SourcePath   string
	HasFullText  bool
}

// fieldRule pairs a source key with the transform that coerces its value to a
// string. Rules are evaluated in order; the first non-empty result wins.
type fieldRule struct {
	key       string
	transform func(interface{}) string
}

var (
	idRules = []fieldRule{
		{"id", asString},
		{"case_id", asString},
		{"uuid", asString},
		{"cluster_id", asString},
	}
	courtRules = []fieldRule{
		{"court", nameOrSlug},
	}
	citationRules = []fieldRule{
		{"citation", asString},
		{"case_name_full", asString},
		{"citations", firstCitation},
	}
	dateRules = []fieldRule{
		{"decision_date", asString},
		{"date", asString},
		{"date_filed", asString},
		{"date_created", asString},
	}
	titleRules = []fieldRule{
		{"name", asString},
		{"title", asString},
		{"case_name", asString},
		{"case_name_short", asString},
	}
	jurisdictionRules = []fieldRule{
		{"jurisdiction", nameOrSlug},
	}
	reporterRules = []fieldRule{
		{"reporter", asString},
		{"volume", asString},
	}
	caseTypeRules = []fieldRule{
		{"type", asString},
		{"case_type", asString},
	}
)

// fullTextKeys are the field names whose presence marks a record as carrying
// the opinion body.
var fullTextKeys = []string{"casebody", "plain_text", "html", "text"}

// caseTypeKeywords maps inferred case types to title substrings, checked in
// this order.
var caseTypeKeywords = []struct {
	caseType string
	words    []string
}{
	{"criminal", []string{"criminal", "people v", "state v", "commonwealth v"}},
	{"contract", []string{"contract", "breach"}},
	{"employment", []string{"employ", "discriminat"}},
}

// Normalize maps one raw record into the canonical schema. It never fails:
// every extraction falls back to an empty value, the id falls back to a
// content hash, and the case type defaults to "general".
func Normalize(rec Record, sourcePath string) CaseRecord {
	out := CaseRecord{
		ID:           resolve(rec, idRules),
		Court:        resolve(rec, courtRules),
		Citation:     resolve(rec, citationRules),
		DecisionDate: resolve(rec, dateRules),
		Title:        resolve(rec, titleRules),
		Jurisdiction: resolve(rec, jurisdictionRules),
		Reporter:     resolve(rec, reporterRules),
		CaseType:     resolve(rec, caseTypeRules),
		SourcePath:   sourcePath,
		HasFullText:  hasFullText(rec),
	}

	if out.ID == "" {
		out.ID = contentHash(rec)
	}
	if out.CaseType == "" {
		out.CaseType = inferCaseType(out.Title)
	}

	return out
}

func resolve(rec Record, rules []fieldRule) string {
	for _, rule := range rules {
		v, ok := rec[rule.key]
		if !ok || v == nil {
			continue
		}
		if s := rule.transform(v); s != "" {
			return s
		}
	}
	return ""
}

// contentHash hashes a canonical serialization of the record so that two
// logically identical records produce the same derived id regardless of key
// order in the source file. encoding/json writes map keys in sorted order,
// which provides the canonical form.
func contentHash(rec Record) string {
	data, err := json.Marshal(rec)
	if err != nil {
		// Raw records come from json.Unmarshal, so this cannot happen for
		// well-formed input; fall back to hashing the formatted value.
		data = []byte(asString(map[string]interface{}(rec)))
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func inferCaseType(title string) string {
	lower := strings.ToLower(title)
	if lower != "" {
		for _, entry := range caseTypeKeywords {
			for _, w := range entry.words {
				if strings.Contains(lower, w) {
					return entry.caseType
				}
			}
		}
	}
	return "general"
}

// hasFullText reports whether any full-text field carries substance. Empty
// strings, false, zero, and empty containers all count as absent.
func hasFullText(rec Record) bool {
	for _, key := range fullTextKeys {
		v, ok := rec[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return true
			}
		case bool:
			if t {
				return true
			}
		case float64:
			if t != 0 {
				return true
			}
		case map[string]interface{}:
			if len(t) > 0 {
				return true
			}
		case []interface{}:
			if len(t) > 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// asString coerces an arbitrary decoded JSON value to a string. Whole numbers
// render without a decimal point so numeric ids stay stable.
func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// nameOrSlug handles fields that are either a plain value or a nested object
// with name/slug sub-fields (CourtListener nests courts and jurisdictions).
func nameOrSlug(v interface{}) string {
	if m, ok := v.(map[string]interface{}); ok {
		if s := asString(m["name"]); s != "" {
			return s
		}
		if s := asString(m["slug"]); s != "" {
			return s
		}
		return asString(v)
	}
	return asString(v)
}

// firstCitation extracts the first entry of a citations list; entries are
// either objects with a "cite" field or bare strings.
func firstCitation(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return ""
	}
	if m, isMap := list[0].(map[string]interface{}); isMap {
		return asString(m["cite"])
	}
	return asString(list[0])
}

package analyzer

import (
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
)

// Match strategy names, reported for logging only.
const (
	strategyPlainBody = "plain_body"
	strategyHTMLBody  = "html_body"
	strategyHref      = "href_attribute"
	strategyMention   = "at_mention"
	strategyAttribute = "html_attribute"
	strategyDataAttr  = "data_attribute"
	strategyDomain    = "domain_partial"
)

// MatchPhrase tests a comment against one phrase. Strategies are tried in
// order until one succeeds: case-insensitive substring in the plain body,
// case-insensitive substring in the HTML body, then URL-oriented strategies
// for phrases that look like URLs (href attributes, "@"-prefixed mentions,
// any quoted attribute value, data-* attributes, domain-only partial match).
// Returns the strategy that matched.
func MatchPhrase(comment domain.Comment, phrase string) (string, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return "", false
	}
	lowerPhrase := strings.ToLower(phrase)
	lowerBody := strings.ToLower(comment.Body)
	lowerHTML := strings.ToLower(comment.HTMLBody)

	if strings.Contains(lowerBody, lowerPhrase) {
		return strategyPlainBody, true
	}
	if strings.Contains(lowerHTML, lowerPhrase) {
		return strategyHTMLBody, true
	}
	if !looksLikeURL(lowerPhrase) {
		return "", false
	}

	variants := urlVariants(lowerPhrase)
	if attributeContains(lowerHTML, "href", variants) {
		return strategyHref, true
	}
	for _, variant := range variants {
		if strings.Contains(lowerBody, "@"+variant) || strings.Contains(lowerHTML, "@"+variant) {
			return strategyMention, true
		}
	}
	if anyAttributeContains(lowerHTML, variants, false) {
		return strategyAttribute, true
	}
	if anyAttributeContains(lowerHTML, variants, true) {
		return strategyDataAttr, true
	}
	if host := hostOf(lowerPhrase); host != "" {
		if strings.Contains(lowerBody, host) || strings.Contains(lowerHTML, host) {
			return strategyDomain, true
		}
	}
	return "", false
}

// ContainsAny reports whether the comment's plain or HTML body contains any
// of the given phrases, case-insensitively. Used for exclusion phrases.
func ContainsAny(comment domain.Comment, phrases []string) bool {
	lowerBody := strings.ToLower(comment.Body)
	lowerHTML := strings.ToLower(comment.HTMLBody)
	for _, phrase := range phrases {
		lower := strings.ToLower(strings.TrimSpace(phrase))
		if lower == "" {
			continue
		}
		if strings.Contains(lowerBody, lower) || strings.Contains(lowerHTML, lower) {
			return true
		}
	}
	return false
}

func looksLikeURL(phrase string) bool {
	return strings.HasPrefix(phrase, "http://") ||
		strings.HasPrefix(phrase, "https://") ||
		strings.HasPrefix(phrase, "www.")
}

// urlVariants expands a URL phrase into equivalent spellings: scheme swap,
// optional trailing slash, optional www prefix.
func urlVariants(phrase string) []string {
	seen := map[string]bool{}
	variants := []string{}
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			variants = append(variants, v)
		}
	}

	base := phrase
	add(base)
	switch {
	case strings.HasPrefix(base, "http://"):
		add("https://" + strings.TrimPrefix(base, "http://"))
	case strings.HasPrefix(base, "https://"):
		add("http://" + strings.TrimPrefix(base, "https://"))
	case strings.HasPrefix(base, "www."):
		add("http://" + base)
		add("https://" + base)
	}

	for _, v := range append([]string(nil), variants...) {
		if strings.HasSuffix(v, "/") {
			add(strings.TrimSuffix(v, "/"))
		} else {
			add(v + "/")
		}
	}
	for _, v := range append([]string(nil), variants...) {
		if idx := strings.Index(v, "://www."); idx >= 0 {
			add(v[:idx+3] + v[idx+7:])
		}
	}
	return variants
}

// attributeContains scans for name="value" pairs whose value contains one of
// the variants.
func attributeContains(html, name string, variants []string) bool {
	rest := html
	marker := name + "="
	for {
		idx := strings.Index(rest, marker)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(marker):]
		value, ok := quotedValue(rest)
		if !ok {
			continue
		}
		for _, variant := range variants {
			if strings.Contains(value, variant) {
				return true
			}
		}
	}
}

// anyAttributeContains scans every quoted attribute value in the HTML body.
// With dataOnly set, only data-* attributes are considered.
func anyAttributeContains(html string, variants []string, dataOnly bool) bool {
	rest := html
	for {
		idx := strings.IndexByte(rest, '=')
		if idx < 0 || idx+1 >= len(rest) {
			return false
		}
		attrName := trailingIdentifier(rest[:idx])
		value, ok := quotedValue(rest[idx+1:])
		rest = rest[idx+1:]
		if !ok {
			continue
		}
		if dataOnly && !strings.HasPrefix(attrName, "data-") {
			continue
		}
		for _, variant := range variants {
			if strings.Contains(value, variant) {
				return true
			}
		}
	}
}

// quotedValue extracts the leading quoted string from s, which must start
// with the quote character.
func quotedValue(s string) (string, bool) {
	if len(s) == 0 || (s[0] != '"' && s[0] != '\'') {
		return "", false
	}
	quote := s[0]
	end := strings.IndexByte(s[1:], quote)
	if end < 0 {
		return "", false
	}
	return s[1 : 1+end], true
}

// trailingIdentifier returns the attribute-name-like run at the end of s.
func trailingIdentifier(s string) string {
	end := len(s)
	start := end
	for start > 0 {
		ch := s[start-1]
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' {
			start--
			continue
		}
		break
	}
	return s[start:end]
}

// hostOf extracts the host portion of a URL-looking phrase.
func hostOf(phrase string) string {
	host := phrase
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.IndexAny(host, "/?#"); idx >= 0 {
		host = host[:idx]
	}
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") {
		return ""
	}
	return host
}

package analyzer

import (
	"testing"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestMatchPhrasePlainBody(t *testing.T) {
	comment := domain.Comment{Body: "We have ESCALATED this to a specialized support team."}
	strategy, ok := MatchPhrase(comment, "escalated this to a specialized support team")
	if !ok {
		t.Fatalf("expected match")
	}
	if strategy != "plain_body" {
		t.Fatalf("expected plain_body strategy, got %q", strategy)
	}
}

func TestMatchPhraseHTMLBody(t *testing.T) {
	comment := domain.Comment{
		Body:     "see below",
		HTMLBody: "<p>Could you please PROVIDE the logs?</p>",
	}
	strategy, ok := MatchPhrase(comment, "could you please provide")
	if !ok {
		t.Fatalf("expected match")
	}
	if strategy != "html_body" {
		t.Fatalf("expected html_body strategy, got %q", strategy)
	}
}

func TestMatchPhraseEmptyPhrase(t *testing.T) {
	comment := domain.Comment{Body: "anything"}
	if _, ok := MatchPhrase(comment, "   "); ok {
		t.Fatalf("blank phrase must never match")
	}
}

func TestMatchPhraseHrefVariant(t *testing.T) {
	comment := domain.Comment{
		HTMLBody: `<a href="https://support.example.com/form/">fill this in</a>`,
	}
	strategy, ok := MatchPhrase(comment, "http://support.example.com/form")
	if !ok {
		t.Fatalf("expected href match across scheme and trailing-slash variants")
	}
	if strategy != "href_attribute" {
		t.Fatalf("expected href_attribute strategy, got %q", strategy)
	}
}

func TestMatchPhraseMention(t *testing.T) {
	comment := domain.Comment{Body: "please use @www.example.com/portal for updates"}
	strategy, ok := MatchPhrase(comment, "www.example.com/portal/")
	if !ok {
		t.Fatalf("expected mention match")
	}
	if strategy != "at_mention" {
		t.Fatalf("expected at_mention strategy, got %q", strategy)
	}
}

func TestMatchPhraseDataAttribute(t *testing.T) {
	comment := domain.Comment{
		HTMLBody: `<div data-target='https://portal.example.com/start'>click</div>`,
	}
	strategy, ok := MatchPhrase(comment, "http://portal.example.com/start")
	if !ok {
		t.Fatalf("expected data attribute match")
	}
	// The generic attribute scan runs before the data-only scan and also
	// covers data-* values.
	if strategy != "html_attribute" {
		t.Fatalf("expected html_attribute strategy, got %q", strategy)
	}
}

func TestMatchPhraseDomainPartial(t *testing.T) {
	comment := domain.Comment{Body: "head over to portal.example.com when ready"}
	strategy, ok := MatchPhrase(comment, "https://www.portal.example.com/deep/path?x=1")
	if !ok {
		t.Fatalf("expected domain fallback match")
	}
	if strategy != "domain_partial" {
		t.Fatalf("expected domain_partial strategy, got %q", strategy)
	}
}

func TestMatchPhraseNonURLNoFallback(t *testing.T) {
	comment := domain.Comment{HTMLBody: `<a href="something unrelated">x</a>`}
	if _, ok := MatchPhrase(comment, "unrelated phrase"); ok {
		t.Fatalf("non-URL phrase must not use attribute strategies")
	}
}

func TestContainsAny(t *testing.T) {
	comment := domain.Comment{Body: "This ticket was created by the Migration Tool."}
	if !ContainsAny(comment, []string{"migration tool"}) {
		t.Fatalf("expected exclusion phrase hit")
	}
	if ContainsAny(comment, []string{"", "   ", "other phrase"}) {
		t.Fatalf("blank and unrelated phrases must not hit")
	}
}

func TestURLVariants(t *testing.T) {
	variants := urlVariants("http://www.example.com/path/")
	want := map[string]bool{
		"http://www.example.com/path/":  false,
		"https://www.example.com/path/": false,
		"http://www.example.com/path":   false,
		"https://www.example.com/path":  false,
		"http://example.com/path/":      false,
		"https://example.com/path/":     false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for v, seen := range want {
		if !seen {
			t.Fatalf("variant %q missing from %v", v, variants)
		}
	}
}

func TestHostOf(t *testing.T) {
	if host := hostOf("https://www.example.com/a?b=c"); host != "example.com" {
		t.Fatalf("unexpected host %q", host)
	}
	if host := hostOf("http://localhost/x"); host != "" {
		t.Fatalf("dotless host must be rejected, got %q", host)
	}
}

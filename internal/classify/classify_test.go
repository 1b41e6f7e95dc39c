package classify

import (
	"testing"

	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

func detailWithSubject(subject string) gc.MessageDetail {
	return gc.MessageDetail{
		ID: "m1",
		Headers: []gc.Header{
			{Name: "From", Value: "warm@example.com"},
			{Name: "Subject", Value: subject},
		},
	}
}

func TestTagPolicySubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    bool
	}{
		{name: "tag-present", subject: "Quick question YCEWFAF about pricing", want: true},
		{name: "tag-at-end", subject: "hello | YCEWFAF", want: true},
		{name: "tag-absent", subject: "Quick question about pricing", want: false},
		{name: "empty-subject", subject: "", want: false},
		{name: "case-differs", subject: "quick ycewfaf question", want: false},
	}

	policy := TagPolicy{Tag: "YCEWFAF"}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Match(detailWithSubject(tc.subject)); got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.subject, got, tc.want)
			}
		})
	}
}

func TestTagPolicyNoSubjectHeader(t *testing.T) {
	policy := TagPolicy{Tag: "YCEWFAF"}
	d := gc.MessageDetail{ID: "m2", Headers: []gc.Header{{Name: "From", Value: "a@b.c"}}}
	if policy.Match(d) {
		t.Fatalf("matched a message without a Subject header")
	}
}

func TestTagPolicyEmptyTagNeverMatches(t *testing.T) {
	policy := TagPolicy{}
	if policy.Match(detailWithSubject("anything at all")) {
		t.Fatalf("empty tag must never match")
	}
}

func TestTagPolicyBodyFallback(t *testing.T) {
	policy := TagPolicy{Tag: "YCEWFAF", ScanBody: true}

	d := detailWithSubject("totally ordinary subject")
	d.Parts = []gc.BodyPart{
		{MIMEType: "image/png", Data: []byte("YCEWFAF")},
		{MIMEType: "text/plain", Data: []byte("hi there YCEWFAF bye")},
	}
	if !policy.Match(d) {
		t.Fatalf("expected body fallback to match text/plain part")
	}

	// fallback disabled: same message must not match
	policy.ScanBody = false
	if policy.Match(d) {
		t.Fatalf("matched body content with ScanBody disabled")
	}

	// non-text parts are never scanned
	d.Parts = []gc.BodyPart{{MIMEType: "application/pdf", Data: []byte("YCEWFAF")}}
	policy.ScanBody = true
	if policy.Match(d) {
		t.Fatalf("matched a non-text body part")
	}
}

func TestPatternPolicy(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    bool
	}{
		{name: "canonical", subject: "Re: hello | AB12CD3 XY98Z12", want: true},
		{name: "single-token", subject: "Re: hello | AB12CD3", want: false},
		{name: "short-token", subject: "Re: hello | AB12CD3 XY98Z1", want: false},
		{name: "long-token", subject: "Re: hello | AB12CD3 XY98Z123", want: false},
		{name: "no-pipe", subject: "Re: hello AB12CD3 XY98Z12", want: false},
		{name: "trailing-text", subject: "Re: hello | AB12CD3 XY98Z12 tail", want: false},
		{name: "empty", subject: "", want: false},
	}

	policy := NewPatternPolicy()
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.Match(detailWithSubject(tc.subject)); got != tc.want {
				t.Fatalf("Match(%q) = %v, want %v", tc.subject, got, tc.want)
			}
		})
	}
}

func TestForName(t *testing.T) {
	p, err := ForName("tag", "YCEWFAF", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(TagPolicy); !ok {
		t.Fatalf("expected TagPolicy, got %T", p)
	}

	p, err = ForName("pattern", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(PatternPolicy); !ok {
		t.Fatalf("expected PatternPolicy, got %T", p)
	}

	if _, err := ForName("bayes", "", false); err == nil {
		t.Fatalf("expected error for unknown policy name")
	}
}

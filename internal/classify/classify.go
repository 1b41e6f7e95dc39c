// Package classify holds the marker tests that decide whether a message is
// automated warming traffic. Policies are pure: given a fetched message they
// answer yes or no and touch nothing else.
package classify

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	gc "github.com/Twine-Labs/instantly-email-warming-filter/internal/gmail"
)

const subjectHeader = "Subject"

// Policy decides whether a fetched message is a warming message.
type Policy interface {
	Match(d gc.MessageDetail) bool
}

// TagPolicy matches when a fixed tag appears as a substring of the Subject
// header. With ScanBody set it falls back to the decoded text/plain and
// text/html body parts, which the historical sweep uses to catch warming
// mail whose subject was rewritten in transit.
type TagPolicy struct {
	Tag      string
	ScanBody bool
}

func (p TagPolicy) Match(d gc.MessageDetail) bool {
	if p.Tag == "" {
		return false
	}
	if subjectContains(d, p.Tag) {
		return true
	}
	if !p.ScanBody {
		return false
	}
	tag := []byte(p.Tag)
	for _, part := range d.Parts {
		switch part.MIMEType {
		case "text/plain", "text/html":
			if bytes.Contains(part.Data, tag) {
				return true
			}
		}
	}
	return false
}

func subjectContains(d gc.MessageDetail, tag string) bool {
	return strings.Contains(d.Header(subjectHeader), tag)
}

// warmingSubjectRe matches subjects of the shape produced by warming
// services that suffix two 7-character alphanumeric tokens after a pipe,
// e.g. "Re: hello | AB12CD3 XY98Z12".
var warmingSubjectRe = regexp.MustCompile(`^.*\|\s[0-9A-Za-z]{7}\s[0-9A-Za-z]{7}$`)

// PatternPolicy matches when the Subject header matches a fixed pattern.
type PatternPolicy struct {
	Pattern *regexp.Regexp
}

// NewPatternPolicy returns the pattern policy with the canonical warming
// subject shape.
func NewPatternPolicy() PatternPolicy {
	return PatternPolicy{Pattern: warmingSubjectRe}
}

func (p PatternPolicy) Match(d gc.MessageDetail) bool {
	if p.Pattern == nil {
		return false
	}
	subject := d.Header(subjectHeader)
	return subject != "" && p.Pattern.MatchString(subject)
}

// ForName builds the policy selected by a deployment. Supported names are
// "tag" (substring-in-header) and "pattern" (regex-in-header).
func ForName(name, tag string, scanBody bool) (Policy, error) {
	switch name {
	case "tag":
		return TagPolicy{Tag: tag, ScanBody: scanBody}, nil
	case "pattern":
		return NewPatternPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown classification policy %q", name)
	}
}

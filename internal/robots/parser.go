package robots

import (
	"bufio"
	"strings"
)

// DefaultMaxBodyBytes is the amount of a robots.txt document that is read.
const DefaultMaxBodyBytes = 500 * 1024

const maxReportedLines = 10

// ParseReport describes what the parser could not use. None of it is fatal.
type ParseReport struct {
	// Lines is the number of lines read.
	Lines int
	// Skipped counts lines without a "field: value" form or with an empty agent.
	Skipped int
	// Orphaned counts Allow/Disallow lines that appeared before any User-agent.
	Orphaned int
	// Ignored counts lines with directives other than User-agent/Allow/Disallow.
	Ignored int
	// Truncated is set when the document exceeded the size limit.
	Truncated bool
	// AmbiguousLines holds the first line numbers that were skipped or orphaned.
	AmbiguousLines []int
}

// HasAmbiguities reports whether any line was dropped for being malformed
// or out of place, or the document was cut short.
func (p ParseReport) HasAmbiguities() bool {
	return p.Skipped > 0 || p.Orphaned > 0 || p.Truncated
}

func (p *ParseReport) markAmbiguous(line int) {
	if len(p.AmbiguousLines) < maxReportedLines {
		p.AmbiguousLines = append(p.AmbiguousLines, line)
	}
}

// ParseRobotsTxt parses a robots.txt document using DefaultMaxBodyBytes.
func ParseRobotsTxt(content string) (RuleSet, ParseReport) {
	return ParseRobotsTxtLimit(content, DefaultMaxBodyBytes)
}

// ParseRobotsTxtLimit parses at most maxBytes of content. When the document
// is cut, the trailing partial line is dropped so a half-read pattern never
// becomes a rule.
func ParseRobotsTxtLimit(content string, maxBytes int) (RuleSet, ParseReport) {
	var report ParseReport

	if maxBytes > 0 && len(content) > maxBytes {
		content = content[:maxBytes]
		if idx := strings.LastIndexByte(content, '\n'); idx >= 0 {
			content = content[:idx+1]
		} else {
			content = ""
		}
		report.Truncated = true
	}
	content = strings.TrimPrefix(content, "\ufeff")

	builder := newRuleSetBuilder()

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), len(content)+1)

	for scanner.Scan() {
		report.Lines++
		line := scanner.Text()

		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		colonIdx := strings.IndexByte(line, ':')
		if colonIdx < 0 {
			report.Skipped++
			report.markAmbiguous(report.Lines)
			continue
		}

		field := strings.ToLower(strings.TrimSpace(line[:colonIdx]))
		value := strings.TrimSpace(line[colonIdx+1:])

		switch field {
		case "user-agent":
			if value == "" {
				report.Skipped++
				report.markAmbiguous(report.Lines)
				continue
			}
			builder.openGroup(value)

		case "allow", "disallow":
			if !builder.hasOpenGroup() {
				report.Orphaned++
				report.markAmbiguous(report.Lines)
				continue
			}
			directive := Disallow
			if field == "allow" {
				directive = Allow
			}
			builder.addRule(directive, value)

		default:
			// Sitemap, Crawl-delay, Host and anything else
			report.Ignored++
		}
	}

	return builder.build(), report
}

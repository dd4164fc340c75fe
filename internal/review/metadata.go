package review

import (
	"math"
	"regexp"
	"strings"
)

var (
	sectionRe  = regexp.MustCompile(`(?m)^#+\s+(.+)$`)
	gapsRe     = regexp.MustCompile(`(?is)##\s*Research\s+Gaps[^\n]*\n(.+?)(\n##|$)`)
	gapItemRe  = regexp.MustCompile(`[-*]\s+\*\*([^*]+)\*\*[:\s]*([^\n*-]+)`)
	citationRe = regexp.MustCompile(`\[([A-Z][a-z]+(?:\s+et\s+al\.)?(?:\s+and\s+[A-Z][a-z]+)?),?\s*(\d{4})\]`)
)

// extractMetadata pulls statistics out of a generated review: word count,
// section headers, identified gaps and in-text citation coverage.
func extractMetadata(reviewText string, paperCount int, includeGaps bool) Metadata {
	md := Metadata{
		PaperCount:   paperCount,
		WordCount:    len(strings.Fields(reviewText)),
		ResearchGaps: []Gap{},
	}

	for _, match := range sectionRe.FindAllStringSubmatch(reviewText, -1) {
		md.Sections = append(md.Sections, match[1])
	}

	if includeGaps {
		if section := gapsRe.FindStringSubmatch(reviewText); section != nil {
			items := gapItemRe.FindAllStringSubmatch(section[1], -1)
			for _, item := range items {
				if len(md.ResearchGaps) == 5 {
					break
				}
				description := strings.TrimSpace(item[2])
				if len(description) > 200 {
					description = description[:200]
				}
				md.ResearchGaps = append(md.ResearchGaps, Gap{
					Title:       strings.TrimSpace(item[1]),
					Description: description,
				})
			}
		}
	}

	unique := map[string]bool{}
	for _, match := range citationRe.FindAllStringSubmatch(reviewText, -1) {
		unique[match[1]+"|"+match[2]] = true
	}
	md.CitationsFound = len(unique)
	if paperCount > 0 {
		md.CitationCoverage = math.Round(float64(md.CitationsFound)/float64(paperCount)*1000) / 10
	}

	return md
}

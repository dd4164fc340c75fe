package scholar

import (
	"fmt"
	"regexp"
	"strings"
)

var nonAlpha = regexp.MustCompile(`[^a-zA-Z]`)

// GenerateBibtex builds a citation key and an @article entry from paper
// metadata. The key is the first author's last name, lowercased and
// stripped of non-letters, followed by the year.
func GenerateBibtex(paper Paper) (key, entry string) {
	firstAuthor := "unknown"
	if len(paper.Authors) > 0 {
		parts := strings.Fields(strings.TrimSpace(paper.Authors[0]))
		if len(parts) > 0 {
			firstAuthor = nonAlpha.ReplaceAllString(parts[len(parts)-1], "")
			firstAuthor = strings.ToLower(firstAuthor)
		}
		if firstAuthor == "" {
			firstAuthor = "unknown"
		}
	}

	year := ""
	if paper.Year != 0 {
		year = fmt.Sprintf("%d", paper.Year)
	}
	key = firstAuthor + year

	title := strings.NewReplacer("{", "", "}", "").Replace(paper.Title)
	abstract := paper.Abstract
	if abstract != "" {
		abstract = strings.NewReplacer("{", `\{`, "}", `\}`, "%", `\%`).Replace(abstract)
	}

	entry = fmt.Sprintf(`@article{%s,
  title = {%s},
  author = {%s},
  year = {%s},
  venue = {%s},
  abstract = {%s}
}`, key, title, strings.Join(paper.Authors, " and "), year, paper.Venue, abstract)

	return key, entry
}

// -----------------------------------------------------------------------
// Table Markup - Parsing, validation and flattening of table HTML
// -----------------------------------------------------------------------

package tables

import (
	"fmt"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
)

// StripFence removes a leading/trailing markdown code fence from model
// output, e.g. ```html ... ``` wrappers.
func StripFence(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{"```html", "```json", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

// Dimensions describes the effective grid of a parsed table
type Dimensions struct {
	Rows    int
	Columns int
}

// Validate checks that markup contains a parseable HTML table with at least
// one row and one cell. Corrected markup that fails this check is rejected
// and the raw markup retained.
func Validate(markup string) (Dimensions, error) {
	var dims Dimensions

	if strings.TrimSpace(markup) == "" {
		return dims, fmt.Errorf("empty table markup")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return dims, fmt.Errorf("unparseable table markup: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return dims, fmt.Errorf("markup contains no <table> element")
	}

	rows := table.Find("tr")
	if rows.Length() == 0 {
		return dims, fmt.Errorf("table has no rows")
	}

	maxCols := 0
	rows.Each(func(_ int, row *goquery.Selection) {
		cols := 0
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			span := 1
			if v, ok := cell.Attr("colspan"); ok {
				if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 1 {
					span = n
				}
			}
			cols += span
		})
		if cols > maxCols {
			maxCols = cols
		}
	})

	if maxCols == 0 {
		return dims, fmt.Errorf("table has no cells")
	}

	dims.Rows = rows.Length()
	dims.Columns = maxCols
	return dims, nil
}

// Flatten converts table markup to a markdown rendering suitable for
// retrieval indexing. The table structure survives as a GFM table.
func Flatten(markup string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	text, err := converter.ConvertString(markup)
	if err != nil {
		return "", fmt.Errorf("failed to flatten table markup: %w", err)
	}
	return strings.TrimSpace(text), nil
}

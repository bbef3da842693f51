package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fitomusic/artiststats/data"
	"github.com/fitomusic/artiststats/request"
)

// A candidate is one way of finding a number in the page. Candidates for a
// field are tried in order, and the first one to produce a positive number
// wins.
type candidate struct {
	name  string
	re    *regexp.Regexp
	parse func(match []string) (int64, bool)
}

// gap is whitespace as it shows up in rendered counts, including the
// non-breaking and narrow no-break spaces.
const gap = `[\s\x{00a0}\x{202f}]`

// count captures a number with its grouping separators. A space only counts
// as a separator between two digits.
const count = `(\d(?:[\d.,]|[ \x{00a0}\x{202f}]\d)*)`

var monthlyListenerCandidates = []candidate{
	{
		name:  "phrase",
		re:    regexp.MustCompile(`(?i)` + count + gap + `*([km])?` + gap + `+monthly` + gap + `+listener`),
		parse: parseAbbreviated,
	},
	{
		name:  "embedded",
		re:    regexp.MustCompile(`"monthlyListeners"\s*:\s*(\d+)`),
		parse: parsePlain,
	},
	{
		name:  "generic",
		re:    regexp.MustCompile(`(?i)monthly` + gap + `+listeners[^\d]{0,80}?` + count),
		parse: parsePlain,
	},
}

var followerCandidates = []candidate{
	{
		name:  "embedded",
		re:    regexp.MustCompile(`"followers"\s*:\s*\{[^}]*?"total"\s*:\s*(\d+)`),
		parse: parsePlain,
	},
	{
		name:  "phrase",
		re:    regexp.MustCompile(`(?i)` + count + gap + `*([km])?` + gap + `+follower`),
		parse: parseAbbreviated,
	},
}

// A Match is what a field resolved to. Pattern is empty if nothing matched.
type Match struct {
	Value   int64
	Pattern string
}

func (m Match) Found() bool { return m.Pattern != "" }

func (m Match) ptr() *int64 {
	if !m.Found() {
		return nil
	}
	return data.Int(m.Value)
}

// An Extraction is everything we could read off a page.
type Extraction struct {
	MonthlyListeners Match
	Followers        Match
}

// Fields converts the extraction to Fields, leaving unmatched fields unset.
func (ext Extraction) Fields() data.Fields {
	return data.Fields{
		MonthlyListeners: ext.MonthlyListeners.ptr(),
		Followers:        ext.Followers.ptr(),
	}
}

// Extract looks through text for the artist's monthly listeners and
// followers.
func Extract(text string) Extraction {
	return Extraction{
		MonthlyListeners: firstMatch(text, monthlyListenerCandidates),
		Followers:        firstMatch(text, followerCandidates),
	}
}

func firstMatch(text string, candidates []candidate) Match {
	for _, c := range candidates {
		for _, match := range c.re.FindAllStringSubmatch(text, -1) {
			if n, ok := c.parse(match); ok {
				return Match{Value: n, Pattern: c.name}
			}
		}
	}
	return Match{}
}

// Text is the searchable text of a page: the meta descriptions and title,
// where Spotify renders "Artist · 1.2K monthly listeners.", then the raw
// html, which carries the embedded json.
func Text(page *request.Page) string {
	var b strings.Builder
	for _, sel := range []string{
		`meta[property="og:description"]`,
		`meta[name="description"]`,
		`meta[name="twitter:description"]`,
	} {
		if content, ok := page.Doc.Find(sel).First().Attr("content"); ok {
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	b.WriteString(page.Doc.Find("title").First().Text())
	b.WriteString("\n")
	b.Write(page.Body)
	return b.String()
}

// ParseCount parses a count with any thousands separators stripped: "1,234",
// "1.234" and "1234" are all 1234. Only positive counts are ok.
func ParseCount(s string) (int64, bool) {
	s = strings.NewReplacer(",", "", ".", "", " ", "", "\u00a0", "", "\u202f", "").Replace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parsePlain(match []string) (int64, bool) {
	return ParseCount(match[1])
}

// parseAbbreviated handles a phrase match that might be abbreviated, like
// "12.3K". Without a suffix the separators are thousands separators; with
// one, the separator is a decimal point.
func parseAbbreviated(match []string) (int64, bool) {
	var mult float64
	switch strings.ToLower(match[2]) {
	case "":
		return ParseCount(match[1])
	case "k":
		mult = 1_000
	case "m":
		mult = 1_000_000
	}
	f, err := strconv.ParseFloat(strings.Replace(match[1], ",", ".", 1), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	n := int64(f*mult + 0.5)
	return n, n > 0
}

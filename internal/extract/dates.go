package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/araddon/dateparse"

	"github.com/bizscrape/grant-pipeline/internal/domain"
)

var (
	isoDateRegex     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	dotDateRegex     = regexp.MustCompile(`^(\d{4})\.\s*(\d{1,2})\.\s*(\d{1,2})\.?$`)
	compactDateRegex = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
	slashDateRegex   = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})$`)
	koreanDateRegex  = regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`)
	anyEightDigits   = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
)

// NormalizeDate converts a raw announcement-date string to canonical
// YYYY-MM-DD form. Formats are tried in order of decreasing strictness;
// an unparseable input yields the marker value, never an error.
func NormalizeDate(raw string) string {
	if raw == "" {
		return domain.DateUnparseable
	}

	patterns := []*regexp.Regexp{
		isoDateRegex,
		dotDateRegex,
		compactDateRegex,
		slashDateRegex,
		koreanDateRegex,
	}

	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(raw); m != nil {
			if date, ok := buildDate(m[1], m[2], m[3]); ok {
				return date
			}
		}
	}

	// Last resort: exactly eight consecutive digits anywhere in the text.
	if m := anyEightDigits.FindStringSubmatch(raw); m != nil {
		if date, ok := buildDate(m[1], m[2], m[3]); ok {
			return date
		}
	}

	if t, err := dateparse.ParseAny(raw); err == nil {
		return t.Format("2006-01-02")
	}

	return domain.DateUnparseable
}

// buildDate validates the components by round-tripping through time.Date.
func buildDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}

	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

package analytics

import (
	"strings"
	"sync"

	"github.com/pariz/gountries"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CountryCount is a country breakdown entry with a human-readable label.
type CountryCount struct {
	Code     string
	Name     string
	Visitors int
	Views    int
}

var (
	countryQuery     *gountries.Query
	countryQueryOnce sync.Once
	titleCaser       = cases.Title(language.English)
)

// CountryName resolves an ISO alpha-2 code to its common English name.
// Unknown or empty codes fall back to a title-cased echo of the input so
// breakdown rows never lose their key.
func CountryName(code string) string {
	if code == "" {
		return "Unknown"
	}

	countryQueryOnce.Do(func() {
		countryQuery = gountries.New()
	})

	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return titleCaser.String(strings.ToLower(code))
	}
	return country.Name.Common
}

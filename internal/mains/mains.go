// Package mains places electrical hum lines on a spectrum's bins. The
// fundamental is configured, or guessed from the host's timezone via the
// country it belongs to.
package mains

import (
	"math"
	"slices"
	"strings"

	tz "github.com/medama-io/go-timezone-country"
	"github.com/thlib/go-timezone-local/tzlocal"
)

// DefaultHarmonics is how many hum lines the summary report lists
const DefaultHarmonics = 5

// Grid frequencies in Hz
const (
	Hz50 = 50
	Hz60 = 60
)

// Line is one hum component mapped onto a spectrum bin
type Line struct {
	Harmonic  int     // 1 for the fundamental
	Frequency float64 // Hz
	Bin       int     // nearest bin index
}

// Harmonics returns the first n multiples of fundamental that lie at or
// below nyquist
func Harmonics(fundamental, nyquist float64, n int) []float64 {
	if fundamental <= 0 || n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	for h := 1; h <= n; h++ {
		f := fundamental * float64(h)
		if f > nyquist {
			break
		}
		out = append(out, f)
	}
	return out
}

// Lines maps the first n hum harmonics onto a spectrum with the given bin
// resolution and bin count. Harmonics beyond the last bin are omitted.
func Lines(fundamental, resolution float64, bins, n int) []Line {
	if resolution <= 0 || bins < 1 {
		return nil
	}
	nyquist := resolution * float64(bins-1)
	freqs := Harmonics(fundamental, nyquist, n)
	lines := make([]Line, len(freqs))
	for i, f := range freqs {
		lines[i] = Line{
			Harmonic:  i + 1,
			Frequency: f,
			Bin:       int(math.Round(f / resolution)),
		}
	}
	return lines
}

// Frequency guesses the hum fundamental for the machine running the
// analysis. Anything it cannot place falls back to 50 Hz.
func Frequency() int {
	zone, err := tzlocal.RuntimeTZ()
	if err != nil {
		return Hz50
	}
	return FrequencyForTimezone(zone)
}

// FrequencyForTimezone returns the hum fundamental for an IANA zone name
func FrequencyForTimezone(zone string) int {
	if countryless(zone) {
		return Hz50
	}
	countries, err := tz.NewTimezoneCountryMap()
	if err != nil {
		return Hz50
	}
	country, err := countries.GetCountry(zone)
	if err != nil {
		return Hz50
	}
	return gridFor(country)
}

// countryless reports zones such as UTC that name no country
func countryless(zone string) bool {
	return zone == "UTC" || zone == "GMT" || strings.HasPrefix(zone, "Etc/")
}

// gridFor returns the grid frequency of a country by its English name.
// Split grids report the frequency serving most of the population, so
// Japan is 50 Hz and Brazil 60 Hz.
func gridFor(country string) int {
	if _, ok := slices.BinarySearch(sixtyHertzGrids, country); ok {
		return Hz60
	}
	return Hz50
}

// sixtyHertzGrids is sorted for binary search
var sixtyHertzGrids = []string{
	"American Samoa",
	"Bahamas",
	"Barbados",
	"Belize",
	"Brazil",
	"Canada",
	"Cayman Islands",
	"Colombia",
	"Costa Rica",
	"Cuba",
	"Dominican Republic",
	"Ecuador",
	"El Salvador",
	"Guam",
	"Guatemala",
	"Guyana",
	"Haiti",
	"Honduras",
	"Jamaica",
	"Marshall Islands",
	"Mexico",
	"Micronesia",
	"Nicaragua",
	"Palau",
	"Panama",
	"Peru",
	"Philippines",
	"Puerto Rico",
	"Saudi Arabia",
	"South Korea",
	"Suriname",
	"Taiwan",
	"Trinidad and Tobago",
	"U.S. Virgin Islands",
	"United States",
	"Venezuela",
}

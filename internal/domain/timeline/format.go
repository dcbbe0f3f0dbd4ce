package timeline

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English) //nolint:gochecknoglobals // read-only printer

// formatNumber renders v with thousands separators; fractions keep one decimal.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.1f", v)
}

// formatSigned renders a delta with an explicit sign.
func formatSigned(v float64) string {
	if v < 0 {
		return "-" + formatNumber(-v)
	}
	return "+" + formatNumber(v)
}

// titleCase turns a snake_case key into "Title Case".
func titleCase(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(key))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

var heroNames = map[string]string{ //nolint:gochecknoglobals // fixed lookup
	"bk": "Barbarian King",
	"aq": "Archer Queen",
	"gw": "Grand Warden",
	"rc": "Royal Champion",
	"mp": "Minion Prince",
}

// heroName resolves a hero key such as "bk" to its display name.
func heroName(key string) string {
	if n, ok := heroNames[strings.ToLower(key)]; ok {
		return n
	}
	return titleCase(key)
}

// displayDate renders a calendar date as "Jan 2, 2006".
func displayDate(t time.Time) string { return t.Format("Jan 2, 2006") }

package agent

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atlasbot/country-agent/internal/countryinfo"
)

const notAvailable = "N/A"

// Format renders the aggregated country report. Without details the fact
// passes through unchanged; with details every bullet has an N/A default,
// so the function is total.
func Format(details *countryinfo.Details, fact string) string {
	if details == nil {
		return fact
	}

	name := strings.TrimSpace(details.Name)
	if name == "" {
		name = "Unknown country"
	}
	header := name
	if code := countryCode(details); code != "" {
		header = fmt.Sprintf("%s [%s]", name, code)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n- Capital: ")
	b.WriteString(joinOrNA(details.Capital))
	b.WriteString("\n- Region: ")
	b.WriteString(stringOrNA(details.Region))
	b.WriteString(" (")
	b.WriteString(stringOrNA(details.Subregion))
	b.WriteString(")")
	b.WriteString("\n- Population: ")
	b.WriteString(formatPopulation(details.Population))
	b.WriteString("\n- Languages: ")
	b.WriteString(joinOrNA(details.Languages))
	b.WriteString("\n- Currencies: ")
	b.WriteString(joinOrNA(details.Currencies))
	b.WriteString("\n- Timezones: ")
	b.WriteString(joinOrNA(details.Timezones))
	b.WriteString("\n\nCultural fact: ")
	b.WriteString(fact)
	return b.String()
}

func countryCode(details *countryinfo.Details) string {
	if details.CCA2 != "" {
		return details.CCA2
	}
	return details.CCA3
}

func stringOrNA(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return notAvailable
	}
	return value
}

func joinOrNA(values []string) string {
	kept := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		return notAvailable
	}
	return strings.Join(kept, ", ")
}

// formatPopulation renders the estimate with thousands separators; an
// unset estimate renders as N/A.
func formatPopulation(population int64) string {
	if population <= 0 {
		return notAvailable
	}
	digits := strconv.FormatInt(population, 10)
	var b strings.Builder
	for index, digit := range digits {
		if index > 0 && (len(digits)-index)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return b.String()
}

package extract

import "strings"

// multiWordCountries maps the lower-cased form of every known multi-word
// country name to its canonical casing. Single-word countries need no
// gazetteer entry; they resolve through the token fallback.
var multiWordCountries = map[string]string{
	"antigua and barbuda":              "Antigua and Barbuda",
	"bosnia and herzegovina":           "Bosnia and Herzegovina",
	"burkina faso":                     "Burkina Faso",
	"cape verde":                       "Cape Verde",
	"central african republic":         "Central African Republic",
	"costa rica":                       "Costa Rica",
	"czech republic":                   "Czech Republic",
	"democratic republic of the congo": "Democratic Republic of the Congo",
	"dominican republic":               "Dominican Republic",
	"east timor":                       "East Timor",
	"el salvador":                      "El Salvador",
	"equatorial guinea":                "Equatorial Guinea",
	"hong kong":                        "Hong Kong",
	"isle of man":                      "Isle of Man",
	"ivory coast":                      "Ivory Coast",
	"marshall islands":                 "Marshall Islands",
	"new caledonia":                    "New Caledonia",
	"new zealand":                      "New Zealand",
	"north korea":                      "North Korea",
	"north macedonia":                  "North Macedonia",
	"papua new guinea":                 "Papua New Guinea",
	"puerto rico":                      "Puerto Rico",
	"republic of the congo":            "Republic of the Congo",
	"saint kitts and nevis":            "Saint Kitts and Nevis",
	"saint lucia":                      "Saint Lucia",
	"saint vincent and the grenadines": "Saint Vincent and the Grenadines",
	"san marino":                       "San Marino",
	"saudi arabia":                     "Saudi Arabia",
	"sierra leone":                     "Sierra Leone",
	"solomon islands":                  "Solomon Islands",
	"south africa":                     "South Africa",
	"south korea":                      "South Korea",
	"south sudan":                      "South Sudan",
	"sri lanka":                        "Sri Lanka",
	"trinidad and tobago":              "Trinidad and Tobago",
	"united arab emirates":             "United Arab Emirates",
	"united kingdom":                   "United Kingdom",
	"united states":                    "United States",
	"united states of america":         "United States of America",
	"vatican city":                     "Vatican City",
	"western sahara":                   "Western Sahara",
}

// maxGazetteerWords is the longest entry length, which bounds the token
// windows the fallback scan has to try.
const maxGazetteerWords = 6

func lookupMultiWord(phrase string) (string, bool) {
	canonical, ok := multiWordCountries[strings.ToLower(strings.TrimSpace(phrase))]
	return canonical, ok
}

// Package phone splits and joins international phone numbers stored as a
// single "+<dial code><number>" string.
package phone

import (
	_ "embed"
	"sort"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// DefaultCode is assumed when a value carries no recognisable dialing code.
const DefaultCode = "+91"

// Country is one entry of the dialing-code table.
type Country struct {
	Name     string `json:"name"`
	DialCode string `json:"dial_code"`
	Code     string `json:"code"`
}

//go:embed dial_codes.json
var dialCodesJSON []byte

var (
	tableOnce sync.Once
	countries []Country
	// dial codes ordered longest first so "+1242" wins over "+1".
	byLength []string
)

func table() ([]Country, []string) {
	tableOnce.Do(func() {
		if err := json.Unmarshal(dialCodesJSON, &countries); err != nil {
			panic("phone: embedded dial code table is invalid: " + err.Error())
		}
		seen := make(map[string]struct{}, len(countries))
		for _, country := range countries {
			if _, ok := seen[country.DialCode]; ok {
				continue
			}
			seen[country.DialCode] = struct{}{}
			byLength = append(byLength, country.DialCode)
		}
		sort.SliceStable(byLength, func(i, j int) bool {
			return len(byLength[i]) > len(byLength[j])
		})
	})
	return countries, byLength
}

// Codes returns the known countries in table order.
func Codes() []Country {
	list, _ := table()
	return append([]Country(nil), list...)
}

// ExtractCountryCode returns the dialing code value starts with, or
// DefaultCode when value is empty or starts with no known code.
func ExtractCountryCode(value string) string {
	if value == "" {
		return DefaultCode
	}
	_, codes := table()
	for _, code := range codes {
		if strings.HasPrefix(value, code) {
			return code
		}
	}
	return DefaultCode
}

// RemoveCountryCode strips the leading dialing code from value. Values that do
// not start with "+" are returned untouched.
func RemoveCountryCode(value string) string {
	if !strings.HasPrefix(value, "+") {
		return value
	}
	code := ExtractCountryCode(value)
	return strings.TrimPrefix(value, code)
}

// Combine joins a dialing code and a local number.
func Combine(code, number string) string {
	return code + number
}

// IsDomestic reports whether value carries the default dialing code.
func IsDomestic(value string) bool {
	return ExtractCountryCode(value) == DefaultCode
}

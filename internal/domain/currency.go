package domain

import "sort"

// BaseCurrency is the currency every rate is quoted in (TWD per one foreign unit).
const BaseCurrency = "TWD"

// CurrencyProfile is the static reference data for one supported currency.
type CurrencyProfile struct {
	Code           string  `json:"code"`
	DisplayName    string  `json:"display_name"`
	LocalName      string  `json:"local_name"`
	BaselineRate   float64 `json:"baseline_rate"`   // TWD per 1 unit
	BaselineVolume float64 `json:"baseline_volume"` // Daily turnover, millions TWD
	Volatility     float64 `json:"volatility"`      // Daily std-dev coefficient
}

// profiles is ordered by popularity; that order is what SupportedCurrencies returns.
var profiles = []CurrencyProfile{
	{"USD", "US Dollar", "美元", 30.8, 15000, 0.008},
	{"EUR", "Euro", "歐元", 33.5, 8000, 0.010},
	{"GBP", "British Pound", "英鎊", 39.2, 5000, 0.012},
	{"JPY", "Japanese Yen", "日圓", 0.206, 12000, 0.008},
	{"AUD", "Australian Dollar", "澳幣", 20.4, 3000, 0.015},
	{"CAD", "Canadian Dollar", "加幣", 22.8, 2000, 0.012},
	{"CHF", "Swiss Franc", "瑞士法郎", 34.6, 1500, 0.009},
	{"CNY", "Chinese Yuan", "人民幣", 4.25, 6000, 0.006},
	{"SEK", "Swedish Krona", "瑞典克朗", 2.91, 800, 0.013},
	{"NZD", "New Zealand Dollar", "紐幣", 18.9, 600, 0.016},
	{"MXN", "Mexican Peso", "墨西哥比索", 1.79, 400, 0.020},
	{"SGD", "Singapore Dollar", "新加坡幣", 22.9, 2500, 0.008},
	{"HKD", "Hong Kong Dollar", "港幣", 3.95, 4000, 0.003},
	{"NOK", "Norwegian Krone", "挪威克朗", 2.85, 700, 0.014},
	{"KRW", "South Korean Won", "韓元", 0.0233, 3500, 0.012},
	{"TRY", "Turkish Lira", "土耳其里拉", 0.90, 300, 0.030},
	{"RUB", "Russian Ruble", "俄羅斯盧布", 0.33, 200, 0.025},
	{"INR", "Indian Rupee", "印度盧比", 0.369, 1200, 0.010},
	{"BRL", "Brazilian Real", "巴西雷亞爾", 6.18, 500, 0.018},
	{"ZAR", "South African Rand", "南非蘭特", 1.68, 300, 0.020},
	{"THB", "Thai Baht", "泰銖", 0.87, 1800, 0.012},
	{"VND", "Vietnamese Dong", "越南盾", 0.00125, 900, 0.008},
	{"MYR", "Malaysian Ringgit", "馬來西亞令吉", 6.95, 1100, 0.015},
}

var profileIndex = func() map[string]CurrencyProfile {
	m := make(map[string]CurrencyProfile, len(profiles))
	for _, p := range profiles {
		m[p.Code] = p
	}
	return m
}()

// LookupCurrency returns the profile for code.
func LookupCurrency(code string) (CurrencyProfile, bool) {
	p, ok := profileIndex[code]
	return p, ok
}

// IsSupported reports whether code has a profile.
func IsSupported(code string) bool {
	_, ok := profileIndex[code]
	return ok
}

// SupportedCurrencies returns the supported codes in display order.
func SupportedCurrencies() []string {
	codes := make([]string, len(profiles))
	for i, p := range profiles {
		codes[i] = p.Code
	}
	return codes
}

// Profiles returns a copy of all profiles in display order.
func Profiles() []CurrencyProfile {
	out := make([]CurrencyProfile, len(profiles))
	copy(out, profiles)
	return out
}

// DisplayName returns "CODE (Name)" for known codes and the bare code otherwise.
func DisplayName(code string) string {
	if code == BaseCurrency {
		return code + " (Taiwan Dollar)"
	}
	p, ok := profileIndex[code]
	if !ok {
		return code
	}
	return code + " (" + p.DisplayName + ")"
}

// SortedCodes returns codes filtered to supported ones, sorted alphabetically.
func SortedCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if IsSupported(c) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

package calculator

import "github.com/Rhymond/go-money"

// FormatCents renders a cent amount as a display string, e.g. 1234 -> "$12.34".
func FormatCents(cents int64) string {
	return money.New(cents, money.USD).Display()
}

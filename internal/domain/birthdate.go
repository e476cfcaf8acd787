package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseBirthdate разбирает "Oct 15", "october 15", "Oct 15th" и возвращает каноничный вид "Oct 15".
// Год не нужен, 29 февраля допустимо.
func ParseBirthdate(input string) (string, error) {
	fields := strings.Fields(strings.ReplaceAll(strings.TrimSpace(input), ",", " "))
	if len(fields) != 2 {
		return "", &ValidationError{Field: "birthdate", Reason: "expected \"Mon DD\""}
	}

	month, ok := parseMonth(fields[0])
	if !ok {
		return "", &ValidationError{Field: "birthdate", Reason: fmt.Sprintf("unknown month %q", fields[0])}
	}

	dayText := strings.ToLower(fields[1])
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		dayText = strings.TrimSuffix(dayText, suffix)
	}
	day, err := strconv.Atoi(dayText)
	if err != nil {
		return "", &ValidationError{Field: "birthdate", Reason: fmt.Sprintf("invalid day %q", fields[1])}
	}

	// високосный год, чтобы 29 февраля проходило
	if day < 1 || time.Date(2000, month, day, 0, 0, 0, 0, time.UTC).Month() != month {
		return "", &ValidationError{Field: "birthdate", Reason: fmt.Sprintf("day %d out of range for %s", day, month)}
	}

	return fmt.Sprintf("%s %d", month.String()[:3], day), nil
}

func parseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	if len(s) < 3 {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || s == name[:3] || (m == time.September && s == "sept") {
			return m, true
		}
	}
	return 0, false
}

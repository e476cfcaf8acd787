package texts

import "strings"

// Messenger не поддерживает разметку, жирный шрифт делаем символами Mathematical Bold
const (
	boldUpperA = 0x1D400
	boldLowerA = 0x1D41A
	boldDigit0 = 0x1D7CE
)

// Bold переводит латиницу и цифры в жирные символы, остальное не трогает
func Bold(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 4)
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(rune(boldUpperA + (r - 'A')))
		case r >= 'a' && r <= 'z':
			b.WriteRune(rune(boldLowerA + (r - 'a')))
		case r >= '0' && r <= '9':
			b.WriteRune(rune(boldDigit0 + (r - '0')))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Package validate normalizes free-text profile input collected during
// registration dialogues.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gruppenrun/clubbot/internal/domain"
)

// Error carries a user-facing hint alongside the sentinel.
type Error struct {
	Hint string
}

func (e *Error) Error() string { return e.Hint }

// Unwrap makes every validation failure match domain.ErrValidation.
func (e *Error) Unwrap() error { return domain.ErrValidation }

var namePattern = regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ\s\-]+$`)

const (
	nameMinLen = 2
	nameMaxLen = 100
)

var titleCaser = cases.Title(language.Und)

// Name checks that the text looks like "First Last" and returns it with
// each token capitalized.
func Name(text string) (string, error) {
	name := strings.TrimSpace(text)

	if len([]rune(name)) < nameMinLen {
		return "", &Error{Hint: "Имя слишком короткое (минимум 2 символа)"}
	}
	if len([]rune(name)) > nameMaxLen {
		return "", &Error{Hint: "Имя слишком длинное (максимум 100 символов)"}
	}
	if !namePattern.MatchString(name) {
		return "", &Error{Hint: "Имя должно содержать только буквы, пробелы и дефисы. Без цифр и спецсимволов."}
	}
	if len(strings.Fields(name)) < 2 {
		return "", &Error{Hint: "Укажи Имя и Фамилию (минимум 2 слова)"}
	}

	return titleCaser.String(strings.ToLower(name)), nil
}

const phoneHint = "Неверный формат номера телефона.\n\n" +
	"Правильные форматы:\n" +
	"• +7 (999) 123-45-67\n" +
	"• 8 999 123 45 67\n" +
	"• 79991234567"

// Phone accepts local (leading 8) or international (leading 7 / +7)
// 11-digit Russian numbers in any punctuation and normalizes them to the
// display form +7 (XXX) XXX-XX-XX. The normalizer is idempotent: its own
// output validates back to itself.
func Phone(text string) (string, error) {
	var digits []rune
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}

	if len(digits) != 11 {
		return "", &Error{Hint: phoneHint}
	}
	if digits[0] != '7' && digits[0] != '8' {
		return "", &Error{Hint: phoneHint}
	}

	d := string(digits)
	return fmt.Sprintf("+7 (%s) %s-%s-%s", d[1:4], d[4:7], d[7:9], d[9:11]), nil
}

// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minNameLen     = 2
	maxNameLen     = 20
	minPasswordLen = 8
	maxPasswordLen = 32
)

var emailRegex = regexp.MustCompile(`^([a-z0-9_+]([a-z0-9_+.]*[a-z0-9_+])?)@([a-z0-9]+([\-\.]{1}[a-z0-9]+)*\.[a-z]{2,6})$`)

// accented lists the Portuguese letters accepted in names and handles.
var accented = map[rune]struct{}{}

func init() {
	for _, r := range "ãáàâéèêíìîõóòôúùûçÃÁÀÂÉÈÊÍÌÎÕÓÒÔÚÙÛÇ" {
		accented[r] = struct{}{}
	}
}

func isAccented(r rune) bool {
	_, ok := accented[r]
	return ok
}

// ñ/Ñ are refused even though unicode.IsLetter accepts them.
func isExcluded(r rune) bool {
	return r == 'ñ' || r == 'Ñ'
}

// ValidateUsername checks a display name.
// Length is measured in bytes; a length failure replaces a character failure.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	var err error
	for _, r := range username {
		if (!unicode.IsLetter(r) && !unicode.IsDigit(r) && !isAccented(r)) || isExcluded(r) {
			err = errors.New("username invalid character")
			break
		}
	}
	if len(username) < minNameLen {
		err = errors.New("username too short")
	}
	if len(username) > maxNameLen {
		err = errors.New("username too long")
	}
	return err
}

// ValidateUserAt checks a handle: ASCII letters and digits, underscore, or an accented letter.
func ValidateUserAt(userAt string) error {
	userAt = strings.TrimSpace(userAt)

	var err error
	for _, r := range userAt {
		if r == '_' {
			continue
		}
		asciiAlnum := r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
		if (!asciiAlnum && !isAccented(r)) || isExcluded(r) {
			err = errors.New("user_at invalid character")
			break
		}
	}
	if len(userAt) < minNameLen {
		err = errors.New("user_at too short")
	}
	if len(userAt) > maxNameLen {
		err = errors.New("user_at too long")
	}
	return err
}

// ValidateEmail matches the address against a deliberately small pattern; deliverability is not checked.
func ValidateEmail(email string) error {
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return errors.New("email invalid email")
	}
	return nil
}

// ValidatePassword accepts 8 to 32 printable ASCII characters, spaces excluded.
// Surrounding whitespace is not trimmed; the hash is taken over the same bytes.
func ValidatePassword(password string) error {
	var err error
	for i := 0; i < len(password); i++ {
		if b := password[i]; b < '!' || b > '~' {
			err = errors.New("password invalid character")
			break
		}
	}
	if len(password) < minPasswordLen {
		err = errors.New("password too short")
	}
	if len(password) > maxPasswordLen {
		err = errors.New("password too long")
	}
	return err
}

// ValidateBio limits the bio to maxLen characters.
func ValidateBio(bio string, maxLen int) error {
	if utf8.RuneCountInString(bio) > maxLen {
		return errors.New("bio too long")
	}
	return nil
}

// ValidatePostText limits post and comment text to maxLen characters.
func ValidatePostText(text string, maxLen int) error {
	if utf8.RuneCountInString(text) > maxLen {
		return errors.New("post text too long")
	}
	return nil
}

// NormalizeEmail lowercases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeUserAt lowercases a handle and drops a leading '@'.
func NormalizeUserAt(userAt string) string {
	userAt = strings.ToLower(strings.TrimSpace(userAt))
	return strings.TrimPrefix(userAt, "@")
}

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertValidation(t *testing.T, err error, wantMsg string) {
	t.Helper()
	if wantMsg == "" {
		assert.NoError(t, err)
		return
	}
	if assert.Error(t, err) {
		assert.Equal(t, wantMsg, err.Error())
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		username string
		wantMsg  string
	}{
		{"Valid", "Ana", ""},
		{"Accented", "João", ""},
		{"Digits", "ana2024", ""},
		{"Trimmed", "  ana  ", ""},
		{"Exactly Min Length", "ab", ""},
		{"Exactly Max Length", strings.Repeat("a", 20), ""},
		{"Space Inside", "ana maria", "username invalid character"},
		{"Underscore", "ana_maria", "username invalid character"},
		{"Spanish Enye", "Peña", "username invalid character"},
		{"Upper Spanish Enye", "PEÑA", "username invalid character"},
		{"Too Short", "a", "username too short"},
		{"Empty", "", "username too short"},
		{"Too Long", strings.Repeat("a", 21), "username too long"},
		{"Character Failure At Valid Length", "a!", "username invalid character"},
		{"Short With Bad Character", "!", "username too short"},
		{"Multibyte Counts Bytes", strings.Repeat("ã", 11), "username too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, ValidateUsername(tt.username), tt.wantMsg)
		})
	}
}

func TestValidateUserAt(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		userAt  string
		wantMsg string
	}{
		{"Valid", "ana", ""},
		{"Underscore", "ana_maria", ""},
		{"Leading Underscore", "_ana", ""},
		{"Accented", "joão", ""},
		{"Upper Accented", "JOÃO", ""},
		{"Digits", "ana_2024", ""},
		{"Hyphen", "ana-maria", "user_at invalid character"},
		{"Dot", "ana.maria", "user_at invalid character"},
		{"Non ASCII Letter", "anaß", "user_at invalid character"},
		{"Non ASCII Digit", "ana٣", "user_at invalid character"},
		{"Spanish Enye", "peña", "user_at invalid character"},
		{"At Sign", "@ana", "user_at invalid character"},
		{"Too Short", "a", "user_at too short"},
		{"Too Long", strings.Repeat("a", 21), "user_at too long"},
		{"Exactly Max Length", strings.Repeat("_", 20), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, ValidateUserAt(tt.userAt), tt.wantMsg)
		})
	}
}

func TestValidateUserAt_AcceptsIffRuleHolds(t *testing.T) {
	t.Parallel()
	alphabet := []rune("aZ09_-ãÇñÑ ß.")
	for _, a := range alphabet {
		for _, b := range alphabet {
			candidate := string([]rune{a, b})
			ok := true
			for _, r := range candidate {
				asciiAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
				if !(asciiAlnum || r == '_' || isAccented(r)) {
					ok = false
				}
			}
			err := ValidateUserAt(candidate)
			if strings.TrimSpace(candidate) != candidate {
				continue
			}
			assert.Equal(t, ok, err == nil, "candidate %q", candidate)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"Valid", "ana@example.com", false},
		{"Plus And Dots", "ana.m+news@mail.example.org", false},
		{"Hyphenated Domain", "ana@my-host.io", false},
		{"Uppercase", "Ana@example.com", true},
		{"Missing At", "ana.example.com", true},
		{"Leading Dot", ".ana@example.com", true},
		{"Trailing Dot", "ana.@example.com", true},
		{"Short TLD", "ana@example.c", true},
		{"Long TLD", "ana@example.abcdefg", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if tt.wantErr {
				assertValidation(t, err, "email invalid email")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{"Valid", "hunter22", ""},
		{"Symbols", "S3cure!@#Pass", ""},
		{"Exactly Min Length", strings.Repeat("a", 8), ""},
		{"Exactly Max Length", strings.Repeat("a", 32), ""},
		{"Too Short", "short1", "password too short"},
		{"Too Long", strings.Repeat("a", 33), "password too long"},
		{"Inner Space", "pass word1", "password invalid character"},
		{"Trailing Space", "hunter22 ", "password invalid character"},
		{"Leading Space", " hunter22", "password invalid character"},
		{"Non ASCII", "senhaçãoo", "password invalid character"},
		{"Control Byte", "password\t1", "password invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, ValidatePassword(tt.password), tt.wantMsg)
		})
	}
}

func TestValidateBioAndPostText(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateBio(strings.Repeat("é", 160), 160))
	assertValidation(t, ValidateBio(strings.Repeat("é", 161), 160), "bio too long")

	assert.NoError(t, ValidatePostText(strings.Repeat("x", 200), 200))
	assertValidation(t, ValidatePostText(strings.Repeat("x", 201), 200), "post text too long")
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ana@example.com", NormalizeEmail("  Ana@Example.COM "))
	assert.Equal(t, "ana_m", NormalizeUserAt("@Ana_M"))
	assert.Equal(t, "ana", NormalizeUserAt(" ana "))
}

package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"

	"github.com/alexedwards/argon2id"
)

var backupCodePattern = regexp.MustCompile(`^[0-9A-F]{4}-[0-9A-F]{4}$`)

// backupCodeParams are lighter than the password parameters: codes carry 32 bits of
// entropy each and up to ten of them are compared per login attempt.
var backupCodeParams = argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// GenerateBackupCodes returns count random codes formatted as XXXX-XXXX (upper-case hex).
func GenerateBackupCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	seen := make(map[string]struct{}, count)

	for len(codes) < count {
		raw := make([]byte, 4)
		if _, err := rand.Read(raw); err != nil {
			return nil, err
		}

		encoded := strings.ToUpper(hex.EncodeToString(raw))
		code := encoded[:4] + "-" + encoded[4:]
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}

// NormalizeBackupCode accepts user input with or without the dash, in any case.
func NormalizeBackupCode(input string) (string, error) {
	cleaned := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), " ", ""))
	if len(cleaned) == 8 && !strings.Contains(cleaned, "-") {
		cleaned = cleaned[:4] + "-" + cleaned[4:]
	}

	if !IsBackupCodeFormat(cleaned) {
		return "", errors.New("invalid backup code format")
	}
	return cleaned, nil
}

func IsBackupCodeFormat(code string) bool {
	return backupCodePattern.MatchString(code)
}

func HashBackupCode(code string) (string, error) {
	hash, err := argon2id.CreateHash(code, &backupCodeParams)
	if err != nil {
		return "", errors.New("can not hash backup code")
	}
	return hash, nil
}

func CompareBackupCode(code string, hash string) bool {
	match, err := argon2id.ComparePasswordAndHash(code, hash)
	return err == nil && match
}

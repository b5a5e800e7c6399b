package fingerprint

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

const Length = 8

var ErrEmptyInput = errors.New("fingerprint: scenario text is empty")

var pattern = regexp.MustCompile(`^[0-9A-F]{8}$`)

// Of derives the cache key for a scenario: the first eight hex digits of the
// MD5 digest of the trimmed text, uppercased. It is a cache key, not a
// security boundary.
func Of(scenario string) (string, error) {
	trimmed := strings.TrimSpace(scenario)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	sum := md5.Sum([]byte(trimmed))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:Length]), nil
}

func Valid(fp string) bool {
	return pattern.MatchString(fp)
}

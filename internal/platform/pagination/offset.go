package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const offsetTokenPrefix = "o:"

// ErrInvalidPageToken is returned when a page token cannot be decoded.
var ErrInvalidPageToken = errors.New("invalid page token")

// EncodeOffset returns an opaque page token for the given row offset.
func EncodeOffset(offset int) string {
	if offset <= 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(offsetTokenPrefix + strconv.Itoa(offset)))
}

// DecodeOffset parses a token produced by EncodeOffset. An empty token is
// offset zero.
func DecodeOffset(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidPageToken
	}
	value, ok := strings.CutPrefix(string(raw), offsetTokenPrefix)
	if !ok {
		return 0, ErrInvalidPageToken
	}
	offset, err := strconv.Atoi(value)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}
	return offset, nil
}

package listing

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCursor is returned when a cursor token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid cursor")

// EncodeCursor produces an opaque page token for the given offset.
func EncodeCursor(offset int) string {
	if offset < 0 {
		offset = 0
	}
	return base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("offset:%d", offset)))
}

// DecodeCursor reverses EncodeCursor. An empty token is offset zero.
func DecodeCursor(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	payload := string(raw)
	rest, ok := strings.CutPrefix(payload, "offset:")
	if !ok {
		return 0, ErrInvalidCursor
	}
	offset, err := strconv.Atoi(rest)
	if err != nil || offset < 0 {
		return 0, ErrInvalidCursor
	}
	return offset, nil
}

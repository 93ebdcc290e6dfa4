// Package telegram validates Mini App launch data signed by Telegram.
//
// The check follows the Web App scheme: the data-check string is every
// field except hash, sorted by key and joined as key=value lines; the
// signing key is HMAC-SHA256("WebAppData", botToken); the expected
// hash is the hex HMAC-SHA256 of the data-check string under that key.
package telegram

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid init data")

const (
	webAppDataKey = "WebAppData"
	hashField     = "hash"
	userField     = "user"
)

// InitData holds the verified launch fields. The user field is a
// decoded JSON object when it parsed, otherwise the raw string.
type InitData map[string]any

// WebAppUser is the user object embedded in launch data.
type WebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// ValidateInitData checks the signature of initData against botToken
// and returns the parsed fields.
func ValidateInitData(initData, botToken string) (InitData, error) {
	values := parseLaunchData(initData)

	hash := values.Get(hashField)
	if hash == "" {
		return nil, fmt.Errorf("%w: missing hash", ErrInvalidSignature)
	}
	values.Del(hashField)

	expected := signature(dataCheckString(values), botToken)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	out := make(InitData, len(values))
	for key := range values {
		out[key] = values.Get(key)
	}
	if raw, ok := out[userField].(string); ok {
		if decoded, ok := decodeJSON(raw); ok {
			out[userField] = decoded
		}
	}
	return out, nil
}

// SignInitData builds a launch payload for fields signed with botToken.
func SignInitData(fields map[string]string, botToken string) string {
	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set(hashField, signature(dataCheckString(values), botToken))
	return values.Encode()
}

// User extracts the embedded user, if present and well formed.
func (d InitData) User() (*WebAppUser, bool) {
	obj, ok := d[userField].(map[string]any)
	if !ok {
		return nil, false
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	var user WebAppUser
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == 0 {
		return nil, false
	}
	return &user, true
}

// parseLaunchData splits a form-encoded payload the way browsers do.
// Pairs that url.ParseQuery would reject, such as a raw ';' or a bad
// percent escape, are kept literally and left to the signature check.
func parseLaunchData(raw string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeLenient(key), unescapeLenient(value))
	}
	return values
}

func unescapeLenient(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == hashField {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, key := range keys {
		lines[i] = key + "=" + values.Get(key)
	}
	return strings.Join(lines, "\n")
}

func signature(dataCheck, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheck))
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeJSON(raw string) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

package services

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// DownloadTokenTTL is how long a prepared download link stays valid.
const DownloadTokenTTL = 5 * time.Minute

var (
	ErrInvalidToken = errors.New("invalid download token")
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadClaim names the object one token authorises. Fingerprint binds the
// token to the account that minted it.
type DownloadClaim struct {
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	Fingerprint string    `json:"fingerprint"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Downloads mints short-lived sealed tokens that let the browser trigger a
// streamed download with a plain GET, no credential cookie needed on the
// download URL itself.
type Downloads struct {
	key []byte
	now func() time.Time
}

func NewDownloads() *Downloads {
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic("failed to generate download token key")
	}
	return &Downloads{key: key, now: time.Now}
}

// Token seals a claim for the object valid for DownloadTokenTTL.
func (d *Downloads) Token(fingerprint, bucket, key string) (string, error) {
	claim := DownloadClaim{
		Bucket:      bucket,
		Key:         key,
		Fingerprint: fingerprint,
		ExpiresAt:   d.now().Add(DownloadTokenTTL),
	}
	payload, err := json.Marshal(claim)
	if err != nil {
		return "", err
	}
	sealed, err := seal(d.key, payload)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Redeem verifies a token and returns its claim. Expired tokens fail with
// ErrTokenExpired, anything else malformed with ErrInvalidToken.
func (d *Downloads) Redeem(token string) (DownloadClaim, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return DownloadClaim{}, ErrInvalidToken
	}
	payload, err := openSealed(d.key, raw)
	if err != nil {
		return DownloadClaim{}, ErrInvalidToken
	}
	var claim DownloadClaim
	if err := json.Unmarshal(payload, &claim); err != nil {
		return DownloadClaim{}, ErrInvalidToken
	}
	if d.now().After(claim.ExpiresAt) {
		return DownloadClaim{}, ErrTokenExpired
	}
	return claim, nil
}

package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadTokenRoundTrip(t *testing.T) {
	d := NewDownloads()

	token, err := d.Token("fp", "media", "videos/intro.mp4")
	require.NoError(t, err)

	claim, err := d.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, "media", claim.Bucket)
	assert.Equal(t, "videos/intro.mp4", claim.Key)
	assert.Equal(t, "fp", claim.Fingerprint)
}

func TestDownloadTokenExpires(t *testing.T) {
	d := NewDownloads()
	current := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return current }

	token, err := d.Token("fp", "b", "k")
	require.NoError(t, err)

	current = current.Add(DownloadTokenTTL - time.Second)
	_, err = d.Redeem(token)
	assert.NoError(t, err, "still inside the window")

	current = current.Add(2 * time.Second)
	_, err = d.Redeem(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDownloadTokenRejectsGarbage(t *testing.T) {
	d := NewDownloads()
	for _, input := range []string{"", "!!!", "YWJjZGVm"} {
		_, err := d.Redeem(input)
		assert.ErrorIs(t, err, ErrInvalidToken, "input %q", input)
	}
}

func TestDownloadTokenBoundToIssuer(t *testing.T) {
	a := NewDownloads()
	b := NewDownloads()
	token, err := a.Token("fp", "b", "k")
	require.NoError(t, err)

	_, err = b.Redeem(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClampPresignExpiry(t *testing.T) {
	assert.Equal(t, PresignExpiryDefault, ClampPresignExpiry(0))
	assert.Equal(t, PresignExpiryMin, ClampPresignExpiry(5))
	assert.Equal(t, PresignExpiryMax, ClampPresignExpiry(PresignExpiryMax+1))
	assert.Equal(t, 7200, ClampPresignExpiry(7200))
	assert.Equal(t, PresignExpiryMin, ClampPresignExpiry(-100))
}

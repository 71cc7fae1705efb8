package services

// Presigned URL expiry bounds, in seconds. S3 rejects anything above seven
// days, and sub-minute links expire before slow clients finish the redirect.
const (
	PresignExpiryMin     = 60
	PresignExpiryMax     = 7 * 24 * 60 * 60
	PresignExpiryDefault = 3600
)

// ClampPresignExpiry normalises a requested expiry into the accepted range.
// Zero (unset) takes the default.
func ClampPresignExpiry(seconds int) int {
	if seconds == 0 {
		return PresignExpiryDefault
	}
	if seconds < PresignExpiryMin {
		return PresignExpiryMin
	}
	if seconds > PresignExpiryMax {
		return PresignExpiryMax
	}
	return seconds
}

// Package utils provides shared utility functions and constants
package utils

// ContextKeyCreds is the key used to store credentials in the echo context
const ContextKeyCreds = "creds"

// CookieName is the name of the session cookie carrying sealed credentials
const CookieName = "DeltaSeal"

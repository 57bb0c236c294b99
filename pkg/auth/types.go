package auth

// AuthContext is the per-request authenticated identity derived from a
// verified bearer token. It lives for exactly one request; ownership
// checks downstream use Subject.
type AuthContext struct {
	// Subject is the local user ID from the token's sub claim
	Subject string
	// Name is the display name carried by the token
	Name string
	// AvatarURL is the avatar URL carried by the token
	AvatarURL string
}

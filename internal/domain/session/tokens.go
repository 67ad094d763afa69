package session

const (
	// AccessTokenCookie carries the short-lived bearer credential
	AccessTokenCookie = "access_token"
	// RefreshTokenCookie carries the long-lived credential used only to mint a new pair
	RefreshTokenCookie = "refresh_token"

	// AccessTokenMaxAge is the access cookie lifetime in seconds (15 minutes)
	AccessTokenMaxAge = 900
	// RefreshTokenMaxAge is the refresh cookie lifetime in seconds (7 days)
	RefreshTokenMaxAge = 604800
)

// Tokens is the session as reconstructed from the two cookies of one request.
// Either field may be empty; an empty field means the cookie was absent.
type Tokens struct {
	Access  string
	Refresh string
}

// HasAccess reports whether an access token accompanied the request
func (t Tokens) HasAccess() bool {
	return t.Access != ""
}

// HasRefresh reports whether a refresh token accompanied the request
func (t Tokens) HasRefresh() bool {
	return t.Refresh != ""
}

// State is the session state inferred from cookie presence
type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	// StateExpired means the access cookie lapsed but a refresh token is still held
	StateExpired State = "expired"
)

// Classify infers the session state of a request from its tokens
func Classify(t Tokens) State {
	switch {
	case t.HasAccess():
		return StateAuthenticated
	case t.HasRefresh():
		return StateExpired
	default:
		return StateAnonymous
	}
}

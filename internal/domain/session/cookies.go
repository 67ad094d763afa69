package session

// CookieMutation is one Set-Cookie instruction produced by a session operation
type CookieMutation struct {
	Name   string
	Value  string
	MaxAge int  // seconds; ignored when Delete is set
	Delete bool // expire the cookie immediately
}

// CookieSet is the explicit list of cookie writes an operation asks the
// transport layer to attach to its response. A nil set leaves cookies untouched.
type CookieSet []CookieMutation

// IssuePair replaces both session cookies with a freshly issued token pair
func IssuePair(t Tokens) CookieSet {
	return CookieSet{
		{Name: AccessTokenCookie, Value: t.Access, MaxAge: AccessTokenMaxAge},
		{Name: RefreshTokenCookie, Value: t.Refresh, MaxAge: RefreshTokenMaxAge},
	}
}

// ClearPair deletes both session cookies together
func ClearPair() CookieSet {
	return CookieSet{
		{Name: AccessTokenCookie, Delete: true},
		{Name: RefreshTokenCookie, Delete: true},
	}
}

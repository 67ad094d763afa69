package session

// Identity is the coarse caller identity projected from an access token.
// It is recomputed on every request and never cached.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	OrgID string `json:"orgId"`
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"flowboard/internal/config"
	"flowboard/internal/domain/session"
	"flowboard/internal/infrastructure/metrics"
	"flowboard/internal/infrastructure/upstream"

	"github.com/rs/zerolog/log"
)

// Gateway performs calls against the upstream API
type Gateway interface {
	Call(ctx context.Context, method, path string, body any, bearer string) (*upstream.Response, error)
}

// IdentityDecoder projects an identity out of an access token
type IdentityDecoder interface {
	Decode(token string) (session.Identity, bool)
}

// Outcome is what a lifecycle operation hands back to the transport layer.
// Cookies must be applied even when the operation also returns an error.
type Outcome struct {
	Status  int // 0 means 200
	Body    any
	Cookies session.CookieSet
}

// LoginRequest carries user credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenPair is the upstream shape of a freshly issued session
type tokenPair struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	User         json.RawMessage `json:"user,omitempty"`
}

func (p tokenPair) complete() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Service is the session lifecycle controller. It holds no per-session state:
// every operation works only on the tokens passed in and returns the cookie
// writes the caller must perform.
type Service struct {
	cfg     *config.UpstreamConfig
	gateway Gateway
	decoder IdentityDecoder
	metrics *metrics.Metrics
}

// NewService creates a new session service
func NewService(cfg *config.UpstreamConfig, gateway Gateway, decoder IdentityDecoder, m *metrics.Metrics) *Service {
	return &Service{
		cfg:     cfg,
		gateway: gateway,
		decoder: decoder,
		metrics: m,
	}
}

// Login exchanges credentials for a token pair
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Outcome, error) {
	resp, err := s.gateway.Call(ctx, http.MethodPost, "/auth/login", req, "")
	if err != nil {
		s.metrics.SessionEvent("login", "error")
		return nil, &session.TransportFailure{Op: "login", Err: err}
	}
	if !resp.OK() {
		s.metrics.SessionEvent("login", "rejected")
		return nil, resp.Rejection()
	}

	out, err := issue("login", resp)
	if err != nil {
		s.metrics.SessionEvent("login", "error")
		return nil, err
	}
	s.metrics.SessionEvent("login", "success")
	return out, nil
}

// Register creates an account upstream. When upstream answers with a token
// pair the session starts right away, otherwise its body is relayed as is.
func (s *Service) Register(ctx context.Context, body json.RawMessage) (*Outcome, error) {
	resp, err := s.gateway.Call(ctx, http.MethodPost, "/auth/register", body, "")
	if err != nil {
		s.metrics.SessionEvent("register", "error")
		return nil, &session.TransportFailure{Op: "register", Err: err}
	}
	if !resp.OK() {
		s.metrics.SessionEvent("register", "rejected")
		return nil, resp.Rejection()
	}
	s.metrics.SessionEvent("register", "success")

	var pair tokenPair
	if err := resp.Decode(&pair); err == nil && pair.complete() {
		return &Outcome{
			Status:  resp.Status,
			Body:    userBody(pair.User),
			Cookies: session.IssuePair(session.Tokens{Access: pair.AccessToken, Refresh: pair.RefreshToken}),
		}, nil
	}
	return &Outcome{Status: resp.Status, Body: resp.Body}, nil
}

// Refresh mints a new pair from the refresh token. Any failure after the
// upstream call has been attempted clears both cookies.
func (s *Service) Refresh(ctx context.Context, tokens session.Tokens) (*Outcome, error) {
	if !tokens.HasRefresh() {
		s.metrics.SessionEvent("refresh", "missing")
		return nil, session.ErrMissingRefreshToken
	}

	body := map[string]string{"refreshToken": tokens.Refresh}
	resp, err := s.gateway.Call(ctx, http.MethodPost, "/auth/refresh", body, "")
	if err != nil {
		s.metrics.SessionEvent("refresh", "error")
		return &Outcome{Cookies: session.ClearPair()}, &session.TransportFailure{Op: "refresh", Err: err}
	}
	if !resp.OK() {
		s.metrics.SessionEvent("refresh", "rejected")
		return &Outcome{Cookies: session.ClearPair()}, resp.Rejection()
	}

	var pair tokenPair
	if err := resp.Decode(&pair); err != nil || !pair.complete() {
		s.metrics.SessionEvent("refresh", "error")
		return &Outcome{Cookies: session.ClearPair()}, &session.TransportFailure{Op: "refresh", Err: incompletePair(err)}
	}

	s.metrics.SessionEvent("refresh", "success")
	return &Outcome{
		Body:    map[string]string{"message": "session refreshed"},
		Cookies: session.IssuePair(session.Tokens{Access: pair.AccessToken, Refresh: pair.RefreshToken}),
	}, nil
}

// Logout always succeeds and always clears both cookies. Upstream is told
// about it only when an access token is present, and that notification's
// result is discarded.
func (s *Service) Logout(ctx context.Context, tokens session.Tokens) *Outcome {
	if tokens.HasAccess() {
		s.notifyLogout(ctx, tokens.Access)
	}
	s.metrics.SessionEvent("logout", "success")
	return &Outcome{
		Body:    map[string]string{"message": "logged out"},
		Cookies: session.ClearPair(),
	}
}

// notifyLogout is fire-and-forget, bounded by LogoutNotifyTimeout
func (s *Service) notifyLogout(ctx context.Context, access string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LogoutNotifyTimeout)
	defer cancel()

	resp, err := s.gateway.Call(ctx, http.MethodPost, "/auth/logout", nil, access)
	switch {
	case err != nil:
		log.Ctx(ctx).Debug().Err(err).Msg("logout notification dropped")
	case !resp.OK():
		log.Ctx(ctx).Debug().Int("status", resp.Status).Msg("logout notification rejected")
	}
}

// RequestMagicLink forwards the request and relays upstream's answer verbatim
func (s *Service) RequestMagicLink(ctx context.Context, email string) (*Outcome, error) {
	query := url.Values{"email": {email}}
	resp, err := s.gateway.Call(ctx, http.MethodGet, "/auth/magic-link/request?"+query.Encode(), nil, "")
	if err != nil {
		s.metrics.SessionEvent("magic_link_request", "error")
		return nil, &session.TransportFailure{Op: "magic link request", Err: err}
	}
	if !resp.OK() {
		s.metrics.SessionEvent("magic_link_request", "rejected")
		return nil, resp.Rejection()
	}
	s.metrics.SessionEvent("magic_link_request", "success")
	return &Outcome{Status: resp.Status, Body: resp.Body}, nil
}

// VerifyMagicLink exchanges a magic-link token for a session, exactly like Login
func (s *Service) VerifyMagicLink(ctx context.Context, token string) (*Outcome, error) {
	if token == "" {
		s.metrics.SessionEvent("magic_link_verify", "invalid")
		return nil, session.NewValidationError("token", "token is required")
	}

	query := url.Values{"token": {token}}
	resp, err := s.gateway.Call(ctx, http.MethodGet, "/auth/magic-link/verify?"+query.Encode(), nil, "")
	if err != nil {
		s.metrics.SessionEvent("magic_link_verify", "error")
		return nil, &session.TransportFailure{Op: "magic link verify", Err: err}
	}
	if !resp.OK() {
		s.metrics.SessionEvent("magic_link_verify", "rejected")
		return nil, resp.Rejection()
	}

	out, err := issue("magic link verify", resp)
	if err != nil {
		s.metrics.SessionEvent("magic_link_verify", "error")
		return nil, err
	}
	s.metrics.SessionEvent("magic_link_verify", "success")
	return out, nil
}

// WhoAmI returns the identity carried by the access token.
// A missing or undecodable token both yield ErrUnauthenticated.
func (s *Service) WhoAmI(tokens session.Tokens) (*session.Identity, error) {
	if !tokens.HasAccess() {
		return nil, session.ErrUnauthenticated
	}
	identity, ok := s.decoder.Decode(tokens.Access)
	if !ok {
		return nil, session.ErrUnauthenticated
	}
	return &identity, nil
}

// issue turns a successful login-shaped answer into a new session
func issue(op string, resp *upstream.Response) (*Outcome, error) {
	var pair tokenPair
	if err := resp.Decode(&pair); err != nil || !pair.complete() {
		return nil, &session.TransportFailure{Op: op, Err: incompletePair(err)}
	}
	return &Outcome{
		Body:    userBody(pair.User),
		Cookies: session.IssuePair(session.Tokens{Access: pair.AccessToken, Refresh: pair.RefreshToken}),
	}, nil
}

func userBody(user json.RawMessage) map[string]json.RawMessage {
	if len(user) == 0 {
		user = json.RawMessage("null")
	}
	return map[string]json.RawMessage{"user": user}
}

func incompletePair(err error) error {
	if err != nil {
		return err
	}
	return errors.New("response is missing the token pair")
}

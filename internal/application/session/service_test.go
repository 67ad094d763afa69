package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flowboard/internal/config"
	"flowboard/internal/domain/session"
	"flowboard/internal/infrastructure/identity"
	"flowboard/internal/infrastructure/upstream"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubUpstream records every call it receives and answers with a fixed reply per path
type stubUpstream struct {
	mu      sync.Mutex
	replies map[string]stubReply
	calls   map[string]*atomic.Int32
	bodies  map[string]string
	auth    map[string]string
	queries map[string]string
	server  *httptest.Server
}

type stubReply struct {
	status int
	body   string
	delay  time.Duration
}

func newStubUpstream(t *testing.T) *stubUpstream {
	t.Helper()
	s := &stubUpstream{
		replies: make(map[string]stubReply),
		calls:   make(map[string]*atomic.Int32),
		bodies:  make(map[string]string),
		auth:    make(map[string]string),
		queries: make(map[string]string),
	}
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.counter(r.URL.Path).Add(1)
		s.bodies[r.URL.Path] = string(body)
		s.auth[r.URL.Path] = r.Header.Get("Authorization")
		s.queries[r.URL.Path] = r.URL.RawQuery
		reply, ok := s.replies[r.URL.Path]
		s.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if reply.delay > 0 {
			select {
			case <-time.After(reply.delay):
			case <-r.Context().Done():
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = w.Write([]byte(reply.body))
	}))
	t.Cleanup(s.server.Close)
	return s
}

func (s *stubUpstream) counter(path string) *atomic.Int32 {
	c, ok := s.calls[path]
	if !ok {
		c = &atomic.Int32{}
		s.calls[path] = c
	}
	return c
}

func (s *stubUpstream) reply(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[path] = stubReply{status: status, body: body}
}

func (s *stubUpstream) slowReply(path string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[path] = stubReply{status: http.StatusOK, body: `{}`, delay: delay}
}

func (s *stubUpstream) count(path string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter(path).Load()
}

func (s *stubUpstream) lastBody(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func (s *stubUpstream) lastAuth(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

func (s *stubUpstream) lastQuery(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[path]
}

func newTestService(baseURL string) *Service {
	cfg := &config.UpstreamConfig{
		BaseURL:             baseURL,
		Timeout:             2 * time.Second,
		LogoutNotifyTimeout: 200 * time.Millisecond,
	}
	return NewService(cfg, upstream.NewClient(cfg), identity.NewDecoder(""), nil)
}

func accessToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u1",
		"email": "a@b.com",
		"org":   "o1",
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
	}).SignedString([]byte("issuer-key"))
	require.NoError(t, err)
	return token
}

func cookieValue(set session.CookieSet, name string) (session.CookieMutation, bool) {
	for _, m := range set {
		if m.Name == name {
			return m, true
		}
	}
	return session.CookieMutation{}, false
}

func assertCleared(t *testing.T, set session.CookieSet) {
	t.Helper()
	for _, name := range []string{session.AccessTokenCookie, session.RefreshTokenCookie} {
		m, ok := cookieValue(set, name)
		require.True(t, ok, "expected %s to be written", name)
		assert.True(t, m.Delete, "expected %s to be deleted", name)
	}
}

func TestService_Login_IssuesPair(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/login", http.StatusOK, `{"accessToken":"t1","refreshToken":"r1","user":{"id":"u1"}}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"email":"a@b.com","password":"pw"}`, stub.lastBody("/auth/login"))
	assert.Empty(t, stub.lastAuth("/auth/login"))

	body, err := json.Marshal(out.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"id":"u1"}}`, string(body))

	access, ok := cookieValue(out.Cookies, session.AccessTokenCookie)
	require.True(t, ok)
	assert.Equal(t, "t1", access.Value)
	assert.Equal(t, 900, access.MaxAge)

	refresh, ok := cookieValue(out.Cookies, session.RefreshTokenCookie)
	require.True(t, ok)
	assert.Equal(t, "r1", refresh.Value)
	assert.Equal(t, 604800, refresh.MaxAge)
}

func TestService_Login_RelaysRejection(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/login", http.StatusUnauthorized, `{"message":"Invalid credentials","statusCode":401}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "bad"})
	assert.Nil(t, out)

	var rejection *session.UpstreamRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusUnauthorized, rejection.Status)
	assert.JSONEq(t, `{"message":"Invalid credentials","statusCode":401}`, string(rejection.Body))
}

func TestService_Login_TransportFailure(t *testing.T) {
	stub := newStubUpstream(t)
	url := stub.server.URL
	stub.server.Close()
	svc := newTestService(url)

	out, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})
	assert.Nil(t, out)

	var failure *session.TransportFailure
	require.True(t, errors.As(err, &failure))
	var transportErr *upstream.TransportError
	assert.True(t, errors.As(err, &transportErr))
}

func TestService_Login_SuccessWithoutTokens(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/login", http.StatusOK, `{"user":{"id":"u1"}}`)
	svc := newTestService(stub.server.URL)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "a@b.com", Password: "pw"})

	var failure *session.TransportFailure
	assert.True(t, errors.As(err, &failure))
}

func TestService_Refresh_WithoutTokenSkipsUpstream(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/refresh", http.StatusOK, `{"accessToken":"t2","refreshToken":"r2"}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.Refresh(context.Background(), session.Tokens{Access: "t1"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, session.ErrMissingRefreshToken)
	assert.Equal(t, int32(0), stub.count("/auth/refresh"))
}

func TestService_Refresh_SendsTokenInBody(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/refresh", http.StatusOK, `{"accessToken":"t2","refreshToken":"r2"}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.Refresh(context.Background(), session.Tokens{Access: "t1", Refresh: "r1"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"refreshToken":"r1"}`, stub.lastBody("/auth/refresh"))
	assert.Empty(t, stub.lastAuth("/auth/refresh"))

	access, _ := cookieValue(out.Cookies, session.AccessTokenCookie)
	refresh, _ := cookieValue(out.Cookies, session.RefreshTokenCookie)
	assert.Equal(t, "t2", access.Value)
	assert.Equal(t, "r2", refresh.Value)
	assert.False(t, access.Delete)
	assert.False(t, refresh.Delete)
}

func TestService_Refresh_FailureClearsBothCookies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusUnauthorized, `{"message":"Invalid refresh token"}`},
		{"server error", http.StatusInternalServerError, `oops`},
		{"incomplete pair", http.StatusOK, `{"accessToken":"t2"}`},
		{"malformed success", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubUpstream(t)
			stub.reply("/auth/refresh", tt.status, tt.body)
			svc := newTestService(stub.server.URL)

			out, err := svc.Refresh(context.Background(), session.Tokens{Access: "t1", Refresh: "expired"})

			require.Error(t, err)
			require.NotNil(t, out)
			assertCleared(t, out.Cookies)
		})
	}
}

func TestService_Refresh_RejectionRelaysStatus(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/refresh", http.StatusUnauthorized, `{"message":"Invalid refresh token"}`)
	svc := newTestService(stub.server.URL)

	_, err := svc.Refresh(context.Background(), session.Tokens{Refresh: "expired"})

	var rejection *session.UpstreamRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusUnauthorized, rejection.Status)
}

func TestService_Refresh_UnreachableClearsBothCookies(t *testing.T) {
	stub := newStubUpstream(t)
	url := stub.server.URL
	stub.server.Close()
	svc := newTestService(url)

	out, err := svc.Refresh(context.Background(), session.Tokens{Refresh: "r1"})

	var failure *session.TransportFailure
	require.True(t, errors.As(err, &failure))
	assertCleared(t, out.Cookies)
}

func TestService_Logout_NotifiesWithBearer(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/logout", http.StatusOK, `{}`)
	svc := newTestService(stub.server.URL)

	out := svc.Logout(context.Background(), session.Tokens{Access: "t1", Refresh: "r1"})

	assertCleared(t, out.Cookies)
	assert.Equal(t, int32(1), stub.count("/auth/logout"))
	assert.Equal(t, "Bearer t1", stub.lastAuth("/auth/logout"))
}

func TestService_Logout_WithoutAccessTokenSkipsUpstream(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/logout", http.StatusOK, `{}`)
	svc := newTestService(stub.server.URL)

	out := svc.Logout(context.Background(), session.Tokens{Refresh: "r1"})

	assertCleared(t, out.Cookies)
	assert.Equal(t, int32(0), stub.count("/auth/logout"))
}

func TestService_Logout_SucceedsWhenUpstreamFails(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		stub := newStubUpstream(t)
		url := stub.server.URL
		stub.server.Close()

		out := newTestService(url).Logout(context.Background(), session.Tokens{Access: "t1", Refresh: "r1"})
		assertCleared(t, out.Cookies)
	})

	t.Run("rejected", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.reply("/auth/logout", http.StatusUnauthorized, `{"message":"Unauthorized"}`)

		out := newTestService(stub.server.URL).Logout(context.Background(), session.Tokens{Access: "t1"})
		assertCleared(t, out.Cookies)
	})

	t.Run("times out", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.slowReply("/auth/logout", 5*time.Second)

		start := time.Now()
		out := newTestService(stub.server.URL).Logout(context.Background(), session.Tokens{Access: "t1"})
		assertCleared(t, out.Cookies)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("caller context already cancelled", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.reply("/auth/logout", http.StatusOK, `{}`)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := newTestService(stub.server.URL).Logout(ctx, session.Tokens{Access: "t1"})
		assertCleared(t, out.Cookies)
		assert.Equal(t, int32(1), stub.count("/auth/logout"))
	})
}

func TestService_Logout_Idempotent(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/logout", http.StatusOK, `{}`)
	svc := newTestService(stub.server.URL)

	first := svc.Logout(context.Background(), session.Tokens{Access: "t1", Refresh: "r1"})
	// the browser holds no cookies after the first call
	second := svc.Logout(context.Background(), session.Tokens{})

	assert.Equal(t, first.Cookies, second.Cookies)
	assert.Equal(t, first.Body, second.Body)
}

func TestService_RequestMagicLink_RelaysVerbatim(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/magic-link/request", http.StatusOK, `{"message":"If the account exists, a link was sent"}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.RequestMagicLink(context.Background(), "a+b@example.com")
	require.NoError(t, err)

	assert.Equal(t, "email=a%2Bb%40example.com", stub.lastQuery("/auth/magic-link/request"))
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Nil(t, out.Cookies)
	raw, ok := out.Body.(json.RawMessage)
	require.True(t, ok)
	assert.JSONEq(t, `{"message":"If the account exists, a link was sent"}`, string(raw))
}

func TestService_RequestMagicLink_RelaysRejection(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/magic-link/request", http.StatusBadRequest, `{"message":["email must be an email"]}`)
	svc := newTestService(stub.server.URL)

	_, err := svc.RequestMagicLink(context.Background(), "nope")

	var rejection *session.UpstreamRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusBadRequest, rejection.Status)
}

func TestService_VerifyMagicLink_RequiresToken(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/magic-link/verify", http.StatusOK, `{"accessToken":"t1","refreshToken":"r1","user":{"id":"u1"}}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.VerifyMagicLink(context.Background(), "")

	assert.Nil(t, out)
	var validation *session.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "token", validation.Field)
	assert.Equal(t, int32(0), stub.count("/auth/magic-link/verify"))
}

func TestService_VerifyMagicLink_IssuesPair(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/magic-link/verify", http.StatusOK, `{"accessToken":"t1","refreshToken":"r1","user":{"id":"u1"}}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.VerifyMagicLink(context.Background(), "ml-123")
	require.NoError(t, err)

	assert.Equal(t, "token=ml-123", stub.lastQuery("/auth/magic-link/verify"))
	assert.Equal(t, session.IssuePair(session.Tokens{Access: "t1", Refresh: "r1"}), out.Cookies)
}

func TestService_VerifyMagicLink_RelaysRejection(t *testing.T) {
	stub := newStubUpstream(t)
	stub.reply("/auth/magic-link/verify", http.StatusGone, `{"message":"Link expired"}`)
	svc := newTestService(stub.server.URL)

	out, err := svc.VerifyMagicLink(context.Background(), "ml-123")

	assert.Nil(t, out)
	var rejection *session.UpstreamRejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusGone, rejection.Status)
	assert.JSONEq(t, `{"message":"Link expired"}`, string(rejection.Body))
}

func TestService_Register(t *testing.T) {
	t.Run("with token pair", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.reply("/auth/register", http.StatusCreated, `{"accessToken":"t1","refreshToken":"r1","user":{"id":"u1"}}`)

		out, err := newTestService(stub.server.URL).Register(context.Background(), json.RawMessage(`{"email":"a@b.com","password":"pw","name":"A"}`))
		require.NoError(t, err)

		assert.JSONEq(t, `{"email":"a@b.com","password":"pw","name":"A"}`, stub.lastBody("/auth/register"))
		assert.Equal(t, http.StatusCreated, out.Status)
		assert.Len(t, out.Cookies, 2)
	})

	t.Run("without token pair", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.reply("/auth/register", http.StatusCreated, `{"id":"u1","email":"a@b.com"}`)

		out, err := newTestService(stub.server.URL).Register(context.Background(), json.RawMessage(`{}`))
		require.NoError(t, err)

		assert.Nil(t, out.Cookies)
		raw, ok := out.Body.(json.RawMessage)
		require.True(t, ok)
		assert.JSONEq(t, `{"id":"u1","email":"a@b.com"}`, string(raw))
	})

	t.Run("rejected", func(t *testing.T) {
		stub := newStubUpstream(t)
		stub.reply("/auth/register", http.StatusConflict, `{"message":"Email already in use"}`)

		_, err := newTestService(stub.server.URL).Register(context.Background(), json.RawMessage(`{}`))

		var rejection *session.UpstreamRejection
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, http.StatusConflict, rejection.Status)
	})
}

func TestService_WhoAmI(t *testing.T) {
	svc := newTestService("http://127.0.0.1:0")

	id, err := svc.WhoAmI(session.Tokens{Access: accessToken(t)})
	require.NoError(t, err)
	assert.Equal(t, session.Identity{ID: "u1", Email: "a@b.com", OrgID: "o1"}, *id)

	tests := []struct {
		name   string
		tokens session.Tokens
	}{
		{"no cookies", session.Tokens{}},
		{"refresh only", session.Tokens{Refresh: "r1"}},
		{"garbage", session.Tokens{Access: "garbage"}},
		{"bad payload", session.Tokens{Access: "eyJhbGciOiJIUzI1NiJ9.!!!.sig"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := svc.WhoAmI(tt.tokens)
			assert.Nil(t, id)
			assert.ErrorIs(t, err, session.ErrUnauthenticated)
		})
	}
}

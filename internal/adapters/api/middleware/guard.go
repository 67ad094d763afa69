package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"flowboard/internal/config"
	"flowboard/internal/domain/session"
	"flowboard/internal/infrastructure/cookies"
	"flowboard/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	// SessionStateKey is the key used to store the session state in gin context
	SessionStateKey = "session_state"

	// NextParam carries the originally requested URI on login redirects
	NextParam = "next"
)

// Classification of a request path
type Classification string

const (
	Public    Classification = "public"
	Protected Classification = "protected"
)

// PathPolicy classifies request paths as public or protected from configuration.
// Anything not listed as public is protected.
type PathPolicy struct {
	loginPath string
	apiPrefix string
	exact     map[string]struct{}
	prefixes  []string
}

// NewPathPolicy builds a policy from the guard configuration. Entries ending
// in "*" match every path under that prefix; the login path is always public.
func NewPathPolicy(cfg *config.GuardConfig) *PathPolicy {
	p := &PathPolicy{
		loginPath: cfg.LoginPath,
		apiPrefix: cfg.APIPathPrefix,
		exact:     map[string]struct{}{cfg.LoginPath: {}},
	}
	for _, entry := range cfg.PublicPaths {
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			p.prefixes = append(p.prefixes, prefix)
			continue
		}
		p.exact[entry] = struct{}{}
	}
	return p
}

// Classify returns whether path needs a session
func (p *PathPolicy) Classify(requestPath string) Classification {
	clean := cleanPath(requestPath)
	if _, ok := p.exact[clean]; ok {
		return Public
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(clean, prefix) {
			return Public
		}
	}
	return Protected
}

// IsAPI reports whether a protected path answers 401 instead of redirecting
func (p *PathPolicy) IsAPI(requestPath string) bool {
	return p.apiPrefix != "" && strings.HasPrefix(cleanPath(requestPath), p.apiPrefix)
}

// LoginRedirect returns the login URL that sends the user back to requestURI afterwards
func (p *PathPolicy) LoginRedirect(requestURI string) string {
	if requestURI == "" || requestURI == "/" {
		return p.loginPath
	}
	return p.loginPath + "?" + url.Values{NextParam: {requestURI}}.Encode()
}

// cleanPath resolves dot segments so "/auth/../dashboard" is classified as "/dashboard"
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean
}

// Guard runs before every handler. Protected paths require an access token
// cookie: browsers are redirected to the login page, API callers get 401.
func Guard(policy *PathPolicy, store *cookies.Store, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := session.Classify(store.Tokens(c))
		c.Set(SessionStateKey, state)

		if policy.Classify(c.Request.URL.Path) == Public {
			m.GuardDecision("public", string(state))
			c.Next()
			return
		}

		if state == session.StateAuthenticated {
			m.GuardDecision("allow", string(state))
			c.Next()
			return
		}

		logger := log.Ctx(c.Request.Context())
		if policy.IsAPI(c.Request.URL.Path) {
			m.GuardDecision("reject", string(state))
			logger.Debug().Str("path", c.Request.URL.Path).Str("state", string(state)).Msg("guard rejected api request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": session.ErrUnauthenticated.Error()})
			return
		}

		m.GuardDecision("redirect", string(state))
		logger.Debug().Str("path", c.Request.URL.Path).Str("state", string(state)).Msg("guard redirected to login")
		c.Redirect(http.StatusFound, policy.LoginRedirect(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// StateFrom returns the session state the guard stored for this request
func StateFrom(c *gin.Context) session.State {
	if v, ok := c.Get(SessionStateKey); ok {
		if state, ok := v.(session.State); ok {
			return state
		}
	}
	return session.StateAnonymous
}

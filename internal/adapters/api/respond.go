package api

import (
	"errors"
	"net/http"

	appsession "flowboard/internal/application/session"
	"flowboard/internal/domain/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	jsonContentType = "application/json; charset=utf-8"

	// transportFailureMessage is all a client ever learns about a transport failure
	transportFailureMessage = "Something went wrong. Please try again later."
)

// respond writes a lifecycle outcome. Cookies go out first and are written
// even when err is set: a failed refresh still has to clear the session.
func (h *Handler) respond(c *gin.Context, out *appsession.Outcome, err error) {
	if out != nil {
		h.store.Apply(c, out.Cookies)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := out.Status
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, out.Body)
}

// writeError maps the error taxonomy onto HTTP
func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validation *session.ValidationError
		rejection  *session.UpstreamRejection
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, session.ErrMissingRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &rejection):
		c.Data(rejection.Status, jsonContentType, rejection.Body)
	default:
		log.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("upstream transport failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": transportFailureMessage})
	}
}

package server

import (
	"net/http"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/pkg/log"
)

// statusOf maps an error to the HTTP status shown to the user.
func statusOf(err error) int {
	var (
		notFound   *errors.SessionNotFoundError
		transition *errors.InvalidTransitionError
		tooLarge   *http.MaxBytesError
		panicErr   *errors.PanicError
		collab     *errors.CollaboratorError
		unsupp     *errors.UnsupportedFormatError
		parse      *errors.ParseError
		column     *errors.ColumnNotFoundError
		validation *errors.ValidationError
		value      *errors.ValueError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errors.ErrUnavailable):
		return http.StatusBadGateway
	case errors.As(err, &panicErr):
		return http.StatusInternalServerError
	case errors.As(err, &collab),
		errors.As(err, &unsupp),
		errors.As(err, &parse),
		errors.As(err, &column),
		errors.As(err, &validation),
		errors.As(err, &value),
		errors.Is(err, errors.ErrEmptyData),
		errors.Is(err, errors.ErrNoModels):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail reports err. Session pages are re-rendered with the message; every
// other request gets plain text.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	fields := []any{err, log.MethodKey, r.Method, log.PathKey, r.URL.Path, log.StatusKey, status}
	if status >= 500 {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Warn("request failed", fields...)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}

	if r.Method == http.MethodPost && status != http.StatusNotFound {
		var rerr error
		if sess, gerr := s.sessions.Get(r.PathValue("id")); gerr == nil {
			rerr = s.render(w, status, "session.html", s.sessionView(sess, msg))
		} else if r.URL.Path == "/sessions" {
			rerr = s.render(w, status, "index.html", indexView{Error: msg, Formats: formats()})
		} else {
			rerr = err
		}
		if rerr == nil {
			return
		}
		if rerr != err {
			s.logger.Error("render failed", rerr)
		}
	}
	http.Error(w, msg, status)
}

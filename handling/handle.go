package handling

import (
	"net/http"

	"github.com/MonkyMars/gecho"
)

// HandleError logs an unexpected failure and writes the opaque 500
// response. Expected domain errors (expired, accepted, not found) are
// mapped by the handlers themselves.
func HandleError(err error, msg string, logger *gecho.Logger, w http.ResponseWriter) error {
	logger.Error("Request failed", gecho.Field("error", err), gecho.Field("msg", msg), gecho.WithCallerSkip(3))

	return gecho.InternalServerError(w, gecho.WithMessage(msg)).Send()
}

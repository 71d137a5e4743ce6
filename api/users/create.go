package users

import (
	"net/http"
	"proposal_server/handling"
	"proposal_server/lib"
	"proposal_server/proposal"

	"github.com/MonkyMars/gecho"
)

type createUserRequest struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// CreateUser handles POST /users: registers a recipient record so
// subsequent proposals to its email resolve notify actions.
func (urm *UserRoutesManager) CreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[createUserRequest](r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("error.user.invalidRequestBody"),
			gecho.WithData(err),
			gecho.Send(),
		)
		return
	}

	user, err := urm.userService.Create(r.Context(), body.Email, body.Name)
	if err != nil {
		if lib.IsUniqueViolation(err) {
			gecho.Conflict(w,
				gecho.WithMessage("error.user.duplicateEmail"),
				gecho.Send(),
			)
			return
		}
		handling.HandleError(err, "error.user.creationFailed", urm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithMessage("success.user.created"),
		gecho.WithData(user),
		gecho.Send(),
	)
}

// LookupUser handles GET /users/lookup?email=..., the same lookup the
// proposal action resolution performs.
func (urm *UserRoutesManager) LookupUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !proposal.ValidEmail(email) {
		gecho.BadRequest(w,
			gecho.WithMessage("error.user.invalidEmail"),
			gecho.Send(),
		)
		return
	}

	user, err := urm.userService.FindByEmail(r.Context(), email)
	if err != nil {
		handling.HandleError(err, "error.user.lookupFailed", urm.logger, w)
		return
	}
	if user == nil {
		gecho.NotFound(w,
			gecho.WithMessage("error.user.notFound"),
			gecho.Send(),
		)
		return
	}

	gecho.Success(w,
		gecho.WithData(user),
		gecho.Send(),
	)
}

package proposals

import (
	"errors"
	"net/http"
	"proposal_server/handling"
	"proposal_server/proposal"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// RemindProposal handles POST /proposals/{token}/remind, stamping the
// reminder timestamp when the token's action is a remind variant.
func (prm *ProposalRoutesManager) RemindProposal(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")

	token, err := prm.proposalService.Remind(r.Context(), value)
	switch {
	case err == nil:
		gecho.Success(w,
			gecho.WithMessage("success.proposal.reminded"),
			gecho.WithData(token),
			gecho.Send(),
		)
	case errors.Is(err, proposal.ErrTokenNotFound):
		gecho.NotFound(w,
			gecho.WithMessage("error.proposal.notFound"),
			gecho.Send(),
		)
	case errors.Is(err, proposal.ErrNotRemindable):
		gecho.Conflict(w,
			gecho.WithMessage("error.proposal.notRemindable"),
			gecho.Send(),
		)
	default:
		handling.HandleError(err, "error.proposal.remindFailed", prm.logger, w)
	}
}

package proposals

import (
	"errors"
	"net/http"
	"proposal_server/handling"
	"proposal_server/proposal"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// AcceptProposal handles POST /proposals/{token}/accept. The strict
// accept form distinguishes expired and already-used tokens.
func (prm *ProposalRoutesManager) AcceptProposal(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")

	token, err := prm.proposalService.Accept(r.Context(), value)
	switch {
	case err == nil:
		gecho.Success(w,
			gecho.WithMessage("success.proposal.accepted"),
			gecho.WithData(token),
			gecho.Send(),
		)
	case errors.Is(err, proposal.ErrTokenNotFound):
		gecho.NotFound(w,
			gecho.WithMessage("error.proposal.notFound"),
			gecho.Send(),
		)
	case errors.Is(err, proposal.ErrExpired):
		gecho.Conflict(w,
			gecho.WithMessage("error.proposal.expired"),
			gecho.Send(),
		)
	case errors.Is(err, proposal.ErrAccepted):
		gecho.Conflict(w,
			gecho.WithMessage("error.proposal.alreadyAccepted"),
			gecho.Send(),
		)
	default:
		handling.HandleError(err, "error.proposal.acceptFailed", prm.logger, w)
	}
}

package proposals

import (
	"errors"
	"net/http"
	"proposal_server/handling"
	"proposal_server/proposal"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

// FetchProposal handles GET /proposals/{token}.
func (prm *ProposalRoutesManager) FetchProposal(w http.ResponseWriter, r *http.Request) {
	value := chi.URLParam(r, "token")

	token, err := prm.proposalService.Get(r.Context(), value)
	if err != nil {
		if errors.Is(err, proposal.ErrTokenNotFound) {
			gecho.NotFound(w,
				gecho.WithMessage("error.proposal.notFound"),
				gecho.Send(),
			)
			return
		}
		handling.HandleError(err, "error.proposal.fetchFailed", prm.logger, w)
		return
	}

	action, err := token.Action(r.Context())
	if err != nil {
		prm.logger.Warn("Failed to resolve proposal action", gecho.Field("error", err))
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"token":  token,
			"action": action,
		}),
		gecho.Send(),
	)
}

// ListProposals handles GET /proposals with exact-match filters on the
// proposable type, resource, proposer, email and lifecycle state.
func (prm *ProposalRoutesManager) ListProposals(w http.ResponseWriter, r *http.Request) {
	opts, err := handling.ParseProposalListOptions(r)
	if err != nil {
		prm.logger.Warn("Invalid query parameters", gecho.Field("error", err))
		gecho.BadRequest(w,
			gecho.WithMessage("error.invalidQueryParameters"),
			gecho.WithData(err.Error()),
			gecho.Send(),
		)
		return
	}

	tokens, err := prm.proposalService.List(r.Context(), opts)
	if err != nil {
		handling.HandleError(err, "error.proposal.listFailed", prm.logger, w)
		return
	}

	gecho.Success(w,
		gecho.WithData(map[string]any{
			"proposals": tokens,
			"count":     len(tokens),
		}),
		gecho.Send(),
	)
}

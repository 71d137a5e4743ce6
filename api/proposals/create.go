package proposals

import (
	"errors"
	"net/http"
	"proposal_server/api/health"
	"proposal_server/handling"
	"proposal_server/lib"
	"proposal_server/proposal"
	"proposal_server/structs"

	"github.com/MonkyMars/gecho"
)

// CreateProposal handles POST /proposals: find-or-new on the dedup key,
// then save. The response's action tells the caller which message to
// send (invite/notify for a fresh token, a remind variant for an
// existing pending one).
func (prm *ProposalRoutesManager) CreateProposal(w http.ResponseWriter, r *http.Request) {
	body, err := lib.ExtractAndValidateBody[structs.ProposeRequest](r)
	if err != nil {
		gecho.BadRequest(w,
			gecho.WithMessage("error.proposal.invalidRequestBody"),
			gecho.WithData(err.Error()),
			gecho.Send(),
		)
		return
	}

	token, action, saved, err := prm.proposalService.Propose(r.Context(), body)
	if err != nil {
		if errors.Is(err, proposal.ErrUnknownProposable) {
			gecho.BadRequest(w,
				gecho.WithMessage("error.proposal.unknownProposableType"),
				gecho.WithData(map[string]string{"proposable_type": body.ProposableType}),
				gecho.Send(),
			)
			return
		}
		handling.HandleError(err, "error.proposal.creationFailed", prm.logger, w)
		return
	}

	if !saved {
		violations := token.Violations()
		if hasOutstanding(violations) {
			gecho.Conflict(w,
				gecho.WithMessage("error.proposal.outstandingProposal"),
				gecho.WithData(structs.ViolationsResponse{Violations: violations.Map()}),
				gecho.Send(),
			)
			return
		}
		gecho.BadRequest(w,
			gecho.WithMessage("error.proposal.validationFailed"),
			gecho.WithData(structs.ViolationsResponse{Violations: violations.Map()}),
			gecho.Send(),
		)
		return
	}

	health.ProposalActions.WithLabelValues(string(action)).Inc()

	gecho.Success(w,
		gecho.WithMessage("success.proposal.created"),
		gecho.WithData(structs.ProposeResponse{Token: token, Action: action}),
		gecho.Send(),
	)
}

func hasOutstanding(v *proposal.Violations) bool {
	for _, msg := range v.On("email") {
		if msg == "already has an outstanding proposal" {
			return true
		}
	}
	return false
}

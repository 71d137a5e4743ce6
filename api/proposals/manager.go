package proposals

import (
	"proposal_server/api/middleware"
	"proposal_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type ProposalRoutesManager struct {
	logger          *gecho.Logger
	proposalService *services.ProposalService
	mw              *middleware.Middleware
}

func NewProposalRoutesManager(
	logger *gecho.Logger,
	proposalService *services.ProposalService,
	mw *middleware.Middleware,
) *ProposalRoutesManager {
	return &ProposalRoutesManager{
		logger:          logger,
		proposalService: proposalService,
		mw:              mw,
	}
}

func (prm *ProposalRoutesManager) RegisterRoutes(r chi.Router) {
	// Mutating routes require an API token; accepting stays open because
	// the opaque token value is the credential itself.
	r.Group(func(r chi.Router) {
		r.Use(prm.mw.APIAuthMiddleware)
		r.Post("/proposals", prm.CreateProposal)
		r.Post("/proposals/{token}/remind", prm.RemindProposal)
		r.Get("/proposals", prm.ListProposals)
	})

	r.Get("/proposals/{token}", prm.FetchProposal)
	r.Post("/proposals/{token}/accept", prm.AcceptProposal)
}

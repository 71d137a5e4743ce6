package api

import (
	"proposal_server/api/health"
	"proposal_server/api/proposals"
	"proposal_server/api/users"

	"github.com/go-chi/chi/v5"
)

type routerManager struct {
	proposalRoutes *proposals.ProposalRoutesManager
	userRoutes     *users.UserRoutesManager
	healthRoutes   *health.HealthRoutesManager
}

func NewRouterManager(
	proposalRoutes *proposals.ProposalRoutesManager,
	userRoutes *users.UserRoutesManager,
	healthRoutes *health.HealthRoutesManager,
) *routerManager {
	return &routerManager{
		proposalRoutes: proposalRoutes,
		userRoutes:     userRoutes,
		healthRoutes:   healthRoutes,
	}
}

func (rm *routerManager) RegisterRoutes(r chi.Router) {
	rm.proposalRoutes.RegisterRoutes(r)
	rm.userRoutes.RegisterRoutes(r)
	rm.healthRoutes.RegisterRoutes(r)
}

package services

import (
	"proposal_server/database"
	"proposal_server/structs"

	"github.com/MonkyMars/gecho"
)

type ServiceManager struct {
	CacheService    *CacheService
	UserService     *UserService
	ProposalService *ProposalService
	HealthService   *HealthService
}

func NewServiceManager(logger *gecho.Logger, cfg *structs.Config, db *database.DB) *ServiceManager {
	cacheService := NewCacheService(logger, cfg)
	userService := NewUserService(logger, db, cacheService)
	proposalService := NewProposalService(logger, cfg, db, userService)
	healthService := NewHealthService(logger, db, cacheService)

	return &ServiceManager{
		CacheService:    cacheService,
		UserService:     userService,
		ProposalService: proposalService,
		HealthService:   healthService,
	}
}

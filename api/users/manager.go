package users

import (
	"proposal_server/api/middleware"
	"proposal_server/services"

	"github.com/MonkyMars/gecho"
	"github.com/go-chi/chi/v5"
)

type UserRoutesManager struct {
	logger      *gecho.Logger
	userService *services.UserService
	mw          *middleware.Middleware
}

func NewUserRoutesManager(
	logger *gecho.Logger,
	userService *services.UserService,
	mw *middleware.Middleware,
) *UserRoutesManager {
	return &UserRoutesManager{
		logger:      logger,
		userService: userService,
		mw:          mw,
	}
}

func (urm *UserRoutesManager) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(urm.mw.APIAuthMiddleware)
		r.Post("/users", urm.CreateUser)
		r.Get("/users/lookup", urm.LookupUser)
	})
}

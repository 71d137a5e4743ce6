package services

import (
	"context"
	"proposal_server/database"
	"proposal_server/lib"
	"proposal_server/structs/tables"

	"github.com/MonkyMars/gecho"
)

// UserService backs the built-in "User" proposable type.
type UserService struct {
	logger       *gecho.Logger
	db           *database.DB
	cacheService *CacheService
}

func NewUserService(logger *gecho.Logger, db *database.DB, cacheService *CacheService) *UserService {
	return &UserService{
		logger:       logger,
		db:           db,
		cacheService: cacheService,
	}
}

// FindByEmail looks up a user through the recipient cache, falling back
// to the database on a miss. Returns (nil, nil) when no user exists.
func (us *UserService) FindByEmail(ctx context.Context, email string) (*tables.User, error) {
	if user, hit, err := us.cacheService.GetRecipient(ctx, email); err == nil && hit {
		return user, nil
	} else if err != nil {
		us.logger.Warn("Recipient cache lookup failed, falling back to database",
			gecho.Field("email", email),
			gecho.Field("error", err),
		)
	}

	user, err := database.Query[tables.User](us.db).Where("email", email).First(ctx)
	if err != nil {
		return nil, lib.MapPgError(err)
	}

	if cacheErr := us.cacheService.SetRecipient(ctx, email, user); cacheErr != nil {
		us.logger.Warn("Failed to cache recipient lookup", gecho.Field("email", email), gecho.Field("error", cacheErr))
	}

	return user, nil
}

// Create inserts a user row and invalidates any cached negative lookup
// for its email.
func (us *UserService) Create(ctx context.Context, email, name string) (*tables.User, error) {
	user := &tables.User{Email: email, Name: name}
	user, err := database.Query[tables.User](us.db).Insert(ctx, user)
	if err != nil {
		mappedErr := lib.MapPgError(err)
		if lib.IsUniqueViolation(mappedErr) {
			us.logger.Warn("User creation failed - duplicate email", gecho.Field("email", email))
		} else {
			us.logger.Error("Database error during user creation", gecho.Field("error", mappedErr))
		}
		return nil, mappedErr
	}

	if cacheErr := us.cacheService.InvalidateRecipient(ctx, email); cacheErr != nil {
		us.logger.Warn("Failed to invalidate recipient cache", gecho.Field("email", email), gecho.Field("error", cacheErr))
	}

	return user, nil
}

// UserProposable adapts the user service to the proposal registry's
// capability contract.
type UserProposable struct {
	users *UserService
}

func NewUserProposable(users *UserService) *UserProposable {
	return &UserProposable{users: users}
}

func (up *UserProposable) ProposableName() string { return "User" }

func (up *UserProposable) FindRecipientByEmail(ctx context.Context, email string) (any, error) {
	user, err := up.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return user, nil
}

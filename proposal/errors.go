package proposal

import "errors"

// State machine errors, returned by the strict accept/remind forms.
var (
	ErrExpired       = errors.New("proposal token has expired")
	ErrAccepted      = errors.New("proposal token has already been accepted")
	ErrNotRemindable = errors.New("proposal has not been made")
)

// Lookup / store errors
var (
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrTokenNotFound     = errors.New("proposal token not found")
	ErrUnknownProposable = errors.New("proposable type is not registered")

	// ErrDuplicate is returned by stores when the pending-proposal
	// uniqueness constraint rejects an insert. Token.Save converts it
	// into the "already has an outstanding proposal" violation.
	ErrDuplicate = errors.New("already has an outstanding proposal")
)

func isDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

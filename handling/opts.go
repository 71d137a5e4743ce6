package handling

import (
	"fmt"
	"net/http"
	"proposal_server/proposal"
)

// ParseProposalListOptions parses HTTP query parameters into a token
// listing query.
func ParseProposalListOptions(r *http.Request) (*proposal.TokenQuery, error) {
	query := r.URL.Query()

	opts := &proposal.TokenQuery{
		Email:          query.Get("email"),
		ProposableType: query.Get("proposable_type"),
	}

	if v := query.Get("resource_type"); v != "" {
		opts.ResourceType = &v
	}
	if v := query.Get("resource_id"); v != "" {
		opts.ResourceID = &v
	}
	if v := query.Get("proposer_type"); v != "" {
		opts.ProposerType = &v
	}
	if v := query.Get("proposer_id"); v != "" {
		opts.ProposerID = &v
	}

	switch query.Get("state") {
	case "":
		opts.State = proposal.StateAny
	case "pending":
		opts.State = proposal.StatePending
	case "accepted":
		opts.State = proposal.StateAccepted
	case "expired":
		opts.State = proposal.StateExpired
	case "reminded":
		opts.State = proposal.StateReminded
	default:
		return nil, fmt.Errorf("unknown state filter %q", query.Get("state"))
	}

	return opts, nil
}

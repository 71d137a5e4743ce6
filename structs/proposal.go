package structs

import "proposal_server/proposal"

// ProposeRequest creates or re-locates a proposal token.
type ProposeRequest struct {
	Email          string         `json:"email" validate:"required"`
	ProposableType string         `json:"proposable_type" validate:"required"`
	ResourceType   string         `json:"resource_type,omitempty"`
	ResourceID     string         `json:"resource_id,omitempty"`
	ProposerType   string         `json:"proposer_type,omitempty"`
	ProposerID     string         `json:"proposer_id,omitempty"`
	Arguments      map[string]any `json:"arguments,omitempty"`
	ArgumentsList  []any          `json:"arguments_list,omitempty"`
}

// ProposeResponse reports the resolved token plus its derived action.
type ProposeResponse struct {
	Token  *proposal.Token `json:"token"`
	Action proposal.Action `json:"action"`
}

// ViolationsResponse is the error body for validation failures.
type ViolationsResponse struct {
	Violations map[string][]string `json:"violations"`
}

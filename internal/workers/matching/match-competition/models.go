// internal/workers/matching/match-competition/models.go
package matchcompetition

import "competition-matcher/internal/models"

type Input struct {
	Competition models.ScrapedCompetition `json:"competition"`
}

type Output struct {
	MatchResult *models.MatchResult `json:"matchResult"`
	ProposalID  string              `json:"proposalId,omitempty"`
	Duplicate   bool                `json:"duplicateProposal"`
	FromCache   bool                `json:"fromCache,omitempty"`
}

package governance

import "fmt"

// Policy decides when a milestone release needs its own vote on top of
// budget approval.
type Policy uint8

const (
	// PolicyFlagged requires a milestone vote only for milestones marked requires_vote.
	PolicyFlagged Policy = iota
	// PolicyBudget treats budget approval as sufficient for every milestone.
	PolicyBudget
	// PolicyAlways requires a milestone vote for every release.
	PolicyAlways
)

var policyNames = map[Policy]string{
	PolicyFlagged: "flagged",
	PolicyBudget:  "budget",
	PolicyAlways:  "always",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(name string) (Policy, error) {
	for p, s := range policyNames {
		if s == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

// NeedsMilestoneVote reports whether a milestone with the given flag
// requires a passed milestone vote before release.
func (p Policy) NeedsMilestoneVote(requiresVote bool) bool {
	switch p {
	case PolicyBudget:
		return false
	case PolicyAlways:
		return true
	default:
		return requiresVote
	}
}

package pipeline

import "strings"

const (
	roleBonus   = 0.15
	rolePenalty = -0.5
)

// unrelatedRoleTerms flag titles that embed well but point at a different
// career track entirely.
var unrelatedRoleTerms = []string{
	"trainer",
	"sales",
	"hr",
	"recruiter",
	"marketing",
	"business development",
	"bpo",
	"customer support",
}

// roleAdjustment returns a bounded additive modifier for the job title
// against the candidate's ordered target roles, plus a human-readable reason.
//
// A substring match against any target role earns the bonus; the first
// matching role wins and only shapes the reason string, not the magnitude.
// An unrelated-role term earns the penalty unless that exact term also
// appears in the target roles, which is an explicit opt-in that suppresses
// the penalty (the bonus path above already handled the match).
func roleAdjustment(title string, targetRoles []string) (float64, string) {
	if title == "" {
		return 0, ""
	}

	titleLower := strings.ToLower(title)

	roles := make([]string, 0, len(targetRoles))
	for _, role := range targetRoles {
		roles = append(roles, strings.ToLower(strings.TrimSpace(role)))
	}

	for _, role := range roles {
		if role != "" && strings.Contains(titleLower, role) {
			return roleBonus, "Matches target role: " + role
		}
	}

	for _, term := range unrelatedRoleTerms {
		if !strings.Contains(titleLower, term) {
			continue
		}
		optedIn := false
		for _, role := range roles {
			if strings.Contains(role, term) {
				optedIn = true
				break
			}
		}
		if !optedIn {
			return rolePenalty, "Role mismatch: " + term
		}
	}

	return 0, ""
}

func joinSkills(skills []string) string {
	return strings.Join(skills, ", ")
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

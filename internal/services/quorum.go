package services

import "github.com/localnerve/assemblydb/internal/models"

// EnoughSupporters is the support quorum rule. A document has enough
// supporters when no minimum is configured, when its state is past the
// support phase, or when the supporter count reaches the minimum.
func EnoughSupporters(minimum, supporters int, state *models.State) bool {
	if minimum <= 0 {
		return true
	}
	if state != nil && !state.AllowSupport {
		return true
	}
	return supporters >= minimum
}

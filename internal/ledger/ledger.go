package ledger

// Reward constants. Trees are derived from points by floor division; the
// community trees-planted counter moves only on submission create/reverse.
const (
	PointsPerTree            = 10
	ClickPointsPerValidation = 10
	TreesPerValidation       = 1
	DefaultMaxTrees          = 20
)

// TreesFor derives the tree count for a point total.
func TreesFor(totalPoints int) int {
	if totalPoints <= 0 {
		return 0
	}
	return totalPoints / PointsPerTree
}

// EffectiveMaxTrees resolves a stored per-user cap, falling back to the
// global default when the user has no explicit cap.
func EffectiveMaxTrees(maxTrees int) int {
	if maxTrees <= 0 {
		return DefaultMaxTrees
	}
	return maxTrees
}

// ClampNonNegative floors a counter at zero.
func ClampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// ApplyAward returns the user totals after an approved submission award.
func ApplyAward(currentPoints, award int) (newPoints, newTrees int) {
	newPoints = currentPoints + award
	return newPoints, TreesFor(newPoints)
}

// ApplyReversal returns the user totals after a submission's points are
// reversed. The point total clamps at zero before trees are recomputed.
func ApplyReversal(currentPoints, reversedPoints int) (newPoints, newTrees int) {
	newPoints = ClampNonNegative(currentPoints - reversedPoints)
	return newPoints, TreesFor(newPoints)
}

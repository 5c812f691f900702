package generation

// IsComplete reports whether a photo's design collection is fully covered.
// An empty catalog never counts as complete: with zero designs there is
// nothing to deliver and the vacuous-truth case must not fire downstream
// triggers.
func IsComplete(completeCount, totalDesigns int) bool {
	if totalDesigns <= 0 {
		return false
	}
	return completeCount >= totalDesigns
}

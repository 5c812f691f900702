package domain

// ExpectedDesignCount is the catalog size the product was designed around.
// The live count of published hair_designs rows is the source of truth; this
// constant is only validated against it so a catalog drift gets logged
// instead of silently changing completion semantics.
const ExpectedDesignCount = 16

// HairDesign is one generation instruction applied to every photo. Read-only
// from the orchestrator's point of view; catalog management lives elsewhere.
type HairDesign struct {
	ID        int
	Title     string
	Prompt    string
	SampleKey string
	Published bool
	SortOrder int
}

// Package indicator holds the scoring tree of the basin health index.
//
// # Tree
//
// Every node is an [Indicator] with a name, a weight within its sibling group
// and a cached 0-100 score. Composite nodes aggregate their children; leaf
// nodes wrap a [Leaf] that scores raw observations:
//
//	ManualEntry       user-entered score
//	GovernanceSurvey  Likert survey answers
//	WaterQuality      parameter compliance at gauges
//	FlowDeviation     AAPFD of regulated vs unregulated discharge
//	LandCover         area-weighted naturalness
//
// # Scores
//
// A score is (int, bool); false means the data cannot support a score. Such
// children drop out of their parent's weighted mean instead of counting as 0,
// and a composite with no scored children has no score either.
//
// EffectiveValue prefers a user override over the computed Value.
//
// # Caching
//
// Value memoizes until Invalidate. Raw-data setters on leaves, weight edits
// and overrides emit a change signal; each composite subscribes to its
// children when they are attached and invalidates itself in response, so a
// leaf mutation has invalidated every ancestor by the time it returns.
// Recomputation is lazy and bottom-up on the next read.
//
// The tree is not safe for concurrent use.
package indicator

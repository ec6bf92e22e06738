package entities

// FeatureType identifies one signal extracted for a candidate pair. The set is
// fixed; the scorer and learning engine switch over it exhaustively.
type FeatureType string

const (
	FeatureCoOccurrence        FeatureType = "co_occurrence"
	FeatureTimelineProximity   FeatureType = "timeline_proximity"
	FeatureAttributeSimilarity FeatureType = "attribute_similarity"
	FeatureSharedLocation      FeatureType = "shared_location"
	FeatureSharedFaction       FeatureType = "shared_faction"
	FeatureNetworkCentrality   FeatureType = "network_centrality"
	FeatureMentionFrequency    FeatureType = "mention_frequency"
	FeatureSemanticSimilarity  FeatureType = "semantic_similarity"
)

// AllFeatureTypes lists the feature set in extraction order.
var AllFeatureTypes = []FeatureType{
	FeatureCoOccurrence,
	FeatureTimelineProximity,
	FeatureAttributeSimilarity,
	FeatureSharedLocation,
	FeatureSharedFaction,
	FeatureNetworkCentrality,
	FeatureMentionFrequency,
	FeatureSemanticSimilarity,
}

// Feature is one named, normalized signal. Value is always within [0,1].
type Feature struct {
	Type  FeatureType `json:"type"`
	Value float64     `json:"value"`
}

// FeatureVector is an ordered set of features for one candidate pair.
// Features whose inputs are undefined are omitted, never zero-filled, so the
// vector length varies pair to pair.
type FeatureVector []Feature

// Get returns the value of a feature and whether it is present.
func (v FeatureVector) Get(ft FeatureType) (float64, bool) {
	for _, f := range v {
		if f.Type == ft {
			return f.Value, true
		}
	}
	return 0, false
}

// Has reports whether a feature is present.
func (v FeatureVector) Has(ft FeatureType) bool {
	_, ok := v.Get(ft)
	return ok
}

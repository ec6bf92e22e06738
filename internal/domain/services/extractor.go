package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ersonp/saga-core/internal/domain/entities"
	"github.com/ersonp/saga-core/internal/domain/ports"
)

// mentionCap is the mention count at which mention_frequency saturates.
const mentionCap = 10

// FeatureExtractor computes normalized feature vectors for candidate entity
// pairs. A ScopeContext is built once per job so per-pair extraction never
// re-reads the whole scope.
type FeatureExtractor struct {
	store  ports.EntityStore
	oracle ports.SemanticOracle // optional; nil disables semantic_similarity
}

// NewFeatureExtractor creates a new FeatureExtractor. oracle may be nil.
func NewFeatureExtractor(store ports.EntityStore, oracle ports.SemanticOracle) *FeatureExtractor {
	return &FeatureExtractor{
		store:  store,
		oracle: oracle,
	}
}

// TypeSignals carries pair markers consumed by the type prediction rules.
// They are rule inputs, not scored features, so they never affect confidence.
type TypeSignals struct {
	OpposingFactions bool    // the pair's factions are marked opposed
	SharedFamilyName bool    // equal non-empty family_name attributes
	AgeGap           float64 // |birth year difference|, when both known
	HasAgeGap        bool
}

// ScopeContext is the read-once view of a saga used to extract features for
// every pair in a job.
type ScopeContext struct {
	SagaID   string
	Entities []*entities.Entity

	byID      map[string]*entities.Entity
	degrees   map[string]int
	factions  map[string]map[string]bool // entity id -> faction entity ids
	locations map[string]map[string]bool // entity id -> location entity ids
	corpus    []string                   // lowercased description per entity
	maxSpan   float64                    // widest observed timeline distance
	hasGraph  bool
}

// BuildScopeContext loads a saga's entities and relationship graph once.
func (e *FeatureExtractor) BuildScopeContext(ctx context.Context, sagaID string) (*ScopeContext, error) {
	ents, err := e.store.ListEntitiesInScope(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}

	rels, err := e.store.ListRelationshipsInScope(ctx, sagaID)
	if err != nil {
		return nil, fmt.Errorf("listing relationships: %w", err)
	}

	sc := &ScopeContext{
		SagaID:    sagaID,
		Entities:  ents,
		byID:      make(map[string]*entities.Entity, len(ents)),
		degrees:   make(map[string]int),
		factions:  make(map[string]map[string]bool),
		locations: make(map[string]map[string]bool),
		hasGraph:  len(rels) > 0,
	}

	var minAnchor, maxAnchor float64
	anchors := 0
	for _, ent := range ents {
		sc.byID[ent.ID] = ent
		if ent.Description != "" {
			sc.corpus = append(sc.corpus, strings.ToLower(ent.Description))
		}
		if ent.TimelineAnchor != nil {
			if anchors == 0 || *ent.TimelineAnchor < minAnchor {
				minAnchor = *ent.TimelineAnchor
			}
			if anchors == 0 || *ent.TimelineAnchor > maxAnchor {
				maxAnchor = *ent.TimelineAnchor
			}
			anchors++
		}
	}
	if anchors > 1 {
		sc.maxSpan = maxAnchor - minAnchor
	}

	for _, rel := range rels {
		sc.degrees[rel.SourceEntityID]++
		sc.degrees[rel.TargetEntityID]++

		switch rel.Type {
		case entities.RelationMemberOf:
			addMembership(sc.factions, rel.SourceEntityID, rel.TargetEntityID)
		case entities.RelationLocatedIn:
			addMembership(sc.locations, rel.SourceEntityID, rel.TargetEntityID)
		}
	}

	return sc, nil
}

func addMembership(m map[string]map[string]bool, member, group string) {
	if m[member] == nil {
		m[member] = make(map[string]bool)
	}
	m[member][group] = true
}

// Extract computes the feature vector and type signals for one pair. Features
// whose inputs are undefined are silently omitted; only unknown entities or a
// self-referential pair are hard failures.
func (e *FeatureExtractor) Extract(ctx context.Context, sc *ScopeContext, aID, bID string) (entities.FeatureVector, TypeSignals, error) {
	var signals TypeSignals

	if aID == bID {
		return nil, signals, fmt.Errorf("%w: self-referential pair (%s)", entities.ErrValidation, aID)
	}

	a, ok := sc.byID[aID]
	if !ok {
		return nil, signals, fmt.Errorf("entity %s: %w", aID, entities.ErrNotFound)
	}
	b, ok := sc.byID[bID]
	if !ok {
		return nil, signals, fmt.Errorf("entity %s: %w", bID, entities.ErrNotFound)
	}

	var fv entities.FeatureVector

	if v, ok := e.coOccurrence(sc, a, b); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureCoOccurrence, Value: v})
	}
	if v, ok := timelineProximity(sc, a, b); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureTimelineProximity, Value: v})
	}
	if v, ok := attributeSimilarity(a, b); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureAttributeSimilarity, Value: v})
	}
	if v, ok := sharedMembership(sc.locations, a.ID, b.ID); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureSharedLocation, Value: v})
	}
	if v, ok := sharedMembership(sc.factions, a.ID, b.ID); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureSharedFaction, Value: v})
	}
	if v, ok := networkCentrality(sc, a, b); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureNetworkCentrality, Value: v})
	}
	if v, ok := mentionFrequency(a, b); ok {
		fv = append(fv, entities.Feature{Type: entities.FeatureMentionFrequency, Value: v})
	}

	if e.oracle != nil && a.Description != "" && b.Description != "" {
		// Oracle failures and timeouts cost only this one feature.
		if v, err := e.oracle.Similarity(ctx, a, b); err == nil {
			fv = append(fv, entities.Feature{Type: entities.FeatureSemanticSimilarity, Value: v})
		}
	}

	signals = e.typeSignals(sc, a, b)
	return fv, signals, nil
}

// coOccurrence is the fraction of content units mentioning both entities over
// those mentioning at least one. Undefined when nothing mentions either.
func (e *FeatureExtractor) coOccurrence(sc *ScopeContext, a, b *entities.Entity) (float64, bool) {
	nameA := a.NormalizedName
	nameB := b.NormalizedName
	if nameA == "" || nameB == "" {
		return 0, false
	}

	both, either := 0, 0
	for _, unit := range sc.corpus {
		hasA := strings.Contains(unit, nameA)
		hasB := strings.Contains(unit, nameB)
		if hasA || hasB {
			either++
		}
		if hasA && hasB {
			both++
		}
	}
	if either == 0 {
		return 0, false
	}
	return float64(both) / float64(either), true
}

// timelineProximity is 1 − min(1, |t_a−t_b| / max_observed_span); undefined
// when either entity lacks an anchor.
func timelineProximity(sc *ScopeContext, a, b *entities.Entity) (float64, bool) {
	if a.TimelineAnchor == nil || b.TimelineAnchor == nil {
		return 0, false
	}
	diff := math.Abs(*a.TimelineAnchor - *b.TimelineAnchor)
	if sc.maxSpan == 0 {
		// All anchors coincide; the pair is as close as the scope allows.
		return 1, true
	}
	return 1 - math.Min(1, diff/sc.maxSpan), true
}

// attributeSimilarity is shared equal-valued keys over the key union;
// undefined when either entity has no attributes.
func attributeSimilarity(a, b *entities.Entity) (float64, bool) {
	if len(a.Attributes) == 0 || len(b.Attributes) == 0 {
		return 0, false
	}

	union := make(map[string]bool, len(a.Attributes)+len(b.Attributes))
	shared := 0
	for k, va := range a.Attributes {
		union[k] = true
		if vb, ok := b.Attributes[k]; ok && va == vb {
			shared++
		}
	}
	for k := range b.Attributes {
		union[k] = true
	}
	return float64(shared) / float64(len(union)), true
}

// sharedMembership is 1 when both entities assert a relationship to the same
// group, 0 when both belong to groups but none overlap; undefined when either
// side has no memberships of this kind.
func sharedMembership(m map[string]map[string]bool, aID, bID string) (float64, bool) {
	groupsA := m[aID]
	groupsB := m[bID]
	if len(groupsA) == 0 || len(groupsB) == 0 {
		return 0, false
	}
	for g := range groupsA {
		if groupsB[g] {
			return 1, true
		}
	}
	return 0, true
}

// networkCentrality is the average normalized degree centrality of the pair;
// undefined when the scope has no relationship graph or fewer than 3 entities.
func networkCentrality(sc *ScopeContext, a, b *entities.Entity) (float64, bool) {
	n := len(sc.Entities)
	if !sc.hasGraph || n < 3 {
		return 0, false
	}
	norm := float64(n - 1)
	ca := float64(sc.degrees[a.ID]) / norm
	cb := float64(sc.degrees[b.ID]) / norm
	return math.Min(1, (ca+cb)/2), true
}

// mentionFrequency is the log-capped density of cross-mentions between the
// two descriptions; undefined when neither description mentions the other.
func mentionFrequency(a, b *entities.Entity) (float64, bool) {
	count := 0
	if a.Description != "" && b.NormalizedName != "" {
		count += strings.Count(strings.ToLower(a.Description), b.NormalizedName)
	}
	if b.Description != "" && a.NormalizedName != "" {
		count += strings.Count(strings.ToLower(b.Description), a.NormalizedName)
	}
	if count == 0 {
		return 0, false
	}
	return math.Min(1, math.Log1p(float64(count))/math.Log1p(mentionCap)), true
}

// typeSignals derives the rule-list markers from attributes and faction
// membership.
func (e *FeatureExtractor) typeSignals(sc *ScopeContext, a, b *entities.Entity) TypeSignals {
	var s TypeSignals

	s.OpposingFactions = factionsOpposed(sc, a.ID, b.ID)

	if fa, fb := a.Attributes[entities.AttrFamilyName], b.Attributes[entities.AttrFamilyName]; fa != "" && fa == fb {
		s.SharedFamilyName = true
	}

	if ya, errA := strconv.ParseFloat(a.Attributes[entities.AttrBirthYear], 64); errA == nil {
		if yb, errB := strconv.ParseFloat(b.Attributes[entities.AttrBirthYear], 64); errB == nil {
			s.AgeGap = math.Abs(ya - yb)
			s.HasAgeGap = true
		}
	}

	return s
}

// factionsOpposed reports whether any faction of one entity declares the
// other's faction opposed via the "opposes" attribute.
func factionsOpposed(sc *ScopeContext, aID, bID string) bool {
	return opposesAny(sc, sc.factions[aID], sc.factions[bID]) ||
		opposesAny(sc, sc.factions[bID], sc.factions[aID])
}

func opposesAny(sc *ScopeContext, from, against map[string]bool) bool {
	for fID := range from {
		faction, ok := sc.byID[fID]
		if !ok {
			continue
		}
		opposed := entities.NormalizeName(faction.Attributes[entities.AttrOpposes])
		if opposed == "" {
			continue
		}
		for gID := range against {
			if other, ok := sc.byID[gID]; ok && other.NormalizedName == opposed {
				return true
			}
		}
	}
	return false
}

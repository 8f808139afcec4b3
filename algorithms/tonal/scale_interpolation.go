package tonal

import (
	"cmp"
	"slices"

	"github.com/RyanBlaney/sonido-tonal/algorithms/common"
	"github.com/RyanBlaney/sonido-tonal/evidence"
	"github.com/RyanBlaney/sonido-tonal/theory"
)

// ScaleParams contains parameters for scale interpolation
type ScaleParams struct {
	MinDistinct            int     `json:"min_distinct"`             // observed classes required
	MinConfidence          float64 `json:"min_confidence"`           // candidates must exceed this
	MinMatched             int     `json:"min_matched"`              // matched classes required
	MaxCandidates          int     `json:"max_candidates"`           // ranked list length
	SizePenaltyCardinality int     `json:"size_penalty_cardinality"` // larger templates are penalized
}

// DefaultScaleParams returns the reference tuning
func DefaultScaleParams() ScaleParams {
	return ScaleParams{
		MinDistinct:            3,
		MinConfidence:          0.35,
		MinMatched:             3,
		MaxCandidates:          5,
		SizePenaltyCardinality: 7,
	}
}

// ScaleEvidence is the breakdown behind a candidate's confidence
type ScaleEvidence struct {
	TotalWeight      float64 `json:"total_weight"`
	InScaleWeight    float64 `json:"in_scale_weight"`
	OutOfScaleWeight float64 `json:"out_of_scale_weight"`
	Purity           float64 `json:"purity"`
	Coverage         float64 `json:"coverage"`
	SizePenalty      float64 `json:"size_penalty"`
}

// ScaleCandidate is a scored (root, template) pair
type ScaleCandidate struct {
	Root         theory.PitchClass   `json:"root"`
	TemplateID   theory.ScaleID      `json:"template_id"`
	TemplateName string              `json:"template_name"`
	Confidence   float64             `json:"confidence"`
	Matched      []theory.PitchClass `json:"matched"`
	Missing      []theory.PitchClass `json:"missing"`
	Evidence     ScaleEvidence       `json:"evidence"`
}

// Label returns e.g. "C Major"
func (c ScaleCandidate) Label() string {
	return c.Root.String() + " " + c.TemplateName
}

// ScaleInterpolator ranks scale templates against weighted note evidence.
// The catalog is shared by reference.
type ScaleInterpolator struct {
	params  ScaleParams
	catalog *theory.Catalog
}

// NewScaleInterpolator creates an interpolator over catalog (nil selects the default catalog)
func NewScaleInterpolator(catalog *theory.Catalog, params ScaleParams) *ScaleInterpolator {
	if catalog == nil {
		catalog = theory.DefaultCatalog()
	}
	return &ScaleInterpolator{params: params, catalog: catalog}
}

// ClassWeights returns the evidence weight of every pitch class
func ClassWeights(summary evidence.Summary) [theory.NumPitchClasses]float64 {
	var weights [theory.NumPitchClasses]float64
	for pc, c := range summary.Classes {
		if c.Count == 0 {
			continue
		}
		weights[pc] = float64(c.Count) *
			(0.2 + 0.8*c.MeanConfidence) *
			(0.2 + 0.8*c.NormalizedDuration) *
			(0.2 + 0.8*c.Competence)
	}
	return weights
}

// Interpolate scores every root against every template
func (si *ScaleInterpolator) Interpolate(summary evidence.Summary) []ScaleCandidate {
	return si.interpolate(summary, nil)
}

// InterpolateRoot scores every template on a single root
func (si *ScaleInterpolator) InterpolateRoot(summary evidence.Summary, root theory.PitchClass) []ScaleCandidate {
	if !root.Valid() {
		return []ScaleCandidate{}
	}
	return si.interpolate(summary, &root)
}

func (si *ScaleInterpolator) interpolate(summary evidence.Summary, root *theory.PitchClass) []ScaleCandidate {
	results := []ScaleCandidate{}
	if summary.Distinct() < si.params.MinDistinct {
		return results
	}

	weights := ClassWeights(summary)
	totalWeight := 0.0
	// sums always run in ascending pitch-class order so equal sets give equal floats
	for _, pc := range summary.Observed.Classes() {
		totalWeight += weights[pc]
	}
	if totalWeight <= 0 {
		return results
	}

	roots := []theory.PitchClass{}
	if root != nil {
		roots = append(roots, *root)
	} else {
		for pc := range theory.PitchClass(theory.NumPitchClasses) {
			roots = append(roots, pc)
		}
	}

	for _, r := range roots {
		for _, tmpl := range si.catalog.Templates() {
			set := tmpl.PitchClasses(r)
			matched := summary.Observed.Intersect(set)
			if matched.Len() < si.params.MinMatched {
				continue
			}
			missing := set.Difference(summary.Observed)

			inScale, outOfScale := 0.0, 0.0
			for _, pc := range summary.Observed.Classes() {
				if set.Contains(pc) {
					inScale += weights[pc]
				} else {
					outOfScale += weights[pc]
				}
			}

			purity := inScale / totalWeight
			coverage := float64(matched.Len()) / float64(set.Len())
			sizePenalty := min(1.0, float64(si.params.SizePenaltyCardinality)/float64(set.Len()))
			confidence := common.Clamp01((0.7*purity + 0.3*coverage) * sizePenalty)

			if confidence <= si.params.MinConfidence {
				continue
			}

			results = append(results, ScaleCandidate{
				Root:         r,
				TemplateID:   tmpl.ID,
				TemplateName: tmpl.Name,
				Confidence:   confidence,
				Matched:      matched.Classes(),
				Missing:      missing.Classes(),
				Evidence: ScaleEvidence{
					TotalWeight:      totalWeight,
					InScaleWeight:    inScale,
					OutOfScaleWeight: outOfScale,
					Purity:           purity,
					Coverage:         coverage,
					SizePenalty:      sizePenalty,
				},
			})
		}
	}

	slices.SortFunc(results, func(a, b ScaleCandidate) int {
		return cmp.Or(
			cmp.Compare(b.Confidence, a.Confidence),
			cmp.Compare(a.TemplateID, b.TemplateID),
			cmp.Compare(a.Root, b.Root),
		)
	})

	if si.params.MaxCandidates > 0 && len(results) > si.params.MaxCandidates {
		results = results[:si.params.MaxCandidates]
	}
	return results
}

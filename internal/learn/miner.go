// Package learn mines correlation patterns from enriched profiles and
// generates the training corpus for the downstream consumer.
package learn

import (
	"fmt"
	"math"
	"sort"

	"github.com/mindthegap/govdata/internal/contracts"
)

// candidate is one entry in the declarative pattern catalog: a pair of
// canonical fields and the direction the relationship is expected to run.
type candidate struct {
	fieldX      string
	fieldY      string
	sign        contracts.Direction
	description string
}

// catalog is the fixed set of relationships the miner tests. One generic
// correlation routine consumes it; there is no per-pattern code.
var catalog = []candidate{
	{contracts.FieldEducation, contracts.FieldInequalityIndex, contracts.DirectionNegative,
		"Higher educational attainment correlates with lower wealth inequality"},
	{contracts.FieldEducation, contracts.FieldMedianIncome, contracts.DirectionPositive,
		"Higher educational attainment correlates with higher median income"},
	{contracts.FieldUnemploymentRate, contracts.FieldHealthScore, contracts.DirectionNegative,
		"Higher unemployment correlates with lower economic health"},
	{contracts.FieldPovertyRate, contracts.FieldInequalityIndex, contracts.DirectionPositive,
		"Higher poverty correlates with higher wealth inequality"},
	{contracts.FieldMedianIncome, contracts.FieldGini, contracts.DirectionNegative,
		"Higher median income correlates with a lower Gini coefficient"},
	{contracts.FieldTopShare, contracts.FieldHealthScore, contracts.DirectionNegative,
		"Greater top-share wealth concentration correlates with lower economic health"},
}

// MinerConfig tunes pattern acceptance.
type MinerConfig struct {
	Threshold  float64 // minimum |r| to accept a pattern
	MinSamples int     // minimum profiles with both fields present
	TopN       int     // supporting/exception example cap
}

// DefaultMinerConfig returns the standard mining thresholds.
func DefaultMinerConfig() MinerConfig {
	return MinerConfig{Threshold: 0.5, MinSamples: 5, TopN: 5}
}

// MinePatterns evaluates the catalog against the profile set and returns
// accepted patterns sorted by confidence descending. Deterministic for a
// fixed input set.
func MinePatterns(profiles []contracts.RegionProfile, cfg MinerConfig) []contracts.CorrelationPattern {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultMinerConfig().TopN
	}

	var patterns []contracts.CorrelationPattern
	for _, cand := range catalog {
		if pattern, ok := evaluate(profiles, cand, cfg); ok {
			patterns = append(patterns, pattern)
		}
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		return firstSupportingGroup(profiles, patterns[i]) < firstSupportingGroup(profiles, patterns[j])
	})
	return patterns
}

// sample is one profile's (x, y) observation.
type sample struct {
	code  string
	group string
	x, y  float64
}

// evaluate runs the generic correlation routine for one candidate.
func evaluate(profiles []contracts.RegionProfile, cand candidate, cfg MinerConfig) (contracts.CorrelationPattern, bool) {
	var samples []sample
	for _, p := range profiles {
		x, okX := p.Field(cand.fieldX)
		y, okY := p.Field(cand.fieldY)
		if !okX || !okY {
			continue
		}
		samples = append(samples, sample{code: p.Identity.Code, group: p.Identity.Group, x: x, y: y})
	}
	if len(samples) < cfg.MinSamples {
		return contracts.CorrelationPattern{}, false
	}

	r, ok := pearson(samples)
	if !ok || math.Abs(r) < cfg.Threshold {
		return contracts.CorrelationPattern{}, false
	}
	// A strong correlation running against the expected sign is not the
	// cataloged pattern.
	if (r > 0) != (cand.sign == contracts.DirectionPositive) {
		return contracts.CorrelationPattern{}, false
	}

	supporting, exceptions := classifyExamples(samples, cand.sign, cfg.TopN)

	confidence := math.Abs(r)
	if confidence > 1 {
		confidence = 1
	}
	return contracts.CorrelationPattern{
		FieldX:      cand.fieldX,
		FieldY:      cand.fieldY,
		Direction:   cand.sign,
		Confidence:  confidence,
		SampleSize:  len(samples),
		Description: fmt.Sprintf("%s (r=%.2f, n=%d)", cand.description, r, len(samples)),
		Supporting:  supporting,
		Exceptions:  exceptions,
	}, true
}

// pearson computes the correlation coefficient. Degenerate variance on
// either axis reports not-ok.
func pearson(samples []sample) (float64, bool) {
	n := float64(len(samples))
	var sumX, sumY float64
	for _, s := range samples {
		sumX += s.x
		sumY += s.y
	}
	meanX, meanY := sumX/n, sumY/n

	var covXY, varX, varY float64
	for _, s := range samples {
		dx, dy := s.x-meanX, s.y-meanY
		covXY += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}
	return covXY / math.Sqrt(varX*varY), true
}

// classifyExamples fits a least-squares line and splits the sample set:
// supporting examples are the smallest residuals; exceptions are the
// largest residuals among points whose pairwise direction from the mean
// contradicts the expected sign.
func classifyExamples(samples []sample, sign contracts.Direction, topN int) (supporting, exceptions []string) {
	n := float64(len(samples))
	var sumX, sumY float64
	for _, s := range samples {
		sumX += s.x
		sumY += s.y
	}
	meanX, meanY := sumX/n, sumY/n

	var covXY, varX float64
	for _, s := range samples {
		covXY += (s.x - meanX) * (s.y - meanY)
		varX += (s.x - meanX) * (s.x - meanX)
	}
	slope := covXY / varX
	intercept := meanY - slope*meanX

	type scored struct {
		sample   sample
		residual float64
	}
	scoredSamples := make([]scored, 0, len(samples))
	for _, s := range samples {
		scoredSamples = append(scoredSamples, scored{
			sample:   s,
			residual: math.Abs(s.y - (slope*s.x + intercept)),
		})
	}

	sort.Slice(scoredSamples, func(i, j int) bool {
		if scoredSamples[i].residual != scoredSamples[j].residual {
			return scoredSamples[i].residual < scoredSamples[j].residual
		}
		return scoredSamples[i].sample.code < scoredSamples[j].sample.code
	})

	for i := 0; i < len(scoredSamples) && i < topN; i++ {
		supporting = append(supporting, scoredSamples[i].sample.code)
	}

	// Walk largest residuals first for the contradicting outliers.
	for i := len(scoredSamples) - 1; i >= 0 && len(exceptions) < topN; i-- {
		s := scoredSamples[i].sample
		dx, dy := s.x-meanX, s.y-meanY
		if dx == 0 || dy == 0 {
			continue
		}
		sameDirection := (dx > 0) == (dy > 0)
		if (sign == contracts.DirectionPositive) != sameDirection {
			exceptions = append(exceptions, s.code)
		}
	}
	return supporting, exceptions
}

// firstSupportingGroup resolves the region-group of a pattern's first
// supporting example, the tiebreak key for equal confidence.
func firstSupportingGroup(profiles []contracts.RegionProfile, pattern contracts.CorrelationPattern) string {
	if len(pattern.Supporting) == 0 {
		return ""
	}
	for _, p := range profiles {
		if p.Identity.Code == pattern.Supporting[0] {
			return p.Identity.Group
		}
	}
	return ""
}

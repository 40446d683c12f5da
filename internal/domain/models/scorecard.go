package models

import (
	"fmt"
	"strings"
)

// MetricScore is one bounded numeric judgment for a named metric.
type MetricScore struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// ScoreCard is the ordered set of per-metric judgments for one candidate.
// Order follows the declared metric order; it is significant for the
// deterministic tie-break.
type ScoreCard struct {
	Scores []MetricScore `json:"scores"`
}

// Total is the sum of all metric values.
func (c *ScoreCard) Total() float64 {
	var total float64
	for _, s := range c.Scores {
		total += s.Value
	}
	return total
}

// Signature renders the card as a "metric=value" string in declared metric
// order. Equal totals are broken by comparing signatures lexicographically,
// which makes selection deterministic across runs.
func (c *ScoreCard) Signature() string {
	parts := make([]string, len(c.Scores))
	for i, s := range c.Scores {
		parts[i] = fmt.Sprintf("%s=%.6f", s.Metric, s.Value)
	}
	return strings.Join(parts, ",")
}

// Compare orders two cards: positive if c ranks above other, negative if
// below, zero only for identical signatures. Higher total wins; equal
// totals prefer the lexicographically smaller signature.
func (c *ScoreCard) Compare(other *ScoreCard) int {
	ct, ot := c.Total(), other.Total()
	switch {
	case ct > ot:
		return 1
	case ct < ot:
		return -1
	}
	cs, os := c.Signature(), other.Signature()
	switch {
	case cs < os:
		return 1
	case cs > os:
		return -1
	}
	return 0
}

// Better reports strict total improvement over other. Ties are not
// improvements: the metric loop keeps the incumbent on equal totals.
func (c *ScoreCard) Better(other *ScoreCard) bool {
	return c.Total() > other.Total()
}

// String renders the card for verbose output.
func (c *ScoreCard) String() string {
	parts := make([]string, 0, len(c.Scores)+1)
	for _, s := range c.Scores {
		parts = append(parts, fmt.Sprintf("%s=%.1f", s.Metric, s.Value))
	}
	parts = append(parts, fmt.Sprintf("total=%.1f", c.Total()))
	return strings.Join(parts, " ")
}

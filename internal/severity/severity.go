// Package severity derives tier counts from a set of findings.
//
// Tiers are assigned by numeric vulnerability type id. The catalog and every
// registered probe descriptor are validated against Classify at startup, so
// the id ranges below are the one authoritative mapping.
package severity

import "github.com/buemura/baseera/pkg/types"

// Classify returns the tier of a vulnerability type id.
func Classify(typeID int) types.Severity {
	switch {
	case typeID >= 1 && typeID <= 5:
		return types.SeverityCritical
	case typeID >= 6 && typeID <= 8:
		return types.SeverityHigh
	case typeID >= 9 && typeID <= 17:
		return types.SeverityMedium
	default:
		return types.SeverityLow
	}
}

// Summarize buckets findings by Classify. Every finding lands in exactly one
// tier, so the per-tier counts always add up to Total.
func Summarize(findings []types.Finding) types.SeveritySummary {
	summary := types.SeveritySummary{Total: len(findings)}
	for _, f := range findings {
		switch Classify(f.TypeID) {
		case types.SeverityCritical:
			summary.Critical++
		case types.SeverityHigh:
			summary.High++
		case types.SeverityMedium:
			summary.Medium++
		default:
			summary.Low++
		}
	}
	return summary
}

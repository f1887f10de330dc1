// Package planning implements PlanningPipeline (C5, spec.md §4.4): the
// five-step question -> QueryPlan flow. Classify, retrieve schema
// context, synthesize, validate, optionally optimize.
package planning

import (
	"strings"
)

// defaultKeywords is the per-kind keyword table, ported verbatim from
// `classifier.py`'s `self.default_keywords` (the Shopify list is
// intentionally long — it is long in the original too).
var defaultKeywords = map[string][]string{
	"postgres": {"table", "row", "sql", "query", "join", "database", "relational"},
	"mongodb":  {"document", "collection", "json", "nosql", "unstructured"},
	"qdrant":   {"similar", "vector", "embedding", "semantic", "similarity", "neural"},
	"slack":    {"message", "channel", "chat", "conversation", "slack", "communication"},
	"shopify": {
		"order", "product", "customer", "inventory", "checkout", "cart",
		"purchase", "sale", "revenue", "ecommerce", "e-commerce", "shopify",
		"store", "merchant", "variant", "fulfillment", "shipping",
		"billing", "payment", "discount", "coupon", "abandoned cart",
	},
	"ga4": {"analytics", "pageview", "session", "traffic", "conversion rate", "ga4"},
}

// Classification is the fallback classifier's result: selected kinds
// plus a rationale per kind (which rule fired).
type Classification struct {
	SelectedKinds []string
	Rationale     map[string]string
}

// classifyRuleBased implements `classifier.py`'s three-tier detection,
// carried in full per SPEC_FULL.md §11 (supplemented features):
//  1. explicit `kind`-in-question mention,
//  2. keyword hits per kind,
//  3. direct table/collection-name mentions (via knownTables).
func classifyRuleBased(question string, knownKinds []string, knownTables map[string][]string) Classification {
	q := strings.ToLower(question)
	result := Classification{Rationale: map[string]string{}}
	selected := map[string]bool{}

	// Tier 1: explicit kind mention.
	for _, kind := range knownKinds {
		if strings.Contains(q, strings.ToLower(kind)) {
			selected[kind] = true
			result.Rationale[kind] = "explicit kind mention"
		}
	}

	// If any explicit mention fired, the original only searches those
	// kinds; mirrored here by returning early.
	if len(selected) > 0 {
		for kind := range selected {
			result.SelectedKinds = append(result.SelectedKinds, kind)
		}
		return result
	}

	// Tier 2: keyword hits per kind.
	for _, kind := range knownKinds {
		for _, kw := range defaultKeywords[kind] {
			if strings.Contains(q, kw) {
				selected[kind] = true
				result.Rationale[kind] = "keyword: " + kw
				break
			}
		}
	}

	// Tier 3: direct table/collection mentions.
	for kind, tables := range knownTables {
		if selected[kind] {
			continue
		}
		for _, table := range tables {
			if strings.Contains(q, strings.ToLower(table)) {
				selected[kind] = true
				result.Rationale[kind] = "table mention: " + table
				break
			}
		}
	}

	for kind := range selected {
		result.SelectedKinds = append(result.SelectedKinds, kind)
	}
	return result
}

package planmodel

import (
	"context"
	"fmt"
)

// SourceResolver is the minimal slice of SchemaRegistryPort (pkg/schema)
// that plan validation needs: "does this source exist." Table and
// collection names are not checked through it. Any concrete registry
// that implements the full port (pkg/schema.RegistryPort) satisfies
// this interface structurally.
type SourceResolver interface {
	GetSource(ctx context.Context, id string) (*DataSource, bool, error)
}

// Validate runs the five checks of spec.md §4.1 (numbered below as
// there) in the order 1, 2, 5, 3, 4, collecting per-operation
// structural errors before the reference, source and DAG checks so a
// caller sees every structural problem in one pass — matching
// `plans/base.py:QueryPlan.validate`'s behavior of gathering per-op
// errors before raising on the cycle check.
func (p *QueryPlan) Validate(ctx context.Context, registry SourceResolver) ValidationReport {
	report := ValidationReport{Valid: true}

	// 1. non-empty operations
	if len(p.Operations) == 0 {
		report.Valid = false
		report.Errors = append(report.Errors, "plan has no operations")
		return report
	}

	seenIDs := make(map[string]bool, len(p.Operations))
	for _, op := range p.Operations {
		// IDs unique
		if seenIDs[op.ID] {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf("duplicate operation id: %s", op.ID))
		}
		seenIDs[op.ID] = true

		// 2. per-op structural validity
		if err := op.validateStructure(); err != nil {
			report.Valid = false
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", op.ID, err.Error()))
		}
	}

	// 5. reference integrity of depends_on
	for _, op := range p.Operations {
		for _, dep := range op.DependsOn {
			if !seenIDs[dep] {
				report.Valid = false
				report.Errors = append(report.Errors, fmt.Sprintf("%s: depends_on references unknown operation %q", op.ID, dep))
			}
		}
	}

	// 3. source resolution via registry — pure compute variants
	// (nil SourceID) are exempt, per spec.md §3.
	if registry != nil {
		for _, op := range p.Operations {
			if op.SourceID == nil || *op.SourceID == "" {
				continue
			}
			_, found, err := registry.GetSource(ctx, *op.SourceID)
			if err != nil {
				report.Valid = false
				report.Errors = append(report.Errors, fmt.Sprintf("%s: source lookup failed for %q: %s", op.ID, *op.SourceID, err.Error()))
				continue
			}
			if !found {
				report.Valid = false
				report.Errors = append(report.Errors, fmt.Sprintf("%s: unknown source %q", op.ID, *op.SourceID))
			}
		}
	}

	// 4. DAG acyclicity
	dag := BuildDAG(p)
	if cyclic, path := dag.HasCycle(); cyclic {
		report.Valid = false
		report.Errors = append(report.Errors, fmt.Sprintf("cycle: %s", CyclePathString(path)))
	}

	return report
}

// validateStructure checks the per-variant requirements of spec.md §3
// (e.g. VectorOp.vector non-empty, SqlOp.sql non-empty).
func (o *Operation) validateStructure() error {
	switch o.Kind {
	case KindSQL:
		if o.SQL == nil || o.SQL.SQL == "" {
			return fmt.Errorf("sql operation requires a non-empty sql statement")
		}
	case KindMongo:
		if o.Mongo == nil || o.Mongo.Collection == "" {
			return fmt.Errorf("mongo operation requires a collection")
		}
		if len(o.Mongo.Pipeline) == 0 && o.Mongo.Filter == nil {
			return fmt.Errorf("mongo operation requires either a pipeline or a filter")
		}
	case KindVector:
		if o.Vector == nil || o.Vector.Collection == "" {
			return fmt.Errorf("vector operation requires a collection")
		}
		if len(o.Vector.Vector) == 0 {
			return fmt.Errorf("vector operation requires a non-empty vector")
		}
	case KindMessaging:
		if o.Messaging == nil {
			return fmt.Errorf("messaging operation requires parameters")
		}
	case KindCommerce:
		if o.Commerce == nil || o.Commerce.Endpoint == "" {
			return fmt.Errorf("commerce operation requires an endpoint")
		}
	case KindGeneric:
		// No structural requirement beyond presence of the op itself.
	default:
		return fmt.Errorf("unknown operation kind %q", o.Kind)
	}
	return nil
}

// NormalizeSourceID resolves a compound source ID of the form
// "{kind}:{object_kind}:{object_name}" to its canonical "{kind}_main"
// form (or a configured variant tag), per spec.md §4.1. Normalization
// is a pure function; an unresolvable compound ID is a validation
// error rather than a panic.
func NormalizeSourceID(raw string, knownCanonical map[string]string) (string, error) {
	if canonical, ok := knownCanonical[raw]; ok {
		return canonical, nil
	}

	parts := splitCompound(raw)
	if len(parts) == 3 {
		kind := parts[0]
		canonical := kind + "_main"
		if c, ok := knownCanonical[canonical]; ok {
			return c, nil
		}
		return canonical, nil
	}
	if len(parts) == 1 {
		// Already canonical or opaque; accept as-is.
		return raw, nil
	}
	return "", fmt.Errorf("planmodel: cannot normalize source id %q", raw)
}

func splitCompound(raw string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	parts = append(parts, raw[start:])
	return parts
}

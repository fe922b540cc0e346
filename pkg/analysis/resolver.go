// Package analysis turns a parsed statement into the typed tree of package
// plan. It resolves relations against the catalog, qualified names against
// the relations in scope and function calls against the function registry.
package analysis

import (
	"fmt"
	"strings"

	dberror "dexql/pkg/error"
	"dexql/pkg/plan"
	"dexql/pkg/sql/tree"
)

// ColumnResolution decides what happens when an unqualified column is
// exported by more than one source.
type ColumnResolution int

const (
	// ResolutionStrict reports COLUMN_AMBIGUOUS.
	ResolutionStrict ColumnResolution = iota
	// ResolutionFirstMatch picks the source declared first.
	ResolutionFirstMatch
)

func (r ColumnResolution) String() string {
	switch r {
	case ResolutionStrict:
		return "strict"
	case ResolutionFirstMatch:
		return "first_match"
	default:
		return fmt.Sprintf("ColumnResolution(%d)", int(r))
	}
}

// ParseColumnResolution maps a configuration value to a policy.
func ParseColumnResolution(s string) (ColumnResolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ResolutionStrict, nil
	case "first_match", "first-match":
		return ResolutionFirstMatch, nil
	default:
		return ResolutionStrict, dberror.New(dberror.ErrCategoryUser, dberror.CodeInvalidConfig, "unknown column resolution").
			WithDetail("%q is neither strict nor first_match", s)
	}
}

// Resolver finds the field a qualified name refers to among an ordered list
// of sources.
type Resolver struct {
	sources []plan.AnalysedRelation
	policy  ColumnResolution
}

func NewResolver(sources []plan.AnalysedRelation, policy ColumnResolution) *Resolver {
	return &Resolver{sources: sources, policy: policy}
}

// Sources returns the relations in scope in declaration order.
func (r *Resolver) Sources() []plan.AnalysedRelation { return r.sources }

// Resolve maps column, relation.column or schema.relation.column to a field.
func (r *Resolver) Resolve(name tree.QualifiedName) (*plan.Field, error) {
	var schema, relation string
	parts := name.Parts
	switch len(parts) {
	case 1:
	case 2:
		relation = parts[0]
	case 3:
		schema, relation = parts[0], parts[1]
	default:
		return nil, dberror.InvalidIdentifier(name.String())
	}
	column := parts[len(parts)-1]

	var (
		found     *plan.Field
		owners    []string
		qualified bool
	)
	for _, src := range r.sources {
		if relation != "" {
			if src.Name() != relation || (schema != "" && src.Schema() != schema) {
				continue
			}
			qualified = true
		}
		f, ok := src.Get(column)
		if !ok {
			continue
		}
		if found == nil {
			found = f
		}
		owners = append(owners, src.String())
	}

	switch {
	case found == nil && relation != "" && !qualified:
		return nil, dberror.ColumnUnknown(name.String()).
			WithHint(fmt.Sprintf("no relation named %q is in scope", name.Prefix().String()))
	case found == nil:
		return nil, dberror.ColumnUnknown(name.String())
	case len(owners) > 1 && r.policy == ResolutionStrict:
		return nil, dberror.ColumnAmbiguous(name.String(), owners)
	}
	return found, nil
}

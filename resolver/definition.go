package resolver

import (
	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/lifecycle"
)

// ResolvedDependencies is the already-resolved input handed to a
// Definition's transform: the attribute produced by each of its declared
// AttributeDependency/DataConnectorDependency entries, in declaration
// order, plus convenience accessors (spec.md 4.4: "consume their
// dependencies' attributes merged into a set of values").
type ResolvedDependencies struct {
	ordered []*attribute.Attribute // one entry per declared dependency, nil if that dependency produced nothing
	byID    map[string]*attribute.Attribute
}

// NewResolvedDependencies builds a ResolvedDependencies from the ordered
// attributes produced by each declared dependency (already narrowed to a
// single source attribute id where AttributeDependency.SourceAttributeID was
// set) plus a lookup by plugin id for definitions that need to address a
// specific dependency (e.g. Template).
func NewResolvedDependencies(ordered []*attribute.Attribute, byID map[string]*attribute.Attribute) ResolvedDependencies {
	return ResolvedDependencies{ordered: ordered, byID: byID}
}

// Merged returns every contributing value across all dependencies, in
// declaration order, suitable for definitions that don't care which
// dependency a value came from (Simple, Scoped, Prescoped, RegexSplit,
// Mapped, DateTime).
func (r ResolvedDependencies) Merged() []attribute.Value {
	return attribute.Merge(r.ordered...)
}

// List returns the per-dependency resolved attributes in declaration order,
// used by Scripted to bind each dependency's values by attribute id.
func (r ResolvedDependencies) List() []*attribute.Attribute {
	return r.ordered
}

// ByPluginID looks up a specific dependency's resolved attribute.
func (r ResolvedDependencies) ByPluginID(id string) (*attribute.Attribute, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Definition is the common contract for every attribute-definition variant
// (spec.md 4.4): a pure transform over its dependencies' resolved
// attributes.
type Definition interface {
	lifecycle.Lifecycled
	Dependencies() Dependencies
	// DependencyOnly reports whether this definition's output is suppressed
	// from the final release set while still observable to downstream
	// definitions (spec.md glossary: "Dependency-only").
	DependencyOnly() bool
	// Resolve runs the definition's transform. A nil *attribute.Attribute
	// with a nil error means "produced nothing" and is skipped at
	// finalization.
	Resolve(ctx *Context, deps ResolvedDependencies) (*attribute.Attribute, error)
}

// BaseDefinition provides the lifecycle plumbing and shared
// dependsOn/dependencyOnly fields common to every definition variant.
type BaseDefinition struct {
	*lifecycle.Component

	deps           Dependencies
	dependencyOnly bool
}

// NewBaseDefinition constructs a BaseDefinition in the constructed
// lifecycle state.
func NewBaseDefinition(id string) *BaseDefinition {
	return &BaseDefinition{Component: lifecycle.NewComponent(id)}
}

func (b *BaseDefinition) Dependencies() Dependencies { return b.deps }

func (b *BaseDefinition) SetDependencies(d Dependencies) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.deps = d
	return nil
}

func (b *BaseDefinition) DependencyOnly() bool { return b.dependencyOnly }

func (b *BaseDefinition) SetDependencyOnly(v bool) error {
	if err := b.CheckMutable(); err != nil {
		return err
	}
	b.dependencyOnly = v
	return nil
}

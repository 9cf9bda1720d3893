package resolver

// AttributeDependency references another attribute definition's output,
// optionally narrowed to a single source attribute id if the definition
// produces more than one (spec.md 3: "Dependency").
type AttributeDependency struct {
	PluginID         string
	SourceAttributeID string // optional; empty means "the whole output"
}

// DataConnectorDependency references a data connector's exported
// attributes.
type DataConnectorDependency struct {
	PluginID          string
	ExportedAttributeIDs []string
}

// Dependencies is the pair of ordered dependency sets every plugin
// (attribute definition or data connector) exposes; together they define
// edges in the resolution DAG (spec.md 3).
type Dependencies struct {
	AttributeDependencies     []AttributeDependency
	DataConnectorDependencies []DataConnectorDependency
}

// PluginIDs returns every plugin id referenced by either dependency set, in
// declaration order.
func (d Dependencies) PluginIDs() []string {
	ids := make([]string, 0, len(d.AttributeDependencies)+len(d.DataConnectorDependencies))
	for _, dep := range d.AttributeDependencies {
		ids = append(ids, dep.PluginID)
	}
	for _, dep := range d.DataConnectorDependencies {
		ids = append(ids, dep.PluginID)
	}
	return ids
}

// FailoverRecord is logged in WorkContext when a primary connector's
// failure caused a named failover connector to be invoked (spec.md 3).
type FailoverRecord struct {
	FromConnectorID string
	ToConnectorID   string
}

package definition

import (
	"strings"
	"text/template"

	"github.com/R3E-Network/attribute-engine/attribute"
	"github.com/R3E-Network/attribute-engine/pkg/attrerrors"
	"github.com/R3E-Network/attribute-engine/resolver"
)

// Template evaluates a text/template once per value index across a fixed
// set of named dependencies, all of which must share equal cardinality
// (spec.md 4.4). No third-party templating engine appears anywhere in the
// retrieved pack, so stdlib text/template is used (see DESIGN.md).
type Template struct {
	*resolver.BaseDefinition
	id     string
	depIDs []string // dependency plugin ids, bound by name in the template
	tmpl   *template.Template
}

// NewTemplate parses templateText and constructs a Template definition over
// the named dependencies (must match Dependencies().AttributeDependencies
// plugin ids set via SetDependencies).
func NewTemplate(id string, depIDs []string, templateText string) (*Template, error) {
	tmpl, err := template.New(id).Parse(templateText)
	if err != nil {
		return nil, attrerrors.ComponentInitializationWrap(id, "invalid template text", err)
	}
	return &Template{
		BaseDefinition: resolver.NewBaseDefinition(id),
		id:             id,
		depIDs:         depIDs,
		tmpl:           tmpl,
	}, nil
}

// Resolve implements resolver.Definition.
func (d *Template) Resolve(_ *resolver.Context, deps resolver.ResolvedDependencies) (*attribute.Attribute, error) {
	if len(d.depIDs) == 0 {
		return nil, nil
	}

	perDep := make([][]attribute.Value, len(d.depIDs))
	n := -1
	for i, id := range d.depIDs {
		attr, _ := deps.ByPluginID(id)
		var values []attribute.Value
		if attr != nil {
			values = attr.Values
		}
		perDep[i] = values
		if n == -1 {
			n = len(values)
		} else if len(values) != n {
			return nil, attrerrors.Resolution(d.id, "template dependencies have unequal cardinality")
		}
	}
	if n <= 0 {
		return nil, nil
	}

	values := make([]attribute.Value, 0, n)
	for row := 0; row < n; row++ {
		binding := make(map[string]string, len(d.depIDs))
		for i, id := range d.depIDs {
			v := perDep[i][row]
			if v.IsString() {
				binding[id] = v.StringValue()
			} else {
				binding[id] = ""
			}
		}
		var out strings.Builder
		if err := d.tmpl.Execute(&out, binding); err != nil {
			return nil, attrerrors.ResolutionWrap(d.id, "template execution failed", err)
		}
		values = append(values, attribute.String(out.String()))
	}
	return attribute.New(d.id, values...), nil
}

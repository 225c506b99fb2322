package node

import (
	"github.com/Sternrassler/netsendo-nodes/pkg/client"
	"github.com/Sternrassler/netsendo-nodes/pkg/plugin"
)

// FieldOption is one choice of an options field.
type FieldOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Field describes one operation parameter.
type Field struct {
	Name              string        `json:"name"`
	DisplayName       string        `json:"displayName"`
	Type              string        `json:"type"`
	Required          bool          `json:"required,omitempty"`
	Default           any           `json:"default,omitempty"`
	Placeholder       string        `json:"placeholder,omitempty"`
	Description       string        `json:"description,omitempty"`
	Options           []FieldOption `json:"options,omitempty"`
	LoadOptionsMethod string        `json:"loadOptionsMethod,omitempty"`
	Fields            []Field       `json:"fields,omitempty"`
}

// OperationDescription describes one operation of a resource.
type OperationDescription struct {
	Name        string  `json:"name"`
	Value       string  `json:"value"`
	Action      string  `json:"action"`
	Description string  `json:"description"`
	Method      string  `json:"method"`
	Endpoint    string  `json:"endpoint"`
	Paginated   bool    `json:"paginated,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// ResourceDescription groups the operations of one resource.
type ResourceDescription struct {
	Name             string                 `json:"name"`
	Value            string                 `json:"value"`
	Description      string                 `json:"description"`
	DefaultOperation string                 `json:"defaultOperation"`
	Operations       []OperationDescription `json:"operations"`
}

// Description is the declarative node metadata handed to the host.
type Description struct {
	DisplayName     string                `json:"displayName"`
	Name            string                `json:"name"`
	Group           []string              `json:"group"`
	Version         int                   `json:"version"`
	Description     string                `json:"description"`
	Credentials     []string              `json:"credentials"`
	DefaultResource string                `json:"defaultResource"`
	Resources       []ResourceDescription `json:"resources"`
	LoadOptions     []string              `json:"loadOptions"`
}

// Describe returns the node description.
func Describe() Description {
	d := Description{
		DisplayName:     "NetSendo",
		Name:            TypeName,
		Group:           []string{"input"},
		Version:         1,
		Description:     "Interact with NetSendo Email Marketing Platform",
		Credentials:     []string{client.CredentialTypeName},
		DefaultResource: DefaultResource,
		LoadOptions:     LoadOptionsMethods(),
	}

	for _, r := range resources {
		rd := ResourceDescription{
			Name:             r.name,
			Value:            r.value,
			Description:      r.description,
			DefaultOperation: defaultOperations[r.value],
		}
		for _, op := range r.operations {
			rd.Operations = append(rd.Operations, op.desc)
		}
		d.Resources = append(d.Resources, rd)
	}
	return d
}

func init() {
	plugin.Register(plugin.Descriptor{
		Type:     TypeName,
		Kind:     plugin.KindAction,
		Describe: func() any { return Describe() },
	})
}

// Package schema holds the declarative contract for model responses and a
// validator that checks decoded JSON against it.
package schema

type Type string

const (
	TypeObject Type = "object"
	TypeArray  Type = "array"
	TypeString Type = "string"
)

// Property is a named object member. Order is preserved for providers that
// honour property ordering.
type Property struct {
	Name string
	Node *Node
}

// Node describes one value in a response shape.
type Node struct {
	Type        Type
	Description string
	Properties  []Property
	Items       *Node
	Required    []string
}

func (n *Node) Property(name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Node, true
		}
	}
	return nil, false
}

func str(desc string) *Node { return &Node{Type: TypeString, Description: desc} }

func strList(desc string) *Node {
	return &Node{Type: TypeArray, Description: desc, Items: &Node{Type: TypeString}}
}

// ExpansionRequired lists every field an expansion must carry.
var ExpansionRequired = []string{
	"title",
	"tagline",
	"description",
	"targetAudience",
	"keyFeatures",
	"potentialChallenges",
	"pivotOptions",
}

// Expansion returns the response contract for an idea expansion.
func Expansion() *Node {
	pivot := &Node{
		Type: TypeObject,
		Properties: []Property{
			{Name: "name", Node: str("")},
			{Name: "description", Node: str("")},
		},
		Required: []string{"name", "description"},
	}
	return &Node{
		Type: TypeObject,
		Properties: []Property{
			{Name: "title", Node: str("A catchy name for the project/idea")},
			{Name: "tagline", Node: str("A short, punchy slogan")},
			{Name: "description", Node: str("A professional executive summary (2-3 sentences)")},
			{Name: "targetAudience", Node: strList("List of 3 distinct target audience segments")},
			{Name: "keyFeatures", Node: strList("List of 4 core features or selling points")},
			{Name: "potentialChallenges", Node: strList("List of 3 potential obstacles")},
			{Name: "pivotOptions", Node: &Node{
				Type:        TypeArray,
				Description: "3 alternative directions this idea could take",
				Items:       pivot,
			}},
		},
		Required: append([]string(nil), ExpansionRequired...),
	}
}

// JSONSchema renders n as a JSON-Schema document.
func JSONSchema(n *Node) map[string]any {
	if n == nil {
		return map[string]any{}
	}
	out := map[string]any{"type": string(n.Type)}
	if n.Description != "" {
		out["description"] = n.Description
	}
	switch n.Type {
	case TypeObject:
		props := make(map[string]any, len(n.Properties))
		for _, p := range n.Properties {
			props[p.Name] = JSONSchema(p.Node)
		}
		out["properties"] = props
		if len(n.Required) > 0 {
			out["required"] = append([]string(nil), n.Required...)
		}
		out["additionalProperties"] = false
	case TypeArray:
		out["items"] = JSONSchema(n.Items)
	}
	return out
}

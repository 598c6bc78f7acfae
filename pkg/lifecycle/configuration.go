package lifecycle

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attributes that steer MergeConfiguration
const (
	CombineChildrenAttr = "combine.children"
	CombineSelfAttr     = "combine.self"
	CombineAppend       = "append"
	CombineOverride     = "override"
)

// attributePrefix marks a YAML key as an attribute of its parent element
const attributePrefix = "@"

// sequenceItemName names the children created from YAML sequence elements
const sequenceItemName = "item"

// Configuration is an ordered configuration tree
type Configuration struct {
	Name       string
	Value      string
	Attributes map[string]string
	Children   []*Configuration
}

// NewConfiguration returns an empty element
func NewConfiguration(name string) *Configuration {
	return &Configuration{Name: name}
}

// Child returns the first child with the given name, or nil
func (c *Configuration) Child(name string) *Configuration {
	if c == nil {
		return nil
	}
	for _, child := range c.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// ChildValue returns the value of the first child with the given name
func (c *Configuration) ChildValue(name string) (string, bool) {
	child := c.Child(name)
	if child == nil {
		return "", false
	}
	return child.Value, true
}

// AddChild appends child and returns it
func (c *Configuration) AddChild(child *Configuration) *Configuration {
	c.Children = append(c.Children, child)
	return child
}

// SetAttribute sets an attribute value
func (c *Configuration) SetAttribute(name, value string) {
	if c.Attributes == nil {
		c.Attributes = make(map[string]string)
	}
	c.Attributes[name] = value
}

// Attribute returns an attribute value
func (c *Configuration) Attribute(name string) string {
	if c == nil {
		return ""
	}
	return c.Attributes[name]
}

// Copy returns a deep copy of the tree
func (c *Configuration) Copy() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{Name: c.Name, Value: c.Value}
	if len(c.Attributes) > 0 {
		out.Attributes = make(map[string]string, len(c.Attributes))
		for k, v := range c.Attributes {
			out.Attributes[k] = v
		}
	}
	if len(c.Children) > 0 {
		out.Children = make([]*Configuration, len(c.Children))
		for i, child := range c.Children {
			out.Children[i] = child.Copy()
		}
	}
	return out
}

// Equal reports whether two trees have the same names, values, attributes
// and children in the same order
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.Name != other.Name || c.Value != other.Value || len(c.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range c.Attributes {
		if ov, ok := other.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	if len(c.Children) != len(other.Children) {
		return false
	}
	for i := range c.Children {
		if !c.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}

// String renders the tree on one line, for logs
func (c *Configuration) String() string {
	if c == nil {
		return "<nil>"
	}
	var sb strings.Builder
	c.write(&sb)
	return sb.String()
}

func (c *Configuration) write(sb *strings.Builder) {
	sb.WriteString(c.Name)
	if len(c.Attributes) > 0 {
		keys := make([]string, 0, len(c.Attributes))
		for k := range c.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("[")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(k + "=" + c.Attributes[k])
		}
		sb.WriteString("]")
	}
	if len(c.Children) == 0 {
		sb.WriteString("=" + c.Value)
		return
	}
	sb.WriteString("{")
	for i, child := range c.Children {
		if i > 0 {
			sb.WriteString(", ")
		}
		child.write(sb)
	}
	sb.WriteString("}")
}

// MergeConfiguration merges recessive into a copy of dominant and returns
// the result. Neither input is modified.
//
// Values in dominant win. Empty dominant values take the recessive value.
// Attributes missing in dominant are copied. Each recessive child merges
// into the first dominant child of the same name, or is appended when there
// is none. combine.children="append" on a dominant element appends all
// recessive children instead, and combine.self="override" stops the merge
// at that element.
func MergeConfiguration(dominant, recessive *Configuration) *Configuration {
	if dominant == nil {
		return recessive.Copy()
	}
	out := dominant.Copy()
	mergeInto(out, recessive)
	return out
}

func mergeInto(dominant, recessive *Configuration) {
	if recessive == nil {
		return
	}
	if dominant.Attribute(CombineSelfAttr) == CombineOverride {
		return
	}
	if dominant.Value == "" {
		dominant.Value = recessive.Value
	}
	for k, v := range recessive.Attributes {
		if _, ok := dominant.Attributes[k]; !ok {
			dominant.SetAttribute(k, v)
		}
	}
	if len(recessive.Children) == 0 {
		return
	}
	if dominant.Attribute(CombineChildrenAttr) == CombineAppend {
		for _, child := range recessive.Children {
			dominant.AddChild(child.Copy())
		}
		return
	}
	for _, child := range recessive.Children {
		if target := dominant.Child(child.Name); target != nil {
			mergeInto(target, child)
			continue
		}
		dominant.AddChild(child.Copy())
	}
}

// ConfigurationFromYAML converts a YAML node into a configuration element
// called name. Mapping keys become children in document order. Keys that
// start with "@" become attributes, and sequence elements become children
// named "item".
func ConfigurationFromYAML(name string, node *yaml.Node) *Configuration {
	if node == nil {
		return nil
	}
	c := NewConfiguration(name)
	fillFromYAML(c, node)
	return c
}

func fillFromYAML(c *Configuration, node *yaml.Node) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			fillFromYAML(c, node.Content[0])
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			fillFromYAML(c, node.Alias)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i].Value, node.Content[i+1]
			if strings.HasPrefix(key, attributePrefix) {
				c.SetAttribute(strings.TrimPrefix(key, attributePrefix), value.Value)
				continue
			}
			child := NewConfiguration(key)
			fillFromYAML(child, value)
			c.AddChild(child)
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			child := NewConfiguration(sequenceItemName)
			fillFromYAML(child, item)
			c.AddChild(child)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			c.Value = node.Value
		}
	}
}

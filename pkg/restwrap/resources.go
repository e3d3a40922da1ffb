package restwrap

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// URLTemplateKey is the metadata key holding a resource's URL template.
const URLTemplateKey = "resource"

// MetadataField is one free-form documentation entry of a resource.
type MetadataField struct {
	Key   string `json:"key"   yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Field builds a MetadataField.
func Field(key, value string) MetadataField {
	return MetadataField{Key: key, Value: value}
}

// ResourceDescriptor is the static record behind a resource name. Metadata
// keeps the declared key order and includes the URL template entry.
type ResourceDescriptor struct {
	Name        string
	URLTemplate string
	Metadata    []MetadataField
}

// NewResourceDescriptor creates a descriptor from its metadata fields. One of
// the fields must be keyed URLTemplateKey.
func NewResourceDescriptor(name string, fields ...MetadataField) (ResourceDescriptor, error) {
	descriptor := ResourceDescriptor{
		Name:     name,
		Metadata: append([]MetadataField(nil), fields...),
	}

	template, ok := descriptor.Meta(URLTemplateKey)
	if !ok || template == "" {
		return ResourceDescriptor{}, fmt.Errorf("%w: %q", ErrMissingURLTemplate, name)
	}

	descriptor.URLTemplate = template

	return descriptor, nil
}

// Meta returns the value of a metadata key.
func (d ResourceDescriptor) Meta(key string) (string, bool) {
	for _, field := range d.Metadata {
		if field.Key == key {
			return field.Value, true
		}
	}

	return "", false
}

// Docs renders the metadata as one "Key: value" line per field, in declared order.
func (d ResourceDescriptor) Docs() string {
	caser := cases.Title(language.English)
	lines := make([]string, 0, len(d.Metadata))

	for _, field := range d.Metadata {
		lines = append(lines, caser.String(field.Key)+": "+field.Value)
	}

	return strings.Join(lines, "\n")
}

// ParseResourceMapping parses a "name -> {resource, docs, ...}" mapping from
// YAML or JSON. Resource order and metadata key order are preserved.
func ParseResourceMapping(data []byte) ([]ResourceDescriptor, error) {
	var root yaml.Node

	err := yaml.Unmarshal(data, &root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResourceMapping, err)
	}

	if len(root.Content) == 0 {
		return nil, nil
	}

	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: expected a mapping of resources", ErrInvalidResourceMapping, mapping.Line)
	}

	descriptors := make([]ResourceDescriptor, 0, len(mapping.Content)/2)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		name := mapping.Content[i].Value

		fields, err := parseMetadataNode(name, mapping.Content[i+1])
		if err != nil {
			return nil, err
		}

		descriptor, err := NewResourceDescriptor(name, fields...)
		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, descriptor)
	}

	return descriptors, nil
}

func parseMetadataNode(name string, node *yaml.Node) ([]MetadataField, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: resource %q must be a mapping", ErrInvalidResourceMapping, node.Line, name)
	}

	fields := make([]MetadataField, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: %s.%s must be a string", ErrInvalidResourceMapping, value.Line, name, key.Value)
		}

		fields = append(fields, Field(key.Value, value.Value))
	}

	return fields, nil
}

// Registry maps resource names to descriptors. It is read-only once built.
type Registry struct {
	names       []string
	descriptors map[string]ResourceDescriptor
}

// NewRegistry creates a registry from descriptors, keeping their order.
func NewRegistry(descriptors ...ResourceDescriptor) (*Registry, error) {
	registry := &Registry{
		names:       make([]string, 0, len(descriptors)),
		descriptors: make(map[string]ResourceDescriptor, len(descriptors)),
	}

	for _, descriptor := range descriptors {
		if _, exists := registry.descriptors[descriptor.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResource, descriptor.Name)
		}

		if descriptor.URLTemplate == "" {
			return nil, fmt.Errorf("%w: %q", ErrMissingURLTemplate, descriptor.Name)
		}

		registry.names = append(registry.names, descriptor.Name)
		registry.descriptors[descriptor.Name] = descriptor
	}

	return registry, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (ResourceDescriptor, error) {
	descriptor, ok := r.descriptors[name]
	if !ok {
		return ResourceDescriptor{}, &UnknownResourceError{Name: name}
	}

	return descriptor, nil
}

// Names returns the registered names in declared order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return len(r.names)
}

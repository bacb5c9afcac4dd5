// Package graph maintains node and edge records, their adjacency and
// secondary indices, and schema validation, built on top of the
// internal/storage key-value substrate.
package graph

import (
	"fmt"

	"github.com/helix-kernel/helix/internal/kernelerrors"
	"github.com/helix-kernel/helix/internal/value"
)

// PropertyDef declares one property of a node or edge label.
type PropertyDef struct {
	Name    string
	Kind    value.Kind
	Default *value.Value
	Index   bool
	Unique  bool

	// FullText marks a string property as a source of the node's
	// virtual BM25 document: its value is concatenated into the text
	// IndexDocument tokenizes.
	FullText bool
}

// NodeSchema declares a node label's properties and their index flags.
type NodeSchema struct {
	Label      string
	Properties []PropertyDef
}

// EdgeSchema declares an edge label's endpoint node labels, properties,
// and whether the label admits at most one edge per (from, to) pair.
type EdgeSchema struct {
	Label      string
	From       string
	To         string
	Unique     bool
	Properties []PropertyDef
}

// VectorSchema declares a vector label's dimension and any scalar
// properties carried alongside the embedding.
type VectorSchema struct {
	Label      string
	Dimension  int
	Properties []PropertyDef
}

// Schema is the additive registry of every declared label. New labels
// and properties may be added; an existing property's declared Kind may
// not change once registered.
type Schema struct {
	nodes   map[string]NodeSchema
	edges   map[string]EdgeSchema
	vectors map[string]VectorSchema
}

// NewSchema returns an empty, mutable schema registry.
func NewSchema() *Schema {
	return &Schema{
		nodes:   map[string]NodeSchema{},
		edges:   map[string]EdgeSchema{},
		vectors: map[string]VectorSchema{},
	}
}

// RegisterNode adds or extends a node label. Changing an existing
// property's Kind is rejected; adding new properties or a new label is
// always allowed.
func (s *Schema) RegisterNode(def NodeSchema) error {
	existing, ok := s.nodes[def.Label]
	if !ok {
		s.nodes[def.Label] = def
		return nil
	}
	merged, err := mergeProperties(existing.Properties, def.Properties)
	if err != nil {
		return err
	}
	existing.Properties = merged
	s.nodes[def.Label] = existing
	return nil
}

// RegisterEdge adds or extends an edge label.
func (s *Schema) RegisterEdge(def EdgeSchema) error {
	existing, ok := s.edges[def.Label]
	if !ok {
		s.edges[def.Label] = def
		return nil
	}
	if existing.From != def.From || existing.To != def.To {
		return kernelerrors.SchemaViolation(fmt.Sprintf(
			"edge label %q already declares From=%s To=%s, cannot redeclare as From=%s To=%s",
			def.Label, existing.From, existing.To, def.From, def.To))
	}
	merged, err := mergeProperties(existing.Properties, def.Properties)
	if err != nil {
		return err
	}
	existing.Properties = merged
	s.edges[def.Label] = existing
	return nil
}

// RegisterVector adds or extends a vector label. The dimension may not
// change once a label has vectors of a given size stored.
func (s *Schema) RegisterVector(def VectorSchema) error {
	existing, ok := s.vectors[def.Label]
	if !ok {
		s.vectors[def.Label] = def
		return nil
	}
	if existing.Dimension != def.Dimension {
		return kernelerrors.SchemaViolation(fmt.Sprintf(
			"vector label %q already declares dimension %d, cannot redeclare as %d",
			def.Label, existing.Dimension, def.Dimension))
	}
	merged, err := mergeProperties(existing.Properties, def.Properties)
	if err != nil {
		return err
	}
	existing.Properties = merged
	s.vectors[def.Label] = existing
	return nil
}

func mergeProperties(existing, incoming []PropertyDef) ([]PropertyDef, error) {
	byName := make(map[string]PropertyDef, len(existing))
	order := make([]string, 0, len(existing))
	for _, p := range existing {
		byName[p.Name] = p
		order = append(order, p.Name)
	}
	for _, p := range incoming {
		if prior, ok := byName[p.Name]; ok {
			if prior.Kind != p.Kind {
				return nil, kernelerrors.SchemaViolation(fmt.Sprintf(
					"property %q cannot change type from %s to %s", p.Name, prior.Kind, p.Kind))
			}
			continue
		}
		byName[p.Name] = p
		order = append(order, p.Name)
	}
	out := make([]PropertyDef, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

func (s *Schema) Node(label string) (NodeSchema, bool) {
	n, ok := s.nodes[label]
	return n, ok
}

func (s *Schema) Edge(label string) (EdgeSchema, bool) {
	e, ok := s.edges[label]
	return e, ok
}

func (s *Schema) Vector(label string) (VectorSchema, bool) {
	v, ok := s.vectors[label]
	return v, ok
}

// NodeLabels returns every registered node label, in no particular
// order.
func (s *Schema) NodeLabels() []string {
	labels := make([]string, 0, len(s.nodes))
	for label := range s.nodes {
		labels = append(labels, label)
	}
	return labels
}

// EdgeLabels returns every registered edge label, in no particular
// order.
func (s *Schema) EdgeLabels() []string {
	labels := make([]string, 0, len(s.edges))
	for label := range s.edges {
		labels = append(labels, label)
	}
	return labels
}

// FullTextProperties returns the names of label's properties declared
// FullText, in declaration order, for deriving a node's BM25 document
// text. Returns nil for an unregistered label or one with none declared.
func (s *Schema) FullTextProperties(label string) []string {
	def, ok := s.nodes[label]
	if !ok {
		return nil
	}
	var out []string
	for _, p := range def.Properties {
		if p.FullText {
			out = append(out, p.Name)
		}
	}
	return out
}

// VectorDimension returns the declared dimension for label, or (0, false)
// if the label is unregistered.
func (s *Schema) VectorDimension(label string) (int, bool) {
	v, ok := s.vectors[label]
	if !ok {
		return 0, false
	}
	return v.Dimension, true
}

// applyDefaults fills in any property missing from props with its
// declared DEFAULT, leaving already-present properties untouched.
func applyDefaults(defs []PropertyDef, props map[string]value.Value) map[string]value.Value {
	out := value.CloneProperties(props)
	for _, d := range defs {
		if _, present := out[d.Name]; !present && d.Default != nil {
			out[d.Name] = *d.Default
		}
	}
	return out
}

// validateTypes checks every property present in props against its
// declared Kind, if the property is declared.
func validateTypes(label string, defs []PropertyDef, props map[string]value.Value) error {
	byName := make(map[string]PropertyDef, len(defs))
	for _, d := range defs {
		byName[d.Name] = d
	}
	for name, v := range props {
		d, ok := byName[name]
		if !ok {
			continue // schema is additive; unknown properties are accepted
		}
		if v.Kind() != d.Kind {
			return kernelerrors.SchemaViolation(fmt.Sprintf(
				"%s.%s expects %s, got %s", label, name, d.Kind, v.Kind()))
		}
	}
	return nil
}

// Package session holds an editing session: a graph being edited together
// with the topology metadata retained from the document it was loaded from.
//
// The mutations mirror what a user does on the canvas: drop a node from the
// palette, delete it, draw or remove an edge, rename a node, or switch it to
// another definition of the same kind. Switching types keeps the old property
// values in memory so switching back loses nothing; they are dropped only
// when the graph is collected into a document.
//
// Sessions persist as JSON files of the form {id, meta, graph}:
//
//	sess := session.New(meta, g)
//	n, err := sess.AddNode(reg, "#Microsoft.VideoAnalyzer.FileSink", "recorder")
//	if err != nil {
//	    return err
//	}
//	err = sess.Connect(reg, gateID, n.ID)
//	err = session.WriteFile(sess, "edit.session.json")
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/topoedit/pkg/graph"
	"github.com/matzehuels/topoedit/pkg/schema"
	"github.com/matzehuels/topoedit/pkg/topology"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrDuplicateName is returned when a node name is already taken.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrUnknownType is returned when a discriminator has no definition.
	ErrUnknownType = errors.New("unknown node type")

	// ErrIncompatible is returned when the definitions forbid an edge or a
	// type switch.
	ErrIncompatible = errors.New("incompatible node types")
)

// Session is a graph under edit plus the metadata needed to collect it.
type Session struct {
	ID        string            `json:"id"`
	Meta      topology.Metadata `json:"meta"`
	Graph     *graph.Graph      `json:"graph"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// New starts a session over g. A nil graph starts an empty canvas.
func New(meta topology.Metadata, g *graph.Graph) *Session {
	if g == nil {
		g = graph.New()
	}
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Meta:      meta,
		Graph:     g,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) touch() { s.UpdatedAt = time.Now().UTC() }

func (s *Session) node(id string) (*graph.Node, error) {
	n, ok := s.Graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
	}
	return n, nil
}

func (s *Session) checkName(name, self string) error {
	if name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if other, ok := s.Graph.NodeByName(name); ok && other.ID != self {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	return nil
}

// AddNode drops a new node of type discriminator onto the canvas at (0,0).
// Its properties start as {"@type", "name"}.
func (s *Session) AddNode(reg *schema.Registry, discriminator, name string) (*graph.Node, error) {
	def, ok := reg.Lookup(discriminator)
	if !ok || def.Kind == topology.Other {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, discriminator)
	}
	if err := s.checkName(name, ""); err != nil {
		return nil, err
	}
	props := topology.Properties{topology.KeyType: discriminator, topology.KeyName: name}
	n := graph.NewNode(name, def.Kind, props)
	if err := s.Graph.AddNode(n); err != nil {
		return nil, err
	}
	s.touch()
	added, _ := s.Graph.Node(n.ID)
	return added, nil
}

// RemoveNode deletes a node and every edge touching it. The removed edges are
// returned.
func (s *Session) RemoveNode(id string) ([]graph.Edge, error) {
	removed, err := s.Graph.RemoveNode(id)
	if err != nil {
		return nil, err
	}
	s.touch()
	return removed, nil
}

// Connect draws an edge from the output port of source to the input port of
// target.
func (s *Session) Connect(reg *schema.Registry, sourceID, targetID string) (graph.Edge, error) {
	src, err := s.node(sourceID)
	if err != nil {
		return graph.Edge{}, err
	}
	dst, err := s.node(targetID)
	if err != nil {
		return graph.Edge{}, err
	}
	if src.ID == dst.ID {
		return graph.Edge{}, fmt.Errorf("%w: %s cannot feed itself", ErrIncompatible, src.Name)
	}
	if !reg.CanConnect(src.Type(), dst.Type()) {
		return graph.Edge{}, fmt.Errorf("%w: %s cannot feed %s", ErrIncompatible, src.Type(), dst.Type())
	}
	out, ok := s.Graph.Port(src.ID, false)
	if !ok {
		return graph.Edge{}, fmt.Errorf("%w: %s has no output", graph.ErrInvalidPort, src.Name)
	}
	in, ok := s.Graph.Port(dst.ID, true)
	if !ok {
		return graph.Edge{}, fmt.Errorf("%w: %s has no input", graph.ErrInvalidPort, dst.Name)
	}
	e := graph.Edge{
		ID:           uuid.NewString(),
		Source:       src.ID,
		Target:       dst.ID,
		SourcePortID: out.ID,
		TargetPortID: in.ID,
	}
	if err := s.Graph.AddEdge(e); err != nil {
		return graph.Edge{}, err
	}
	s.touch()
	return e, nil
}

// Disconnect removes an edge.
func (s *Session) Disconnect(edgeID string) (graph.Edge, error) {
	e, err := s.Graph.RemoveEdge(edgeID)
	if err != nil {
		return graph.Edge{}, err
	}
	s.touch()
	return e, nil
}

// Rename changes a node's display name and the name in its properties.
func (s *Session) Rename(id, name string) error {
	n, err := s.node(id)
	if err != nil {
		return err
	}
	if err := s.checkName(name, id); err != nil {
		return err
	}
	n.Name = name
	if n.Data.NodeProperties == nil {
		n.Data.NodeProperties = topology.Properties{}
	}
	n.Data.NodeProperties.SetName(name)
	s.touch()
	return nil
}

// SetType switches a node to another definition of the same kind. Property
// values of the previous type are kept.
func (s *Session) SetType(reg *schema.Registry, id, discriminator string) error {
	n, err := s.node(id)
	if err != nil {
		return err
	}
	def, ok := reg.Lookup(discriminator)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, discriminator)
	}
	if def.Kind != n.Data.NodeType {
		return fmt.Errorf("%w: %s is a %s, %s is a %s", ErrIncompatible, n.Name, n.Data.NodeType, discriminator, def.Kind)
	}
	if n.Data.NodeProperties == nil {
		n.Data.NodeProperties = topology.Properties{topology.KeyName: n.Name}
	}
	n.Data.NodeProperties[topology.KeyType] = discriminator
	s.touch()
	return nil
}

// Set assigns one property of a node. A nil value removes it. The "@type",
// "name" and "inputs" keys are managed by the session and cannot be set.
func (s *Session) Set(id, key string, value any) error {
	n, err := s.node(id)
	if err != nil {
		return err
	}
	switch key {
	case topology.KeyType, topology.KeyName, topology.KeyInputs:
		return fmt.Errorf("property %q is managed by the editor", key)
	}
	if n.Data.NodeProperties == nil {
		n.Data.NodeProperties = topology.Properties{}
	}
	if value == nil {
		delete(n.Data.NodeProperties, key)
	} else {
		n.Data.NodeProperties[key] = value
	}
	s.touch()
	return nil
}

// Move places a node's top-left corner at (x, y).
func (s *Session) Move(id string, x, y float64) error {
	n, err := s.node(id)
	if err != nil {
		return err
	}
	n.X, n.Y = x, y
	s.touch()
	return nil
}

// Resolve finds a node by id, falling back to its display name.
func (s *Session) Resolve(ref string) (*graph.Node, error) {
	if n, ok := s.Graph.Node(ref); ok {
		return n, nil
	}
	if n, ok := s.Graph.NodeByName(ref); ok {
		return n, nil
	}
	return nil, fmt.Errorf("%w: %s", graph.ErrUnknownNode, ref)
}

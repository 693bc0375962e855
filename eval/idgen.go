package eval

import "github.com/cassiersg/matchi-go/wirestate"

// IDGen hands out sequential NSPGIIDs to pipeline-gadget instances as the
// hierarchy is built, so that every PipelineEval in a run gets a stable,
// deterministic identity (ids are assigned in one top-down construction
// walk, never re-derived per cycle).
type IDGen struct {
	next wirestate.NSPGIID
}

// NewIDGen constructs a fresh generator, starting at NSPGI id 0.
func NewIDGen() *IDGen { return &IDGen{} }

// Next returns the next unused NSPGI id.
func (g *IDGen) Next() wirestate.NSPGIID {
	id := g.next
	g.next++
	return id
}

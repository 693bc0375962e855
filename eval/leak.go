package eval

import (
	"github.com/cassiersg/matchi-go/simstate"
	"github.com/cassiersg/matchi-go/wirestate"
)

// instanceLeakSink adapts simstate.State (which needs an instance path to
// attribute leaks to) to wirestate.LeakSink (which gate evaluation calls
// with no notion of "which instance" it is running in).
type instanceLeakSink struct {
	sim  *simstate.State
	path string
}

func (s instanceLeakSink) LeakRandom(ref wirestate.RandomRef) {
	s.sim.LeakRandom(ref, s.path)
}

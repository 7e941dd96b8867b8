// Package nullmixer provides a minimal mixer.Core implementation: a
// fixed registry of named sinks/sources that accept sink-input/source-
// output registrations but never pull or push audio on their own.
//
// The mixing core itself is out of scope (spec.md §9, "no mixer
// scheduling, no device I/O") — this package exists only so
// cmd/pulsenatived has something concrete to wire internal/session
// against, the way module-null-sink stands in for a real device in a
// PulseAudio daemon with no audio hardware configured. Pulling queued
// data out of a registered stream is left to whatever drives
// SinkInputOps.Peek/Drop in a real deployment; nothing in this package
// does it.
package nullmixer

import (
	"sync"

	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
)

// Sink is a named null playback device.
type Sink struct {
	index uint32
	name  string

	mu     sync.Mutex
	nextID uint32
	inputs map[uint32]mixer.SinkInputOps
}

func newSink(index uint32, name string) *Sink {
	return &Sink{index: index, name: name, inputs: make(map[uint32]mixer.SinkInputOps)}
}

func (s *Sink) Index() uint32 { return s.index }
func (s *Sink) Name() string  { return s.name }

// NewInput implements mixer.Sink.
func (s *Sink) NewInput(ss tagstruct.SampleSpec, ops mixer.SinkInputOps) (mixer.SinkInputHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.inputs[id] = ops
	return mixer.SinkInputHandle{Index: id}, nil
}

// RemoveInput implements mixer.Sink.
func (s *Sink) RemoveInput(h mixer.SinkInputHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inputs, h.Index)
}

// Notify implements mixer.Sink. The null sink never pulls, so there is
// nothing to wake.
func (s *Sink) Notify() {}

// Source is a named null capture device; it never produces data.
type Source struct {
	index uint32
	name  string
}

func newSource(index uint32, name string) *Source {
	return &Source{index: index, name: name}
}

func (s *Source) Index() uint32 { return s.index }
func (s *Source) Name() string  { return s.name }

// NewOutput implements mixer.Source.
func (s *Source) NewOutput(ss tagstruct.SampleSpec, ops mixer.SourceOutputOps) (mixer.SourceOutputHandle, error) {
	return mixer.SourceOutputHandle{}, nil
}

// RemoveOutput implements mixer.Source.
func (s *Source) RemoveOutput(mixer.SourceOutputHandle) {}

// Core is a static mixer.Core backed by a fixed list of null sinks and
// sources, with the first of each acting as the default.
type Core struct {
	sinks       map[uint32]*Sink
	sinkNames   map[string]*Sink
	sources     map[uint32]*Source
	sourceNames map[string]*Source
	defaultSink *Sink
	defaultSrc  *Source
}

// New builds a Core with one null sink and one null source, named
// sinkName and sourceName.
func New(sinkName, sourceName string) *Core {
	sink := newSink(0, sinkName)
	source := newSource(0, sourceName)
	return &Core{
		sinks:       map[uint32]*Sink{0: sink},
		sinkNames:   map[string]*Sink{sinkName: sink},
		sources:     map[uint32]*Source{0: source},
		sourceNames: map[string]*Source{sourceName: source},
		defaultSink: sink,
		defaultSrc:  source,
	}
}

func (c *Core) DefaultSink() (mixer.Sink, bool) { return c.defaultSink, c.defaultSink != nil }

func (c *Core) DefaultSource() (mixer.Source, bool) { return c.defaultSrc, c.defaultSrc != nil }

func (c *Core) SinkByIndex(index uint32) (mixer.Sink, bool) {
	s, ok := c.sinks[index]
	return s, ok
}

func (c *Core) SinkByName(name string) (mixer.Sink, bool) {
	s, ok := c.sinkNames[name]
	return s, ok
}

func (c *Core) SourceByIndex(index uint32) (mixer.Source, bool) {
	s, ok := c.sources[index]
	return s, ok
}

func (c *Core) SourceByName(name string) (mixer.Source, bool) {
	s, ok := c.sourceNames[name]
	return s, ok
}

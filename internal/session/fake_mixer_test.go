package session

import (
	"sync"

	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
)

// fakeSink is a minimal mixer.Sink test double: it records the ops
// registered against it and never pulls from them on its own, so tests
// control exactly when Peek/Drop fire.
type fakeSink struct {
	index uint32
	name  string

	mu       sync.Mutex
	inputs   map[uint32]mixer.SinkInputOps
	nextID   uint32
	notified int
	removed  []uint32
}

func newFakeSink(index uint32, name string) *fakeSink {
	return &fakeSink{index: index, name: name, inputs: make(map[uint32]mixer.SinkInputOps)}
}

func (s *fakeSink) Index() uint32 { return s.index }
func (s *fakeSink) Name() string  { return s.name }

func (s *fakeSink) NewInput(ss tagstruct.SampleSpec, ops mixer.SinkInputOps) (mixer.SinkInputHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.inputs[id] = ops
	return mixer.SinkInputHandle{Index: id}, nil
}

func (s *fakeSink) RemoveInput(h mixer.SinkInputHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inputs, h.Index)
	s.removed = append(s.removed, h.Index)
}

func (s *fakeSink) Notify() {
	s.mu.Lock()
	s.notified++
	s.mu.Unlock()
}

func (s *fakeSink) input(id uint32) mixer.SinkInputOps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs[id]
}

// fakeSource is the Source counterpart to fakeSink: it records the ops
// registered against it so tests can drive a record stream's Push/Kill
// from the "mixer" side.
type fakeSource struct {
	index uint32
	name  string

	mu      sync.Mutex
	outputs map[uint32]mixer.SourceOutputOps
	nextID  uint32
	removed []uint32
}

func newFakeSource(index uint32, name string) *fakeSource {
	return &fakeSource{index: index, name: name, outputs: make(map[uint32]mixer.SourceOutputOps)}
}

func (s *fakeSource) Index() uint32 { return s.index }
func (s *fakeSource) Name() string  { return s.name }

func (s *fakeSource) NewOutput(ss tagstruct.SampleSpec, ops mixer.SourceOutputOps) (mixer.SourceOutputHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.outputs[id] = ops
	return mixer.SourceOutputHandle{Index: id}, nil
}

func (s *fakeSource) RemoveOutput(h mixer.SourceOutputHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outputs, h.Index)
	s.removed = append(s.removed, h.Index)
}

func (s *fakeSource) output(id uint32) mixer.SourceOutputOps {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outputs[id]
}

// fakeCore is a mixer.Core test double backed by name/index maps.
type fakeCore struct {
	sinks         map[uint32]*fakeSink
	sinksByName   map[string]*fakeSink
	sources       map[uint32]*fakeSource
	sourcesByName map[string]*fakeSource
	defaultSink   *fakeSink
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		sinks:         make(map[uint32]*fakeSink),
		sinksByName:   make(map[string]*fakeSink),
		sources:       make(map[uint32]*fakeSource),
		sourcesByName: make(map[string]*fakeSource),
	}
}

func (c *fakeCore) addSink(index uint32, name string) *fakeSink {
	s := newFakeSink(index, name)
	c.sinks[index] = s
	c.sinksByName[name] = s
	if c.defaultSink == nil {
		c.defaultSink = s
	}
	return s
}

func (c *fakeCore) addSource(index uint32, name string) *fakeSource {
	s := newFakeSource(index, name)
	c.sources[index] = s
	c.sourcesByName[name] = s
	return s
}

func (c *fakeCore) DefaultSink() (mixer.Sink, bool) {
	if c.defaultSink == nil {
		return nil, false
	}
	return c.defaultSink, true
}

func (c *fakeCore) DefaultSource() (mixer.Source, bool) { return nil, false }

func (c *fakeCore) SinkByIndex(index uint32) (mixer.Sink, bool) {
	s, ok := c.sinks[index]
	return s, ok
}

func (c *fakeCore) SinkByName(name string) (mixer.Sink, bool) {
	s, ok := c.sinksByName[name]
	return s, ok
}

func (c *fakeCore) SourceByIndex(index uint32) (mixer.Source, bool) {
	s, ok := c.sources[index]
	return s, ok
}

func (c *fakeCore) SourceByName(name string) (mixer.Source, bool) {
	s, ok := c.sourcesByName[name]
	return s, ok
}

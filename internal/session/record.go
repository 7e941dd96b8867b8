package session

import (
	"sync"

	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
)

// RecordStream is the capture-direction counterpart to PlaybackStream.
// No command handler drives CREATE_RECORD_STREAM yet (spec.md §3 scopes
// it as a reserved surface); this type exists so a source's Push
// callback has somewhere concrete to deliver chunks to, and so the
// wire's memblock path has a symmetric receiver once that command is
// wired in. Exercised directly by internal/session's record_test.go
// (Push/Kill/free), since no handler reaches it yet.
type RecordStream struct {
	conn   *Connection
	index  uint32
	ss     tagstruct.SampleSpec
	source mixer.Source
	output mixer.SourceOutputHandle

	mu    sync.Mutex
	freed bool
}

func newRecordStream(conn *Connection, index uint32, ss tagstruct.SampleSpec, source mixer.Source) *RecordStream {
	return &RecordStream{conn: conn, index: index, ss: ss, source: source}
}

// Push implements mixer.SourceOutputOps: frame the chunk as a memblock
// addressed to this stream's channel and write it out.
func (s *RecordStream) Push(chunk mixer.Chunk) {
	s.conn.sendMemblock(s.index, chunk.Data)
}

// Kill implements mixer.SourceOutputOps.
func (s *RecordStream) Kill() {
	s.free(true)
}

func (s *RecordStream) free(fromMixer bool) {
	s.mu.Lock()
	if s.freed {
		s.mu.Unlock()
		return
	}
	s.freed = true
	s.mu.Unlock()

	s.conn.removeRecordStream(s.index)
	if !fromMixer {
		s.source.RemoveOutput(s.output)
	}
}

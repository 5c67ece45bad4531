package worker

import (
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v4"

	"github.com/ndstream/receiver/receiver"
)

// SnapshotSink persists a Receiver State's Snapshot once its streaming
// connection has ended, the write side of the msgpack records the dump
// CLI later decodes back into JSON.
type SnapshotSink interface {
	Persist(snap receiver.Snapshot)
}

// FileSnapshotSink appends msgpack-encoded Snapshot records to a single
// file shared by every worker goroutine; mu serializes Encode calls
// since msgpack.Encoder is not safe for concurrent use.
type FileSnapshotSink struct {
	mu      sync.Mutex
	file    io.Closer
	encoder *msgpack.Encoder
}

// NewFileSnapshotSink opens (creating or appending to) path and returns a
// sink workers can share. Callers should Close it during shutdown, after
// the pool has drained.
func NewFileSnapshotSink(path string) (*FileSnapshotSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileSnapshotSink{file: f, encoder: msgpack.NewEncoder(f)}, nil
}

// Persist implements SnapshotSink.
func (s *FileSnapshotSink) Persist(snap receiver.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.encoder.Encode(&snap)
}

// Close releases the underlying file.
func (s *FileSnapshotSink) Close() error {
	return s.file.Close()
}

// Package packetstore divides a content file into fixed-size packets and
// tracks which of them are locally available, guarding concurrent reads
// (from a seed loop) against concurrent writes (from a leech loop).
//
// Grounded on original_source/src/torrent_file.rs (TorrentFile) and
// original_source/src/file_handler.rs (FileHandler) — the two revisions
// of the same idea the spec distills into one canonical PacketStore.
package packetstore

import (
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned by ReadPackets when start+count exceeds the
// packet count.
var ErrOutOfBounds = errors.New("packet range out of bounds")

// ErrUnavailable is returned by ReadPackets when any requested packet is
// not yet present on disk.
var ErrUnavailable = errors.New("requested packet not available")

// PacketStore is the file-backed store each peer owns for one torrent.
type PacketStore struct {
	path        string
	torrentSize int64
	packetSize  int64
	packetCount int64

	availMu sync.RWMutex
	availability *bitset.BitSet

	fileMu sync.Mutex
	file   *os.File
}

// ceilDiv returns ceil(a/b) for positive a, b.
//
// Mirrors torrent_file.rs's div_usize_ceil: Go has no integer ceil
// division built in either.
func ceilDiv(a, b int64) int64 {
	floor := a / b
	if floor*b < a {
		return floor + 1
	}
	return floor
}

// New creates (or truncates) path, sizes it to torrentSize bytes and
// returns an empty store — every packet bit starts cleared.
func New(path string, torrentSize, packetSize int64) (*PacketStore, error) {
	if packetSize <= 0 {
		return nil, errors.New("packet size must be positive")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "creating content file %q", path)
	}
	if err := f.Truncate(torrentSize); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "sizing content file %q", path)
	}

	packetCount := ceilDiv(torrentSize, packetSize)

	return &PacketStore{
		path:         path,
		torrentSize:  torrentSize,
		packetSize:   packetSize,
		packetCount:  packetCount,
		availability: bitset.New(uint(packetCount)),
		file:         f,
	}, nil
}

// FromComplete opens an existing, fully-downloaded file read+append and
// derives torrent_size from its length on disk. Every bit starts set.
func FromComplete(path string, packetSize int64) (*PacketStore, error) {
	if packetSize <= 0 {
		return nil, errors.New("packet size must be positive")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening complete content file %q", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat-ing content file %q", path)
	}

	torrentSize := info.Size()
	packetCount := ceilDiv(torrentSize, packetSize)

	availability := bitset.New(uint(packetCount))
	for i := uint(0); i < uint(packetCount); i++ {
		availability.Set(i)
	}

	return &PacketStore{
		path:         path,
		torrentSize:  torrentSize,
		packetSize:   packetSize,
		packetCount:  packetCount,
		availability: availability,
		file:         f,
	}, nil
}

// progressDTO is the JSON shape persisted to the `{path}.progress`
// sidecar — path, torrent_size, packet_size, packet_count and the
// availability bitmap, matching §6 of the spec exactly.
type progressDTO struct {
	Path                string         `json:"path"`
	TorrentSize         int64          `json:"torrent_size"`
	PacketSize          int64          `json:"packet_size"`
	PacketCount         int64          `json:"packet_count"`
	PacketAvailability  *bitset.BitSet `json:"packet_availability"`
}

// FromProgressFile reconstructs a store from a sidecar written by
// SaveProgressToFile, reopening the underlying content file (a file
// handle can't be persisted across the restart).
//
// Per DESIGN.md's Open Question decision, a missing or short content
// file is a recoverable error here rather than a panic.
func FromProgressFile(sidecarPath string) (*PacketStore, error) {
	raw, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading progress file %q", sidecarPath)
	}

	var dto progressDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, errors.Wrap(err, "decoding progress file")
	}

	f, err := os.OpenFile(dto.Path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "reopening content file %q on resume", dto.Path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat-ing content file %q on resume", dto.Path)
	}
	if info.Size() < dto.TorrentSize {
		f.Close()
		return nil, errors.Errorf(
			"content file %q is %d bytes, shorter than recorded torrent_size %d",
			dto.Path, info.Size(), dto.TorrentSize,
		)
	}

	availability := dto.PacketAvailability
	if availability == nil {
		availability = bitset.New(uint(dto.PacketCount))
	}

	return &PacketStore{
		path:         dto.Path,
		torrentSize:  dto.TorrentSize,
		packetSize:   dto.PacketSize,
		packetCount:  dto.PacketCount,
		availability: availability,
		file:         f,
	}, nil
}

// SaveProgressToFile writes metadata and a snapshot of the availability
// bitmap to `{path}.progress`.
func (s *PacketStore) SaveProgressToFile() error {
	dto := progressDTO{
		Path:               s.path,
		TorrentSize:        s.torrentSize,
		PacketSize:         s.packetSize,
		PacketCount:        s.packetCount,
		PacketAvailability: s.ReadPacketAvailability(),
	}

	data, err := json.Marshal(dto)
	if err != nil {
		return errors.Wrap(err, "encoding progress file")
	}

	return errors.Wrapf(os.WriteFile(s.path+".progress", data, 0644), "writing progress file for %q", s.path)
}

// PacketCount returns ceil(torrent_size / packet_size).
func (s *PacketStore) PacketCount() int64 { return s.packetCount }

// PacketSize returns the configured packet size.
func (s *PacketStore) PacketSize() int64 { return s.packetSize }

// TorrentSize returns the total content length.
func (s *PacketStore) TorrentSize() int64 { return s.torrentSize }

// Path returns the content file path.
func (s *PacketStore) Path() string { return s.path }

// ReadPacketAvailability returns a snapshot copy of the availability
// bitmap — never a reference into shared state.
func (s *PacketStore) ReadPacketAvailability() *bitset.BitSet {
	s.availMu.RLock()
	defer s.availMu.RUnlock()
	return s.availability.Clone()
}

// ReadPackets returns exactly min(count*packet_size, torrent_size -
// start*packet_size) bytes read from disk, starting at packet start.
func (s *PacketStore) ReadPackets(start, count int64) ([]byte, error) {
	if start+count > s.packetCount {
		return nil, ErrOutOfBounds
	}

	if !s.rangeAvailable(start, count) {
		return nil, ErrUnavailable
	}

	bytesToRead := count * s.packetSize
	if remaining := s.torrentSize - start*s.packetSize; remaining < bytesToRead {
		bytesToRead = remaining
	}

	buf := make([]byte, bytesToRead)

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if _, err := s.file.Seek(start*s.packetSize, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to read packets")
	}
	if _, err := io.ReadFull(s.file, buf); err != nil {
		return nil, errors.Wrap(err, "reading packets")
	}

	return buf, nil
}

func (s *PacketStore) rangeAvailable(start, count int64) bool {
	s.availMu.RLock()
	defer s.availMu.RUnlock()

	for i := start; i < start+count; i++ {
		if !s.availability.Test(uint(i)) {
			return false
		}
	}
	return true
}

// WritePackets seeks to start*packet_size, writes data, flushes it to
// the OS, then marks the covered packets available. The flush-before-set
// order is the invariant the whole concurrency model rests on: any
// observer that later sees a set bit also sees the bytes behind it.
func (s *PacketStore) WritePackets(start int64, data []byte) error {
	s.fileMu.Lock()
	if _, err := s.file.Seek(start*s.packetSize, io.SeekStart); err != nil {
		s.fileMu.Unlock()
		return errors.Wrap(err, "seeking to write packets")
	}
	if _, err := s.file.Write(data); err != nil {
		s.fileMu.Unlock()
		return errors.Wrap(err, "writing packets")
	}
	if err := s.file.Sync(); err != nil {
		s.fileMu.Unlock()
		return errors.Wrap(err, "flushing packets")
	}
	s.fileMu.Unlock()

	packetsWritten := ceilDiv(int64(len(data)), s.packetSize)

	s.availMu.Lock()
	for i := start; i < start+packetsWritten; i++ {
		s.availability.Set(uint(i))
	}
	s.availMu.Unlock()

	return nil
}
</content>

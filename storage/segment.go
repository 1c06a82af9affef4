package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tysonmote/gommap"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/types"
)

// LogSuffix is the extension of segment files
const LogSuffix = ".log"

// GetPartitionDir returns the directory holding a partition's segments
func GetPartitionDir(logDir string, topic string, partition int32) string {
	return filepath.Join(logDir, fmt.Sprintf("%s-%d", topic, partition))
}

// GetSegmentFile returns the path of a partition's first segment
func GetSegmentFile(logDir string, topic string, partition int32) string {
	return filepath.Join(GetPartitionDir(logDir, topic, partition), types.FirstSegmentFile+LogSuffix)
}

// ReadSegment returns the whole content of a segment file. The file is
// mapped read-only and copied out so no mapping outlives the call.
func ReadSegment(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		// empty files cannot be mapped
		return []byte{}, nil
	}

	mapped, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer func() {
		if err := mapped.UnsafeUnmap(); err != nil {
			log.Warn("failed to unmap %s: %v", path, err)
		}
	}()

	b := make([]byte, len(mapped))
	copy(b, mapped)
	return b, nil
}

// ReadPartitionSegment returns the raw bytes of a partition's first segment.
// A partition without a segment file reads as empty.
func ReadPartitionSegment(logDir string, topic string, partition int32) ([]byte, error) {
	path := GetSegmentFile(logDir, topic, partition)
	b, err := ReadSegment(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no segment at %s, returning an empty record set", path)
		return nil, nil
	}
	return b, err
}

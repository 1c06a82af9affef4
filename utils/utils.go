package utils

import (
	"os"
	"path/filepath"
	"time"
)

// NowAsUnixMilli returns current time in ms, the unit of record batch timestamps
func NowAsUnixMilli() int64 {
	return time.Now().UnixMilli()
}

// EnsureParentDir creates the directory that will hold the file at path
func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

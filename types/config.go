package types

import (
	"path/filepath"
	"time"
)

// ClusterMetadataTopic is the internal topic holding the KRaft metadata log
const ClusterMetadataTopic = "__cluster_metadata"

// FirstSegmentFile is the name of the first segment of every partition
const FirstSegmentFile = "00000000000000000000"

// Configuration holds everything the broker reads from flags
type Configuration struct {
	LogDir          string
	MetadataLogPath string // defaults to the first segment of __cluster_metadata-0 under LogDir
	BrokerHost      string
	BrokerPort      uint32
	APIVersionsFile string // empty means the built-in table
	LogLevel        string
	MetricsInterval time.Duration
}

// DefaultConfiguration returns the settings used when no flag is given
func DefaultConfiguration() Configuration {
	return Configuration{
		LogDir:          "/tmp/kraft-combined-logs",
		BrokerHost:      "0.0.0.0",
		BrokerPort:      9092,
		LogLevel:        "INFO",
		MetricsInterval: 10 * time.Second,
	}
}

// ClusterMetadataLog returns the path of the cluster metadata segment
func (c Configuration) ClusterMetadataLog() string {
	if c.MetadataLogPath != "" {
		return c.MetadataLogPath
	}
	return filepath.Join(c.LogDir, ClusterMetadataTopic+"-0", FirstSegmentFile+".log")
}

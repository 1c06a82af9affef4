package protocol

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
)

//go:embed api_versions.json
var defaultAPIVersions []byte

// APIVersion represents an API key and its supported version range
type APIVersion struct {
	APIKey     int16 `json:"key"`
	MinVersion int16 `json:"min"`
	MaxVersion int16 `json:"max"`
}

// Supports reports whether version is within the supported range
func (v APIVersion) Supports(version int16) bool {
	return version >= v.MinVersion && version <= v.MaxVersion
}

// VersionSource supplies the table of supported API versions
type VersionSource interface {
	APIVersions() (VersionTable, error)
}

// VersionTable is a fixed table of supported API versions
type VersionTable []APIVersion

// APIVersions implements VersionSource
func (t VersionTable) APIVersions() (VersionTable, error) {
	return t, nil
}

// Lookup returns the supported range of an API key
func (t VersionTable) Lookup(apiKey int16) (APIVersion, bool) {
	for _, v := range t {
		if v.APIKey == apiKey {
			return v, true
		}
	}
	return APIVersion{}, false
}

// ParseVersionTable decodes a JSON array of {"key", "min", "max"} entries.
// Every invalid entry is reported.
func ParseVersionTable(b []byte) (VersionTable, error) {
	var table VersionTable
	if err := json.Unmarshal(b, &table); err != nil {
		return nil, err
	}
	var result *multierror.Error
	seen := make(map[int16]bool, len(table))
	for _, v := range table {
		if v.MinVersion < 0 || v.MinVersion > v.MaxVersion {
			result = multierror.Append(result, fmt.Errorf("api key %d: invalid version range [%d, %d]", v.APIKey, v.MinVersion, v.MaxVersion))
		}
		if seen[v.APIKey] {
			result = multierror.Append(result, fmt.Errorf("api key %d listed twice", v.APIKey))
		}
		seen[v.APIKey] = true
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return table, nil
}

// DefaultVersionTable returns the versions of the APIs this broker implements
func DefaultVersionTable() VersionTable {
	table, err := ParseVersionTable(defaultAPIVersions)
	if err != nil {
		panic(fmt.Sprintf("embedded api versions: %v", err))
	}
	return table
}

// VersionFile is a JSON version table read from disk on every lookup
type VersionFile string

// APIVersions implements VersionSource
func (f VersionFile) APIVersions() (VersionTable, error) {
	b, err := os.ReadFile(string(f))
	if err != nil {
		return nil, err
	}
	table, err := ParseVersionTable(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", string(f), err)
	}
	return table, nil
}

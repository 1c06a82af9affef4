package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-metrics"

	log "github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/state"
	"github.com/CefBoud/kafkalite/types"
)

// Broker answers decoded Kafka requests. It holds no connection state: the
// metadata log and partition segments are read again for every request.
type Broker struct {
	Config   types.Configuration
	Versions VersionSource
}

// NewBroker creates a new Broker instance with the provided configuration
func NewBroker(config types.Configuration) *Broker {
	var versions VersionSource = DefaultVersionTable()
	if config.APIVersionsFile != "" {
		versions = VersionFile(config.APIVersionsFile)
	}
	return &Broker{Config: config, Versions: versions}
}

// HandleRequest answers one complete frame, size prefix included. A malformed
// frame returns an error wrapping ErrMalformedRequest and no response: the
// caller is expected to drop the connection. Every other failure is answered
// with the generic error frame.
func (b *Broker) HandleRequest(frame []byte, connAddr string) ([]byte, error) {
	start := time.Now()
	req, err := ParseRequest(frame, connAddr)
	if err != nil {
		metrics.IncrCounter([]string{"request", "malformed"}, 1)
		return nil, err
	}

	apiKeyHandler := b.APIDispatcher(req.RequestAPIKey)
	log.Debug("Received RequestAPIKey: %v (%v) | RequestAPIVersion: %v | CorrelationID: %v | Length: %v", req.RequestAPIKey, apiKeyHandler.Name, req.RequestAPIVersion, req.CorrelationID, req.Length)
	if apiKeyHandler.Handler == nil {
		log.Warn("unsupported api key %d from %s, answering %s", req.RequestAPIKey, connAddr, ErrorName(ErrUnknownServerError.Code))
		metrics.IncrCounterWithLabels([]string{"request", "unsupported"}, 1, []metrics.Label{{Name: "api_key", Value: strconv.Itoa(int(req.RequestAPIKey))}})
		return Finalize(newErrorResponse(req.CorrelationID, ErrUnknownServerError.Code)), nil
	}

	labels := []metrics.Label{{Name: "api", Value: apiKeyHandler.Name}}
	defer metrics.MeasureSinceWithLabels([]string{"request", "latency"}, start, labels)
	metrics.IncrCounterWithLabels([]string{"request"}, 1, labels)

	response, err := apiKeyHandler.Handler(req)
	if errors.Is(err, ErrMalformedRequest) {
		metrics.IncrCounterWithLabels([]string{"request", "malformed"}, 1, labels)
		return nil, err
	}
	if err != nil {
		log.Error("%s request from %s failed, answering %s: %v", apiKeyHandler.Name, connAddr, ErrorName(ErrUnknownServerError.Code), err)
		metrics.IncrCounterWithLabels([]string{"request", "failed"}, 1, labels)
		return Finalize(newErrorResponse(req.CorrelationID, ErrUnknownServerError.Code)), nil
	}
	return Finalize(response), nil
}

// checkVersion rejects a request version that the version table does not
// advertise or that the handler cannot decode.
func (b *Broker) checkVersion(req types.Request, decodable APIVersion) error {
	versions, err := b.Versions.APIVersions()
	if err != nil {
		return err
	}
	advertised, ok := versions.Lookup(req.RequestAPIKey)
	if !ok || !advertised.Supports(req.RequestAPIVersion) || !decodable.Supports(req.RequestAPIVersion) {
		return fmt.Errorf("api key %d v%d is not supported", req.RequestAPIKey, req.RequestAPIVersion)
	}
	return nil
}

// loadIndex rebuilds the metadata index from the cluster metadata log
func (b *Broker) loadIndex() (*state.MetadataIndex, error) {
	path := b.Config.ClusterMetadataLog()
	index, err := state.LoadIndex(path)
	if err != nil {
		if types.IsMalformed(err) {
			log.Error("cluster metadata log %s is corrupt: %v", path, err)
		}
		return nil, fmt.Errorf("loading cluster metadata: %w", err)
	}
	return index, nil
}

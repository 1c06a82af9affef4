package e2e

import (
	"bufio"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kmsg"

	"github.com/CefBoud/kafkalite/broker"
	"github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/storage"
	"github.com/CefBoud/kafkalite/test/fixtures"
	"github.com/CefBoud/kafkalite/types"
	"github.com/CefBoud/kafkalite/utils"
)

var (
	testBroker   *broker.Broker
	testSegment  []byte
	brokerAddr   string
	reqFormatter = kmsg.NewRequestFormatter(kmsg.FormatterClientID("e2e"))
)

func TestMain(m *testing.M) {
	logging.SetLogLevel(logging.DEBUG)
	logDir, err := os.MkdirTemp("", "kafkalite-e2e")
	if err != nil {
		log.Fatalf("creating log dir: %v", err)
	}

	config := types.DefaultConfiguration()
	config.LogDir = logDir
	config.BrokerHost = "127.0.0.1"
	config.BrokerPort = 0
	if err := utils.EnsureParentDir(config.ClusterMetadataLog()); err != nil {
		log.Fatalf("creating metadata log dir: %v", err)
	}
	if err := os.WriteFile(config.ClusterMetadataLog(), fixtures.ClusterMetadataLog, 0o644); err != nil {
		log.Fatalf("writing metadata log: %v", err)
	}
	rb := storage.NewRecordBatch(0, types.FeatureLevelRecord{Name: "e2e", FeatureLevel: 1})
	if err := storage.AppendRecordBatches(storage.GetSegmentFile(logDir, "saz", 0), rb); err != nil {
		log.Fatalf("writing partition segment: %v", err)
	}
	testSegment = storage.WriteRecordBatch(rb)

	testBroker = broker.NewBroker(config)
	if err := testBroker.Listen(); err != nil {
		log.Fatalf("starting broker: %v", err)
	}
	brokerAddr = testBroker.Addr().String()
	go testBroker.Serve()

	exitCode := m.Run()

	testBroker.Shutdown()
	os.RemoveAll(logDir)
	os.Exit(exitCode)
}

type client struct {
	conn net.Conn
	r    *bufio.Reader
}

func newClient(t *testing.T) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", brokerAddr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))
	return &client{conn: conn, r: bufio.NewReader(conn)}
}

// do sends req and parses the response body into resp
func (c *client) do(t *testing.T, req kmsg.Request, resp kmsg.Response, correlationID int32) {
	t.Helper()
	_, err := c.conn.Write(reqFormatter.AppendRequest(nil, req, correlationID))
	require.NoError(t, err)

	size := make([]byte, 4)
	_, err = io.ReadFull(c.r, size)
	require.NoError(t, err)
	frame := make([]byte, serde.Encoding.Uint32(size))
	_, err = io.ReadFull(c.r, frame)
	require.NoError(t, err)
	require.Equal(t, correlationID, int32(serde.Encoding.Uint32(frame)))

	body := frame[4:]
	resp.SetVersion(req.GetVersion())
	if resp.IsFlexible() && resp.Key() != int16(kmsg.ApiVersions) {
		require.Equal(t, byte(0), body[0])
		body = body[1:]
	}
	require.NoError(t, resp.ReadFrom(body))
}

func TestKafkaGoApiVersions(t *testing.T) {
	conn, err := kafka.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	versions, err := conn.ApiVersions()
	require.NoError(t, err)
	assert.Contains(t, versions, kafka.ApiVersion{ApiKey: 18, MinVersion: 0, MaxVersion: 4})
	assert.Contains(t, versions, kafka.ApiVersion{ApiKey: 1, MinVersion: 13, MaxVersion: 16})
	assert.Contains(t, versions, kafka.ApiVersion{ApiKey: 75, MinVersion: 0, MaxVersion: 0})
}

func TestApiVersionsOverTCP(t *testing.T) {
	c := newClient(t)
	for version := int16(0); version <= 4; version++ {
		req := kmsg.NewPtrApiVersionsRequest()
		req.Version = version
		req.ClientSoftwareName = "e2e"
		req.ClientSoftwareVersion = "1"
		resp := kmsg.NewPtrApiVersionsResponse()
		c.do(t, req, resp, int32(version))
		assert.Equal(t, int16(0), resp.ErrorCode)
		assert.Len(t, resp.ApiKeys, 3)
	}
}

func TestFetchOverTCP(t *testing.T) {
	c := newClient(t)

	req := kmsg.NewPtrFetchRequest()
	req.Version = 16
	topic := kmsg.NewFetchRequestTopic()
	topic.TopicID = [16]byte(fixtures.SazTopicID)
	partition := kmsg.NewFetchRequestTopicPartition()
	partition.Partition = 0
	topic.Partitions = append(topic.Partitions, partition)
	req.Topics = append(req.Topics, topic)

	resp := kmsg.NewPtrFetchResponse()
	c.do(t, req, resp, 100)

	require.Len(t, resp.Topics, 1)
	require.Len(t, resp.Topics[0].Partitions, 1)
	p := resp.Topics[0].Partitions[0]
	assert.Equal(t, int16(0), p.ErrorCode)
	assert.Equal(t, int64(1), p.HighWatermark)
	assert.Equal(t, testSegment, p.RecordBatches)
}

func TestConnectionServesManyRequests(t *testing.T) {
	c := newClient(t)
	for i := int32(0); i < 20; i++ {
		req := kmsg.NewPtrFetchRequest()
		req.Version = 13
		topic := kmsg.NewFetchRequestTopic()
		topic.TopicID = [16]byte(fixtures.SazTopicID)
		partition := kmsg.NewFetchRequestTopicPartition()
		partition.Partition = i % 3
		topic.Partitions = append(topic.Partitions, partition)
		req.Topics = append(req.Topics, topic)

		resp := kmsg.NewPtrFetchResponse()
		c.do(t, req, resp, i)
		require.Len(t, resp.Topics[0].Partitions, 1)
		expected := map[int32]int16{0: 0, 1: 0, 2: 3}[i%3]
		assert.Equal(t, expected, resp.Topics[0].Partitions[0].ErrorCode)
	}
}

func TestMetadataLogLocation(t *testing.T) {
	_, err := os.Stat(filepath.Join(testBroker.Config.LogDir, types.ClusterMetadataTopic+"-0", types.FirstSegmentFile+storage.LogSuffix))
	assert.NoError(t, err)
}

package broker

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-sockaddr/template"

	"github.com/CefBoud/kafkalite/logging"
	"github.com/CefBoud/kafkalite/protocol"
	"github.com/CefBoud/kafkalite/serde"
	"github.com/CefBoud/kafkalite/types"
)

// MaxRequestSize bounds the declared size of a request frame (socket.request.max.bytes)
const MaxRequestSize = 100 * 1024 * 1024

// ErrBrokerClosed is returned by Serve after Shutdown
var ErrBrokerClosed = errors.New("broker closed")

// RequestHandler answers one complete request frame
type RequestHandler interface {
	HandleRequest(frame []byte, connAddr string) ([]byte, error)
}

// Broker represents a Kafka broker instance: a TCP listener with one goroutine per connection
type Broker struct {
	Config  types.Configuration
	Handler RequestHandler

	logger   hclog.Logger
	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewBroker creates a new Broker instance with the provided configuration
func NewBroker(config types.Configuration) *Broker {
	return &Broker{
		Config:  config,
		Handler: protocol.NewBroker(config),
		logger:  logging.Named("broker"),
		conns:   make(map[net.Conn]struct{}),
	}
}

// resolveHost renders go-sockaddr templates such as {{ GetPrivateIP }}
func resolveHost(host string) (string, error) {
	if !strings.Contains(host, "{{") {
		return host, nil
	}
	resolved, err := template.Parse(host)
	if err != nil {
		return "", fmt.Errorf("resolving broker host %q: %w", host, err)
	}
	if resolved == "" {
		return "", fmt.Errorf("broker host %q resolved to no address", host)
	}
	return resolved, nil
}

// Listen binds the broker address. A zero port picks a free one.
func (b *Broker) Listen() error {
	host, err := resolveHost(b.Config.BrokerHost)
	if err != nil {
		return err
	}
	address := net.JoinHostPort(host, strconv.Itoa(int(b.Config.BrokerPort)))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("starting server on %s: %w", address, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		listener.Close()
		return ErrBrokerClosed
	}
	b.listener = listener
	b.logger.Info("listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the bound address, nil before Listen
func (b *Broker) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Startup listens on the configured address and serves until Shutdown
func (b *Broker) Startup() error {
	if err := b.Listen(); err != nil {
		return err
	}
	err := b.Serve()
	if errors.Is(err, ErrBrokerClosed) {
		return nil
	}
	return err
}

// Serve accepts connections until Shutdown is called
func (b *Broker) Serve() error {
	b.mu.Lock()
	listener := b.listener
	b.mu.Unlock()
	if listener == nil {
		return errors.New("broker is not listening")
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if b.isClosed() {
				return ErrBrokerClosed
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				b.logger.Warn("accept timed out", "error", err)
				continue
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		if !b.track(conn) {
			conn.Close()
			return ErrBrokerClosed
		}
		go func() {
			defer b.wg.Done()
			defer b.untrack(conn)
			b.HandleConnection(conn)
		}()
	}
}

func (b *Broker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broker) track(conn net.Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.conns[conn] = struct{}{}
	b.wg.Add(1)
	metrics.IncrCounter([]string{"broker", "connections"}, 1)
	metrics.SetGauge([]string{"broker", "open_connections"}, float32(len(b.conns)))
	return true
}

func (b *Broker) untrack(conn net.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, conn)
	metrics.SetGauge([]string{"broker", "open_connections"}, float32(len(b.conns)))
}

// HandleConnection processes incoming requests from a client connection
// until the peer closes it, an I/O error occurs or a frame is malformed.
func (b *Broker) HandleConnection(conn net.Conn) {
	defer conn.Close()
	connectionAddr := conn.RemoteAddr().String()
	logger := b.logger.With("remote", connectionAddr)
	logger.Debug("connection established")

	for {
		frame, err := readFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || b.isClosed() {
				logger.Debug("connection closed")
			} else {
				logger.Error("reading request", "error", err)
			}
			return
		}

		response, err := b.Handler.HandleRequest(frame, connectionAddr)
		if err != nil {
			logger.Warn("closing connection after malformed request", "error", err)
			return
		}
		if _, err := conn.Write(response); err != nil {
			logger.Error("writing response", "error", err)
			return
		}
	}
}

// readFrame reads one size-prefixed frame, size prefix included.
// ReadFull is used so that frames split across reads are reassembled.
func readFrame(r io.Reader) ([]byte, error) {
	lengthBuffer := make([]byte, serde.SizeInt32)
	if _, err := io.ReadFull(r, lengthBuffer); err != nil {
		return nil, err
	}
	length := serde.Encoding.Uint32(lengthBuffer)
	if length > MaxRequestSize {
		return nil, fmt.Errorf("%w: request of %d bytes exceeds %d", serde.ErrInvalidLength, length, MaxRequestSize)
	}
	frame := make([]byte, serde.SizeInt32+int(length))
	copy(frame, lengthBuffer)
	if _, err := io.ReadFull(r, frame[serde.SizeInt32:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return frame, nil
}

// Shutdown stops accepting connections, closes the open ones and waits for
// their goroutines to return
func (b *Broker) Shutdown() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.listener != nil {
		b.listener.Close()
	}
	for conn := range b.conns {
		conn.Close()
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("broker shut down")
}

// Package broker serves consumer-group committed offsets over the wire
// protocol: length-prefixed frames, a v1 request header, then the
// versioned request body.
package broker

import (
	"fmt"
	"io"
	"net"

	"github.com/hashicorp/go-hclog"

	"github.com/CefBoud/groupfetch/offsets"
	"github.com/CefBoud/groupfetch/serde"
	"github.com/CefBoud/groupfetch/types"
)

// Broker is a single-node group coordinator answering ApiVersions and
// OffsetFetch.
type Broker struct {
	Config         *types.Configuration
	Store          *offsets.Store
	ShutDownSignal chan bool

	logger   hclog.Logger
	listener net.Listener
}

// NewBroker creates a new Broker instance with the provided configuration
func NewBroker(config *types.Configuration, store *offsets.Store, logger hclog.Logger) *Broker {
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "groupfetch",
			Level: hclog.LevelFromString(config.LogLevel),
		})
	}
	return &Broker{
		Config:         config,
		Store:          store,
		ShutDownSignal: make(chan bool),
		logger:         logger.Named("broker"),
	}
}

// Listen opens the TCP listener. Addr is valid after Listen returns.
func (b *Broker) Listen() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", b.Config.BrokerHost, b.Config.BrokerPort))
	if err != nil {
		return fmt.Errorf("error starting server: %w", err)
	}
	b.listener = listener
	b.logger.Info("server is listening", "addr", listener.Addr().String())
	return nil
}

// Addr returns the listener address, nil before Listen.
func (b *Broker) Addr() net.Addr {
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Serve accepts and handles connections until Shutdown.
func (b *Broker) Serve() {
	if b.Config.EnableMetrics {
		StartMetricsServer(b.Config.MetricsPort, b.logger)
	}
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.ShutDownSignal:
				return
			default:
			}
			b.logger.Error("error accepting connection", "error", err)
			continue
		}
		go b.HandleConnection(conn)
	}
}

// Startup opens the listener and serves until Shutdown.
func (b *Broker) Startup() error {
	if err := b.Listen(); err != nil {
		return err
	}
	b.Serve()
	return nil
}

// HandleConnection processes incoming requests from a client connection.
// Requests the broker cannot answer at all (malformed header or body,
// unknown api key, version outside the advertised range) close the
// connection; failures after a request is decoded are answered with a
// synthesized error response instead.
func (b *Broker) HandleConnection(conn net.Conn) {
	defer conn.Close()
	connectionAddr := conn.RemoteAddr().String()
	b.logger.Debug("connection established", "addr", connectionAddr)

	for {
		// First, we read the length, then allocate a byte slice based on it.
		// ReadFull (not Read) is used to ensure the entire request is read.
		lengthBuffer := make([]byte, 4)
		if _, err := io.ReadFull(conn, lengthBuffer); err != nil {
			if err != io.EOF {
				b.logger.Debug("failed to read request length", "addr", connectionAddr, "error", err)
			}
			return
		}
		length := serde.Encoding.Uint32(lengthBuffer)
		buffer := make([]byte, length+4)
		copy(buffer, lengthBuffer)
		if _, err := io.ReadFull(conn, buffer[4:]); err != nil {
			b.logger.Error("error reading from connection", "addr", connectionAddr, "error", err)
			return
		}

		req, err := serde.ParseHeader(buffer, connectionAddr)
		if err != nil {
			connectionFailures.Inc()
			b.logger.Error("dropping connection", "addr", connectionAddr, "error", err)
			return
		}

		apiKeyHandler := b.APIDispatcher(req.RequestAPIKey)
		if apiKeyHandler.Handler == nil {
			connectionFailures.Inc()
			b.logger.Error("unsupported api key", "key", req.RequestAPIKey, "addr", connectionAddr)
			return
		}
		requestsTotal.WithLabelValues(apiKeyHandler.Name).Inc()
		b.logger.Debug("received request",
			"api", apiKeyHandler.Name,
			"version", req.RequestAPIVersion,
			"correlationID", req.CorrelationID,
			"length", length)

		response, err := apiKeyHandler.Handler(req)
		if err != nil {
			connectionFailures.Inc()
			b.logger.Error("dropping connection", "api", apiKeyHandler.Name, "addr", connectionAddr, "error", err)
			return
		}
		if _, err := conn.Write(response); err != nil {
			b.logger.Error("error writing to connection", "addr", connectionAddr, "error", err)
			return
		}
	}
}

// Shutdown stops accepting connections. The offsets store is owned and
// closed by the caller.
func (b *Broker) Shutdown() {
	b.logger.Info("broker shutdown...")
	close(b.ShutDownSignal)
	if b.listener != nil {
		b.listener.Close()
	}
}

// Package client is a minimal protocol client for the apis the broker
// serves. It is what the cli uses; it is also handy in tests.
package client

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/CefBoud/groupfetch/protocol"
	"github.com/CefBoud/groupfetch/serde"
)

// Client is a synchronous, single-connection protocol client. It is not
// safe for concurrent use.
type Client struct {
	conn          net.Conn
	clientID      string
	correlationID int32
	timeout       time.Duration
}

// Dial connects to a broker.
func Dial(addr string, clientID string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, clientID: clientID, timeout: 10 * time.Second}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// send frames the body with a v1 request header and the length prefix,
// writes it, and returns the response body after checking the
// correlation id.
func (c *Client) send(apiKey, apiVersion int16, body []byte) ([]byte, error) {
	c.correlationID++
	encoder := serde.NewEncoder()
	encoder.PutInt16(apiKey)
	encoder.PutInt16(apiVersion)
	encoder.PutInt32(c.correlationID)
	encoder.PutNullableString(c.clientID)
	encoder.PutBytes(body)
	encoder.PutLen()

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	if _, err := c.conn.Write(encoder.Bytes()); err != nil {
		return nil, fmt.Errorf("could not write request: %w", err)
	}

	lengthBuffer := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, lengthBuffer); err != nil {
		return nil, fmt.Errorf("could not read response length: %w", err)
	}
	response := make([]byte, serde.Encoding.Uint32(lengthBuffer))
	if _, err := io.ReadFull(c.conn, response); err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	decoder := serde.NewDecoder(response)
	correlationID := decoder.Int32()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("malformed response header: %w", err)
	}
	if correlationID != c.correlationID {
		return nil, fmt.Errorf("correlation id mismatch: sent %d, received %d", c.correlationID, correlationID)
	}
	return response[decoder.Offset:], nil
}

// APIVersions asks the broker which apis and version ranges it serves.
func (c *Client) APIVersions() (protocol.APIVersionsResponse, error) {
	body, err := c.send(protocol.APIVersionsKey, 0, nil)
	if err != nil {
		return protocol.APIVersionsResponse{}, err
	}
	return protocol.DecodeAPIVersionsResponse(body)
}

// FetchOffsets sends a built OffsetFetch request and decodes the
// response at the request's version.
func (c *Client) FetchOffsets(request protocol.OffsetFetchRequest) (protocol.OffsetFetchResponse, error) {
	body, err := c.send(protocol.OffsetFetchKey, request.Version(), protocol.EncodeOffsetFetchRequest(request))
	if err != nil {
		return protocol.OffsetFetchResponse{}, err
	}
	return protocol.DecodeOffsetFetchResponse(body, request.Version())
}

// NegotiateOffsetFetchVersion returns the highest OffsetFetch version
// both sides support.
func (c *Client) NegotiateOffsetFetchVersion() (int16, error) {
	response, err := c.APIVersions()
	if err != nil {
		return 0, err
	}
	for _, k := range response.APIKeys {
		if k.APIKey != protocol.OffsetFetchKey {
			continue
		}
		version := min(k.MaxVersion, protocol.OffsetFetchMaxVersion)
		if version < protocol.OffsetFetchMinVersion || version < k.MinVersion {
			break
		}
		return version, nil
	}
	return 0, fmt.Errorf("broker does not serve a usable OffsetFetch version")
}

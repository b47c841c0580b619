// Copyright 2020 DataStax
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/cql-codec/cqlwire/frame"
	"github.com/cql-codec/cqlwire/result"
	"github.com/cql-codec/cqlwire/wire"
)

// Option configures a Client at construction time.
type Option func(*Client)

// WithCredentials configures the CREDENTIALS response sent if the server
// replies to STARTUP with AUTHENTICATE.
func WithCredentials(credentials *AuthCredentials) Option {
	return func(c *Client) { c.credentials = credentials }
}

// WithCompressor enables body compression for every request frame other
// than STARTUP and OPTIONS (so CREDENTIALS, sent during the handshake, is
// compressed too), using alg as the STARTUP COMPRESSION option and
// compressor to actually compress/decompress frame bodies.
func WithCompressor(alg string, compressor frame.BodyCompressor) Option {
	return func(c *Client) {
		c.compressionAlg = alg
		c.compressor = compressor
	}
}

// WithProtocolVersion selects protocol v1 or v2. Defaults to v2.
func WithProtocolVersion(version int) Option {
	return func(c *Client) { c.protocolVersion = version }
}

// Client dials connections to a single CQL v1/v2 endpoint.
type Client struct {
	address         string
	credentials     *AuthCredentials
	compressionAlg  string
	compressor      frame.BodyCompressor
	protocolVersion int
}

// New creates a Client targeting address (host:port); it does not connect
// until Connect is called.
func New(address string, opts ...Option) *Client {
	c := &Client{address: address, protocolVersion: 2}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) String() string {
	return fmt.Sprintf("client(%s)", c.address)
}

// Conn is an established, handshaken connection to a CQL endpoint. It is
// not safe for concurrent use: like the teacher's synchronous client, one
// goroutine owns a Conn and drives request/response pairs serially.
type Conn struct {
	client   *Client
	conn     net.Conn
	streamID int32
}

// Connect dials address and performs the STARTUP/READY (or
// STARTUP/AUTHENTICATE/CREDENTIALS/READY) handshake.
func (c *Client) Connect(ctx context.Context) (*Conn, error) {
	log.Debug().Msgf("%v: connecting", c)
	dialer := net.Dialer{}
	netConn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", c.address, err)
	}
	conn := &Conn{client: c, conn: netConn}
	if err := conn.handshake(); err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("cannot complete handshake with %s: %w", c.address, err)
	}
	log.Info().Msgf("%v: connection established", conn)
	return conn, nil
}

func (c *Conn) String() string {
	return fmt.Sprintf("conn(%s -> %s)", c.conn.LocalAddr(), c.conn.RemoteAddr())
}

// Close releases the underlying network connection.
func (c *Conn) Close() error {
	log.Debug().Msgf("%v: closing", c)
	return c.conn.Close()
}

func (c *Conn) nextStreamID() int8 {
	return int8(atomic.AddInt32(&c.streamID, 1) % 128)
}

func (c *Conn) requestVersion() frame.Version {
	if c.client.protocolVersion == 1 {
		return frame.RequestV1
	}
	return frame.RequestV2
}

// SendMessage writes one request frame and blocks for its response. It
// matches the teacher's synchronous round-trip style: one request on the
// wire at a time per Conn.
func (c *Conn) SendMessage(opCode frame.OpCode, body *frame.Frame) (frame.Header, *frame.Frame, error) {
	streamID := c.nextStreamID()
	var flags frame.Flags
	if c.client.compressor != nil && opCode != frame.OpCodeStartup && opCode != frame.OpCodeOptions {
		compressed := frame.New()
		if err := c.client.compressor.Compress(body, compressed); err != nil {
			return frame.Header{}, nil, fmt.Errorf("cannot compress request body: %w", err)
		}
		body = compressed
		flags = flags.Add(frame.FlagCompressed)
	}
	encoded := frame.Build(c.requestVersion(), flags, streamID, opCode, body)
	log.Debug().Msgf("%v: sending %v frame, stream id %d", c, opCode, streamID)
	if _, err := c.conn.Write(encoded); err != nil {
		return frame.Header{}, nil, fmt.Errorf("cannot write %v frame: %w", opCode, err)
	}
	header, responseBody, err := frame.Recv(c.conn)
	if err != nil {
		return frame.Header{}, nil, fmt.Errorf("cannot read response to %v: %w", opCode, err)
	}
	log.Debug().Msgf("%v: received %v frame, stream id %d", c, header.OpCode, header.StreamID)
	if header.Flags.Has(frame.FlagCompressed) {
		if c.client.compressor == nil {
			return frame.Header{}, nil, fmt.Errorf("response is compressed but no compressor is configured: %w", wire.ErrProtocol)
		}
		decompressed := frame.New()
		if err := c.client.compressor.Decompress(responseBody, decompressed); err != nil {
			return frame.Header{}, nil, fmt.Errorf("cannot decompress response body: %w", err)
		}
		responseBody = decompressed
	}
	if header.OpCode == frame.OpCodeError {
		remoteErr, decodeErr := readRemoteError(responseBody)
		if decodeErr != nil {
			return header, nil, fmt.Errorf("server returned an error frame, and it could not be decoded: %w", decodeErr)
		}
		return header, nil, remoteErr
	}
	return header, responseBody, nil
}

// RemoteError wraps an ERROR message returned by the server.
type RemoteError struct {
	Code    int32
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error 0x%04x: %s", e.Code, e.Message)
}

// Unwrap exposes wire.ErrRemote so callers can errors.Is(err, wire.ErrRemote)
// against a returned *RemoteError.
func (e *RemoteError) Unwrap() error { return wire.ErrRemote }

func readRemoteError(body *frame.Frame) (*RemoteError, error) {
	code, err := body.UnpackInt()
	if err != nil {
		return nil, fmt.Errorf("cannot read error code: %w", err)
	}
	message, err := body.UnpackString()
	if err != nil {
		return nil, fmt.Errorf("cannot read error message: %w", err)
	}
	return &RemoteError{Code: code, Message: message}, nil
}

func (c *Conn) handshake() error {
	startupBody := frame.New()
	options := map[string]string{"CQL_VERSION": "3.0.5"}
	if c.client.compressionAlg != "" {
		options["COMPRESSION"] = c.client.compressionAlg
	}
	if err := startupBody.PackStringMap(options); err != nil {
		return fmt.Errorf("cannot build STARTUP body: %w", err)
	}
	header, body, err := c.SendMessage(frame.OpCodeStartup, startupBody)
	if err != nil {
		return fmt.Errorf("STARTUP failed: %w", err)
	}
	switch header.OpCode {
	case frame.OpCodeReady:
		return nil
	case frame.OpCodeAuthenticate:
		return c.authenticate(body)
	default:
		return fmt.Errorf("unexpected response to STARTUP: %v: %w", header.OpCode, wire.ErrProtocol)
	}
}

func (c *Conn) authenticate(authenticateBody *frame.Frame) error {
	authenticatorClass, err := authenticateBody.UnpackString()
	if err != nil {
		return fmt.Errorf("cannot read AUTHENTICATE authenticator class: %w", err)
	}
	if c.client.credentials == nil {
		return fmt.Errorf("server requires authentication (%s) but no credentials were configured", authenticatorClass)
	}
	credentialsBody := frame.New()
	if err := credentialsBody.PackStringMap(c.client.credentials.AsStringMap()); err != nil {
		return fmt.Errorf("cannot build CREDENTIALS body: %w", err)
	}
	header, _, err := c.SendMessage(frame.OpCodeCredentials, credentialsBody)
	if err != nil {
		return fmt.Errorf("CREDENTIALS failed: %w", err)
	}
	if header.OpCode != frame.OpCodeReady {
		return fmt.Errorf("unexpected response to CREDENTIALS: %v: %w", header.OpCode, wire.ErrProtocol)
	}
	return nil
}

// Consistency is a CQL consistency level, sent as a [short] in QUERY
// messages.
type Consistency uint16

const (
	ConsistencyAny         Consistency = 0x0000
	ConsistencyOne         Consistency = 0x0001
	ConsistencyTwo         Consistency = 0x0002
	ConsistencyThree       Consistency = 0x0003
	ConsistencyQuorum      Consistency = 0x0004
	ConsistencyAll         Consistency = 0x0005
	ConsistencyLocalQuorum Consistency = 0x0006
	ConsistencyEachQuorum  Consistency = 0x0007
)

// QueryOutcome tags what kind of RESULT a QUERY produced.
type QueryOutcome int

const (
	OutcomeVoid QueryOutcome = iota
	OutcomeRows
	OutcomeSetKeyspace
	OutcomeSchemaChange
)

// QueryResult is the decoded, tagged RESULT of a QUERY message.
type QueryResult struct {
	Outcome      QueryOutcome
	Rows         *result.Result
	Keyspace     string
	ChangeType   string
	ChangeTarget string
	ChangeKeyspace string
	ChangeName     string
}

// resultKind values from the RESULT message body, v1/v2 subset.
const (
	resultKindVoid         int32 = 0x0001
	resultKindRows         int32 = 0x0002
	resultKindSetKeyspace  int32 = 0x0003
	resultKindPrepared     int32 = 0x0004
	resultKindSchemaChange int32 = 0x0005
)

// Query sends a QUERY message with cql as the statement and consistency as
// the requested consistency level, and decodes the RESULT that comes back.
func (c *Conn) Query(cql string, consistency Consistency) (*QueryResult, error) {
	body := frame.New()
	if err := body.PackLongString(cql); err != nil {
		return nil, fmt.Errorf("cannot write QUERY statement: %w", err)
	}
	if err := body.PackShort(uint16(consistency)); err != nil {
		return nil, fmt.Errorf("cannot write QUERY consistency: %w", err)
	}
	header, responseBody, err := c.SendMessage(frame.OpCodeQuery, body)
	if err != nil {
		return nil, err
	}
	if header.OpCode != frame.OpCodeResult {
		return nil, fmt.Errorf("unexpected response to QUERY: %v: %w", header.OpCode, wire.ErrProtocol)
	}
	return decodeResult(responseBody)
}

func decodeResult(body *frame.Frame) (*QueryResult, error) {
	kind, err := body.UnpackInt()
	if err != nil {
		return nil, fmt.Errorf("cannot read RESULT kind: %w", err)
	}
	switch kind {
	case resultKindVoid:
		return &QueryResult{Outcome: OutcomeVoid}, nil
	case resultKindRows:
		decoded, err := result.Read(body)
		if err != nil {
			return nil, fmt.Errorf("cannot read RESULT Rows: %w", err)
		}
		return &QueryResult{Outcome: OutcomeRows, Rows: decoded}, nil
	case resultKindSetKeyspace:
		keyspace, err := wire.ReadString(body)
		if err != nil {
			return nil, fmt.Errorf("cannot read RESULT SetKeyspace name: %w", err)
		}
		return &QueryResult{Outcome: OutcomeSetKeyspace, Keyspace: keyspace}, nil
	case resultKindSchemaChange:
		changeType, err := wire.ReadString(body)
		if err != nil {
			return nil, fmt.Errorf("cannot read RESULT SchemaChange type: %w", err)
		}
		target, err := wire.ReadString(body)
		if err != nil {
			return nil, fmt.Errorf("cannot read RESULT SchemaChange target: %w", err)
		}
		keyspace, err := wire.ReadString(body)
		if err != nil {
			return nil, fmt.Errorf("cannot read RESULT SchemaChange keyspace: %w", err)
		}
		qr := &QueryResult{Outcome: OutcomeSchemaChange, ChangeType: changeType, ChangeTarget: target, ChangeKeyspace: keyspace}
		if target == "TABLE" {
			name, err := wire.ReadString(body)
			if err != nil {
				return nil, fmt.Errorf("cannot read RESULT SchemaChange table name: %w", err)
			}
			qr.ChangeName = name
		}
		return qr, nil
	case resultKindPrepared:
		return nil, fmt.Errorf("RESULT Prepared is not supported by Query: %w", wire.ErrProtocol)
	default:
		return nil, fmt.Errorf("unknown RESULT kind 0x%08x: %w", kind, wire.ErrProtocol)
	}
}

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
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cql-codec/cqlwire/frame"
)

// startFakeServer accepts one connection and replies to every incoming
// frame using respond, then closes. It returns the listener address.
func startFakeServer(t *testing.T, respond func(header frame.Header, body *frame.Frame) []byte) string {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			header, body, err := frame.Recv(conn)
			if err != nil {
				return
			}
			response := respond(header, body)
			if response == nil {
				return
			}
			if _, err := conn.Write(response); err != nil {
				return
			}
		}
	}()
	return listener.Addr().String()
}

func TestHandshakeReady(t *testing.T) {
	addr := startFakeServer(t, func(header frame.Header, body *frame.Frame) []byte {
		assert.Equal(t, frame.OpCodeStartup, header.OpCode)
		return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeReady, frame.New())
	})

	c := New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := c.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()
}

func TestHandshakeAuthenticateThenReady(t *testing.T) {
	step := 0
	addr := startFakeServer(t, func(header frame.Header, body *frame.Frame) []byte {
		step++
		if step == 1 {
			assert.Equal(t, frame.OpCodeStartup, header.OpCode)
			authBody := frame.New()
			_ = authBody.PackString("org.apache.cassandra.auth.PasswordAuthenticator")
			return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeAuthenticate, authBody)
		}
		assert.Equal(t, frame.OpCodeCredentials, header.OpCode)
		creds, err := body.UnpackStringMap()
		assert.NoError(t, err)
		assert.Equal(t, "alice", creds["username"])
		return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeReady, frame.New())
	})

	c := New(addr, WithCredentials(&AuthCredentials{Username: "alice", Password: "secret"}))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := c.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()
}

func TestHandshakeAuthenticateWithoutCredentialsFails(t *testing.T) {
	addr := startFakeServer(t, func(header frame.Header, body *frame.Frame) []byte {
		authBody := frame.New()
		_ = authBody.PackString("org.apache.cassandra.auth.PasswordAuthenticator")
		return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeAuthenticate, authBody)
	})

	c := New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Connect(ctx)
	assert.Error(t, err)
}

func TestQueryVoidResult(t *testing.T) {
	addr := startFakeServer(t, func(header frame.Header, body *frame.Frame) []byte {
		if header.OpCode == frame.OpCodeStartup {
			return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeReady, frame.New())
		}
		assert.Equal(t, frame.OpCodeQuery, header.OpCode)
		resultBody := frame.New()
		_ = resultBody.PackInt(0x0001) // void
		return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeResult, resultBody)
	})

	c := New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := c.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	result, err := conn.Query("CREATE TABLE t (id int PRIMARY KEY)", ConsistencyOne)
	require.NoError(t, err)
	assert.Equal(t, OutcomeVoid, result.Outcome)
}

func TestQueryRemoteErrorResult(t *testing.T) {
	addr := startFakeServer(t, func(header frame.Header, body *frame.Frame) []byte {
		if header.OpCode == frame.OpCodeStartup {
			return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeReady, frame.New())
		}
		errorBody := frame.New()
		_ = errorBody.PackInt(0x2200)
		_ = errorBody.PackString("syntax error")
		return frame.Build(frame.ResponseV2, 0, header.StreamID, frame.OpCodeError, errorBody)
	})

	c := New(addr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := c.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Query("SELECT FROM", ConsistencyOne)
	require.Error(t, err)
	var remoteErr *RemoteError
	assert.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, int32(0x2200), remoteErr.Code)
}

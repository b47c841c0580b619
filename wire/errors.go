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

// Package wire implements the byte-level read/write primitives of the CQL
// native protocol (protocol spec section 3): fixed-width integers,
// length-prefixed strings and byte strings, collections of strings, and
// the inet address shape. Every read fails with ErrShortBuffer when fewer
// bytes remain than the primitive requires.
package wire

import "errors"

// ErrShortBuffer is returned when a read requests more bytes than remain in
// the source.
var ErrShortBuffer = errors.New("short buffer")

// ErrMalformed is returned for structurally corrupt input: invalid UTF-8,
// an inet address length that is neither 4 nor 16, or similar.
var ErrMalformed = errors.New("malformed input")

// ErrArityMismatch is returned when the number of values supplied for
// encoding against a metadata's columns does not match the column count.
var ErrArityMismatch = errors.New("arity mismatch")

// ErrEncode is returned when a value fails its column's type validation
// during encoding.
var ErrEncode = errors.New("encode error")

// ErrRowValidation is returned when a row supplied to result.New fails
// per-column validation before insertion.
var ErrRowValidation = errors.New("row validation error")

// ErrNoSuchRow is returned by a row accessor given an out-of-range row
// index.
var ErrNoSuchRow = errors.New("no such row")

// ErrNoSuchColumn is returned by a column accessor given an out-of-range
// column index or a name that does not resolve to any installed column
// lookup key.
var ErrNoSuchColumn = errors.New("no such column")

// ErrProtocol is returned by the client collaborator for an unexpected
// opcode, response shape, or other protocol-level violation by the server.
var ErrProtocol = errors.New("protocol error")

// ErrRemote is returned by the client collaborator when the server answers
// with an ERROR message; RemoteError.Unwrap exposes it for errors.Is.
var ErrRemote = errors.New("remote error")

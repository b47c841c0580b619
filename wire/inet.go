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

package wire

import (
	"fmt"
	"io"
	"net"
)

// [inetaddr] is modeled by net.IP; length must be exactly 4 or 16 bytes.

func ReadInetAddr(source io.Reader) (net.IP, error) {
	length, err := ReadByte(source)
	if err != nil {
		return nil, fmt.Errorf("cannot read [inetaddr] length: %w", err)
	}
	switch length {
	case net.IPv4len:
		decoded := make([]byte, net.IPv4len)
		if _, err := io.ReadFull(source, decoded); err != nil {
			return nil, fmt.Errorf("cannot read [inetaddr] IPv4 content: %w", shortBuffer(err))
		}
		return net.IPv4(decoded[0], decoded[1], decoded[2], decoded[3]), nil
	case net.IPv6len:
		decoded := make([]byte, net.IPv6len)
		if _, err := io.ReadFull(source, decoded); err != nil {
			return nil, fmt.Errorf("cannot read [inetaddr] IPv6 content: %w", shortBuffer(err))
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("[inetaddr] length must be 4 or 16, got %d: %w", length, ErrMalformed)
	}
}

func WriteInetAddr(addr net.IP, dest io.Writer) error {
	if addr == nil {
		return fmt.Errorf("cannot write nil [inetaddr]")
	}
	if v4 := addr.To4(); v4 != nil {
		if err := WriteByte(net.IPv4len, dest); err != nil {
			return fmt.Errorf("cannot write [inetaddr] length: %w", err)
		}
		if _, err := dest.Write(v4); err != nil {
			return fmt.Errorf("cannot write [inetaddr] IPv4 content: %w", err)
		}
		return nil
	}
	v6 := addr.To16()
	if v6 == nil {
		return fmt.Errorf("invalid [inetaddr] address %v: %w", addr, ErrMalformed)
	}
	if err := WriteByte(net.IPv6len, dest); err != nil {
		return fmt.Errorf("cannot write [inetaddr] length: %w", err)
	}
	if _, err := dest.Write(v6); err != nil {
		return fmt.Errorf("cannot write [inetaddr] IPv6 content: %w", err)
	}
	return nil
}

func LengthOfInetAddr(addr net.IP) int {
	if addr.To4() != nil {
		return LengthOfByte + net.IPv4len
	}
	return LengthOfByte + net.IPv6len
}

// [inet] is an inetaddr plus a port number.

type Inet struct {
	Addr net.IP
	Port int32
}

func (i Inet) String() string {
	return fmt.Sprintf("%v:%v", i.Addr, i.Port)
}

func ReadInet(source io.Reader) (Inet, error) {
	addr, err := ReadInetAddr(source)
	if err != nil {
		return Inet{}, fmt.Errorf("cannot read [inet] address: %w", err)
	}
	port, err := ReadInt(source)
	if err != nil {
		return Inet{}, fmt.Errorf("cannot read [inet] port: %w", err)
	}
	return Inet{Addr: addr, Port: port}, nil
}

func WriteInet(i Inet, dest io.Writer) error {
	if err := WriteInetAddr(i.Addr, dest); err != nil {
		return fmt.Errorf("cannot write [inet] address: %w", err)
	}
	if err := WriteInt(i.Port, dest); err != nil {
		return fmt.Errorf("cannot write [inet] port: %w", err)
	}
	return nil
}

func LengthOfInet(i Inet) int {
	return LengthOfInetAddr(i.Addr) + LengthOfInt
}

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

import "fmt"

// AuthCredentials is a username/password pair sent to the server in
// response to an AUTHENTICATE message, as a CREDENTIALS [string map].
type AuthCredentials struct {
	Username string
	Password string
}

func (c *AuthCredentials) String() string {
	return fmt.Sprintf("AuthCredentials{username: %v}", c.Username)
}

// AsStringMap renders the credentials the way the CREDENTIALS message body
// expects them.
func (c *AuthCredentials) AsStringMap() map[string]string {
	return map[string]string{
		"username": c.Username,
		"password": c.Password,
	}
}

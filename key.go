// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type componentKind int

const (
	kindLiteral componentKind = iota
	kindEmptyObject
	kindEmptyArray
)

// Component is a single element of a ComplexKey.
type Component struct {
	kind  componentKind
	value interface{}
}

// Literal returns a component which is encoded with the standard JSON rules
// for v.
func Literal(v interface{}) Component {
	return Component{kind: kindLiteral, value: v}
}

// EmptyObject returns a component which encodes as {}. It sorts after all
// other JSON values in a view collation, so is typically used as the last
// component of an end key: ["foo",{}].
func EmptyObject() Component {
	return Component{kind: kindEmptyObject}
}

// EmptyArray returns a component which encodes as []: [[],"foo"].
func EmptyArray() Component {
	return Component{kind: kindEmptyArray}
}

// MarshalJSON satisfies the json.Marshaler interface.
func (c Component) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case kindEmptyObject:
		return []byte("{}"), nil
	case kindEmptyArray:
		return []byte("[]"), nil
	}
	return json.Marshal(c.value)
}

// ComplexKey is an ordered, JSON array valued key for view queries. The
// components can be any JSON-encodable values, but are most likely strings
// and numbers.
type ComplexKey struct {
	components []Component
}

var _ json.Marshaler = &ComplexKey{}

// Key returns a new ComplexKey. Arguments of type Component are used as-is;
// all others are wrapped with Literal.
func Key(components ...interface{}) *ComplexKey {
	k := &ComplexKey{
		components: make([]Component, len(components)),
	}
	for i, c := range components {
		if component, ok := c.(Component); ok {
			k.components[i] = component
			continue
		}
		k.components[i] = Literal(c)
	}
	return k
}

// Len returns the number of components in the key.
func (k *ComplexKey) Len() int {
	if k == nil {
		return 0
	}
	return len(k.components)
}

// MarshalJSON encodes the key as a JSON array. An error is returned if any
// component cannot be encoded. A nil key encodes as null.
func (k *ComplexKey) MarshalJSON() ([]byte, error) {
	if k == nil {
		return []byte("null"), nil
	}
	buf := &bytes.Buffer{}
	buf.WriteByte('[')
	for i, c := range k.components {
		if i > 0 {
			buf.WriteByte(',')
		}
		raw, err := c.MarshalJSON()
		if err != nil {
			return nil, &KeyError{Index: i, Err: err}
		}
		buf.Write(raw)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// String returns the JSON encoding of the key, or an empty string if it
// cannot be encoded.
func (k *ComplexKey) String() string {
	raw, err := k.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(raw)
}

// KeyError is returned when a ComplexKey component cannot be encoded.
type KeyError struct {
	Index int
	Err   error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %d: %s", ErrUnsupportedKey, e.Index, e.Err)
}

// Is allows matching with errors.Is(err, ErrUnsupportedKey).
func (e *KeyError) Is(target error) bool {
	return target == ErrUnsupportedKey
}

// Unwrap returns the JSON encoding error.
func (e *KeyError) Unwrap() error {
	return e.Err
}

// StatusCode returns http.StatusBadRequest.
func (e *KeyError) StatusCode() int {
	return http.StatusBadRequest
}

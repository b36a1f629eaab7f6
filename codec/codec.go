// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package codec provides the versioned marshal/unmarshal used for every
// record this module persists (limbo entries, RPC frame payloads).
package codec

import (
	"encoding/json"
	"fmt"
)

// CodecVersion identifies the wire/storage format a payload was encoded
// with.
type CodecVersion uint16

const (
	// CurrentVersion is the only version this module currently emits.
	CurrentVersion CodecVersion = 0
)

// Codec is the shared JSON codec instance every package in this module
// marshals records through.
var Codec = &JSONCodec{}

// JSONCodec implements Marshal/Unmarshal over encoding/json. Marshal rejects
// any version other than CurrentVersion; the encoded bytes carry no version
// prefix, so a payload's version cannot be read back from it.
type JSONCodec struct{}

// Marshal encodes v under version.
func (c *JSONCodec) Marshal(version CodecVersion, v interface{}) ([]byte, error) {
	if version != CurrentVersion {
		return nil, fmt.Errorf("codec: unsupported version %d", version)
	}
	return json.Marshal(v)
}

// Unmarshal decodes data into v and always returns CurrentVersion, since
// the data carries no version of its own (the return keeps the call site
// stable once a second version exists).
func (c *JSONCodec) Unmarshal(data []byte, v interface{}) (CodecVersion, error) {
	if err := json.Unmarshal(data, v); err != nil {
		return 0, err
	}
	return CurrentVersion, nil
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hash provides the content-addressed, kind-tagged hash type shared
// by every object in the DHT data model (headers, entries, DhtOps, agent
// keys, DNA definitions).
package hash

import (
	"encoding/json"
	"fmt"

	"github.com/luxfi/crypto/hashing"
	"github.com/luxfi/ids"
)

// Kind discriminates what a Hash addresses. Two objects of different Kind
// that happen to serialize to the same bytes must not compare equal, so the
// discriminator is folded into the hash input rather than left as metadata.
type Kind byte

const (
	KindEntry Kind = iota
	KindHeader
	KindDhtOp
	KindAgentKey
	KindDnaDef
)

func (k Kind) String() string {
	switch k {
	case KindEntry:
		return "Entry"
	case KindHeader:
		return "Header"
	case KindDhtOp:
		return "DhtOp"
	case KindAgentKey:
		return "AgentKey"
	case KindDnaDef:
		return "DnaDef"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// ParseKind is the inverse of Kind.String, used by Hash's JSON decoder.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "Entry":
		return KindEntry, nil
	case "Header":
		return KindHeader, nil
	case "DhtOp":
		return KindDhtOp, nil
	case "AgentKey":
		return KindAgentKey, nil
	case "DnaDef":
		return KindDnaDef, nil
	default:
		return 0, fmt.Errorf("hash: unknown kind %q", s)
	}
}

// Hash is an opaque, fixed-width, kind-tagged content hash. Equality and
// ordering are byte-wise over (Kind, ID).
type Hash struct {
	Kind Kind
	ID   ids.ID
}

// Empty is the zero Hash; it never addresses a real object.
var Empty = Hash{}

// Of computes the Hash of kind k over data. The kind byte is folded into the
// digest input so hashes of distinct kinds never collide even on identical
// payloads.
func Of(k Kind, data []byte) Hash {
	tagged := make([]byte, 0, len(data)+1)
	tagged = append(tagged, byte(k))
	tagged = append(tagged, data...)
	arr := hashing.ComputeHash256Array(tagged)
	id, _ := ids.ToID(arr[:])
	return Hash{Kind: k, ID: id}
}

// IsEmpty reports whether h is the zero Hash.
func (h Hash) IsEmpty() bool {
	return h == Empty
}

// Bytes returns the 32-byte digest without the kind tag.
func (h Hash) Bytes() []byte {
	idCopy := h.ID
	return idCopy[:]
}

// Compare orders hashes first by Kind, then by ID, for use as store keys and
// in deterministic set iteration.
func (h Hash) Compare(o Hash) int {
	if h.Kind != o.Kind {
		if h.Kind < o.Kind {
			return -1
		}
		return 1
	}
	return h.ID.Compare(o.ID)
}

func (h Hash) String() string {
	return fmt.Sprintf("%s:%s", h.Kind, h.ID)
}

// MarshalJSON implements json.Marshaler.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind string `json:"kind"`
		ID   ids.ID `json:"id"`
	}{Kind: h.Kind.String(), ID: h.ID})
}

// UnmarshalJSON implements json.Unmarshaler, the inverse of MarshalJSON.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var aux struct {
		Kind string `json:"kind"`
		ID   ids.ID `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	k, err := ParseKind(aux.Kind)
	if err != nil {
		return err
	}
	h.Kind = k
	h.ID = aux.ID
	return nil
}

// Set is a simple ordered collection of distinct hashes, used for the
// dependency sets carried by AwaitingSysDeps/AwaitingAppDeps limbo statuses.
type Set map[Hash]struct{}

// NewSet builds a Set from the given hashes.
func NewSet(hs ...Hash) Set {
	s := make(Set, len(hs))
	for _, h := range hs {
		s[h] = struct{}{}
	}
	return s
}

// Add inserts h into the set.
func (s Set) Add(h Hash) { s[h] = struct{}{} }

// Remove deletes h from the set.
func (s Set) Remove(h Hash) { delete(s, h) }

// Contains reports whether h is a member of the set.
func (s Set) Contains(h Hash) bool {
	_, ok := s[h]
	return ok
}

// IsEmpty reports whether the set has no members.
func (s Set) IsEmpty() bool { return len(s) == 0 }

// List returns the set's members in Compare order.
func (s Set) List() []Hash {
	out := make([]Hash, 0, len(s))
	for h := range s {
		out = append(out, h)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Compare(out[j-1]) < 0; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

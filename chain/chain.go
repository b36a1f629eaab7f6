// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain defines the source-chain data model: the signed Header
// records an agent appends locally, the Entry payloads they may carry, and
// the Element pairing used throughout the validation pipeline.
package chain

import (
	"crypto/ed25519"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/hash"
)

// HeaderKind enumerates the seven header variants a source chain may carry.
type HeaderKind byte

const (
	HeaderDna HeaderKind = iota
	HeaderAgentValidationPkg
	HeaderCreate
	HeaderUpdate
	HeaderDelete
	HeaderCreateLink
	HeaderDeleteLink
)

func (k HeaderKind) String() string {
	switch k {
	case HeaderDna:
		return "Dna"
	case HeaderAgentValidationPkg:
		return "AgentValidationPkg"
	case HeaderCreate:
		return "Create"
	case HeaderUpdate:
		return "Update"
	case HeaderDelete:
		return "Delete"
	case HeaderCreateLink:
		return "CreateLink"
	case HeaderDeleteLink:
		return "DeleteLink"
	default:
		return "Unknown"
	}
}

// CarriesEntry reports whether headers of this kind reference an Entry.
func (k HeaderKind) CarriesEntry() bool {
	switch k {
	case HeaderCreate, HeaderUpdate, HeaderDelete:
		return true
	default:
		return false
	}
}

// Header is a signed record on one agent's source chain. Every non-root
// header carries a link (via Prev) to its predecessor; root (Dna) headers
// have no predecessor and must sit at Seq 0.
type Header struct {
	Kind HeaderKind

	Author    ids.NodeID
	Timestamp time.Time
	Seq       uint32
	Prev      hash.Hash // zero for HeaderDna

	// EntryHash/EntryType are only meaningful when Kind.CarriesEntry().
	EntryHash hash.Hash
	EntryType string

	// OriginalEntryHash/OriginalHeaderHash identify the element an Update or
	// Delete header acts on. Only meaningful for HeaderUpdate/HeaderDelete.
	OriginalEntryHash  hash.Hash
	OriginalHeaderHash hash.Hash

	// Link-specific fields, only meaningful for CreateLink/DeleteLink.
	BaseHash   hash.Hash
	TargetHash hash.Hash
	Tag        []byte
	LinkType   string

	// CreateLinkHash is only meaningful for DeleteLink: the hash of the
	// CreateLink header being removed.
	CreateLinkHash hash.Hash

	// Signature is the author's Ed25519 signature over CanonicalBytes().
	Signature []byte
}

// CanonicalBytes returns the deterministic encoding of h that is signed and
// hashed. It intentionally excludes Signature itself.
func (h Header) CanonicalBytes() []byte {
	var buf []byte
	putByte := func(b byte) { buf = append(buf, b) }
	putBytes := func(b []byte) {
		buf = append(buf, byte(len(b)>>24), byte(len(b)>>16), byte(len(b)>>8), byte(len(b)))
		buf = append(buf, b...)
	}
	putU64 := func(v uint64) {
		for i := 7; i >= 0; i-- {
			buf = append(buf, byte(v>>(8*i)))
		}
	}

	putByte(byte(h.Kind))
	author := h.Author
	putBytes(author[:])
	putU64(uint64(h.Timestamp.UnixNano()))
	putU64(uint64(h.Seq))
	putBytes(h.Prev.Bytes())
	if h.Kind.CarriesEntry() {
		putBytes(h.EntryHash.Bytes())
		putBytes([]byte(h.EntryType))
	}
	if h.Kind == HeaderUpdate {
		putBytes(h.OriginalEntryHash.Bytes())
		putBytes(h.OriginalHeaderHash.Bytes())
	}
	if h.Kind == HeaderDelete {
		putBytes(h.OriginalHeaderHash.Bytes())
		putBytes(h.OriginalEntryHash.Bytes())
	}
	if h.Kind == HeaderCreateLink {
		putBytes(h.BaseHash.Bytes())
		putBytes(h.TargetHash.Bytes())
		putBytes(h.Tag)
		putBytes([]byte(h.LinkType))
	}
	if h.Kind == HeaderDeleteLink {
		putBytes(h.CreateLinkHash.Bytes())
	}
	return buf
}

// Hash returns the content hash of h (over its canonical bytes, excluding
// the signature).
func (h Header) Hash() hash.Hash {
	return hash.Of(hash.KindHeader, h.CanonicalBytes())
}

// VerifySignature reports whether Signature is a valid Ed25519 signature by
// Author over h's canonical bytes.
//
// Ed25519 verification uses the standard library directly: luxfi/crypto's
// own surface (hashing, bls, mldsa, ringtail, threshold) is built around
// post-quantum and BLS primitives for finality certificates, and exposes no
// ed25519 wrapper a header-signature check could ground itself on. The
// stdlib call is the unambiguous, single-purpose tool for this primitive.
func (h Header) VerifySignature(pub ed25519.PublicKey) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, h.CanonicalBytes(), h.Signature)
}

// AuthorPublicKey reinterprets Author's raw bytes as its Ed25519 public key.
// This module defines an agent's ids.NodeID to be exactly its 32-byte
// Ed25519 public key (there is no separate AgentKey-entry indirection to
// resolve before the cryptographic gate can run); a NodeID of any other
// length is not a well-formed agent key.
func (h Header) AuthorPublicKey() (ed25519.PublicKey, bool) {
	b := h.Author[:]
	if len(b) != ed25519.PublicKeySize {
		return nil, false
	}
	return ed25519.PublicKey(b), true
}

// Visibility controls whether an Entry is gossiped.
type Visibility byte

const (
	Public Visibility = iota
	Private
)

// EntryKind distinguishes opaque application payloads from system entries.
type EntryKind byte

const (
	EntryApp EntryKind = iota
	EntryAgentKey
	EntryCapGrant
	EntryCapClaim
)

// Entry is the opaque (or system) payload a Create/Update header may point
// at. Private entries are never gossiped — only their headers are.
type Entry struct {
	Visibility Visibility
	Kind       EntryKind
	EntryType  string
	Payload    []byte
}

// Hash returns the content hash of the entry payload.
func (e Entry) Hash() hash.Hash {
	return hash.Of(hash.KindEntry, e.Payload)
}

// Element is the (Header, optional Entry) pair one source-chain position
// represents. Entry is nil for entry-less headers (e.g. CreateLink) and for
// headers whose entry this agent has not locally resolved.
type Element struct {
	Header Header
	Entry  *Entry
}

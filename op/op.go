// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package op implements the DhtOp model: the nine propagation units a
// source-chain Element decomposes into, their canonical byte encoding, and
// the content-addressed op hash used as the primary key everywhere an Op is
// stored.
package op

import (
	"fmt"

	"github.com/luxfi/ids"

	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
)

// Kind enumerates the nine DhtOp variants.
type Kind byte

const (
	StoreElement Kind = iota
	StoreEntry
	RegisterAgentActivity
	RegisterUpdatedContent
	RegisterUpdatedElement
	RegisterDeletedBy
	RegisterDeletedEntryHeader
	RegisterAddLink
	RegisterRemoveLink
)

func (k Kind) String() string {
	switch k {
	case StoreElement:
		return "StoreElement"
	case StoreEntry:
		return "StoreEntry"
	case RegisterAgentActivity:
		return "RegisterAgentActivity"
	case RegisterUpdatedContent:
		return "RegisterUpdatedContent"
	case RegisterUpdatedElement:
		return "RegisterUpdatedElement"
	case RegisterDeletedBy:
		return "RegisterDeletedBy"
	case RegisterDeletedEntryHeader:
		return "RegisterDeletedEntryHeader"
	case RegisterAddLink:
		return "RegisterAddLink"
	case RegisterRemoveLink:
		return "RegisterRemoveLink"
	default:
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
}

// Op is a single unit of DHT propagation derived from one source-chain
// Element. Header is always populated; Entry is populated only for the
// variants that carry one, and only when the source Entry was Public.
type Op struct {
	Kind   Kind
	Header chain.Header
	Entry  *chain.Entry
}

// CanonicalBytes is the deterministic encoding covering only the fields this
// variant carries, per spec: "canonical byte encoding covering only the
// fields carried by that variant".
func (o Op) CanonicalBytes() []byte {
	buf := []byte{byte(o.Kind)}
	buf = append(buf, o.Header.CanonicalBytes()...)
	if o.Entry != nil {
		entryBytes := o.Entry.Hash().Bytes()
		buf = append(buf, entryBytes...)
		buf = append(buf, o.Entry.Payload...)
	}
	return buf
}

// Hash is the deterministic op hash: identical Ops from the same source
// element always hash identically, and serve as the primary key for
// idempotent storage.
func (o Op) Hash() hash.Hash {
	return hash.Of(hash.KindDhtOp, o.CanonicalBytes())
}

// agentKeyHash maps an author's public key bytes onto a content hash so it
// can be used as a DHT routing basis and as a dependency hash, the same way
// header/entry hashes are.
func agentKeyHash(author ids.NodeID) hash.Hash {
	return hash.Of(hash.KindAgentKey, author[:])
}

// BasisHash returns the hash that determines which DHT neighborhood this Op
// is routed to, per the "Routed by" column of the DhtOp table.
func (o Op) BasisHash() hash.Hash {
	switch o.Kind {
	case StoreElement:
		return o.Header.Hash()
	case StoreEntry:
		return o.Header.EntryHash
	case RegisterAgentActivity:
		return agentKeyHash(o.Header.Author)
	case RegisterUpdatedContent:
		return o.Header.OriginalEntryHash
	case RegisterUpdatedElement:
		return o.Header.OriginalHeaderHash
	case RegisterDeletedBy:
		return o.Header.OriginalHeaderHash
	case RegisterDeletedEntryHeader:
		return o.Header.OriginalEntryHash
	case RegisterAddLink:
		return o.Header.BaseHash
	case RegisterRemoveLink:
		return o.Header.CreateLinkHash
	default:
		return hash.Empty
	}
}

// FromElement decomposes one source-chain Element into its deterministic,
// order-stable set of DhtOps. ops_from_element is pure: no two calls on the
// same Element produce differing output, and entry-less headers emit only
// the subset of Ops that do not require an entry.
func FromElement(e chain.Element) []Op {
	h := e.Header
	var ops []Op

	withEntry := func(want bool) *chain.Entry {
		if !want || e.Entry == nil {
			return nil
		}
		if e.Entry.Visibility != chain.Public {
			return nil
		}
		return e.Entry
	}

	switch h.Kind {
	case chain.HeaderDna, chain.HeaderAgentValidationPkg:
		ops = append(ops, Op{Kind: StoreElement, Header: h, Entry: withEntry(true)})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})

	case chain.HeaderCreate:
		ops = append(ops, Op{Kind: StoreElement, Header: h, Entry: withEntry(true)})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})
		if entry := withEntry(true); entry != nil {
			ops = append(ops, Op{Kind: StoreEntry, Header: h, Entry: entry})
		}

	case chain.HeaderUpdate:
		ops = append(ops, Op{Kind: StoreElement, Header: h, Entry: withEntry(true)})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})
		if entry := withEntry(true); entry != nil {
			ops = append(ops, Op{Kind: StoreEntry, Header: h, Entry: entry})
		}
		ops = append(ops, Op{Kind: RegisterUpdatedContent, Header: h, Entry: withEntry(true)})
		ops = append(ops, Op{Kind: RegisterUpdatedElement, Header: h, Entry: withEntry(true)})

	case chain.HeaderDelete:
		ops = append(ops, Op{Kind: StoreElement, Header: h})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})
		ops = append(ops, Op{Kind: RegisterDeletedBy, Header: h})
		ops = append(ops, Op{Kind: RegisterDeletedEntryHeader, Header: h})

	case chain.HeaderCreateLink:
		ops = append(ops, Op{Kind: StoreElement, Header: h})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})
		ops = append(ops, Op{Kind: RegisterAddLink, Header: h})

	case chain.HeaderDeleteLink:
		ops = append(ops, Op{Kind: StoreElement, Header: h})
		ops = append(ops, Op{Kind: RegisterAgentActivity, Header: h})
		ops = append(ops, Op{Kind: RegisterRemoveLink, Header: h})
	}

	return ops
}

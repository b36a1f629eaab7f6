// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package agentdir implements the optional agent-key membrane a DNA may
// configure: a directory of known agent public keys that
// check_author_key_is_valid consults before the Ed25519 signature check
// runs. With no Directory configured (the default, permissionless DNA) only
// the signature format check applies.
package agentdir

import (
	"sync"

	"github.com/luxfi/ids"
	"github.com/luxfi/validators"

	"github.com/luxfi/dht/utils/set"
)

// Directory is a binary-membership validators.Set: every member carries
// light 1, there is no weighting or sampling use case here, only "is this
// agent known". Membership itself is backed by set.Set, the teacher's own
// generic collection type, rather than a bare map.
type Directory struct {
	mu      sync.RWMutex
	members set.Set[ids.NodeID]
}

var _ validators.Set = (*Directory)(nil)

// New returns an empty Directory.
func New() *Directory {
	return &Directory{members: set.NewSet[ids.NodeID](0)}
}

// Add admits agentID to the directory.
func (d *Directory) Add(agentID ids.NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members.Add(agentID)
}

// Remove revokes agentID's membership.
func (d *Directory) Remove(agentID ids.NodeID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members.Remove(agentID)
}

// Has reports whether agentID is a known member.
func (d *Directory) Has(agentID ids.NodeID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members.Contains(agentID)
}

// Len returns the number of known agents.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members.Len()
}

// List returns every known agent as a validators.Validator with light 1.
func (d *Directory) List() []validators.Validator {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := d.members.List()
	out := make([]validators.Validator, 0, len(ids))
	for _, id := range ids {
		out = append(out, &validators.ValidatorImpl{NodeID: id, LightVal: 1})
	}
	return out
}

// Light returns the directory's total light: its member count, since every
// member carries light 1.
func (d *Directory) Light() uint64 {
	return uint64(d.Len())
}

// Sample returns up to size distinct members. Sampling has no real use case
// for a membrane check; it exists only to satisfy validators.Set.
func (d *Directory) Sample(size int) ([]ids.NodeID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.members.CappedList(size), nil
}

// AuthorKeyIsValid reports whether agentID may author headers under this
// membrane. A nil Directory means no membrane is configured: every agent key
// is accepted by this check (the signature itself is still verified
// separately).
func (d *Directory) AuthorKeyIsValid(agentID ids.NodeID) bool {
	if d == nil {
		return true
	}
	return d.Has(agentID)
}

// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ribosome specifies the one-method application-validation
// collaborator the app-validation workflow invokes. App-defined validation
// logic itself is out of scope (§1); this is deliberately thin.
package ribosome

import (
	"context"

	"github.com/luxfi/dht/cascade"
	"github.com/luxfi/dht/chain"
	"github.com/luxfi/dht/hash"
)

// Verdict is the outcome an app-defined validation callback returns.
type Verdict struct {
	// Valid is true when the callback accepts the element outright.
	Valid bool
	// InvalidReason is set when the callback rejects the element; Valid is
	// false.
	InvalidReason string
	// Unresolved lists hashes the callback needs but could not resolve via
	// the supplied cascade; both Valid and InvalidReason are zero.
	Unresolved []hash.Hash
}

// IsInvalid reports whether the callback rejected the element.
func (v Verdict) IsInvalid() bool { return !v.Valid && v.InvalidReason != "" }

// IsUnresolved reports whether the callback is blocked on dependencies.
func (v Verdict) IsUnresolved() bool { return !v.Valid && len(v.Unresolved) > 0 }

// Ribosome is the guest validation-callback collaborator (§6 "Ribosome
// collaborator"). A real implementation runs app-defined wasm; this module
// treats it as an opaque external dependency.
type Ribosome interface {
	// ValidateElement invokes the app-defined validation callback for
	// element, giving it view for resolving any references it needs.
	ValidateElement(ctx context.Context, element chain.Element, view *cascade.Cascade) (Verdict, error)
}

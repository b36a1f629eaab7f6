// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config holds the tunable limits and retry parameters the
// validation pipeline is built against: entry/tag size ceilings and the
// exponential backoff schedule used for AwaitingSysDeps/AwaitingAppDeps
// retries.
package config

import (
	"errors"
	"time"
)

var (
	ErrMaxEntryBytesTooLow = errors.New("max entry bytes is too low")
	ErrMaxTagBytesTooLow   = errors.New("max tag bytes is too low")
	ErrBackoffBaseTooLow   = errors.New("backoff base must be positive")
	ErrBackoffMaxTooLow    = errors.New("backoff max must be >= base")
	ErrBackoffFactorTooLow = errors.New("backoff factor must be > 1")
)

// Limits bounds the size of the objects the pipeline will accept. These are
// enforced during structural validation (§4.6 "Structural checks"), before
// any cryptographic or dependency work runs.
type Limits struct {
	// MaxEntryBytes is the largest Entry payload accepted by structural
	// validation.
	MaxEntryBytes int
	// MaxTagBytes is the largest CreateLink Tag accepted.
	MaxTagBytes int
}

// DefaultLimits returns the limits used when no deployment-specific
// configuration is supplied.
func DefaultLimits() Limits {
	return Limits{
		MaxEntryBytes: 4 * 1024 * 1024, // 4 MiB
		MaxTagBytes:   1024,
	}
}

// Valid reports whether l is internally consistent.
func (l Limits) Valid() error {
	if l.MaxEntryBytes < 1 {
		return ErrMaxEntryBytesTooLow
	}
	if l.MaxTagBytes < 1 {
		return ErrMaxTagBytesTooLow
	}
	return nil
}

// Backoff controls the retry schedule for Ops parked in AwaitingSysDeps or
// AwaitingAppDeps (spec.md §9 Open Question (c)): delay grows geometrically
// from Base by Factor, capped at Max.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

// DefaultBackoff returns the retry schedule used when no deployment-specific
// configuration is supplied: 1s initial delay, doubling, capped at 5 minutes.
func DefaultBackoff() Backoff {
	return Backoff{
		Base:   time.Second,
		Max:    5 * time.Minute,
		Factor: 2.0,
	}
}

// Valid reports whether b is internally consistent.
func (b Backoff) Valid() error {
	if b.Base <= 0 {
		return ErrBackoffBaseTooLow
	}
	if b.Max < b.Base {
		return ErrBackoffMaxTooLow
	}
	if b.Factor <= 1.0 {
		return ErrBackoffFactorTooLow
	}
	return nil
}

// Delay returns the backoff delay for the given retry attempt (0-indexed),
// geometrically growing from Base and capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Base)
	for i := 0; i < attempt; i++ {
		d *= b.Factor
		if d >= float64(b.Max) {
			return b.Max
		}
	}
	if time.Duration(d) > b.Max {
		return b.Max
	}
	return time.Duration(d)
}

// Parameters bundles every tunable the pipeline reads, mirroring the
// teacher's top-level Parameters struct.
type Parameters struct {
	Limits  Limits
	Backoff Backoff
}

// DefaultParams returns the parameter set used when no deployment-specific
// configuration is supplied.
func DefaultParams() Parameters {
	return Parameters{
		Limits:  DefaultLimits(),
		Backoff: DefaultBackoff(),
	}
}

// Valid reports whether every sub-configuration in p is internally
// consistent.
func (p Parameters) Valid() error {
	if err := p.Limits.Valid(); err != nil {
		return err
	}
	return p.Backoff.Valid()
}

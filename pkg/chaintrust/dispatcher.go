// Copyright 2022 The Sigstore Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chaintrust implements IsChainTrustedForContext (spec.md §4.H): it
// routes a (chain, purpose) pair to the anchor set and validator configured
// for that purpose.
package chaintrust

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/eudiw/lote-trust/pkg/anchor"
	"github.com/eudiw/lote-trust/pkg/model"
)

// Outcome is the sum Trusted | NotTrusted(cause) | UnsupportedVerificationContext.
type Outcome struct {
	trusted   bool
	supported bool
	cause     error
	matched   *model.TrustAnchor
}

func (o Outcome) Trusted() bool      { return o.trusted }
func (o Outcome) Supported() bool    { return o.supported }
func (o Outcome) Cause() error       { return o.cause }
func (o Outcome) MatchedAnchor() *model.TrustAnchor { return o.matched }

func trusted(a *model.TrustAnchor) Outcome { return Outcome{trusted: true, supported: true, matched: a} }
func notTrusted(cause error) Outcome       { return Outcome{trusted: false, supported: true, cause: cause} }
func unsupported() Outcome                 { return Outcome{supported: false} }

// InvalidInput is returned when the chain or anchor set passed to a
// validator is empty (spec.md §7).
type InvalidInput struct {
	Reason string
}

func (e *InvalidInput) Error() string { return "invalid input: " + e.Reason }

// Validator is the contract shared by the PKIX and direct-trust
// collaborators (spec.md §4.H).
type Validator interface {
	ValidateCertificateChain(ctx context.Context, chain []*x509.Certificate, anchors []model.TrustAnchor) (*model.TrustAnchor, error)
}

// route is one purpose's (anchor set, validator) binding.
type route struct {
	anchors   anchor.Source
	validator Validator
}

// Dispatcher implements isTrusted(chain, purpose) over a table built by
// NewDispatcher (spec.md §4.H).
type Dispatcher struct {
	routes map[model.Purpose]route
	order  []model.Purpose
}

// NewDispatcher builds a Dispatcher from an anchor.Source and, per purpose,
// the LoTEMeta.DirectTrust flag that decides which Validator applies.
func NewDispatcher(anchors anchor.Source, directTrustByPurpose map[model.Purpose]bool, pkix, directTrust Validator) *Dispatcher {
	d := &Dispatcher{routes: map[model.Purpose]route{}}
	for _, p := range anchors.SupportedContexts() {
		v := pkix
		if directTrustByPurpose[p] {
			v = directTrust
		}
		d.routes[p] = route{anchors: anchors, validator: v}
		d.order = append(d.order, p)
	}
	return d
}

// SupportedContexts returns the purposes this dispatcher can answer for.
func (d *Dispatcher) SupportedContexts() []model.Purpose {
	out := make([]model.Purpose, len(d.order))
	copy(out, d.order)
	return out
}

// IsChainTrustedForContext implements spec.md §4.H's three-step operation.
func (d *Dispatcher) IsChainTrustedForContext(ctx context.Context, chain []*x509.Certificate, purpose model.Purpose) Outcome {
	r, ok := d.routes[purpose]
	if !ok {
		return unsupported()
	}
	if len(chain) == 0 {
		return notTrusted(&InvalidInput{Reason: "chain is empty"})
	}

	q := r.anchors.GetTrustAnchors(ctx, purpose)
	if !q.IsFound() {
		return notTrusted(fmt.Errorf("no trust anchors available for %s", purpose))
	}

	matched, err := r.validator.ValidateCertificateChain(ctx, chain, q.Anchors())
	if err != nil {
		return notTrusted(err)
	}
	return trusted(matched)
}

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

package anchor

import (
	"context"

	"github.com/eudiw/lote-trust/pkg/model"
)

// QueryResult is the sum Found(anchors) | NotFound | QueryNotSupported
// (spec.md §4.G).
type QueryResult struct {
	state   queryState
	anchors []model.TrustAnchor
}

type queryState int

const (
	queryFound queryState = iota
	queryNotFound
	queryNotSupported
)

func (r QueryResult) IsFound() bool          { return r.state == queryFound }
func (r QueryResult) IsNotFound() bool       { return r.state == queryNotFound }
func (r QueryResult) IsNotSupported() bool   { return r.state == queryNotSupported }
func (r QueryResult) Anchors() []model.TrustAnchor { return r.anchors }

// Found builds a QueryResult in the Found state, for Source implementations
// other than *Lookup (e.g. tests, or alternative provisioning strategies).
func Found(anchors []model.TrustAnchor) QueryResult {
	return QueryResult{state: queryFound, anchors: anchors}
}

// NotFound builds a QueryResult in the NotFound state.
func NotFound() QueryResult { return QueryResult{state: queryNotFound} }

// NotSupported builds a QueryResult in the QueryNotSupported state.
func NotSupported() QueryResult { return QueryResult{state: queryNotSupported} }

// canonicalOrder is the purpose enumeration order spec.md §4.G fixes for
// supportedContexts.
var canonicalOrder = []model.Purpose{
	model.PIDPurpose,
	model.PIDStatusPurpose,
	model.WalletInstanceAttestationPurpose,
	model.WalletUnitAttestationPurpose,
	model.WalletUnitAttestationStatusPurpose,
	model.WalletRelyingPartyAccessCertificatePurpose,
	model.WalletRelyingPartyAccessCertificateStatusPurpose,
	model.WalletRelyingPartyRegistrationCertificatePurpose,
	model.WalletRelyingPartyRegistrationCertificateStatusPurpose,
	model.PubEAAPurpose,
	model.PubEAAStatusPurpose,
}

// mutableLookup is the aggregator's per-invocation accumulator (spec.md §3
// "Lifecycle & ownership": "After return, ownership moves to the caller's
// anchor map").
type mutableLookup struct {
	anchors     map[model.Purpose][]model.TrustAnchor
	seen        map[model.Purpose]map[[32]byte]bool
	registered  map[model.Purpose]bool
	directTrust map[model.Purpose]bool
	eaaOrder    []string
}

func newMutableLookup() *mutableLookup {
	return &mutableLookup{
		anchors:     map[model.Purpose][]model.TrustAnchor{},
		seen:        map[model.Purpose]map[[32]byte]bool{},
		registered:  map[model.Purpose]bool{},
		directTrust: map[model.Purpose]bool{},
	}
}

func (m *mutableLookup) add(p model.Purpose, a model.TrustAnchor) {
	if m.seen[p] == nil {
		m.seen[p] = map[[32]byte]bool{}
	}
	key := dedupKey(a)
	if m.seen[p][key] {
		return
	}
	m.seen[p][key] = true
	m.anchors[p] = append(m.anchors[p], a)
}

// register marks a purpose as having been declared by some family's
// LoTEMeta, even if zero anchors were ultimately collected for it — such a
// purpose surfaces as NotFound, not QueryNotSupported (spec.md §4.G). directTrust
// records whether the declaring family uses the direct-trust validation model.
func (m *mutableLookup) register(p model.Purpose, directTrust bool) {
	m.registered[p] = true
	m.directTrust[p] = directTrust
	if p.Kind == model.EAA || p.Kind == model.EAAStatus {
		for _, uc := range m.eaaOrder {
			if uc == p.UseCase {
				return
			}
		}
		m.eaaOrder = append(m.eaaOrder, p.UseCase)
	}
}

func (m *mutableLookup) freeze() *Lookup {
	order := make([]model.Purpose, 0, len(m.registered))
	for _, p := range canonicalOrder {
		if m.registered[p] {
			order = append(order, p)
		}
	}
	for _, uc := range m.eaaOrder {
		eaa, eaaStatus := model.NewEAA(uc), model.NewEAAStatus(uc)
		if m.registered[eaa] {
			order = append(order, eaa)
		}
		if m.registered[eaaStatus] {
			order = append(order, eaaStatus)
		}
	}

	anchors := make(map[model.Purpose][]model.TrustAnchor, len(m.anchors))
	for p, a := range m.anchors {
		cp := make([]model.TrustAnchor, len(a))
		copy(cp, a)
		anchors[p] = cp
	}

	directTrust := make(map[model.Purpose]bool, len(m.directTrust))
	for p, v := range m.directTrust {
		directTrust[p] = v
	}

	return &Lookup{
		supportedContexts: order,
		anchors:           anchors,
		directTrust:       directTrust,
	}
}

// Lookup implements GetTrustAnchors (spec.md §4.G). Immutable after
// construction — IsChainTrustedForContext only reads it.
type Lookup struct {
	supportedContexts []model.Purpose
	anchors           map[model.Purpose][]model.TrustAnchor
	directTrust       map[model.Purpose]bool
}

// DirectTrustByPurpose reports, for each supported purpose, whether its
// declaring family uses the direct-trust validation model rather than PKIX
// path building. Consumed by chaintrust.NewDispatcher.
func (l *Lookup) DirectTrustByPurpose() map[model.Purpose]bool {
	out := make(map[model.Purpose]bool, len(l.directTrust))
	for p, v := range l.directTrust {
		out[p] = v
	}
	return out
}

// SupportedContexts returns the purposes this Lookup was provisioned for,
// in the stable order spec.md §4.G fixes.
func (l *Lookup) SupportedContexts() []model.Purpose {
	out := make([]model.Purpose, len(l.supportedContexts))
	copy(out, l.supportedContexts)
	return out
}

// GetTrustAnchors answers Found/NotFound/QueryNotSupported for purpose.
func (l *Lookup) GetTrustAnchors(_ context.Context, purpose model.Purpose) QueryResult {
	anchors, ok := l.anchors[purpose]
	if !ok {
		if l.isRegistered(purpose) {
			return QueryResult{state: queryNotFound}
		}
		return QueryResult{state: queryNotSupported}
	}
	if len(anchors) == 0 {
		return QueryResult{state: queryNotFound}
	}
	return QueryResult{state: queryFound, anchors: anchors}
}

func (l *Lookup) isRegistered(purpose model.Purpose) bool {
	for _, p := range l.supportedContexts {
		if p == purpose {
			return true
		}
	}
	return false
}

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

// Package anchor implements ProvisionTrustAnchorsFromLoTEs (spec.md §4.G):
// it maps verification purposes to trust-anchor sets by traversing the
// families named in a SupportedLists<URI> root-location record.
package anchor

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/eudiw/lote-trust/pkg/jwtenvelope"
	"github.com/eudiw/lote-trust/pkg/loteload"
	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/profile"
	"github.com/eudiw/lote-trust/pkg/traversal"
)

// CreateTrustAnchors converts one service's digital identity into zero or
// more TrustAnchor values. Supplied by the caller (spec.md §4.G).
type CreateTrustAnchors func(model.ServiceDigitalIdentity) []model.TrustAnchor

// familyResolver answers traversal.Resolver from the registry shared by every
// family's traversal: the six fixed profiles plus one EAA profile per use case
// declared in meta. It does not restrict a family's lists to that family's
// own type.
type familyResolver struct {
	registry *profile.Registry
}

func (r familyResolver) ProfileFor(typ model.URI) (profile.Profile, error) {
	return r.registry.Lookup(typ)
}

// ProvisionTrustAnchorsFromLoTEs runs the traversal engine over every
// non-empty root in roots, classifies every reachable service by the
// purposes meta declares for its family, and accumulates TrustAnchors per
// purpose, deduplicated by certificate byte equality (spec.md §4.G, §9(b)).
func ProvisionTrustAnchorsFromLoTEs(
	ctx context.Context,
	roots model.SupportedLists[model.URI],
	meta model.SupportedLists[model.LoTEMeta],
	constraints traversal.Constraints,
	loader loteload.Loader,
	verifier jwtenvelope.Verifier,
	createTrustAnchors CreateTrustAnchors,
	onProblem traversal.ContinueOnProblem,
) (*Lookup, []*traversal.Problem, error) {
	registry := profile.NewRegistry()

	rootFamilies := roots.Families()
	metaFamilies := meta.Families()
	metaByLabel := make(map[string]model.LoTEMeta, len(metaFamilies))
	for _, f := range metaFamilies {
		metaByLabel[f.Label] = f.Value
		if f.IsEAA {
			registry.RegisterEAA(f.UseCase)
		}
	}

	result := newMutableLookup()
	var allProblems []*traversal.Problem

	for _, rf := range rootFamilies {
		fm, ok := metaByLabel[rf.Label]
		if !ok {
			return nil, nil, fmt.Errorf("no LoTEMeta declared for family %s", rf.Label)
		}

		engine := &traversal.Engine{
			Loader:      loader,
			Verifier:    verifier,
			Resolver:    familyResolver{registry: registry},
			Constraints: constraints,
			OnProblem:   onProblem,
		}

		res, err := engine.Load(ctx, rf.Value, "", nil)
		if err != nil {
			if onProblem == traversal.Never {
				return nil, nil, fmt.Errorf("provisioning family %s: %w", rf.Label, err)
			}
			allProblems = append(allProblems, &traversal.Problem{Cause: err})
			continue
		}
		allProblems = append(allProblems, res.Problems...)

		nodes := append([]traversal.Node{res.Root}, res.Children...)
		for purpose, svcType := range fm.SvcTypePerPurpose {
			for _, n := range nodes {
				collectAnchorsForType(n.LoTE, svcType, createTrustAnchors, result, purpose)
			}
			result.register(purpose, fm.DirectTrust)
		}
	}

	if onProblem == traversal.Never {
		// TraversalLimitReached is informational and never aborts provisioning.
		var fatal []*traversal.Problem
		for _, p := range allProblems {
			var limit *traversal.TraversalLimitReached
			if !errors.As(p.Cause, &limit) {
				fatal = append(fatal, p)
			}
		}
		if len(fatal) > 0 {
			return nil, nil, traversal.ProblemsError(fatal)
		}
	}

	return result.freeze(), allProblems, nil
}

// collectAnchorsForType scans lote for every ServiceInformation whose
// typeIdentifier matches svcType, applies createTrustAnchors, and
// accumulates the result under purpose.
func collectAnchorsForType(lote model.LoTE, svcType model.URI, create CreateTrustAnchors, into *mutableLookup, purpose model.Purpose) {
	for _, entity := range lote.Entities {
		for _, svc := range entity.Services {
			si := svc.Information
			if si.TypeIdentifier != svcType {
				continue
			}
			if !serviceUsable(si) {
				continue
			}
			for _, a := range create(si.DigitalIdentity) {
				into.add(purpose, a)
			}
		}
	}
}

// grantedStatus is the ETSI TS 119 612 "granted" service status URI. None of
// the fixed profiles in pkg/profile allow status fields to be present (they
// all declare an empty ServiceStatuses set), so today every service that
// reaches here already has a nil Status; this still applies the real
// granted/withdrawn distinction for any future profile that does allow one.
const grantedStatus = model.URI("http://uri.etsi.org/TrstSvc/TrustedList/Svcstatus/granted")

// serviceUsable applies spec.md §9 Open Question (a): strict profile
// enforcement already rejected any LoTE whose status shape violates its
// profile (pkg/profile.Check). A nil status means the profile forbids
// status fields, which this implementation treats as always-usable; a
// present status must equal grantedStatus.
func serviceUsable(si model.ServiceInformation) bool {
	if si.Status == nil {
		return true
	}
	return *si.Status == grantedStatus
}

func dedupKey(a model.TrustAnchor) [32]byte {
	return sha256.Sum256(a.Certificate.DER)
}

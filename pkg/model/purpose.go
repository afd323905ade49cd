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

package model

import "fmt"

// PurposeKind is the closed set of verification-context tags. EAA and
// EAAStatus carry an additional UseCase string payload and are otherwise
// open-ended (spec.md §9 "parametric variant, not inheritance").
type PurposeKind int

const (
	PID PurposeKind = iota
	PIDStatus
	WalletInstanceAttestation
	WalletUnitAttestation
	WalletUnitAttestationStatus
	WalletRelyingPartyAccessCertificate
	WalletRelyingPartyAccessCertificateStatus
	WalletRelyingPartyRegistrationCertificate
	WalletRelyingPartyRegistrationCertificateStatus
	PubEAA
	PubEAAStatus
	EAA
	EAAStatus
)

var purposeKindNames = map[PurposeKind]string{
	PID:                                        "PID",
	PIDStatus:                                  "PIDStatus",
	WalletInstanceAttestation:                  "WalletInstanceAttestation",
	WalletUnitAttestation:                      "WalletUnitAttestation",
	WalletUnitAttestationStatus:                "WalletUnitAttestationStatus",
	WalletRelyingPartyAccessCertificate:        "WalletRelyingPartyAccessCertificate",
	WalletRelyingPartyAccessCertificateStatus:  "WalletRelyingPartyAccessCertificateStatus",
	WalletRelyingPartyRegistrationCertificate:  "WalletRelyingPartyRegistrationCertificate",
	WalletRelyingPartyRegistrationCertificateStatus: "WalletRelyingPartyRegistrationCertificateStatus",
	PubEAA:       "PubEAA",
	PubEAAStatus: "PubEAAStatus",
	EAA:          "EAA",
	EAAStatus:    "EAAStatus",
}

// Purpose is a verification context: a closed tag, plus a UseCase payload
// for the two parametric variants (EAA, EAAStatus). Equality is by tag and
// payload, so two Purpose values are comparable with ==.
type Purpose struct {
	Kind    PurposeKind
	UseCase string // only meaningful when Kind is EAA or EAAStatus
}

// String renders the purpose the way callers should log/print it.
func (p Purpose) String() string {
	name := purposeKindNames[p.Kind]
	if p.Kind == EAA || p.Kind == EAAStatus {
		return fmt.Sprintf("%s(%s)", name, p.UseCase)
	}
	return name
}

// NewEAA builds the EAA(useCase) purpose.
func NewEAA(useCase string) Purpose { return Purpose{Kind: EAA, UseCase: useCase} }

// NewEAAStatus builds the EAAStatus(useCase) purpose.
func NewEAAStatus(useCase string) Purpose { return Purpose{Kind: EAAStatus, UseCase: useCase} }

// simplePurpose builds a non-parametric purpose.
func simplePurpose(k PurposeKind) Purpose { return Purpose{Kind: k} }

var (
	PIDPurpose                                       = simplePurpose(PID)
	PIDStatusPurpose                                 = simplePurpose(PIDStatus)
	WalletInstanceAttestationPurpose                 = simplePurpose(WalletInstanceAttestation)
	WalletUnitAttestationPurpose                     = simplePurpose(WalletUnitAttestation)
	WalletUnitAttestationStatusPurpose               = simplePurpose(WalletUnitAttestationStatus)
	WalletRelyingPartyAccessCertificatePurpose       = simplePurpose(WalletRelyingPartyAccessCertificate)
	WalletRelyingPartyAccessCertificateStatusPurpose = simplePurpose(WalletRelyingPartyAccessCertificateStatus)
	WalletRelyingPartyRegistrationCertificatePurpose = simplePurpose(WalletRelyingPartyRegistrationCertificate)
	WalletRelyingPartyRegistrationCertificateStatusPurpose = simplePurpose(WalletRelyingPartyRegistrationCertificateStatus)
	PubEAAPurpose       = simplePurpose(PubEAA)
	PubEAAStatusPurpose = simplePurpose(PubEAAStatus)
)

// LoTEMeta is per-LoTE-family configuration: which service-type URI answers
// which purpose, and whether the family is direct-trust or PKIX.
type LoTEMeta struct {
	SvcTypePerPurpose map[Purpose]URI
	DirectTrust       bool
}

// SupportedLists is the fixed-key record used both to name root LoTE
// locations (T = URI) and to describe per-family expectations (T =
// LoTEMeta). The EAA map preserves insertion order via EAAOrder.
type SupportedLists[T any] struct {
	PIDProviders    *T
	WalletProviders *T
	WRPACProviders  *T
	WRPRCProviders  *T
	PubEAAProviders *T

	EAAProviders map[string]T
	// EAAOrder records the insertion order of EAAProviders keys, since Go
	// maps have no stable iteration order and spec.md §4.G requires EAA
	// purposes to surface "in insertion order of the EAA map".
	EAAOrder []string
}

// SetEAA inserts or overwrites the EAAProviders entry for useCase, tracking
// insertion order the first time useCase appears.
func (s *SupportedLists[T]) SetEAA(useCase string, v T) {
	if s.EAAProviders == nil {
		s.EAAProviders = map[string]T{}
	}
	if _, ok := s.EAAProviders[useCase]; !ok {
		s.EAAOrder = append(s.EAAOrder, useCase)
	}
	s.EAAProviders[useCase] = v
}

// Families returns each non-empty family entry alongside a stable label,
// root-families first in spec.md §4.G enumeration order, then EAA families
// in insertion order.
func (s *SupportedLists[T]) Families() []Family[T] {
	var out []Family[T]
	add := func(label string, v *T) {
		if v != nil {
			out = append(out, Family[T]{Label: label, Value: *v})
		}
	}
	add("pidProviders", s.PIDProviders)
	add("walletProviders", s.WalletProviders)
	add("wrpacProviders", s.WRPACProviders)
	add("wrprcProviders", s.WRPRCProviders)
	add("pubEAAProviders", s.PubEAAProviders)
	for _, uc := range s.EAAOrder {
		v := s.EAAProviders[uc]
		out = append(out, Family[T]{Label: "eaaProviders/" + uc, Value: v, UseCase: uc, IsEAA: true})
	}
	return out
}

// Family is one non-empty entry of a SupportedLists, with enough context to
// recover which EAA use case (if any) it belongs to.
type Family[T any] struct {
	Label   string
	Value   T
	UseCase string
	IsEAA   bool
}

// TrustAnchor is an X.509 certificate trusted as a root for some purpose,
// optionally paired with name constraints. Opaque to callers; created only
// by the caller-supplied createTrustAnchors collaborator (spec.md §4.G).
type TrustAnchor struct {
	Certificate     PKIObject
	NameConstraints []string
}

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

// Package profile holds the declarative LoTEProfile registry (spec.md
// §4.D) and the compliance checker that verifies a decoded LoTE against
// its declared profile (spec.md §4.E).
package profile

import "github.com/eudiw/lote-trust/pkg/model"

// Profile is the declarative expected shape for one LoTE family.
type Profile struct {
	Type                        model.URI
	StatusDeterminationApproach string
	SchemeCommunityRules        []model.MultiLanguageURI
	SchemeTerritory             model.CountryCode
	MaxMonthsUntilNextUpdate    int
	HistoricalInformationPeriod model.HistoricalInformationPeriod
	ServiceTypeIdentifiers      map[model.URI]struct{} // non-empty, exhaustive
	MustContainX509Certificates bool
	ServiceStatuses             map[model.URI]struct{} // empty means status fields must be absent
}

// ETSI 19602 constant namespace (spec.md §6). Only the identifiers the
// checker and aggregator consume are modeled.
const (
	euPIDProvidersLoTE    model.URI = "EU_PID_PROVIDERS_LOTE"
	euWalletProvidersLoTE model.URI = "EU_WALLET_PROVIDERS_LOTE"
	euWRPACProvidersLoTE  model.URI = "EU_WRPAC_PROVIDERS_LOTE"
	euWRPRCProvidersLoTE  model.URI = "EU_WRPRC_PROVIDERS_LOTE"
	euPubEAAProvidersLoTE model.URI = "EU_PUB_EAA_PROVIDERS_LOTE"
	euMDLProvidersLoTE    model.URI = "EU_MDL_PROVIDERS_LOTE"

	statusDeterminationApproach = "https://uri.etsi.org/TrstSvc/TrustedList/statusdetn/EUappropriate"
)

func svcType(family, op model.URI) model.URI { return family + "/" + op }

func svcTypeSet(uris ...model.URI) map[model.URI]struct{} {
	out := make(map[model.URI]struct{}, len(uris))
	for _, u := range uris {
		out[u] = struct{}{}
	}
	return out
}

func baseProfile(typ model.URI, issuance, revocation model.URI) Profile {
	return Profile{
		Type:                        typ,
		StatusDeterminationApproach: statusDeterminationApproach,
		SchemeCommunityRules: []model.MultiLanguageURI{
			{Language: "en", Value: "https://uri.etsi.org/TrstSvc/TrustedList/schemerules/EUcommon"},
		},
		SchemeTerritory:             "EU",
		MaxMonthsUntilNextUpdate:    6,
		HistoricalInformationPeriod: model.HistoricalInformationPeriod{Required: false},
		ServiceTypeIdentifiers:      svcTypeSet(issuance, revocation),
		MustContainX509Certificates: true,
		ServiceStatuses:             nil, // empty: status fields must be absent
	}
}

// Issuance/Revocation service-type identifiers per family (spec.md §6).
var (
	PIDIssuance, PIDRevocation       = svcType(euPIDProvidersLoTE, "Issuance"), svcType(euPIDProvidersLoTE, "Revocation")
	WalletIssuance, WalletRevocation = svcType(euWalletProvidersLoTE, "Issuance"), svcType(euWalletProvidersLoTE, "Revocation")
	WRPACIssuance, WRPACRevocation   = svcType(euWRPACProvidersLoTE, "Issuance"), svcType(euWRPACProvidersLoTE, "Revocation")
	WRPRCIssuance, WRPRCRevocation   = svcType(euWRPRCProvidersLoTE, "Issuance"), svcType(euWRPRCProvidersLoTE, "Revocation")
	PubEAAIssuance, PubEAARevocation = svcType(euPubEAAProvidersLoTE, "Issuance"), svcType(euPubEAAProvidersLoTE, "Revocation")
	MDLIssuance, MDLRevocation       = svcType(euMDLProvidersLoTE, "Issuance"), svcType(euMDLProvidersLoTE, "Revocation")
)

// PID returns the fixed PID profile.
func PID() Profile { return baseProfile(euPIDProvidersLoTE, PIDIssuance, PIDRevocation) }

// Wallet returns the fixed Wallet profile.
func Wallet() Profile { return baseProfile(euWalletProvidersLoTE, WalletIssuance, WalletRevocation) }

// WRPAC returns the fixed Wallet Relying Party Access Certificate profile.
func WRPAC() Profile { return baseProfile(euWRPACProvidersLoTE, WRPACIssuance, WRPACRevocation) }

// WRPRC returns the fixed Wallet Relying Party Registration Certificate profile.
func WRPRC() Profile { return baseProfile(euWRPRCProvidersLoTE, WRPRCIssuance, WRPRCRevocation) }

// PubEAA returns the fixed Public EAA profile.
func PubEAA() Profile { return baseProfile(euPubEAAProvidersLoTE, PubEAAIssuance, PubEAARevocation) }

// MDL returns the fixed Mobile Driving Licence profile.
func MDL() Profile { return baseProfile(euMDLProvidersLoTE, MDLIssuance, MDLRevocation) }

// EAA builds the profile for a user-defined EAA use case. The type URI and
// service-type identifiers are parameterized by useCase, following the same
// shape as the six fixed families.
func EAA(useCase string) Profile {
	typ := model.URI("EU_EAA_PROVIDERS_LOTE/" + useCase)
	return baseProfile(typ, svcType(typ, "Issuance"), svcType(typ, "Revocation"))
}

// Registry maps a LoTE's declared type URI to its profile. A type with no
// registered profile must be rejected with UnknownListType (spec.md §4.D).
type Registry struct {
	byType map[model.URI]Profile
}

// NewRegistry builds the registry of the six fixed profiles. Callers that
// support EAA must additionally call RegisterEAA per use case, since the
// EAA family's type URI is only known once a use case is named.
func NewRegistry() *Registry {
	r := &Registry{byType: map[model.URI]Profile{}}
	for _, p := range []Profile{PID(), Wallet(), WRPAC(), WRPRC(), PubEAA(), MDL()} {
		r.byType[p.Type] = p
	}
	return r
}

// RegisterEAA adds the profile for useCase to the registry.
func (r *Registry) RegisterEAA(useCase string) Profile {
	p := EAA(useCase)
	r.byType[p.Type] = p
	return p
}

// UnknownListType is returned when a decoded LoTE's type matches no
// registered profile.
type UnknownListType struct {
	Type model.URI
}

func (e *UnknownListType) Error() string {
	return "unknown list type: " + string(e.Type)
}

// Lookup resolves the profile for typ, or UnknownListType.
func (r *Registry) Lookup(typ model.URI) (Profile, error) {
	p, ok := r.byType[typ]
	if !ok {
		return Profile{}, &UnknownListType{Type: typ}
	}
	return p, nil
}

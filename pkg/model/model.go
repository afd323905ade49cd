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

// Package model holds the canonical data types that make up a List of
// Trusted Entities (LoTE): scheme information, trusted entities and their
// services, pointers to other lists, and the purposes a chain can be
// verified against.
package model

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/sigstore/sigstore/pkg/cryptoutils"
)

// URI is an opaque identifier. Equality is byte-exact.
type URI string

// CountryCode is either two uppercase ASCII letters or the literal "EU".
type CountryCode string

// Valid reports whether c is a well-formed CountryCode.
func (c CountryCode) Valid() bool {
	if c == "EU" {
		return true
	}
	if len(c) != 2 {
		return false
	}
	for _, r := range string(c) {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// LoTEDateTime is an absolute instant in UTC.
type LoTEDateTime struct {
	time.Time
}

// NewLoTEDateTime normalizes t to UTC.
func NewLoTEDateTime(t time.Time) LoTEDateTime {
	return LoTEDateTime{t.UTC()}
}

// MonthsUntil returns the number of completed calendar months between d and
// until, counted in UTC. A negative result means until is before d.
func (d LoTEDateTime) MonthsUntil(until LoTEDateTime) int {
	from, to := d.Time.UTC(), until.Time.UTC()
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	// If the day-of-month (and finer) of `to` hasn't reached that of `from`
	// yet, the last month isn't complete.
	if to.Day() < from.Day() || (to.Day() == from.Day() && to.Sub(to.Truncate(24*time.Hour)) < from.Sub(from.Truncate(24*time.Hour))) {
		months--
	}
	return months
}

// MultiLanguageURI pairs an alpha-2 lowercase language tag with a URI value.
type MultiLanguageURI struct {
	Language string
	Value    URI
}

// PKIObject is an opaque DER-encoded X.509 certificate.
type PKIObject struct {
	DER []byte
}

// Certificate parses the DER bytes into an *x509.Certificate on demand.
func (p PKIObject) Certificate() (*x509.Certificate, error) {
	certs, err := cryptoutils.UnmarshalCertificatesFromData(p.DER)
	if err != nil {
		return nil, fmt.Errorf("parsing PKIObject as x509 certificate: %w", err)
	}
	if len(certs) != 1 {
		return nil, fmt.Errorf("expected exactly one certificate in PKIObject, got %d", len(certs))
	}
	return certs[0], nil
}

// Equal compares two PKIObjects by raw DER byte equality (spec.md §9(b)).
func (p PKIObject) Equal(o PKIObject) bool {
	if len(p.DER) != len(o.DER) {
		return false
	}
	for i := range p.DER {
		if p.DER[i] != o.DER[i] {
			return false
		}
	}
	return true
}

// ServiceDigitalIdentity is the set of identifiers for a trusted service. If
// X509Certificates is non-nil it must be non-empty.
type ServiceDigitalIdentity struct {
	X509Certificates []PKIObject // ordered; nil means absent, not empty
}

// ServiceInformation describes the live state of a service.
type ServiceInformation struct {
	TypeIdentifier     URI
	Status             *URI
	StatusStartingTime *LoTEDateTime
	DigitalIdentity    ServiceDigitalIdentity
	Name               []MultiLanguageURI
}

// ServiceHistoryInstance is a prior ServiceInformation, minus live status.
type ServiceHistoryInstance struct {
	TypeIdentifier  URI
	DigitalIdentity ServiceDigitalIdentity
	Name            []MultiLanguageURI
}

// Service couples the current information for a service with its history.
type Service struct {
	Information ServiceInformation
	History     []ServiceHistoryInstance
}

// TrustedEntity is a provider trusted by the scheme, offering one or more
// Services.
type TrustedEntity struct {
	Name     []MultiLanguageURI
	Services []Service // non-empty
}

// HistoricalInformationPeriod expresses the profile's expectation for the
// scheme's historicalInformationPeriod field: either it must be present and
// equal to a specific value, or it must be absent.
type HistoricalInformationPeriod struct {
	Required bool
	Value    int // meaningful only when Required is true
}

// ListAndSchemeInformation is the scheme header of a LoTE.
type ListAndSchemeInformation struct {
	Type                        URI
	SchemeOperatorAddress       string
	SchemeName                  string
	SchemeInformationURI        string
	StatusDeterminationApproach string
	SchemeTypeCommunityRules    []MultiLanguageURI
	SchemeTerritory             CountryCode
	PolicyOrLegalNotice         string
	ListIssueDateTime           LoTEDateTime
	NextUpdate                  LoTEDateTime
	HistoricalInformationPeriod *int // nil means absent
}

// Pointer expresses "follow this URI; the fetched LoTE must declare
// ExpectedType; optionally expect these signing anchors".
type Pointer struct {
	Location        URI
	ExpectedType    URI
	ExpectedAnchors []PKIObject
}

// LoTE is a fully decoded, profile-checked List of Trusted Entities.
// Immutable once constructed.
type LoTE struct {
	SchemeInformation    ListAndSchemeInformation
	Entities             []TrustedEntity
	PointersToOtherLoTEs []Pointer
}

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

package profile

import (
	"fmt"

	"github.com/eudiw/lote-trust/pkg/model"
	"knative.dev/pkg/apis"
)

// ProfileViolation collects every check failure for one LoTE against its
// profile, rather than stopping at the first (spec.md §4.E: "All per-entity
// errors are collected and reported together").
type ProfileViolation struct {
	ListType     model.URI
	SchemeErrors *apis.FieldError
	EntityErrors []EntityError
}

// EntityError names the entity/service index the violation was found at.
type EntityError struct {
	EntityIndex  int
	ServiceIndex int
	Message      string
}

func (e *ProfileViolation) Error() string {
	if e.SchemeErrors != nil {
		return fmt.Sprintf("profile violation for %s: %s", e.ListType, e.SchemeErrors.Error())
	}
	return fmt.Sprintf("profile violation for %s: %d entity error(s)", e.ListType, len(e.EntityErrors))
}

// Empty reports whether no violations were collected.
func (e *ProfileViolation) Empty() bool {
	return e.SchemeErrors == nil && len(e.EntityErrors) == 0
}

// Check verifies that lote satisfies p, in the order spec.md §4.E lists.
// It returns (nil) on success, or a non-empty *ProfileViolation otherwise.
func Check(lote model.LoTE, p Profile) *ProfileViolation {
	v := &ProfileViolation{ListType: lote.SchemeInformation.Type}

	v.SchemeErrors = v.SchemeErrors.Also(checkSchemeExplicit(lote.SchemeInformation))
	v.SchemeErrors = v.SchemeErrors.Also(checkSchemeAgainstProfile(lote.SchemeInformation, p))

	for ei, entity := range lote.Entities {
		for si, svc := range entity.Services {
			v.EntityErrors = append(v.EntityErrors, checkServiceInformation(ei, si, svc.Information, p)...)
			for _, hist := range svc.History {
				v.EntityErrors = append(v.EntityErrors, checkServiceHistory(ei, si, hist, p)...)
			}
		}
	}

	if v.Empty() {
		return nil
	}
	return v
}

// checkSchemeExplicit implements spec.md §4.E item 1.
func checkSchemeExplicit(si model.ListAndSchemeInformation) *apis.FieldError {
	var errs *apis.FieldError
	if si.SchemeOperatorAddress == "" {
		errs = errs.Also(apis.ErrMissingField("schemeOperatorAddress"))
	}
	if si.SchemeName == "" {
		errs = errs.Also(apis.ErrMissingField("schemeName"))
	}
	if si.SchemeInformationURI == "" {
		errs = errs.Also(apis.ErrMissingField("schemeInformationURI"))
	}
	if si.StatusDeterminationApproach == "" {
		errs = errs.Also(apis.ErrMissingField("statusDeterminationApproach"))
	}
	if si.SchemeTypeCommunityRules == nil {
		errs = errs.Also(apis.ErrMissingField("schemeTypeCommunityRules"))
	}
	if si.PolicyOrLegalNotice == "" {
		errs = errs.Also(apis.ErrMissingField("policyOrLegalNotice"))
	}
	if si.Type == "" {
		errs = errs.Also(apis.ErrMissingField("type"))
	}
	return errs
}

// checkSchemeAgainstProfile implements spec.md §4.E items 2-7.
func checkSchemeAgainstProfile(si model.ListAndSchemeInformation, p Profile) *apis.FieldError {
	var errs *apis.FieldError

	if si.Type != p.Type {
		errs = errs.Also(apis.ErrInvalidValue(si.Type, "type", fmt.Sprintf("expected %s", p.Type)))
	}
	if si.StatusDeterminationApproach != p.StatusDeterminationApproach {
		errs = errs.Also(apis.ErrInvalidValue(si.StatusDeterminationApproach, "statusDeterminationApproach", fmt.Sprintf("expected %s", p.StatusDeterminationApproach)))
	}
	if !sameMultiset(si.SchemeTypeCommunityRules, p.SchemeCommunityRules) {
		errs = errs.Also(apis.ErrInvalidValue(si.SchemeTypeCommunityRules, "schemeTypeCommunityRules"))
	}
	if si.SchemeTerritory != p.SchemeTerritory {
		errs = errs.Also(apis.ErrInvalidValue(si.SchemeTerritory, "schemeTerritory", fmt.Sprintf("expected %s", p.SchemeTerritory)))
	}

	errs = errs.Also(checkHistoricalInformationPeriod(si, p))
	errs = errs.Also(checkFreshness(si, p))

	return errs
}

func checkHistoricalInformationPeriod(si model.ListAndSchemeInformation, p Profile) *apis.FieldError {
	if p.HistoricalInformationPeriod.Required {
		if si.HistoricalInformationPeriod == nil {
			return apis.ErrMissingField("historicalInformationPeriod")
		}
		if *si.HistoricalInformationPeriod != p.HistoricalInformationPeriod.Value {
			return apis.ErrInvalidValue(*si.HistoricalInformationPeriod, "historicalInformationPeriod", fmt.Sprintf("expected %d", p.HistoricalInformationPeriod.Value))
		}
		return nil
	}
	if si.HistoricalInformationPeriod != nil {
		return apis.ErrDisallowedFields("historicalInformationPeriod")
	}
	return nil
}

// checkFreshness implements spec.md §4.E item 7. Months are counted as
// completed calendar months (model.LoTEDateTime.MonthsUntil); a non-positive
// interval is valid.
func checkFreshness(si model.ListAndSchemeInformation, p Profile) *apis.FieldError {
	months := si.ListIssueDateTime.MonthsUntil(si.NextUpdate)
	if months > p.MaxMonthsUntilNextUpdate {
		return apis.ErrInvalidValue(months, "nextUpdate", fmt.Sprintf("more than %d months after listIssueDateTime", p.MaxMonthsUntilNextUpdate))
	}
	return nil
}

// checkServiceInformation implements spec.md §4.E item 8 for the live
// ServiceInformation of one service.
func checkServiceInformation(entityIdx, svcIdx int, si model.ServiceInformation, p Profile) []EntityError {
	var out []EntityError
	add := func(msg string) {
		out = append(out, EntityError{EntityIndex: entityIdx, ServiceIndex: svcIdx, Message: msg})
	}

	if si.TypeIdentifier == "" {
		add("typeIdentifier is missing")
	} else if _, ok := p.ServiceTypeIdentifiers[si.TypeIdentifier]; !ok {
		add(fmt.Sprintf("typeIdentifier %s is not one of the profile's serviceTypeIdentifiers", si.TypeIdentifier))
	}

	if p.MustContainX509Certificates && si.DigitalIdentity.X509Certificates == nil {
		add("digitalIdentity.x509Certificates is required by profile but absent")
	}

	out = append(out, checkServiceStatus(entityIdx, svcIdx, si.Status, si.StatusStartingTime, p)...)

	return out
}

func checkServiceHistory(entityIdx, svcIdx int, h model.ServiceHistoryInstance, p Profile) []EntityError {
	var out []EntityError
	add := func(msg string) {
		out = append(out, EntityError{EntityIndex: entityIdx, ServiceIndex: svcIdx, Message: msg})
	}

	if h.TypeIdentifier == "" {
		add("history: typeIdentifier is missing")
	} else if _, ok := p.ServiceTypeIdentifiers[h.TypeIdentifier]; !ok {
		add(fmt.Sprintf("history: typeIdentifier %s is not one of the profile's serviceTypeIdentifiers", h.TypeIdentifier))
	}

	if p.MustContainX509Certificates && h.DigitalIdentity.X509Certificates == nil {
		add("history: digitalIdentity.x509Certificates is required by profile but absent")
	}

	return out
}

func checkServiceStatus(entityIdx, svcIdx int, status *model.URI, startingTime *model.LoTEDateTime, p Profile) []EntityError {
	var out []EntityError
	add := func(msg string) {
		out = append(out, EntityError{EntityIndex: entityIdx, ServiceIndex: svcIdx, Message: msg})
	}

	if len(p.ServiceStatuses) == 0 {
		if status != nil || startingTime != nil {
			add("status/statusStartingTime must both be absent for this profile")
		}
		return out
	}

	if status == nil || startingTime == nil {
		add("status/statusStartingTime must both be present for this profile")
		return out
	}
	if _, ok := p.ServiceStatuses[*status]; !ok {
		add(fmt.Sprintf("status %s is not one of the profile's serviceStatuses", *status))
	}
	return out
}

// sameMultiset reports whether a and b contain the same (language, value)
// pairs, ignoring order; each pair must occur the same number of times in
// both (spec.md §4.E item 4: "has the same multiset ... as").
func sameMultiset(a, b []model.MultiLanguageURI) bool {
	if len(a) != len(b) {
		return false
	}
	count := map[model.MultiLanguageURI]int{}
	for _, x := range a {
		count[x]++
	}
	for _, x := range b {
		count[x]--
	}
	for _, n := range count {
		if n != 0 {
			return false
		}
	}
	return true
}

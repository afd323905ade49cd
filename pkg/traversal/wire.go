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

package traversal

import (
	"encoding/base64"
	"time"

	"github.com/eudiw/lote-trust/pkg/model"
)

// The wire* types mirror the ETSI TS 119 612 v2.4.1 JSON binding (spec.md
// §6), adapted by the EUDI "ETSI 119 6x2" family. Only the fields the core
// consumes are modeled; every other field in the payload is ignored by
// virtue of not being named here (encoding/json's default behavior).

type wireLoTE struct {
	SchemeInformation    wireSchemeInformation `json:"schemeInformation"`
	Entities             []wireTrustedEntity   `json:"entities"`
	PointersToOtherLoTEs []wirePointer         `json:"pointersToOtherLoTEs"`
}

type wireSchemeInformation struct {
	Type                        string                `json:"type"`
	SchemeOperatorAddress       string                `json:"schemeOperatorAddress"`
	SchemeName                  string                `json:"schemeName"`
	SchemeInformationURI        string                `json:"schemeInformationURI"`
	StatusDeterminationApproach string                `json:"statusDeterminationApproach"`
	SchemeTypeCommunityRules    []wireMultiLanguageURI `json:"schemeTypeCommunityRules"`
	SchemeTerritory             string                `json:"schemeTerritory"`
	PolicyOrLegalNotice         string                `json:"policyOrLegalNotice"`
	ListIssueDateTime           string                `json:"listIssueDateTime"`
	NextUpdate                  string                `json:"nextUpdate"`
	HistoricalInformationPeriod *int                  `json:"historicalInformationPeriod"`
}

type wireMultiLanguageURI struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type wireTrustedEntity struct {
	Information wireEntityInformation `json:"information"`
	Services    []wireService         `json:"services"`
}

type wireEntityInformation struct {
	Name []wireMultiLanguageURI `json:"name"`
}

type wireService struct {
	Information wireServiceInformation    `json:"information"`
	History     []wireServiceHistoryInstance `json:"history"`
}

type wireServiceInformation struct {
	TypeIdentifier     string                 `json:"typeIdentifier"`
	Status             *string                `json:"status"`
	StatusStartingTime *string                `json:"statusStartingTime"`
	DigitalIdentity    wireDigitalIdentity    `json:"digitalIdentity"`
	Name               []wireMultiLanguageURI `json:"name"`
}

type wireServiceHistoryInstance struct {
	TypeIdentifier  string                 `json:"typeIdentifier"`
	DigitalIdentity wireDigitalIdentity    `json:"digitalIdentity"`
	Name            []wireMultiLanguageURI `json:"name"`
}

type wireDigitalIdentity struct {
	// nil X509Certificates (vs. an empty, non-nil slice) distinguishes
	// "absent" from "present but empty", which model.ServiceDigitalIdentity
	// forbids (spec.md §3 invariant).
	X509Certificates []string `json:"x509Certificates"`
}

type wirePointer struct {
	Location        string   `json:"location"`
	ExpectedType    string   `json:"expectedType"`
	ExpectedAnchors []string `json:"expectedAnchors"`
}

func (w wireLoTE) toModel() model.LoTE {
	lote := model.LoTE{
		SchemeInformation: w.SchemeInformation.toModel(),
	}
	for _, e := range w.Entities {
		lote.Entities = append(lote.Entities, e.toModel())
	}
	for _, p := range w.PointersToOtherLoTEs {
		lote.PointersToOtherLoTEs = append(lote.PointersToOtherLoTEs, p.toModel())
	}
	return lote
}

func (w wireSchemeInformation) toModel() model.ListAndSchemeInformation {
	issue, _ := time.Parse(time.RFC3339, w.ListIssueDateTime)
	next, _ := time.Parse(time.RFC3339, w.NextUpdate)

	var rules []model.MultiLanguageURI
	for _, r := range w.SchemeTypeCommunityRules {
		rules = append(rules, r.toModel())
	}

	return model.ListAndSchemeInformation{
		Type:                        model.URI(w.Type),
		SchemeOperatorAddress:       w.SchemeOperatorAddress,
		SchemeName:                  w.SchemeName,
		SchemeInformationURI:        w.SchemeInformationURI,
		StatusDeterminationApproach: w.StatusDeterminationApproach,
		SchemeTypeCommunityRules:    rules,
		SchemeTerritory:             model.CountryCode(w.SchemeTerritory),
		PolicyOrLegalNotice:         w.PolicyOrLegalNotice,
		ListIssueDateTime:           model.NewLoTEDateTime(issue),
		NextUpdate:                  model.NewLoTEDateTime(next),
		HistoricalInformationPeriod: w.HistoricalInformationPeriod,
	}
}

func (w wireMultiLanguageURI) toModel() model.MultiLanguageURI {
	return model.MultiLanguageURI{Language: w.Language, Value: model.URI(w.Value)}
}

func (w wireTrustedEntity) toModel() model.TrustedEntity {
	e := model.TrustedEntity{}
	for _, n := range w.Information.Name {
		e.Name = append(e.Name, n.toModel())
	}
	for _, s := range w.Services {
		e.Services = append(e.Services, s.toModel())
	}
	return e
}

func (w wireService) toModel() model.Service {
	s := model.Service{Information: w.Information.toModel()}
	for _, h := range w.History {
		s.History = append(s.History, h.toModel())
	}
	return s
}

func (w wireServiceInformation) toModel() model.ServiceInformation {
	si := model.ServiceInformation{
		TypeIdentifier:  model.URI(w.TypeIdentifier),
		DigitalIdentity: w.DigitalIdentity.toModel(),
	}
	for _, n := range w.Name {
		si.Name = append(si.Name, n.toModel())
	}
	if w.Status != nil {
		u := model.URI(*w.Status)
		si.Status = &u
	}
	if w.StatusStartingTime != nil {
		if t, err := time.Parse(time.RFC3339, *w.StatusStartingTime); err == nil {
			dt := model.NewLoTEDateTime(t)
			si.StatusStartingTime = &dt
		}
	}
	return si
}

func (w wireServiceHistoryInstance) toModel() model.ServiceHistoryInstance {
	h := model.ServiceHistoryInstance{
		TypeIdentifier:  model.URI(w.TypeIdentifier),
		DigitalIdentity: w.DigitalIdentity.toModel(),
	}
	for _, n := range w.Name {
		h.Name = append(h.Name, n.toModel())
	}
	return h
}

func (w wireDigitalIdentity) toModel() model.ServiceDigitalIdentity {
	if w.X509Certificates == nil {
		return model.ServiceDigitalIdentity{}
	}
	sdi := model.ServiceDigitalIdentity{X509Certificates: make([]model.PKIObject, 0, len(w.X509Certificates))}
	for _, b64 := range w.X509Certificates {
		der, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}
		sdi.X509Certificates = append(sdi.X509Certificates, model.PKIObject{DER: der})
	}
	return sdi
}

func (w wirePointer) toModel() model.Pointer {
	p := model.Pointer{
		Location:     model.URI(w.Location),
		ExpectedType: model.URI(w.ExpectedType),
	}
	for _, b64 := range w.ExpectedAnchors {
		der, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}
		p.ExpectedAnchors = append(p.ExpectedAnchors, model.PKIObject{DER: der})
	}
	return p
}

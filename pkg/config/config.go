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

// Package config loads the YAML document that tells ProvisionTrustAnchorsFromLoTEs
// which root LoTEs to fetch, how to classify their services into purposes,
// and how bounded the traversal should be.
package config

import (
	"fmt"

	"github.com/eudiw/lote-trust/pkg/model"
	"github.com/eudiw/lote-trust/pkg/traversal"
	"gopkg.in/yaml.v3"
	"knative.dev/pkg/apis"
)

// Document is the root of the YAML configuration.
type Document struct {
	Constraints ConstraintsSpec       `yaml:"constraints"`
	OnProblem   string                `yaml:"onProblem"`
	Roots       RootsSpec             `yaml:"roots"`
	Families    map[string]FamilySpec `yaml:"families"`
}

// ConstraintsSpec mirrors traversal.Constraints in YAML-friendly form.
type ConstraintsSpec struct {
	OtherLoTEParallelism int `yaml:"otherLoteParallelism"`
	MaxDepth             int `yaml:"maxDepth"`
	MaxLists             int `yaml:"maxLists"`
}

// RootsSpec names, per family, the URI to start traversal from. Family keys
// match the labels model.SupportedLists[T].Families() produces.
type RootsSpec struct {
	PIDProviders    string            `yaml:"pidProviders,omitempty"`
	WalletProviders string            `yaml:"walletProviders,omitempty"`
	WRPACProviders  string            `yaml:"wrpacProviders,omitempty"`
	WRPRCProviders  string            `yaml:"wrprcProviders,omitempty"`
	PubEAAProviders string            `yaml:"pubEAAProviders,omitempty"`
	EAAProviders    map[string]string `yaml:"eaaProviders,omitempty"`
}

// FamilySpec is one family's LoTEMeta in YAML-friendly form.
type FamilySpec struct {
	DirectTrust bool              `yaml:"directTrust"`
	Purposes    map[string]string `yaml:"purposes"`
}

// purposeNames maps the fixed, non-parametric purpose keys accepted in a
// FamilySpec.Purposes map to the model.Purpose they denote.
var purposeNames = map[string]model.Purpose{
	"pid":                         model.PIDPurpose,
	"pidStatus":                   model.PIDStatusPurpose,
	"walletInstanceAttestation":   model.WalletInstanceAttestationPurpose,
	"walletUnitAttestation":       model.WalletUnitAttestationPurpose,
	"walletUnitAttestationStatus": model.WalletUnitAttestationStatusPurpose,
	"wrpac":                       model.WalletRelyingPartyAccessCertificatePurpose,
	"wrpacStatus":                 model.WalletRelyingPartyAccessCertificateStatusPurpose,
	"wrprc":                       model.WalletRelyingPartyRegistrationCertificatePurpose,
	"wrprcStatus":                 model.WalletRelyingPartyRegistrationCertificateStatusPurpose,
	"pubEAA":                      model.PubEAAPurpose,
	"pubEAAStatus":                model.PubEAAStatusPurpose,
}

// eaaFamilyPrefix marks a Document.Families key as belonging to an
// eaaProviders/<useCase> family, matching the label
// model.SupportedLists.Families() produces for EAA entries.
const eaaFamilyPrefix = "eaaProviders/"

// Load parses and validates raw as a Document.
func Load(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate reports every malformed field at once, in the
// knative.dev/pkg/apis.FieldError idiom pkg/profile.Check also uses.
func (d *Document) Validate() error {
	var errs *apis.FieldError

	if d.Constraints.OtherLoTEParallelism < 1 {
		errs = errs.Also(apis.ErrInvalidValue(d.Constraints.OtherLoTEParallelism, "constraints.otherLoteParallelism"))
	}
	if d.Constraints.MaxDepth < 0 {
		errs = errs.Also(apis.ErrInvalidValue(d.Constraints.MaxDepth, "constraints.maxDepth"))
	}
	if d.Constraints.MaxLists < 1 {
		errs = errs.Also(apis.ErrInvalidValue(d.Constraints.MaxLists, "constraints.maxLists"))
	}
	if _, err := parseOnProblem(d.OnProblem); err != nil {
		errs = errs.Also(apis.ErrInvalidValue(d.OnProblem, "onProblem"))
	}

	for label, spec := range d.Families {
		for key := range spec.Purposes {
			if isEAAFamily(label) {
				if key != "eaa" && key != "eaaStatus" {
					errs = errs.Also(apis.ErrInvalidKeyName(key, fmt.Sprintf("families[%s].purposes", label)))
				}
				continue
			}
			if _, ok := purposeNames[key]; !ok {
				errs = errs.Also(apis.ErrInvalidKeyName(key, fmt.Sprintf("families[%s].purposes", label)))
			}
		}
	}

	if errs != nil {
		return errs
	}
	return nil
}

// PurposeKey renders p the way FamilySpec.Purposes keys name it, so CLI
// purpose-selection patterns (cmd/lotectl's --purpose flag) can match
// against the same vocabulary the config document uses.
func PurposeKey(p model.Purpose) string {
	switch p.Kind {
	case model.EAA:
		return "eaa:" + p.UseCase
	case model.EAAStatus:
		return "eaaStatus:" + p.UseCase
	}
	for k, v := range purposeNames {
		if v == p {
			return k
		}
	}
	return p.String()
}

func isEAAFamily(label string) bool {
	return len(label) > len(eaaFamilyPrefix) && label[:len(eaaFamilyPrefix)] == eaaFamilyPrefix
}

func parseOnProblem(s string) (traversal.ContinueOnProblem, error) {
	switch s {
	case "never", "":
		return traversal.Never, nil
	case "always":
		return traversal.Always, nil
	case "alwaysIfDownloaded":
		return traversal.AlwaysIfDownloaded, nil
	default:
		return 0, fmt.Errorf("unknown onProblem value %q", s)
	}
}

// ToConstraints converts ConstraintsSpec to traversal.Constraints.
func (d *Document) ToConstraints() traversal.Constraints {
	return traversal.Constraints{
		OtherLoTEParallelism: d.Constraints.OtherLoTEParallelism,
		MaxDepth:             d.Constraints.MaxDepth,
		MaxLists:             d.Constraints.MaxLists,
	}
}

// OnProblemPolicy converts OnProblem to traversal.ContinueOnProblem. Validate
// must have already rejected an unrecognized value.
func (d *Document) OnProblemPolicy() traversal.ContinueOnProblem {
	p, _ := parseOnProblem(d.OnProblem)
	return p
}

// ToRoots converts RootsSpec to model.SupportedLists[model.URI].
func (d *Document) ToRoots() model.SupportedLists[model.URI] {
	out := model.SupportedLists[model.URI]{}
	setIfNonEmpty(&out.PIDProviders, d.Roots.PIDProviders)
	setIfNonEmpty(&out.WalletProviders, d.Roots.WalletProviders)
	setIfNonEmpty(&out.WRPACProviders, d.Roots.WRPACProviders)
	setIfNonEmpty(&out.WRPRCProviders, d.Roots.WRPRCProviders)
	setIfNonEmpty(&out.PubEAAProviders, d.Roots.PubEAAProviders)
	for uc, v := range d.Roots.EAAProviders {
		out.SetEAA(uc, model.URI(v))
	}
	return out
}

func setIfNonEmpty(dst **model.URI, v string) {
	if v == "" {
		return
	}
	u := model.URI(v)
	*dst = &u
}

// ToMeta converts Families to model.SupportedLists[model.LoTEMeta], keyed
// the same way model.SupportedLists[model.URI].Families() labels its
// entries.
func (d *Document) ToMeta() (model.SupportedLists[model.LoTEMeta], error) {
	out := model.SupportedLists[model.LoTEMeta]{}
	for label, spec := range d.Families {
		meta, err := spec.toMeta(label)
		if err != nil {
			return out, err
		}
		switch {
		case label == "pidProviders":
			out.PIDProviders = &meta
		case label == "walletProviders":
			out.WalletProviders = &meta
		case label == "wrpacProviders":
			out.WRPACProviders = &meta
		case label == "wrprcProviders":
			out.WRPRCProviders = &meta
		case label == "pubEAAProviders":
			out.PubEAAProviders = &meta
		case isEAAFamily(label):
			out.SetEAA(label[len(eaaFamilyPrefix):], meta)
		default:
			return out, fmt.Errorf("unknown family label %q", label)
		}
	}
	return out, nil
}

func (s FamilySpec) toMeta(label string) (model.LoTEMeta, error) {
	meta := model.LoTEMeta{SvcTypePerPurpose: map[model.Purpose]model.URI{}, DirectTrust: s.DirectTrust}
	if isEAAFamily(label) {
		useCase := label[len(eaaFamilyPrefix):]
		for key, v := range s.Purposes {
			switch key {
			case "eaa":
				meta.SvcTypePerPurpose[model.NewEAA(useCase)] = model.URI(v)
			case "eaaStatus":
				meta.SvcTypePerPurpose[model.NewEAAStatus(useCase)] = model.URI(v)
			default:
				return meta, fmt.Errorf("family %s: unknown purpose key %q", label, key)
			}
		}
		return meta, nil
	}
	for key, v := range s.Purposes {
		p, ok := purposeNames[key]
		if !ok {
			return meta, fmt.Errorf("family %s: unknown purpose key %q", label, key)
		}
		meta.SvcTypePerPurpose[p] = model.URI(v)
	}
	return meta, nil
}

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

package chaintrust

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/eudiw/lote-trust/pkg/model"
)

// DirectTrustValidator validates a presented leaf by exact match against an
// anchor, rather than by path building: the leaf's subject and serial number
// must equal one anchor's certificate (spec.md §4.H "direct trust").
type DirectTrustValidator struct{}

// ValidateCertificateChain implements Validator for the direct-trust model.
// Only chain[0] (the leaf) is considered; any intermediates are ignored,
// since direct trust names the end-entity certificate itself.
func (DirectTrustValidator) ValidateCertificateChain(_ context.Context, chain []*x509.Certificate, anchors []model.TrustAnchor) (*model.TrustAnchor, error) {
	if len(chain) == 0 {
		return nil, &InvalidInput{Reason: "chain is empty"}
	}
	if len(anchors) == 0 {
		return nil, &InvalidInput{Reason: "no anchors to verify against"}
	}

	leaf := chain[0]
	for i := range anchors {
		a := &anchors[i]
		cert, err := a.Certificate.Certificate()
		if err != nil {
			continue
		}
		if cert.SerialNumber.Cmp(leaf.SerialNumber) == 0 && string(cert.RawSubject) == string(leaf.RawSubject) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("leaf certificate does not match any directly trusted anchor")
}

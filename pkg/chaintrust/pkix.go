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

// PKIXValidator validates a presented chain by building a path to one of the
// supplied anchors via crypto/x509.Certificate.Verify (spec.md §4.H).
type PKIXValidator struct{}

// ValidateCertificateChain implements Validator for the PKIX trust model:
// leaf at chain[0], any intermediates following, anchors supplying the
// trusted roots.
func (PKIXValidator) ValidateCertificateChain(_ context.Context, chain []*x509.Certificate, anchors []model.TrustAnchor) (*model.TrustAnchor, error) {
	if len(chain) == 0 {
		return nil, &InvalidInput{Reason: "chain is empty"}
	}
	if len(anchors) == 0 {
		return nil, &InvalidInput{Reason: "no anchors to verify against"}
	}

	roots := x509.NewCertPool()
	byRawSubject := map[string]*model.TrustAnchor{}
	for i := range anchors {
		a := &anchors[i]
		cert, err := a.Certificate.Certificate()
		if err != nil {
			continue
		}
		roots.AddCert(cert)
		byRawSubject[string(cert.RawSubject)] = a
	}

	intermediates := x509.NewCertPool()
	for _, c := range chain[1:] {
		intermediates.AddCert(c)
	}

	leaf := chain[0]
	chains, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("chain does not build to a trusted root: %w", err)
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no verified chain returned")
	}

	built := chains[0]
	root := built[len(built)-1]
	if a, ok := byRawSubject[string(root.RawSubject)]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("verified root not found among supplied anchors")
}

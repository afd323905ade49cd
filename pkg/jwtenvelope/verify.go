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

package jwtenvelope

import (
	"context"
	"crypto"
	"crypto/x509"
	"fmt"

	josejwt "github.com/go-jose/go-jose/v4"
)

// JwtSignatureInvalid is returned by a Verifier when the signature segment
// does not validate against the anchors it was given.
type JwtSignatureInvalid struct {
	Cause error
}

func (e *JwtSignatureInvalid) Error() string {
	return fmt.Sprintf("jwt signature invalid: %v", e.Cause)
}

func (e *JwtSignatureInvalid) Unwrap() error { return e.Cause }

// Verifier is the VerifyJwtSignature capability (spec.md §1, §4.F): given
// the compact JWS and a set of candidate signing certificates, confirm the
// signature segment is valid. Implementations MUST NOT block a scheduler
// thread indefinitely and must honor ctx cancellation.
type Verifier interface {
	VerifyJwtSignature(ctx context.Context, compact string, anchors [][]byte) error
}

// IdentityVerifier never fails. It exists for offline use (spec.md §1: "a
// non-validating identity implementation is acceptable for offline use").
type IdentityVerifier struct{}

func (IdentityVerifier) VerifyJwtSignature(context.Context, string, [][]byte) error { return nil }

// JOSEVerifier verifies the compact JWS using go-jose against the supplied
// DER-encoded certificates' public keys.
type JOSEVerifier struct{}

func (JOSEVerifier) VerifyJwtSignature(_ context.Context, compact string, anchors [][]byte) error {
	sig, err := josejwt.ParseSigned(compact, []josejwt.SignatureAlgorithm{
		josejwt.RS256, josejwt.RS384, josejwt.RS512,
		josejwt.ES256, josejwt.ES384, josejwt.ES512,
		josejwt.PS256, josejwt.PS384, josejwt.PS512,
	})
	if err != nil {
		return &JwtSignatureInvalid{Cause: fmt.Errorf("parsing as JWS: %w", err)}
	}

	var lastErr error
	for _, der := range anchors {
		pub, err := publicKeyFromDER(der)
		if err != nil {
			lastErr = err
			continue
		}
		if _, err := sig.Verify(pub); err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate signing certificates supplied")
	}
	return &JwtSignatureInvalid{Cause: lastErr}
}

func publicKeyFromDER(der []byte) (crypto.PublicKey, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("parsing candidate signing certificate: %w", err)
	}
	return cert.PublicKey, nil
}

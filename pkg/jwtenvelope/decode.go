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

// Package jwtenvelope decodes the compact JWS form (header.payload.signature)
// that every LoTE is distributed as. Decode does not verify the signature;
// that is the job of the Verifier implementations in verify.go.
package jwtenvelope

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedJwt is returned when the envelope cannot be split, base64url
// decoded, or unmarshaled into the caller's schemas.
type MalformedJwt struct {
	Cause error
}

func (e *MalformedJwt) Error() string {
	return fmt.Sprintf("malformed jwt: %v", e.Cause)
}

func (e *MalformedJwt) Unwrap() error { return e.Cause }

func malformed(cause error) error { return &MalformedJwt{Cause: cause} }

// Envelope is a decoded-but-unverified compact JWS: the raw segments plus
// the caller's typed header and payload.
type Envelope[H any, P any] struct {
	Header    H
	Payload   P
	RawHeader []byte
	RawPayload []byte
	Signature []byte
}

// Decode splits compact into its three dot-separated segments, base64url
// decodes each, and unmarshals the header and payload segments into H and P.
// Unknown JSON fields are ignored (spec.md §8 property 6 / §6 "Unknown
// fields MUST be ignored").
func Decode[H any, P any](compact string) (Envelope[H, P], error) {
	var out Envelope[H, P]

	if strings.TrimSpace(compact) == "" {
		return out, malformed(fmt.Errorf("empty input"))
	}

	segments := strings.Split(compact, ".")
	if len(segments) != 3 {
		return out, malformed(fmt.Errorf("expected 3 dot-separated segments, got %d", len(segments)))
	}

	rawHeader, err := base64url(segments[0])
	if err != nil {
		return out, malformed(fmt.Errorf("decoding header segment: %w", err))
	}
	rawPayload, err := base64url(segments[1])
	if err != nil {
		return out, malformed(fmt.Errorf("decoding payload segment: %w", err))
	}
	sig, err := base64url(segments[2])
	if err != nil {
		return out, malformed(fmt.Errorf("decoding signature segment: %w", err))
	}

	var header H
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return out, malformed(fmt.Errorf("unmarshaling header: %w", err))
	}
	var payload P
	if err := json.Unmarshal(rawPayload, &payload); err != nil {
		return out, malformed(fmt.Errorf("unmarshaling payload: %w", err))
	}

	out.Header = header
	out.Payload = payload
	out.RawHeader = rawHeader
	out.RawPayload = rawPayload
	out.Signature = sig
	return out, nil
}

func base64url(segment string) ([]byte, error) {
	if segment == "" {
		return nil, fmt.Errorf("empty segment")
	}
	return base64.RawURLEncoding.DecodeString(segment)
}

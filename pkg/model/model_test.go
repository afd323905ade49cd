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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountryCodeValid(t *testing.T) {
	tests := []struct {
		name string
		code CountryCode
		want bool
	}{
		{"EU is valid", "EU", true},
		{"two uppercase letters valid", "DE", true},
		{"lowercase invalid", "de", false},
		{"three letters invalid", "DEU", false},
		{"empty invalid", "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, test.code.Valid())
		})
	}
}

func TestLoTEDateTimeMonthsUntil(t *testing.T) {
	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want int
	}{
		{"exact one month", date(2026, 1, 15), date(2026, 2, 15), 1},
		{"one day short of a month", date(2026, 1, 15), date(2026, 2, 14), 0},
		{"same instant", date(2026, 1, 15), date(2026, 1, 15), 0},
		{"thirteen months", date(2025, 1, 15), date(2026, 2, 15), 13},
		{"negative when to precedes from", date(2026, 2, 15), date(2026, 1, 15), -1},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			from := NewLoTEDateTime(test.from)
			to := NewLoTEDateTime(test.to)
			require.Equal(t, test.want, from.MonthsUntil(to))
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPKIObjectEqual(t *testing.T) {
	a := PKIObject{DER: []byte{1, 2, 3}}
	b := PKIObject{DER: []byte{1, 2, 3}}
	c := PKIObject{DER: []byte{1, 2, 4}}
	d := PKIObject{DER: []byte{1, 2}}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(d))
}

func TestPKIObjectCertificateRejectsNonCertificateData(t *testing.T) {
	_, err := PKIObject{DER: []byte("not a certificate")}.Certificate()
	require.Error(t, err)
}

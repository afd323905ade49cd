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

package main

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/eudiw/lote-trust/pkg/chaintrust"
	"github.com/eudiw/lote-trust/pkg/config"
	"github.com/ryanuber/go-glob"
	"github.com/spf13/cobra"
)

var (
	chainPath     string
	purposePattern string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a PEM certificate chain is trusted for purposes matching a pattern",
	Long: "Check whether a PEM certificate chain is trusted for purposes matching a pattern. " +
		"The pattern is matched against keys like \"pid\", \"wrpac\", \"eaa:mdl\"; \"eaa:*\" matches every " +
		"provisioned EAA use case.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		chain, err := loadChain(chainPath)
		if err != nil {
			return err
		}

		lookup, _, err := provision(cmd.Context())
		if err != nil {
			return err
		}

		dispatcher := chaintrust.NewDispatcher(lookup, lookup.DirectTrustByPurpose(), chaintrust.PKIXValidator{}, chaintrust.DirectTrustValidator{})

		matched := false
		for _, p := range dispatcher.SupportedContexts() {
			if !glob.Glob(purposePattern, config.PurposeKey(p)) {
				continue
			}
			matched = true
			outcome := dispatcher.IsChainTrustedForContext(cmd.Context(), chain, p)
			report(p.String(), outcome)
		}
		if !matched {
			return fmt.Errorf("pattern %q matched no provisioned purpose", purposePattern)
		}
		return nil
	},
}

func report(purpose string, outcome chaintrust.Outcome) {
	switch {
	case !outcome.Supported():
		fmt.Printf("%-40s UNSUPPORTED\n", purpose)
	case outcome.Trusted():
		fmt.Printf("%-40s TRUSTED\n", purpose)
	default:
		fmt.Printf("%-40s NOT TRUSTED: %v\n", purpose, outcome.Cause())
	}
}

func loadChain(path string) ([]*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain: %w", err)
	}

	var chain []*x509.Certificate
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parsing certificate: %w", err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no PEM certificates found in %s", path)
	}
	return chain, nil
}

func init() {
	checkCmd.Flags().StringVar(&chainPath, "chain", "", "path to a PEM file containing the leaf certificate and any intermediates")
	checkCmd.Flags().StringVar(&purposePattern, "purpose", "*", "purpose key pattern to check the chain against, e.g. pid or eaa:*")
	_ = checkCmd.MarkFlagRequired("chain")
	rootCmd.AddCommand(checkCmd)
}

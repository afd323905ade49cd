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
	"fmt"

	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Fetch the configured Lists of Trusted Entities and report the purposes they provision anchors for",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lookup, problems, err := provision(cmd.Context())
		if err != nil {
			return err
		}

		for _, p := range lookup.SupportedContexts() {
			res := lookup.GetTrustAnchors(cmd.Context(), p)
			fmt.Printf("%-55s %d anchor(s)\n", p, len(res.Anchors()))
		}
		if len(problems) > 0 {
			fmt.Printf("\n%d problem(s) tolerated during traversal:\n", len(problems))
			for _, p := range problems {
				fmt.Println(" -", p)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}

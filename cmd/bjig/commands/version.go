// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func VersionCmd(info Info) *cobra.Command {
	return &cobra.Command{
		Use:          "version",
		Short:        "Print the version of bjig",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("bjig version:\t%s\n", info.Version)
			fmt.Printf("Build date:\t%s\n", info.Date)
		},
	}
}

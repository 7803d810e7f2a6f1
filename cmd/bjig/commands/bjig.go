// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"github.com/spf13/cobra"
)

// Info carries build metadata injected by the linker.
type Info struct {
	Version string `mapstructure:"version" yaml:"version" json:"version"`
	Date    string `mapstructure:"date" yaml:"date" json:"date"`
}

func BjigCmd(info Info) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bjig",
		Short: "Operate BraveJIG routers and sensor modules over a serial link",
		Long: "bjig talks to a BraveJIG router and its attached sensor modules over an\n" +
			"asynchronous serial connection. It monitors uplink telemetry, issues JIG Info\n" +
			"and downlink commands, and pushes firmware updates (DFU) to the router or to\n" +
			"individual modules.",
	}

	cmd.AddCommand(
		MonitorCmd(),
		RouterCmd(),
		DownlinkCmd(),
		DfuCmd(),
		SetPortCmd(),
		ConfigCmd(),
		VersionCmd(info),
	)
	return cmd
}

// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/braveridge/bjig/pkg/protocol"
)

func RouterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "router",
		Short: "Control the BraveJIG router",
	}

	cmd.AddCommand(routerVersionCmd())
	cmd.AddCommand(routerSimpleCmd("start", "Start the router radio", protocol.CmdRouterStart))
	cmd.AddCommand(routerSimpleCmd("stop", "Stop the router radio", protocol.CmdRouterStop))
	cmd.AddCommand(routerSimpleCmd("keep-alive", "Send a keep-alive to the router", protocol.CmdKeepAlive))
	cmd.AddCommand(routerScanModeCmd())
	cmd.AddCommand(routerDeviceIDCmd())
	return cmd
}

func routerSimpleCmd(use string, short string, jigCmd byte) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.jigInfo(jigCmd, 0); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	addPortFlags(cmd)
	return cmd
}

type routerVersion struct {
	Version string `json:"version" yaml:"version"`
}

func (v routerVersion) Short() string { return v.Version }

func routerVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the router firmware version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			version, err := routerFirmwareVersion(s)
			if err != nil {
				return err
			}
			return enc.Encode(routerVersion{Version: version})
		},
	}
	addPortFlags(cmd)
	addOutputFlag(cmd)
	return cmd
}

func routerFirmwareVersion(s *session) (string, error) {
	resp, err := s.jigInfo(protocol.CmdGetVersion, 0)
	if err != nil {
		return "", err
	}
	version, ok := resp.FirmwareVersion()
	if !ok {
		return "", fmt.Errorf("router returned a malformed version response")
	}
	return version, nil
}

func routerScanModeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan-mode",
		Short: "Show or change the router scan mode",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the current scan mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.jigInfo(protocol.CmdGetScanMode, 0)
			if err != nil {
				return err
			}
			mode, ok := resp.ScanMode()
			if !ok {
				return fmt.Errorf("router returned a malformed scan mode response")
			}
			fmt.Println(scanModeName(mode))
			return nil
		},
	}
	addPortFlags(get)

	set := &cobra.Command{
		Use:   "set <long-range|legacy>",
		Short: "Change the scan mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode int
			switch args[0] {
			case "long-range":
				mode = 0
			case "legacy":
				mode = 1
			default:
				return fmt.Errorf("unknown scan mode '%s', must be long-range or legacy", args[0])
			}
			jigCmd, err := protocol.ScanModeCmd(mode)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.jigInfo(jigCmd, 0); err != nil {
				return err
			}
			fmt.Printf("Scan mode set to %s.\n", args[0])
			return nil
		},
	}
	addPortFlags(set)

	cmd.AddCommand(get)
	cmd.AddCommand(set)
	return cmd
}

func scanModeName(mode int) string {
	switch mode {
	case 0:
		return "long-range"
	case 1:
		return "legacy"
	}
	return strconv.Itoa(mode)
}

func routerDeviceIDCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device-id",
		Short: "Inspect and manage the router's module registrations",
	}

	get := &cobra.Command{
		Use:   "get <index>",
		Short: "Show the device id registered at a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index '%s'", args[0])
			}
			jigCmd, err := protocol.GetDeviceIDCmd(index)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.jigInfo(jigCmd, 0)
			if err != nil {
				return err
			}
			id, ok := resp.RegisteredDeviceID()
			if !ok {
				return fmt.Errorf("no device registered at slot %d", index)
			}
			fmt.Printf("0x%016X\n", id)
			return nil
		},
	}
	addPortFlags(get)

	getAll := &cobra.Command{
		Use:   "get-all",
		Short: "List every registered device id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.jigInfo(protocol.CmdGetDeviceIDAll, 30*time.Second)
			if err != nil {
				return err
			}
			ids, ok := resp.DeviceIDs()
			if !ok {
				return fmt.Errorf("router returned a malformed device id list")
			}
			if len(ids) == 0 {
				fmt.Println("No modules registered.")
				return nil
			}
			for i, id := range ids {
				fmt.Printf("%3d: 0x%016X\n", i, id)
			}
			return nil
		},
	}
	addPortFlags(getAll)

	remove := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the registration at a slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid slot index '%s'", args[0])
			}
			jigCmd, err := protocol.RemoveDeviceIDCmd(index)
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.jigInfo(jigCmd, 0); err != nil {
				return err
			}
			fmt.Printf("Removed registration at slot %d.\n", index)
			return nil
		},
	}
	addPortFlags(remove)

	removeAll := &cobra.Command{
		Use:   "remove-all",
		Short: "Remove every module registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.jigInfo(protocol.CmdRemoveDeviceIDAll, 0); err != nil {
				return err
			}
			fmt.Println("Removed all registrations.")
			return nil
		},
	}
	addPortFlags(removeAll)

	cmd.AddCommand(get)
	cmd.AddCommand(getAll)
	cmd.AddCommand(remove)
	cmd.AddCommand(removeAll)
	return cmd
}

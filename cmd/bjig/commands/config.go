// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/braveridge/bjig/cmd/bjig/directory"
)

// DeviceEntry is a named module stored in the user config, so commands can
// refer to modules by name instead of 16-digit hex ids.
type DeviceEntry struct {
	Name     string `mapstructure:"name" json:"name" yaml:"name"`
	DeviceID string `mapstructure:"id" json:"id" yaml:"id"`
	SensorID string `mapstructure:"sensor" json:"sensor" yaml:"sensor"`
}

func configuredDevices(cfg *viper.Viper) ([]DeviceEntry, error) {
	var entries []DeviceEntry
	if err := mapstructure.Decode(cfg.Get(directory.DevicesCfgKey), &entries); err != nil {
		return nil, fmt.Errorf("malformed device list in config: %w", err)
	}
	return entries, nil
}

// lookupDevice resolves a stored device by name.
func lookupDevice(name string) (uint64, uint16, error) {
	cfg, err := directory.GetUserConfig()
	if err != nil {
		return 0, 0, err
	}
	entries, err := configuredDevices(cfg)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		deviceID, err := parseHexID(e.DeviceID)
		if err != nil {
			return 0, 0, fmt.Errorf("device '%s' has a malformed id: %w", name, err)
		}
		sensorID, err := parseHexID16(e.SensorID)
		if err != nil {
			return 0, 0, fmt.Errorf("device '%s' has a malformed sensor id: %w", name, err)
		}
		return deviceID, sensorID, nil
	}
	return 0, 0, fmt.Errorf("no device named '%s' in the config, add one with 'bjig config device add'", name)
}

func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bjig configuration",
	}

	cmd.AddCommand(configPortCmd())
	cmd.AddCommand(configBaudCmd())
	cmd.AddCommand(configDeviceCmd())
	return cmd
}

func configPortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "port [<path>]",
		Short: "Show or set the default serial port",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				port := cfg.GetString(directory.PortCfgKey)
				if port == "" {
					fmt.Println("No port configured, use 'bjig set-port' to pick one.")
					return nil
				}
				fmt.Println(port)
				return nil
			}
			cfg.Set(directory.PortCfgKey, args[0])
			return directory.WriteConfig(cfg)
		},
	}
}

func configBaudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "baud [<rate>]",
		Short: "Show or set the default baud rate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				baud := cfg.GetUint(directory.BaudCfgKey)
				if baud == 0 {
					fmt.Println("No baud rate configured, using 38400.")
					return nil
				}
				fmt.Println(baud)
				return nil
			}
			rate, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil || rate == 0 {
				return fmt.Errorf("invalid baud rate '%s'", args[0])
			}
			cfg.Set(directory.BaudCfgKey, uint(rate))
			return directory.WriteConfig(cfg)
		},
	}
}

func configDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Manage named modules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the named modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			entries, err := configuredDevices(cfg)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No devices configured.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%-20s id: %s  sensor: %s\n", e.Name, e.DeviceID, e.SensorID)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <device-id> <sensor-id>",
		Short: "Store a module under a name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseHexID(args[1]); err != nil {
				return err
			}
			if _, err := parseHexID16(args[2]); err != nil {
				return err
			}

			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			entries, err := configuredDevices(cfg)
			if err != nil {
				return err
			}
			entry := DeviceEntry{Name: args[0], DeviceID: args[1], SensorID: args[2]}
			replaced := false
			for i, e := range entries {
				if e.Name == entry.Name {
					entries[i] = entry
					replaced = true
					break
				}
			}
			if !replaced {
				entries = append(entries, entry)
			}
			cfg.Set(directory.DevicesCfgKey, entries)
			return directory.WriteConfig(cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Forget a named module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}
			entries, err := configuredDevices(cfg)
			if err != nil {
				return err
			}
			kept := entries[:0]
			for _, e := range entries {
				if e.Name != args[0] {
					kept = append(kept, e)
				}
			}
			if len(kept) == len(entries) {
				return fmt.Errorf("no device named '%s'", args[0])
			}
			cfg.Set(directory.DevicesCfgKey, kept)
			return directory.WriteConfig(cfg)
		},
	})

	return cmd
}

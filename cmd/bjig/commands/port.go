// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.bug.st/serial"

	"github.com/braveridge/bjig/cmd/bjig/directory"
)

func SetPortCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "set-port",
		Short:        "Select the serial port your BraveJIG router is attached to",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}

			cfg, err := directory.GetUserConfig()
			if err != nil {
				return err
			}

			_, err = GetPort(cfg, all, true)
			return err
		},
	}

	cmd.Flags().Bool("all", false, "if set, will show all available ports")
	return cmd
}

func PortExists(port string) (bool, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return false, err
	}
	for _, p := range ports {
		if p == port {
			return true, nil
		}
	}
	return false, nil
}

func ConfiguredPort() string {
	cfg, err := directory.GetUserConfig()
	if err != nil {
		return ""
	}
	return cfg.GetString(directory.PortCfgKey)
}

// CheckPort resolves the port to use: the given one if it exists, otherwise
// an interactive pick that is stored for next time.
func CheckPort(port string) (string, error) {
	if port != "" {
		exists, err := PortExists(port)
		if err != nil {
			return "", err
		}
		if exists {
			return port, nil
		}
	}

	cfg, err := directory.GetUserConfig()
	if err != nil {
		return "", err
	}

	return GetPort(cfg, false, true)
}

func GetPort(cfg *viper.Viper, all bool, reselect bool) (string, error) {
	if !reselect {
		if port := cfg.GetString(directory.PortCfgKey); port != "" {
			return port, nil
		}
	}

	port, err := pickPort(all)
	if err != nil {
		return "", err
	}

	cfg.Set(directory.PortCfgKey, port)
	if err := directory.WriteConfig(cfg); err != nil {
		return "", err
	}
	return port, nil
}

func pickPort(all bool) (string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return "", err
	}
	if !all {
		ports = likelyRouterPorts(ports)
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports detected. Is the BraveJIG router plugged in?")
	}

	prompt := promptui.Select{
		Label: "Select the serial port of the BraveJIG router",
		Items: ports,
	}
	i, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("no port selected")
	}
	return ports[i], nil
}

// likelyRouterPorts narrows the OS port list to candidates a USB serial
// adapter would show up as.
func likelyRouterPorts(ports []string) []string {
	switch runtime.GOOS {
	case "darwin":
		return darwinPorts(ports)
	case "linux":
		var res []string
		for _, port := range ports {
			// The router enumerates as a USB CDC-ACM or USB-serial
			// device.
			if strings.Contains(port, "ttyUSB") || strings.Contains(port, "ttyACM") {
				res = append(res, port)
			}
		}
		return res
	default:
		return ports
	}
}

// darwinPorts drops Bluetooth endpoints and prefers the callout (/dev/cu)
// device over its /dev/tty twin when both are listed.
func darwinPorts(ports []string) []string {
	seen := map[string]struct{}{}
	for _, port := range ports {
		seen[port] = struct{}{}
	}

	var res []string
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		switch {
		case strings.HasPrefix(port, "/dev/cu"):
			res = append(res, port)
		case strings.HasPrefix(port, "/dev/tty"):
			callout := "/dev/cu" + strings.TrimPrefix(port, "/dev/tty")
			if _, ok := seen[callout]; !ok {
				res = append(res, port)
			}
		}
	}
	return res
}

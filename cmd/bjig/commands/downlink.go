// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/braveridge/bjig/pkg/protocol"
)

// namedDownlinkCmds lets users name the common module commands instead of
// passing raw command bytes.
var namedDownlinkCmds = map[string]byte{
	"instant-uplink": protocol.CmdInstantUplink,
	"set-parameter":  protocol.CmdSetParameter,
	"get-setting":    protocol.CmdGetDeviceSetting,
	"restart":        protocol.CmdDeviceRestart,
}

func DownlinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "downlink <command>",
		Short: "Send a downlink command to a module",
		Long: "Send a downlink command to a module and wait for the acknowledgement.\n" +
			"The command is either a raw hex byte (e.g. 0x0D) or one of: " +
			"instant-uplink, set-parameter, get-setting, restart.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, sensorID, err := targetFlags(cmd)
			if err != nil {
				return err
			}

			dlCmd, ok := namedDownlinkCmds[args[0]]
			if !ok {
				raw, err := parseHexID16(args[0])
				if err != nil || raw > 0xFF {
					return fmt.Errorf("unknown downlink command '%s'", args[0])
				}
				dlCmd = byte(raw)
			}

			dataHex, err := cmd.Flags().GetString("data")
			if err != nil {
				return err
			}
			data, err := parseHexData(dataHex)
			if err != nil {
				return err
			}

			timeout, err := cmd.Flags().GetDuration("timeout")
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.downlink(deviceID, sensorID, dlCmd, data, timeout)
			if err != nil {
				return err
			}
			fmt.Printf("Module 0x%016X acknowledged command 0x%02X at %s.\n",
				resp.DeviceID, dlCmd, time.Unix(int64(resp.UnixTime), 0).Format(time.RFC3339))
			return nil
		},
	}
	addPortFlags(cmd)
	addTargetFlags(cmd)
	cmd.Flags().String("data", "", "command payload as hex")
	cmd.Flags().Duration("timeout", defaultResponseWait, "how long to wait for the acknowledgement")
	return cmd
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("device", "d", "", "target device id as hex, or a name from 'bjig config device'")
	cmd.Flags().StringP("sensor", "s", "", "target sensor id as hex (implied when --device is a configured name)")
}

// targetFlags resolves --device/--sensor, accepting either raw hex ids or a
// configured device name.
func targetFlags(cmd *cobra.Command) (uint64, uint16, error) {
	device, err := cmd.Flags().GetString("device")
	if err != nil {
		return 0, 0, err
	}
	if device == "" {
		return 0, 0, fmt.Errorf("missing --device flag")
	}
	sensor, err := cmd.Flags().GetString("sensor")
	if err != nil {
		return 0, 0, err
	}

	deviceID, idErr := parseHexID(device)
	if idErr != nil {
		// Not hex, try the configured device names.
		deviceID, sensorID, nameErr := lookupDevice(device)
		if nameErr != nil {
			return 0, 0, nameErr
		}
		if sensor != "" {
			if sensorID, err = parseHexID16(sensor); err != nil {
				return 0, 0, err
			}
		}
		return deviceID, sensorID, nil
	}

	if sensor == "" {
		return 0, 0, fmt.Errorf("missing --sensor flag for device 0x%016X", deviceID)
	}
	sensorID, err := parseHexID16(sensor)
	if err != nil {
		return 0, 0, err
	}
	return deviceID, sensorID, nil
}

// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/braveridge/bjig/pkg/comm"
	"github.com/braveridge/bjig/pkg/protocol"
	"github.com/braveridge/bjig/pkg/protocol/sensors"
)

// uplinkEvent is the printable form of one uplink notification.
type uplinkEvent struct {
	Time         string                `json:"time" yaml:"time"`
	DeviceID     string                `json:"device_id" yaml:"device_id"`
	SensorID     string                `json:"sensor_id" yaml:"sensor_id"`
	Sequence     uint16                `json:"sequence" yaml:"sequence"`
	BatteryLevel uint8                 `json:"battery_level" yaml:"battery_level"`
	Measurements []sensors.Measurement `json:"measurements" yaml:"measurements"`
	Payload      string                `json:"payload,omitempty" yaml:"payload,omitempty"`
}

func newUplinkEvent(u protocol.UplinkNotification, raw bool) uplinkEvent {
	ev := uplinkEvent{
		Time:         u.Time().Format(time.RFC3339),
		DeviceID:     fmt.Sprintf("0x%016X", u.DeviceID),
		SensorID:     fmt.Sprintf("0x%04X", u.SensorID),
		Sequence:     u.SequenceNo,
		BatteryLevel: u.BatteryLevel,
		Measurements: u.Measurements,
	}
	if raw {
		ev.Payload = hex.EncodeToString(u.Payload)
	}
	return ev
}

func (ev uplinkEvent) Short() string {
	parts := make([]string, 0, len(ev.Measurements))
	for _, m := range ev.Measurements {
		keys := make([]string, 0, len(m.Values))
		for k := range m.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]string, 0, len(keys))
		for _, k := range keys {
			vals = append(vals, fmt.Sprintf("%s=%.3f", k, m.Values[k]))
		}
		if len(vals) == 0 {
			vals = append(vals, fmt.Sprintf("raw=%s", hex.EncodeToString(m.Raw)))
		}
		parts = append(parts, m.Kind+"("+strings.Join(vals, " ")+")")
	}
	return fmt.Sprintf("%s %s %s seq=%d batt=%d%% %s",
		ev.Time, ev.DeviceID, ev.SensorID, ev.Sequence, ev.BatteryLevel, strings.Join(parts, " "))
}

func MonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream uplink telemetry from the BraveJIG router",
		Long: "Stream uplink telemetry from the BraveJIG router.\n" +
			"Decodes sensor payloads for known module types and prints one event\n" +
			"per uplink until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc, err := parseOutputFlag(cmd)
			if err != nil {
				return err
			}
			raw, err := cmd.Flags().GetBool("raw")
			if err != nil {
				return err
			}

			s, err := openSession(cmd, 0)
			if err != nil {
				return err
			}
			defer s.Close()

			fmt.Fprintln(os.Stderr, "Monitoring, press Ctrl-C to stop.")
			ctx := cmd.Context()
			for {
				select {
				case msg := <-s.messages:
					switch m := msg.(type) {
					case protocol.UplinkNotification:
						if err := enc.Encode(newUplinkEvent(m, raw)); err != nil {
							return err
						}
					case protocol.ErrorNotification:
						fmt.Fprintf(os.Stderr, "Router error: %s\n", m.ReasonText())
					}
				case err := <-s.failures:
					if comm.IsKind(err, comm.KindProtocol) {
						fmt.Fprintf(os.Stderr, "Dropped frame: %v\n", err)
						continue
					}
					return err
				case <-ctx.Done():
					printStats(s.monitor.Stats().Snapshot())
					return nil
				}
			}
		},
	}
	addPortFlags(cmd)
	addOutputFlag(cmd)
	cmd.Flags().Bool("raw", false, "include the raw payload hex in each event")
	return cmd
}

func printStats(st comm.StatsSnapshot) {
	fmt.Fprintf(os.Stderr, "Session: %d bytes received in %d packets, %d bytes sent in %d packets, %d errors.\n",
		st.BytesReceived, st.PacketsReceived, st.BytesSent, st.PacketsSent, st.Errors)
}

// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/coreos/go-semver/semver"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/braveridge/bjig/pkg/dfu"
	"github.com/braveridge/bjig/pkg/protocol"
)

// minDfuRouterVersion is the oldest router firmware with a working
// transfer path.
var minDfuRouterVersion = semver.New("1.2.0")

const (
	dfuBlockTimeout = 30 * time.Second
	// dfuRestartWait gives the target time to flash and reboot after the
	// terminal block.
	dfuRestartWait = 5 * time.Second
)

func DfuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dfu",
		Short: "Update BraveJIG firmware over the serial link",
	}

	cmd.AddCommand(dfuRouterCmd())
	cmd.AddCommand(dfuModuleCmd())
	return cmd
}

func dfuRouterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "router <firmware-file>",
		Short: "Update the router firmware",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hardwareID, err := hardwareIDFlag(cmd)
			if err != nil {
				return err
			}
			run := func(ctx context.Context) error {
				s, err := openSession(cmd, dfuBaud)
				if err != nil {
					return err
				}
				defer s.Close()

				if err := checkRouterFirmware(s); err != nil {
					return err
				}
				// The router itself is addressed with sensor id 0x0000;
				// its own device id is reported in every JIG Info response.
				info, err := s.jigInfo(protocol.CmdGetVersion, 0)
				if err != nil {
					return err
				}
				return transfer(ctx, s, args[0], info.RouterDeviceID, protocol.RouterSensorID, hardwareID)
			}
			return maybeWatch(cmd, args[0], run)
		},
	}
	addPortFlags(cmd)
	addDfuFlags(cmd)
	return cmd
}

func dfuModuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module <firmware-file>",
		Short: "Update the firmware of a registered module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deviceID, sensorID, err := targetFlags(cmd)
			if err != nil {
				return err
			}
			hardwareID, err := hardwareIDFlag(cmd)
			if err != nil {
				return err
			}
			run := func(ctx context.Context) error {
				s, err := openSession(cmd, dfuBaud)
				if err != nil {
					return err
				}
				defer s.Close()

				// Announce the transfer to the module before streaming
				// blocks.
				if _, err := s.downlink(deviceID, sensorID, protocol.CmdSensorDfu, nil, 0); err != nil {
					return err
				}
				return transfer(ctx, s, args[0], deviceID, sensorID, hardwareID)
			}
			return maybeWatch(cmd, args[0], run)
		},
	}
	addPortFlags(cmd)
	addTargetFlags(cmd)
	addDfuFlags(cmd)
	return cmd
}

func addDfuFlags(cmd *cobra.Command) {
	cmd.Flags().String("hardware-id", "0xFFFF", "hardware id carried by the transfer header block")
	cmd.Flags().Bool("watch", false, "re-run the update whenever the firmware file changes")
}

func hardwareIDFlag(cmd *cobra.Command) (uint16, error) {
	raw, err := cmd.Flags().GetString("hardware-id")
	if err != nil {
		return 0, err
	}
	return parseHexID16(raw)
}

func checkRouterFirmware(s *session) error {
	version, err := routerFirmwareVersion(s)
	if err != nil {
		return err
	}
	parsed, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		// An unparsable version string is not worth blocking the update.
		return nil
	}
	if parsed.LessThan(*minDfuRouterVersion) {
		return fmt.Errorf("router firmware %s is too old for serial update, %s or newer is required", version, minDfuRouterVersion)
	}
	return nil
}

// transfer streams the firmware image block by block, waiting for each
// downlink acknowledgement before sending the next.
func transfer(ctx context.Context, s *session, path string, deviceID uint64, sensorID uint16, hardwareID uint16) error {
	image, err := dfu.LoadImage(path)
	if err != nil {
		return err
	}
	blocks, err := dfu.BuildBlocks(image, hardwareID)
	if err != nil {
		return err
	}

	fmt.Printf("Transferring %d bytes in %d blocks to 0x%016X.\n", len(image), len(blocks), deviceID)
	var bar *pb.ProgressBar
	if term.IsTerminal(int(os.Stdout.Fd())) {
		bar = pb.New(len(blocks)).Start()
	}

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.downlink(deviceID, sensorID, protocol.CmdSensorDfu, block.Encode(), dfuBlockTimeout); err != nil {
			if bar != nil {
				bar.Finish()
			}
			return fmt.Errorf("transfer failed at block 0x%04X: %w", block.Seq, err)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Println("Transfer complete, waiting for the target to restart.")
	time.Sleep(dfuRestartWait)
	return nil
}

// maybeWatch runs fn once, or keeps re-running it on writes to the firmware
// file when --watch is set.
func maybeWatch(cmd *cobra.Command, path string, fn func(context.Context) error) error {
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if !watch {
		return fn(ctx)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Watch the directory: editors replace files, which drops a watch on
	// the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
	}
	fmt.Printf("Watching '%s' for changes, press Ctrl-C to stop.\n", path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			fmt.Printf("File modified '%s'\n", path)
			// Let the writer finish before reading the image back.
			time.Sleep(200 * time.Millisecond)
			if err := fn(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
		case <-ctx.Done():
			return nil
		}
	}
}

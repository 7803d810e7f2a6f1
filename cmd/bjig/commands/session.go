// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/braveridge/bjig/cmd/bjig/directory"
	"github.com/braveridge/bjig/pkg/comm"
	"github.com/braveridge/bjig/pkg/protocol"
)

const (
	// dfuBaud is forced during any firmware transfer regardless of the
	// configured default.
	dfuBaud = 38400

	defaultResponseWait = 10 * time.Second
)

// session bundles the connected transport, the running monitor engine and
// the protocol codec behind one handle the commands share.
type session struct {
	transport *comm.SerialTransport
	monitor   *comm.Monitor
	codec     *protocol.Codec

	messages chan protocol.Message
	failures chan error
}

func addPortFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("port", "p", ConfiguredPort(), "serial port of the BraveJIG router")
	cmd.Flags().Uint("baud", 0, "baud rate (default taken from the config, 38400 otherwise)")
}

// resolveLink turns the port/baud flags plus stored config into a serial
// config. forceBaud overrides everything when non-zero.
func resolveLink(cmd *cobra.Command, forceBaud int) (comm.Config, error) {
	port, err := cmd.Flags().GetString("port")
	if err != nil {
		return comm.Config{}, err
	}
	if port, err = CheckPort(port); err != nil {
		return comm.Config{}, err
	}

	baud, err := cmd.Flags().GetUint("baud")
	if err != nil {
		return comm.Config{}, err
	}
	if baud == 0 {
		if cfg, err := directory.GetUserConfig(); err == nil {
			baud = cfg.GetUint(directory.BaudCfgKey)
		}
	}

	link := comm.DefaultConfig(port)
	if baud != 0 {
		link.BaudRate = int(baud)
	}
	if forceBaud != 0 {
		link.BaudRate = forceBaud
	}
	return link, nil
}

// openSession connects the transport and starts monitoring. Decoded inbound
// messages arrive on s.messages; transport and decode failures on
// s.failures.
func openSession(cmd *cobra.Command, forceBaud int) (*session, error) {
	link, err := resolveLink(cmd, forceBaud)
	if err != nil {
		return nil, err
	}

	s := &session{
		transport: comm.NewSerialTransport(link),
		codec:     protocol.NewCodec(nil),
		messages:  make(chan protocol.Message, 64),
		failures:  make(chan error, 16),
	}
	s.monitor = comm.NewMonitor(s.transport, comm.MonitorOptions{})

	var asm protocol.Assembler
	s.monitor.OnData(func(data []byte) {
		for _, frame := range asm.Push(data) {
			msg, err := s.codec.Decode(frame)
			if err != nil {
				// Scoped to this frame; the session continues.
				s.reportFailure(err)
				continue
			}
			select {
			case s.messages <- msg:
			default:
				// Keep ingesting telemetry even if nobody reads.
			}
		}
	})
	s.monitor.OnError(s.reportFailure)

	if err := s.transport.Connect(); err != nil {
		return nil, err
	}
	if err := s.monitor.StartMonitoring(); err != nil {
		s.transport.Disconnect()
		return nil, err
	}
	return s, nil
}

func (s *session) reportFailure(err error) {
	select {
	case s.failures <- err:
	default:
	}
}

func (s *session) Close() {
	s.monitor.StopMonitoring()
	s.transport.Disconnect()
}

// request sends a frame and waits for the first inbound message accepted by
// match. Error notifications that arrive while waiting fail the request
// with the decoded reason; unrelated telemetry is skipped.
func (s *session) request(frame []byte, timeout time.Duration, match func(protocol.Message) bool) (protocol.Message, error) {
	if timeout <= 0 {
		timeout = defaultResponseWait
	}
	if err := s.monitor.Send(frame, timeout); err != nil {
		return nil, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case msg := <-s.messages:
			if errNote, ok := msg.(protocol.ErrorNotification); ok {
				return nil, fmt.Errorf("router rejected the request: %s", errNote.ReasonText())
			}
			if match(msg) {
				return msg, nil
			}
		case err := <-s.failures:
			if comm.IsKind(err, comm.KindProtocol) {
				// A corrupt frame does not end the exchange.
				continue
			}
			return nil, err
		case <-deadline.C:
			return nil, fmt.Errorf("no response from the router within %v", timeout)
		}
	}
}

// jigInfo performs one JIG Info request/response exchange.
func (s *session) jigInfo(cmd byte, timeout time.Duration) (protocol.JigInfoResponse, error) {
	frame := s.codec.EncodeJigInfoRequest(cmd)
	msg, err := s.request(frame, timeout, func(m protocol.Message) bool {
		resp, ok := m.(protocol.JigInfoResponse)
		return ok && resp.Cmd == cmd
	})
	if err != nil {
		return protocol.JigInfoResponse{}, err
	}
	return msg.(protocol.JigInfoResponse), nil
}

// downlink performs one downlink request/response exchange with a module.
func (s *session) downlink(deviceID uint64, sensorID uint16, dlCmd byte, data []byte, timeout time.Duration) (protocol.DownlinkResponse, error) {
	frame := s.codec.EncodeDownlinkRequest(deviceID, sensorID, dlCmd, data)
	msg, err := s.request(frame, timeout, func(m protocol.Message) bool {
		resp, ok := m.(protocol.DownlinkResponse)
		return ok && resp.DeviceID == deviceID
	})
	if err != nil {
		return protocol.DownlinkResponse{}, err
	}
	resp := msg.(protocol.DownlinkResponse)
	if resp.Result != 0x00 {
		return resp, fmt.Errorf("module 0x%016X rejected command 0x%02X (result 0x%02X)", deviceID, dlCmd, resp.Result)
	}
	return resp, nil
}

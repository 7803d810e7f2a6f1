// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package commands

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

type encoder interface {
	Encode(interface{}) error
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "short", "output format, either json, yaml or short")
}

func parseOutputFlag(cmd *cobra.Command) (encoder, error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(output) {
	case "json":
		return json.NewEncoder(os.Stdout), nil
	case "yaml":
		return yaml.NewEncoder(os.Stdout), nil
	case "short":
		return newShortEncoder(os.Stdout), nil
	default:
		return nil, fmt.Errorf("--output flag '%s' was not recognized. Must be either json, yaml or short.", output)
	}
}

type shortEncoder struct {
	w io.Writer
}

func newShortEncoder(w io.Writer) *shortEncoder {
	return &shortEncoder{
		w: w,
	}
}

// Short is implemented by values that can render a one-line summary.
type Short interface {
	Short() string
}

func (s *shortEncoder) Encode(v interface{}) error {
	sh, ok := v.(Short)
	if !ok {
		return fmt.Errorf("value type %T was not compatible with the Short interface", v)
	}
	_, err := fmt.Fprintln(s.w, sh.Short())
	return err
}

// parseHexID parses a 64-bit device id given as hex, with or without the
// 0x prefix.
func parseHexID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid device id '%s': %w", s, err)
	}
	return id, nil
}

// parseHexID16 parses a 16-bit identifier such as a sensor id.
func parseHexID16(s string) (uint16, error) {
	id, err := parseHexID(s)
	if err != nil {
		return 0, err
	}
	if id > 0xFFFF {
		return 0, fmt.Errorf("identifier 0x%X does not fit in 16 bits", id)
	}
	return uint16(id), nil
}

// parseHexData parses a hex string like "0a1b2c" into bytes; an empty
// string yields nil.
func parseHexData(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return nil, nil
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data '%s': %w", s, err)
	}
	return data, nil
}

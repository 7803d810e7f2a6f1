// Copyright (C) 2025 Braveridge Co., Ltd. All rights reserved.
// Use of this source code is governed by an MIT-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/braveridge/bjig/cmd/bjig/commands"
)

var version = "v0.9.0"

var buildDate = "unknown"

func main() {
	info := commands.Info{
		Date:    buildDate,
		Version: version,
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := commands.BjigCmd(info)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Copyright 2025 The stationcode Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the stationcode CLI and lookup server.

stationcode gives every station of a railway listing a unique three-letter
code built from its name, plus a compact integer for each code. Codes are
allocated in listing order through a fixed cascade of candidates, so the
same listing always yields the same codes. A persistent registry keeps codes
stable when the listing grows between runs.

# Usage

Allocate codes for a tab separated listing and write the artifacts into out/:

	stationcode generate --out out/ stations.tsv

Keep codes stable across runs with a SQLite registry, seeded from an
earlier mapping:

	stationcode generate --registry codes.db --seed mapping.tsv stations.tsv

Look up stations in the generated snapshot:

	stationcode find roma tiburtna
	stationcode complete ROMA
	stationcode nearest 41.9 12.5
	stationcode decode 19473

Debug lookups interactively:

	stationcode prompt -d

# Artifacts

generate writes three tab separated files and a msgpack snapshot:

	codes.tsv         name, code, encoded value per station
	recoded.tsv       the input rows with the id column replaced by the code
	mapping.tsv       code, source id per station
	stations.msgpack  the lookup snapshot used by find, complete, serve

# Configuration

Runtime configuration lives in a TOML file under the user config directory
($XDG_CONFIG_HOME/stationcode/config.toml). It is created with defaults the
first time and can be rebuilt with "stationcode config init":

	[normalize]
	preset = "default"
	fold_accents = true

	[allocate]
	sweep = "last"
	registry = ""

	[input]
	delimiter = "\t"
	header = true

	[output]
	dir = "."
	write_header = false

	[lookup]
	threshold = 0.7

# IPC Protocol

serve reads msgpack requests from stdin and writes one msgpack response per
request to stdout. Logs go to stderr.

	{"id": "1", "action": "decode", "value": 19473}
	{"id": "1", "status": "ok", "code": "RAT", "value": 19473, "station": {...}, "t": 4}

See internal/server for the full list of actions.
*/
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0"
	AppName = "stationcode"
	gh      = "https://github.com/railkit/stationcode"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only wires the command tree. The work is done by the packages under
// pkg/ and internal/.
func main() {
	sigHandler()
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

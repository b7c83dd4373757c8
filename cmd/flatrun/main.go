// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2018 Canonical Ltd
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 3 as
 * published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

// Command flatrun is the thin entry point over the composer package:
// it resolves command-line flags into an AppDeployment and a set of
// flags, then hands off to ComposeAndRun. Resolving an application
// name to its deployment paths is the installation-layout resolver's
// job (out of scope, see spec.md §1); this binary takes the resolved
// paths directly as positional arguments.
package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/flatrun/flatrun/composer"
)

type options struct {
	Devel         bool `long:"devel" description:"Relax confinement in developer-affecting ways (host env/toolchain passthrough, permissive LC_ALL)"`
	Background    bool `long:"background" description:"Start the container helper and return instead of replacing this process"`
	LogSessionBus bool `long:"log-session-bus" description:"Log traffic filtered by the session bus proxy"`
	LogSystemBus  bool `long:"log-system-bus" description:"Log traffic filtered by the system bus proxy"`

	RuntimeRef      string `long:"runtime-ref" description:"The application's declared runtime reference"`
	OverrideRuntime string `long:"override-runtime" description:"Run against a different runtime reference than the one declared"`
	Command         string `long:"command" description:"Override the application's declared entry point"`

	Positional struct {
		AppID            string   `positional-arg-name:"app-id"`
		FilesPath        string   `positional-arg-name:"app-files"`
		RuntimeFilesPath string   `positional-arg-name:"runtime-files"`
		Args             []string `positional-arg-name:"args"`
	} `positional-args:"true"`
}

var opts options

// Parser builds the command-line parser over opts; it is exported so
// that tests (which reach run through export_test.go's Run alias) can
// exercise flag parsing the same way main does.
func Parser() *flags.Parser {
	return flags.NewParser(&opts, flags.Default)
}

var composeAndRun = composer.ComposeAndRun

func run(parser *flags.Parser, extra []string) error {
	if opts.Positional.AppID == "" {
		return fmt.Errorf("need an app-id argument")
	}
	if opts.Positional.FilesPath == "" || opts.Positional.RuntimeFilesPath == "" {
		return fmt.Errorf("need app-files and runtime-files arguments")
	}

	dep := composer.AppDeployment{
		AppID:            opts.Positional.AppID,
		RuntimeRef:       opts.RuntimeRef,
		FilesPath:        opts.Positional.FilesPath,
		RuntimeFilesPath: opts.Positional.RuntimeFilesPath,
	}
	runFlags := composer.Flags{
		Devel:         opts.Devel,
		Background:    opts.Background,
		LogSessionBus: opts.LogSessionBus,
		LogSystemBus:  opts.LogSystemBus,
	}

	result, err := composeAndRun(dep, nil, opts.OverrideRuntime, runFlags, opts.Command, opts.Positional.Args)
	if err != nil {
		return err
	}
	if runFlags.Background {
		fmt.Fprintln(os.Stdout, result.Pid)
	}
	return nil
}

func main() {
	parser := Parser()
	extra, err := parser.Parse()
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := run(parser, extra); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

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

package main

import (
	"github.com/flatrun/flatrun/composer"
	"github.com/flatrun/flatrun/policy"
)

var Run = run

func MockComposeAndRun(f func(dep composer.AppDeployment, extraPolicy *policy.Policy, customRuntimeRef string, flags composer.Flags, customCommand string, argv []string) (*composer.Result, error)) (restore func()) {
	old := composeAndRun
	composeAndRun = f
	return func() { composeAndRun = old }
}

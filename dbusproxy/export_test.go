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

package dbusproxy

var BuildArgs = buildArgs
var ProxyBinary = proxyBinary

const ProxyBinaryEnvVar = proxyBinaryEnvVar
const DefaultProxyBinary = defaultProxyBinary

func (s *Supervisor) SetBinary(path string) {
	s.binary = path
}

func (s *Supervisor) NumCmds() int {
	return len(s.cmds)
}

func (s *Supervisor) NumConfigs() int {
	return len(s.configs)
}

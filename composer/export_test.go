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

package composer

import "github.com/flatrun/flatrun/osutil"

// Plan is the exported alias test code outside this package builds
// and inspects plans through.
type Plan = plan

// NewTestPlan returns a plan with the given identity fields, without
// going through CurrentIdentity.
func NewTestPlan(home string, uid int, xdgRuntime string) *Plan {
	return &Plan{
		env:        map[string]string{},
		home:       home,
		uid:        uid,
		xdgRuntime: xdgRuntime,
		identity:   &osutil.InvokingIdentity{Uid: uid, Home: home},
	}
}

func (p *Plan) SetAppID(id string)          { p.appID = id }
func (p *Plan) Home() string                { return p.home }
func (p *Plan) XdgRuntime() string          { return p.xdgRuntime }
func (p *Plan) Args() []interface{}         { return p.args }
func (p *Plan) Env() map[string]string      { return p.env }
func (p *Plan) BoundHome() bool             { return p.boundHome }
func (p *Plan) BoundXdgToken() bool         { return p.boundXdgToken }
func (p *Plan) ExtraFileCount() int         { return len(p.extraFiles) }
func (p *Plan) Setenv(name, value string)   { p.setenv(name, value) }
func (p *Plan) Unsetenv(name string)        { p.unsetenv(name) }
func (p *Plan) ResolveArgv() []string       { return p.resolveArgv() }
func (p *Plan) CloseFiles()                 { p.closeFiles() }
func (p *Plan) BindData(name string, contents []byte, dst string) error {
	return p.bindData(name, contents, dst)
}
func (p *Plan) File(name string, contents []byte, dst string) error {
	return p.file(name, contents, dst)
}
func (p *Plan) Add(args ...string) { p.add(args...) }

var (
	BindMode           = bindMode
	XdgUserDir         = xdgUserDir
	ResolveToken       = resolveToken
	LookupMode         = lookupMode
	SynthesizeUserDirs = synthesizeUserDirs
	ParseDisplayNumber = parseDisplayNumber
	BusAddressSocketPath = busAddressSocketPath
	BusRules           = busRules
	LangVars           = langVars
	DefaultResolver    = defaultResolver

	AddFilesystems     = addFilesystems
	AddPersistentPaths = addPersistentPaths
	AddDevices         = addDevices
	AddNetworkIPC      = addNetworkIPC
	AddEnvironment     = addEnvironment
	AddGraphicalSockets = addGraphicalSockets
	AddX11             = addX11
	AddWayland         = addWayland
	AddPulseAudio      = addPulseAudio
	AddBaseSkeleton    = addBaseSkeleton
	AddApplicationInfo = addApplicationInfo
	AddExtensions      = addExtensions
	AddMonitorPath     = addMonitorPath
)

const (
	SandboxDisplayNumber = sandboxDisplayNumber
	SessionSocketDst     = sessionSocketDst
	SystemSocketDst      = systemSocketDst
	MonitorDst           = monitorDst
)

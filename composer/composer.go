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

// Package composer turns a resolved application deployment and a
// merged permission policy into the argument vector and environment
// block for the unprivileged-container helper, then runs it.
package composer

import (
	"os"
	"os/exec"
	"strconv"

	"github.com/flatrun/flatrun/dbusproxy"
	"github.com/flatrun/flatrun/dirs"
	"github.com/flatrun/flatrun/errkinds"
	"github.com/flatrun/flatrun/logging"
	"github.com/flatrun/flatrun/osutil"
	"github.com/flatrun/flatrun/policy"
	"github.com/flatrun/flatrun/scope"
	"github.com/flatrun/flatrun/seccomp"
)

// AppDeployment describes the resolved, already-verified application
// installation the composer builds a sandbox for. Resolving a deploy
// name/ref to these paths is the installation-layout resolver's job
// (out of scope, see spec.md §1); the composer only consumes them.
type AppDeployment struct {
	AppID            string
	RuntimeRef       string
	FilesPath        string // read-only tree bound at /app
	RuntimeFilesPath string // read-only tree bound at /usr
	Extensions       []Extension
}

// Flags are the per-invocation behaviour switches of compose_and_run.
type Flags struct {
	Devel         bool
	Background    bool
	LogSessionBus bool
	LogSystemBus bool
}

// Result is returned by ComposeAndRun. When Flags.Background is set,
// Pid is the helper's pid and ComposeAndRun returns once it has been
// started (not once it exits); otherwise ComposeAndRun only returns on
// failure, since a successful foreground run replaces this process.
type Result struct {
	Pid int
}

// helperBinaryEnvVar overrides the container helper's path; the
// default mirrors the proxy's own XDG_APP_DBUSPROXY-style override
// convention from spec.md §6.
const helperBinaryEnvVar = "FLATRUN_HELPER"

const defaultHelperBinary = "/usr/bin/flatrun-helper"

func helperBinary() string {
	if path := os.Getenv(helperBinaryEnvVar); path != "" {
		return path
	}
	return defaultHelperBinary
}

// fdArg is a placeholder recorded in plan.argv wherever an argument
// needs to resolve to a just-in-time file descriptor number once
// every extra file has been collected, since os/exec only assigns fd
// numbers (3, 4, 5, …) once ExtraFiles is fixed up at Start/exec time.
type fdArg struct {
	file *os.File
}

// plan is the sandbox plan data model of spec.md §3: the ordered
// argument vector (with deferred fd arguments), the environment
// table, and every open file that must survive into the helper.
type plan struct {
	args []interface{} // string or fdArg
	env  map[string]string

	extraFiles []*os.File

	appID      string
	uid        int
	home       string
	identity   *osutil.InvokingIdentity
	xdgRuntime string

	boundXdgToken bool
	boundHome     bool
}

func newPlan(id *osutil.InvokingIdentity) *plan {
	return &plan{
		env:        map[string]string{},
		identity:   id,
		uid:        id.Uid,
		home:       id.Home,
		xdgRuntime: dirs.UserXdgRuntimeDir(id.Uid),
	}
}

func (p *plan) add(args ...string) {
	for _, a := range args {
		p.args = append(p.args, a)
	}
}

// addFile appends an fd-valued argument; f is adopted by the plan
// (its FD_CLOEXEC flag is cleared — nothing must survive into the
// helper except through this path).
func (p *plan) addFile(f *os.File) error {
	if err := osutil.ClearCloexec(f); err != nil {
		return err
	}
	p.extraFiles = append(p.extraFiles, f)
	p.args = append(p.args, fdArg{file: f})
	return nil
}

func (p *plan) bindData(name string, contents []byte, dst string) error {
	f, err := osutil.MemfdFile(name, contents)
	if err != nil {
		return &errkinds.ResourceError{Step: "create bind-data fd for " + dst, Err: err}
	}
	p.add("--bind-data")
	if err := p.addFile(f); err != nil {
		return &errkinds.ResourceError{Step: "prepare bind-data fd for " + dst, Err: err}
	}
	p.add(dst)
	return nil
}

func (p *plan) file(name string, contents []byte, dst string) error {
	f, err := osutil.MemfdFile(name, contents)
	if err != nil {
		return &errkinds.ResourceError{Step: "create file fd for " + dst, Err: err}
	}
	p.add("--file")
	if err := p.addFile(f); err != nil {
		return &errkinds.ResourceError{Step: "prepare file fd for " + dst, Err: err}
	}
	p.add(dst)
	return nil
}

func (p *plan) setenv(name, value string) {
	p.env[name] = value
	p.add("--setenv", name, value)
}

// unsetenv removes name from the sandbox environment, undoing any
// earlier setenv call for it: the container helper has no --unsetenv
// primitive, so the only way to keep a variable out of the sandbox is
// to strip its --setenv triple back out of argv before the helper
// ever sees it.
func (p *plan) unsetenv(name string) {
	delete(p.env, name)
	for i := 0; i+2 < len(p.args); i++ {
		flag, ok1 := p.args[i].(string)
		key, ok2 := p.args[i+1].(string)
		if ok1 && ok2 && flag == "--setenv" && key == name {
			p.args = append(p.args[:i], p.args[i+3:]...)
			i--
		}
	}
}

// resolveArgv replaces every fdArg placeholder with the final fd
// number it will have in the helper process, given that os/exec lists
// ExtraFiles starting at fd 3 in order.
func (p *plan) resolveArgv() []string {
	fdNum := map[*os.File]int{}
	next := 3
	for _, f := range p.extraFiles {
		fdNum[f] = next
		next++
	}
	out := make([]string, 0, len(p.args))
	for _, a := range p.args {
		switch v := a.(type) {
		case string:
			out = append(out, v)
		case fdArg:
			out = append(out, strconv.Itoa(fdNum[v.file]))
		}
	}
	return out
}

func (p *plan) closeFiles() {
	for _, f := range p.extraFiles {
		f.Close()
	}
}

// ComposeAndRun is the composer's public contract (spec.md §4.3):
// starts from an empty policy and merges extraPolicy onto it (no
// runtime or application metadata is loaded here, and AppDeployment
// carries no policy of its own), builds the complete helper
// invocation, registers the transient
// scope, spawns the configured D-Bus proxies, waits for their
// readiness, then runs the helper per flags.Background.
func ComposeAndRun(dep AppDeployment, extraPolicy *policy.Policy, customRuntimeRef string, flags Flags, customCommand string, argv []string) (*Result, error) {
	pol := policy.New()
	if extraPolicy != nil {
		pol.Merge(extraPolicy)
	}
	runtimeRef := dep.RuntimeRef
	if customRuntimeRef != "" {
		runtimeRef = customRuntimeRef
	}

	id, err := osutil.CurrentIdentity()
	if err != nil {
		return nil, &errkinds.EnvironmentError{Step: "resolve invoking identity", Reason: err.Error()}
	}

	p := newPlan(id)
	p.appID = dep.AppID
	defer p.closeFiles()
	logging.Debugf("composing sandbox for %s (runtime %s)", dep.AppID, runtimeRef)

	if err := addBaseSkeleton(p, dep, runtimeRef); err != nil {
		return nil, err
	}
	addNetworkIPC(p, pol, flags)
	addDevices(p, pol)
	if err := addFilesystems(p, pol); err != nil {
		return nil, err
	}
	if err := addPersistentPaths(p, pol, dep.AppID); err != nil {
		return nil, err
	}
	addGraphicalSockets(p)

	proxies := dbusproxy.NewSupervisor()
	defer proxies.Close()
	if err := addDBus(p, pol, proxies, flags); err != nil {
		return nil, err
	}

	addMonitorPath(p)
	addDocumentPortal(p, dep.AppID)
	addFontPaths(p)

	if err := addApplicationInfo(p, dep, runtimeRef, pol); err != nil {
		return nil, err
	}
	if err := addExtensions(p, dep, defaultResolver()); err != nil {
		return nil, err
	}

	seccompFile, err := seccomp.Build(seccomp.Options{Devel: flags.Devel})
	if err != nil {
		return nil, &errkinds.ResourceError{Step: "build seccomp filter", Err: err}
	}
	p.add("--seccomp")
	if err := p.addFile(seccompFile); err != nil {
		return nil, err
	}

	addEnvironment(p, pol, flags, dep)

	finalArgv, err := finalizeArgv(p, customCommand, argv)
	if err != nil {
		return nil, err
	}

	return execute(p, proxies, finalArgv, flags)
}

// execute implements the mandatory ordering guarantee: scope
// registration strictly happens-before any proxy spawn, so every
// proxy forks already inside the app's cgroup rather than inheriting
// whatever cgroup this process was in beforehand; every proxy's
// readiness byte in turn strictly happens-before the helper exec.
func execute(p *plan, proxies *dbusproxy.Supervisor, finalArgv []string, flags Flags) (*Result, error) {
	if _, err := scope.Register(p.appID, os.Getpid()); err != nil {
		proxies.Close()
		return nil, err
	}

	if err := proxies.SpawnAll(); err != nil {
		return nil, err
	}

	if err := proxies.AwaitReady(); err != nil {
		return nil, err
	}

	if readEnd := proxies.ReadEndFile(); readEnd != nil {
		p.add("--sync-fd")
		if err := p.addFile(readEnd); err != nil {
			return nil, err
		}
	}

	helper := helperBinary()
	argv := append([]string{helper}, p.resolveArgv()...)
	argv = append(argv, finalArgv...)

	if flags.Background {
		cmd := exec.Command(helper, argv[1:]...)
		cmd.ExtraFiles = p.extraFiles
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			return nil, &errkinds.ResourceError{Step: "start container helper", Err: err}
		}
		return &Result{Pid: cmd.Process.Pid}, nil
	}

	if err := execHelper(helper, argv, p.extraFiles, os.Environ()); err != nil {
		return nil, &errkinds.ResourceError{Step: "exec container helper", Err: err}
	}
	return &Result{}, nil
}

// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2016 Canonical Ltd
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

package policy

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mvo5/goconfigparser"
	"gopkg.in/yaml.v3"
)

const (
	groupContext        = "Context"
	groupSessionBus     = "Session Bus Policy"
	groupSystemBus      = "System Bus Policy"
	groupEnvironment    = "Environment"
	keyShared           = "shared"
	keySockets          = "sockets"
	keyDevices          = "devices"
	keyFilesystems      = "filesystems"
	keyPersistent       = "persistent"
)

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadMetadata parses a key-value document (groups Context, Session
// Bus Policy, System Bus Policy, Environment) from r and merges its
// contents into p, per spec.md §4.1 and §6.
func (p *Policy) LoadMetadata(r io.Reader) error {
	cfg := goconfigparser.New()
	if err := cfg.Parse(r); err != nil {
		return fmt.Errorf("cannot parse metadata document: %w", err)
	}

	if v, err := cfg.Get(groupContext, keyShared); err == nil {
		for _, tok := range splitList(v) {
			neg := strings.HasPrefix(tok, "!")
			name := strings.TrimPrefix(tok, "!")
			bit, perr := ParseShareName(name)
			if perr != nil {
				return perr
			}
			p.SetShare(bit, !neg)
		}
	}
	if v, err := cfg.Get(groupContext, keySockets); err == nil {
		for _, tok := range splitList(v) {
			neg := strings.HasPrefix(tok, "!")
			name := strings.TrimPrefix(tok, "!")
			bit, perr := ParseSocketName(name)
			if perr != nil {
				return perr
			}
			p.SetSocket(bit, !neg)
		}
	}
	if v, err := cfg.Get(groupContext, keyDevices); err == nil {
		for _, tok := range splitList(v) {
			neg := strings.HasPrefix(tok, "!")
			name := strings.TrimPrefix(tok, "!")
			bit, perr := ParseDeviceName(name)
			if perr != nil {
				return perr
			}
			p.SetDevice(bit, !neg)
		}
	}
	if v, err := cfg.Get(groupContext, keyFilesystems); err == nil {
		for _, tok := range splitList(v) {
			if strings.HasPrefix(tok, "!") {
				if perr := p.RemoveFilesystem(strings.TrimPrefix(tok, "!")); perr != nil {
					return perr
				}
				continue
			}
			if perr := p.AddFilesystem(tok); perr != nil {
				return perr
			}
		}
	}
	if v, err := cfg.Get(groupContext, keyPersistent); err == nil {
		for _, tok := range splitList(v) {
			if strings.HasPrefix(tok, "!") {
				delete(p.Persistent, strings.TrimPrefix(tok, "!"))
				continue
			}
			p.SetPersistent(tok)
		}
	}

	for _, name := range cfg.Options(groupSessionBus) {
		v, _ := cfg.Get(groupSessionBus, name)
		lvl, perr := ParseBusLevel(v)
		if perr != nil {
			return perr
		}
		if perr := p.SetSessionBusPolicy(name, lvl); perr != nil {
			return perr
		}
	}
	for _, name := range cfg.Options(groupSystemBus) {
		v, _ := cfg.Get(groupSystemBus, name)
		lvl, perr := ParseBusLevel(v)
		if perr != nil {
			return perr
		}
		if perr := p.SetSystemBusPolicy(name, lvl); perr != nil {
			return perr
		}
	}
	for _, name := range cfg.Options(groupEnvironment) {
		v, _ := cfg.Get(groupEnvironment, name)
		p.SetEnv(name, v)
	}

	return nil
}

// SaveMetadata writes p back out as a key-value document, emitting
// only fields present in the tri-state Valid masks (spec.md §4.1).
func (p *Policy) SaveMetadata(w io.Writer) error {
	cfg := goconfigparser.New()

	if shared := renderTriState(p.Shares, shareNames); shared != "" {
		cfg.Set(groupContext, keyShared, shared)
	}
	if sockets := renderTriState(p.Sockets, socketNames); sockets != "" {
		cfg.Set(groupContext, keySockets, sockets)
	}
	if devices := renderTriState(p.Devices, deviceNames); devices != "" {
		cfg.Set(groupContext, keyDevices, devices)
	}

	if entries := p.Filesystems.Entries(); len(entries) > 0 {
		toks := make([]string, 0, len(entries))
		for _, e := range entries {
			toks = append(toks, renderFsEntry(e))
		}
		cfg.Set(groupContext, keyFilesystems, strings.Join(toks, ","))
	}

	if len(p.Persistent) > 0 {
		paths := make([]string, 0, len(p.Persistent))
		for path := range p.Persistent {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		cfg.Set(groupContext, keyPersistent, strings.Join(paths, ","))
	}

	for name, lvl := range p.SessionBusPolicy {
		cfg.Set(groupSessionBus, name, lvl.String())
	}
	for name, lvl := range p.SystemBusPolicy {
		cfg.Set(groupSystemBus, name, lvl.String())
	}
	for name, val := range p.EnvVars {
		cfg.Set(groupEnvironment, name, val)
	}

	return cfg.Write(w)
}

func renderTriState(t TriState, names map[string]uint) string {
	// iterate names in a stable order so output is deterministic
	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	sort.Strings(keys)

	var parts []string
	for _, name := range keys {
		bit := names[name]
		if !t.IsSet(bit) {
			continue
		}
		if t.Get(bit) {
			parts = append(parts, name)
		} else {
			parts = append(parts, "!"+name)
		}
	}
	return strings.Join(parts, ",")
}

func renderFsEntry(e FsEntry) string {
	switch e.Mode {
	case FsReadOnly:
		return e.Token + ":ro"
	case FsSuppressed:
		return "!" + e.Token
	default:
		return e.Token
	}
}

// DumpYAML renders a devel-mode diagnostic snapshot of p. It is never
// parsed back in; it exists purely for --verbose/devel logging.
func (p *Policy) DumpYAML() ([]byte, error) {
	type dump struct {
		Shares      TriState          `yaml:"shares"`
		Sockets     TriState          `yaml:"sockets"`
		Devices     TriState          `yaml:"devices"`
		Audio       TriState          `yaml:"audio"`
		EnvVars     map[string]string `yaml:"env_vars,omitempty"`
		Persistent  []string          `yaml:"persistent,omitempty"`
		Filesystems []string          `yaml:"filesystems,omitempty"`
	}
	d := dump{Shares: p.Shares, Sockets: p.Sockets, Devices: p.Devices, Audio: p.Audio, EnvVars: p.EnvVars}
	for path := range p.Persistent {
		d.Persistent = append(d.Persistent, path)
	}
	sort.Strings(d.Persistent)
	for _, e := range p.Filesystems.Entries() {
		d.Filesystems = append(d.Filesystems, renderFsEntry(e))
	}
	return yaml.Marshal(d)
}

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

// Package x11auth reads, filters and re-encodes Xauthority files: the
// small, fixed record format the X11 client libraries use to store
// per-display magic-cookie credentials. There is no third-party
// decoder for it anywhere in reach, so this reimplements the wire
// format directly against encoding/binary — it is a handful of
// fixed-width fields, not a parser worth pulling a dependency in for.
package x11auth

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// FamilyLocal is the address family recorded for a local (Unix
// socket) display, per the Xauthority format's family field.
const FamilyLocal = 256

// Entry is one decoded Xauthority record.
type Entry struct {
	Family  uint16
	Address []byte
	Number  string
	Name    []byte
	Data    []byte
}

// Path returns the Xauthority file path the running process should
// read: $XAUTHORITY if set, otherwise $HOME/.Xauthority.
func Path() string {
	if p := os.Getenv("XAUTHORITY"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".Xauthority")
}

func readField(r io.Reader) ([]byte, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeField(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint16(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// ReadEntries decodes every record in the Xauthority file at path.
func ReadEntries(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open Xauthority %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	for {
		var family uint16
		if err := binary.Read(f, binary.BigEndian, &family); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("cannot read Xauthority record family: %w", err)
		}
		address, err := readField(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read Xauthority record address: %w", err)
		}
		number, err := readField(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read Xauthority record number: %w", err)
		}
		name, err := readField(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read Xauthority record name: %w", err)
		}
		data, err := readField(f)
		if err != nil {
			return nil, fmt.Errorf("cannot read Xauthority record data: %w", err)
		}
		entries = append(entries, Entry{
			Family:  family,
			Address: address,
			Number:  string(number),
			Name:    name,
			Data:    data,
		})
	}
	return entries, nil
}

// FilterLocal keeps only the entries matching FamilyLocal and
// hostname, and rewrites their display number to newNumber — the
// transform spec.md's Xauthority migration requires before handing
// the cookie to the sandbox under its fixed display number.
func FilterLocal(entries []Entry, hostname string, newNumber int) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Family != FamilyLocal {
			continue
		}
		if string(e.Address) != hostname {
			continue
		}
		e.Number = strconv.Itoa(newNumber)
		out = append(out, e)
	}
	return out
}

// Encode serialises entries back into Xauthority's on-disk format.
func Encode(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, e := range entries {
		binary.Write(&buf, binary.BigEndian, e.Family)
		writeField(&buf, e.Address)
		writeField(&buf, []byte(e.Number))
		writeField(&buf, e.Name)
		writeField(&buf, e.Data)
	}
	return buf.Bytes()
}

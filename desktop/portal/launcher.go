// -*- Mode: Go; indent-tabs-mode: t -*-

/*
 * Copyright (C) 2020-2021 Canonical Ltd
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

package portal

import (
	"fmt"
	"os"
	"time"

	"github.com/godbus/dbus"
)

const (
	desktopPortalBusName      = "org.freedesktop.portal.Desktop"
	desktopPortalObjectPath   = "/org/freedesktop/portal/desktop"
	desktopPortalOpenURIIface = "org.freedesktop.portal.OpenURI"
	desktopPortalRequestIface = "org.freedesktop.portal.Request"
)

var defaultPortalRequestTimeout = 10 * time.Second

// ResponseError is returned when a portal request completes but the
// user declined it, or when no response arrives before the request
// times out.
type ResponseError struct {
	msg string
}

func (e *ResponseError) Error() string { return e.msg }

// OpenFile asks the desktop portal's OpenURI interface to open path
// (a regular file or a directory) with the user's preferred
// application for its type, blocking until the user responds or
// defaultPortalRequestTimeout elapses.
func OpenFile(conn *dbus.Conn, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return unwrapPathError(err)
	}
	defer f.Close()

	return sendRequest(conn, func() (dbus.ObjectPath, *dbus.Error) {
		var requestPath dbus.ObjectPath
		err := conn.Object(desktopPortalBusName, dbus.ObjectPath(desktopPortalObjectPath)).Call(
			desktopPortalOpenURIIface+".OpenFile", 0,
			"", dbus.UnixFD(f.Fd()), map[string]dbus.Variant{}).Store(&requestPath)
		return requestPath, asDBusError(err)
	})
}

func unwrapPathError(err error) error {
	if pathErr, ok := err.(*os.PathError); ok {
		return pathErr.Err
	}
	return err
}

// OpenURI asks the desktop portal's OpenURI interface to open uri
// with the user's preferred handler, blocking until the user responds
// or defaultPortalRequestTimeout elapses.
func OpenURI(conn *dbus.Conn, uri string) error {
	return sendRequest(conn, func() (dbus.ObjectPath, *dbus.Error) {
		var requestPath dbus.ObjectPath
		err := conn.Object(desktopPortalBusName, dbus.ObjectPath(desktopPortalObjectPath)).Call(
			desktopPortalOpenURIIface+".OpenURI", 0,
			"", uri, map[string]dbus.Variant{}).Store(&requestPath)
		return requestPath, asDBusError(err)
	})
}

func asDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	if dbusErr, ok := err.(dbus.Error); ok {
		return &dbusErr
	}
	return &dbus.Error{Name: "", Body: []interface{}{err.Error()}}
}

// sendRequest subscribes to the portal Request interface's Response
// signal before issuing the call, since the response can in principle
// race the method's own return once the portal has acted on the
// request. It then waits for the signal whose path matches the
// request object the call reported, the call's own error, or a
// timeout.
func sendRequest(conn *dbus.Conn, call func() (dbus.ObjectPath, *dbus.Error)) error {
	signals := make(chan *dbus.Signal, 1)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", desktopPortalRequestIface)
	conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule)
	defer conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, matchRule)

	requestPath, dbusErr := call()
	if dbusErr != nil {
		return *dbusErr
	}

	timeout := time.NewTimer(defaultPortalRequestTimeout)
	defer timeout.Stop()
	for {
		select {
		case sig := <-signals:
			if sig.Path != requestPath || len(sig.Body) < 1 {
				continue
			}
			code, ok := sig.Body[0].(uint32)
			if !ok {
				continue
			}
			if code != 0 {
				return &ResponseError{msg: fmt.Sprintf("request declined by the user (code %d)", code)}
			}
			return nil
		case <-timeout.C:
			conn.Object(desktopPortalBusName, requestPath).Call(desktopPortalRequestIface+".Close", 0)
			return &ResponseError{msg: "timeout waiting for user response"}
		}
	}
}

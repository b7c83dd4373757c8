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

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/flatrun/flatrun/errkinds"
	"github.com/flatrun/flatrun/policy"
)

// addApplicationInfo serializes pol back to the key-value metadata
// format together with the resolved [Application] identity, and
// delivers it at the fixed xdg-app-info path every invocation exposes
// (spec.md §4.3 "Application info").
func addApplicationInfo(p *plan, dep AppDeployment, runtimeRef string, pol *policy.Policy) error {
	var buf bytes.Buffer
	if err := pol.SaveMetadata(&buf); err != nil {
		return &errkinds.ResourceError{Step: "serialize application info", Err: err}
	}
	fmt.Fprintf(&buf, "\n[Application]\nname=%s\nruntime=%s\napp-path=%s\n", dep.AppID, runtimeRef, dep.FilesPath)

	dst := filepath.Join(p.xdgRuntime, "xdg-app-info")
	return p.file("xdg-app-info", buf.Bytes(), dst)
}

// Extension describes one runtime or application extension declared
// by metadata, as resolved enough for the composer to locate and bind
// its deploy tree (spec.md §4.3 "Extensions").
type Extension struct {
	ID           string
	RuntimeRef   string
	AppExtension bool // true: bound under /app; false: bound under /usr
	Directory    string
}

// ExtensionResolver looks up the on-disk deploy path for ext. It is
// the external collaborator spec.md §1 places out of scope (the
// installation layout resolver); the composer only consumes it.
type ExtensionResolver interface {
	ResolveExtension(ext Extension) (deployPath string, err error)
}

// addExtensions binds every extension declared on dep at its
// prefix/dir location, locking each deploy tree against removal while
// the sandbox runs (spec.md §4.3 "Extensions").
func addExtensions(p *plan, dep AppDeployment, resolver ExtensionResolver) error {
	for _, ext := range dep.Extensions {
		deploy, err := resolver.ResolveExtension(ext)
		if err != nil {
			return &errkinds.ResourceError{Step: "resolve extension " + ext.ID, Err: err}
		}
		prefix := "/usr"
		if ext.AppExtension {
			prefix = "/app"
		}
		dst := filepath.Join(prefix, ext.Directory)
		p.add("--bind", filepath.Join(deploy, "files"), dst)
		p.add("--lock-file", filepath.Join(dst, ".ref"))
	}
	return nil
}

// BoltExtensionResolver wraps another ExtensionResolver with a small
// on-disk cache keyed by extension id + runtime ref, so repeated
// compositions of the same application do not re-invoke the external
// resolver for an extension whose deploy path has not changed.
type BoltExtensionResolver struct {
	Inner ExtensionResolver
	DB    *bbolt.DB
}

var extensionCacheBucket = []byte("extension-deploy-paths")

// OpenBoltExtensionResolver opens (creating if needed) a bbolt
// database at path and wraps inner with its cache.
func OpenBoltExtensionResolver(path string, inner ExtensionResolver) (*BoltExtensionResolver, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("cannot open extension cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(extensionCacheBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot initialise extension cache: %w", err)
	}
	return &BoltExtensionResolver{Inner: inner, DB: db}, nil
}

func extensionCacheKey(ext Extension) []byte {
	return []byte(ext.ID + "@" + ext.RuntimeRef)
}

// ResolveExtension returns the cached deploy path for ext if one was
// recorded, otherwise consults Inner and stores the result.
func (r *BoltExtensionResolver) ResolveExtension(ext Extension) (string, error) {
	key := extensionCacheKey(ext)

	var cached string
	err := r.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(extensionCacheBucket)
		if v := b.Get(key); v != nil {
			cached = string(v)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cannot read extension cache: %w", err)
	}
	if cached != "" {
		return cached, nil
	}

	deploy, err := r.Inner.ResolveExtension(ext)
	if err != nil {
		return "", err
	}

	if err := r.DB.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(extensionCacheBucket).Put(key, []byte(deploy))
	}); err != nil {
		return "", fmt.Errorf("cannot write extension cache: %w", err)
	}
	return deploy, nil
}

// Close releases the underlying bbolt database.
func (r *BoltExtensionResolver) Close() error {
	return r.DB.Close()
}

// noExtensionsResolver is defaultResolver's implementation: it has no
// external resolver behind it and rejects every extension it is asked
// about.
type noExtensionsResolver struct{}

func (noExtensionsResolver) ResolveExtension(ext Extension) (string, error) {
	return "", fmt.Errorf("no extension resolver configured for %s", ext.ID)
}

// defaultResolver is the resolver ComposeAndRun always uses (it takes
// no resolver argument); it fails any non-empty extension list with a
// clear error rather than silently skipping extensions.
func defaultResolver() ExtensionResolver {
	return noExtensionsResolver{}
}

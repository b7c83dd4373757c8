// -*- Mode: Go; indent-tabs-mode: t -*-

package osutil_test

import (
	"io"

	. "gopkg.in/check.v1"

	"github.com/flatrun/flatrun/osutil"
)

type fdsSuite struct{}

var _ = Suite(&fdsSuite{})

func (s *fdsSuite) TestMemfdFileRoundtrips(c *C) {
	f, err := osutil.MemfdFile("passwd", []byte("alice:x:1000:1000::/home/alice:/bin/sh\n"))
	c.Assert(err, IsNil)
	defer f.Close()

	data, err := io.ReadAll(f)
	c.Assert(err, IsNil)
	c.Check(string(data), Equals, "alice:x:1000:1000::/home/alice:/bin/sh\n")
}

func (s *fdsSuite) TestClearAndSetCloexec(c *C) {
	f, err := osutil.MemfdFile("args", []byte("--foo\x00"))
	c.Assert(err, IsNil)
	defer f.Close()

	c.Assert(osutil.ClearCloexec(f), IsNil)
	c.Assert(osutil.SetCloexec(f), IsNil)
}

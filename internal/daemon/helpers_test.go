// Copyright 2026 RomFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package daemon

import (
	"archive/tar"
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"romfs/internal/device"
	"romfs/internal/mount"
)

var testMtime = time.Unix(1700000000, 0)

type testMember struct {
	name string
	body string
	dir  bool
}

var testMembers = []testMember{
	{name: "docs/", dir: true},
	{name: "docs/readme.txt", body: "read me\n"},
	{name: "docs/deep/leaf.txt", body: "leaf"},
	{name: "hello.txt", body: "Hello World!\n"},
}

func buildTestArchive(t *testing.T, members []testMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.name,
			Typeflag: tar.TypeReg,
			Size:     int64(len(m.body)),
			Mode:     0o444,
			ModTime:  testMtime,
			Format:   tar.FormatUSTAR,
		}
		if m.dir {
			hdr.Typeflag = tar.TypeDir
			hdr.Size = 0
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !m.dir {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// newTestController returns a mounted controller on its own device table.
func newTestController(t *testing.T) *mount.Controller {
	t.Helper()
	logger, _ := test.NewNullLogger()
	c := mount.New(buildTestArchive(t, testMembers), device.NewTable(), mount.WithLogger(logger))
	require.NoError(t, c.Mount())
	t.Cleanup(func() {
		if c.Mounted() {
			_ = c.Unmount()
		}
	})
	return c
}

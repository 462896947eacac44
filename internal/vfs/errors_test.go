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

package vfs

import (
	"errors"
	"io/fs"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMappings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"ENOENT", ENOENT, syscall.ENOENT},
		{"EEXIST", EEXIST, syscall.EEXIST},
		{"ENOTDIR", ENOTDIR, syscall.ENOTDIR},
		{"EISDIR", EISDIR, syscall.EISDIR},
		{"EBADF", EBADF, syscall.EBADF},
		{"EINVAL", EINVAL, syscall.EINVAL},
		{"ENOTSUP", ENOTSUP, syscall.ENOTSUP},
		{"EIO", EIO, syscall.EIO},
		{"EROFS", EROFS, syscall.EROFS},
		{"EOVERFLOW", EOVERFLOW, syscall.EOVERFLOW},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err, "%s should map to syscall.%s", tt.name, tt.name)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// Errno values satisfy the io/fs sentinels, so callers outside the package
// can test categories without importing syscall.
func TestErrorsMatchFSSentinels(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.Is(ENOENT, fs.ErrNotExist))
	assert.True(t, errors.Is(EEXIST, fs.ErrExist))
	assert.True(t, errors.Is(ENOTSUP, errors.ErrUnsupported))
	assert.False(t, errors.Is(EROFS, fs.ErrNotExist))
}

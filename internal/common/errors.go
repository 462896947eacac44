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

package common

import "errors"

var (
	ErrNotMounted     = errors.New("romfs not mounted")
	ErrUnknownExport  = errors.New("unknown export type")
	ErrAlreadyServing = errors.New("another instance is already serving this share")
	ErrInvalidPath    = errors.New("invalid path")
	ErrIsDir          = errors.New("is a directory")
	ErrUnsupported    = errors.New("not supported in this build")
)

// Copyright 2026 The Micromegas Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package objstore

import (
	"strconv"
	"strings"
)

func formatBeginTime(beginTimeNs int64) string {
	return strconv.FormatInt(beginTimeNs, 10)
}

func formatSchemaHash(hash []uint32) string {
	parts := make([]string, len(hash))
	for i, h := range hash {
		parts[i] = strconv.FormatUint(uint64(h), 10)
	}
	return strings.Join(parts, "-")
}

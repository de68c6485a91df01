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

package props

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/pkg/errors"

	"github.com/micromegas-db/micromegas/internal/errs"
)

// StringAccessor is the single read-only interface the query engine's UDFs
// and projections use to read a UTF-8 column, whether it is a plain
// *array.String or a dictionary-encoded one. Factories (NewStringAccessor)
// choose the concrete implementation from the Arrow array's runtime type so
// callers never branch on encoding themselves.
type StringAccessor interface {
	Value(i int) string
	IsNull(i int) bool
	Len() int
}

// NewStringAccessor wraps arr, dispatching on its concrete type.
func NewStringAccessor(arr arrow.Array) (StringAccessor, error) {
	switch typed := arr.(type) {
	case *array.String:
		return plainStringAccessor{typed}, nil
	case *array.Dictionary:
		values, ok := typed.Dictionary().(*array.String)
		if !ok {
			return nil, errors.Wrapf(errs.ErrTypeMismatch, "dictionary value type %s is not string", typed.Dictionary().DataType())
		}
		return dictStringAccessor{dict: typed, values: values}, nil
	default:
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "column type %s is not a string column", arr.DataType())
	}
}

type plainStringAccessor struct {
	arr *array.String
}

func (a plainStringAccessor) Value(i int) string { return a.arr.Value(i) }
func (a plainStringAccessor) IsNull(i int) bool  { return a.arr.IsNull(i) }
func (a plainStringAccessor) Len() int           { return a.arr.Len() }

type dictStringAccessor struct {
	dict   *array.Dictionary
	values *array.String
}

func (a dictStringAccessor) Value(i int) string {
	return a.values.Value(a.dict.GetValueIndex(i))
}

func (a dictStringAccessor) IsNull(i int) bool { return a.dict.IsNull(i) }
func (a dictStringAccessor) Len() int          { return a.dict.Len() }

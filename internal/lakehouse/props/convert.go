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

// DocAt extracts row i of a properties column, accepting any of the four
// equivalent input encodings producers may use: List<Struct{key,value}>,
// Dictionary<i32, List<Struct>>, Binary (JSONB), or the canonical
// Dictionary<i32, Binary> (JSONB). PropertyGet and the other accessors
// are built on it, so every lookup materializes the row's full Doc.
func DocAt(col arrow.Array, i int) (*Doc, error) {
	if col.IsNull(i) {
		return &Doc{}, nil
	}

	switch typed := col.(type) {
	case *array.Dictionary:
		return docFromDictionary(typed, i)
	case *array.Binary:
		return DecodeJSONB(typed.Value(i))
	case *array.List:
		return docFromListStruct(typed, i)
	default:
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "unsupported properties column type %s", col.DataType())
	}
}

func docFromDictionary(dict *array.Dictionary, row int) (*Doc, error) {
	idx := dict.GetValueIndex(row)
	values := dict.Dictionary()

	switch dv := values.(type) {
	case *array.Binary:
		return DecodeJSONB(dv.Value(idx))
	case *array.List:
		return docFromListStructRow(dv, idx)
	default:
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "unsupported dictionary value type %s", values.DataType())
	}
}

func docFromListStruct(list *array.List, row int) (*Doc, error) {
	return docFromListStructRow(list, row)
}

func docFromListStructRow(list *array.List, row int) (*Doc, error) {
	start, end := list.ValueOffsets(row)
	structArr, ok := list.ListValues().(*array.Struct)
	if !ok {
		return nil, errors.Wrapf(errs.ErrTypeMismatch, "expected Struct child, got %s", list.ListValues().DataType())
	}

	keyField, valueField, err := structKeyValueFields(structArr)
	if err != nil {
		return nil, err
	}

	keyArr, ok := keyField.(*array.String)
	if !ok {
		return nil, errors.Wrap(errs.ErrTypeMismatch, "struct key field is not a string column")
	}
	valueArr, ok := valueField.(*array.String)
	if !ok {
		return nil, errors.Wrap(errs.ErrTypeMismatch, "struct value field is not a string column")
	}

	pairs := make([]Pair, 0, end-start)
	for j := start; j < end; j++ {
		pairs = append(pairs, Pair{Key: keyArr.Value(int(j)), Value: valueArr.Value(int(j))})
	}

	// Route through the canonical encoder so Doc's lookup semantics
	// (sorted, last-key-wins) are identical regardless of source encoding.
	return DecodeJSONB(EncodeJSONB(pairs))
}

func structKeyValueFields(s *array.Struct) (key, value arrow.Array, err error) {
	dt := s.DataType().(*arrow.StructType)
	for i, f := range dt.Fields() {
		switch f.Name {
		case "key":
			key = s.Field(i)
		case "value":
			value = s.Field(i)
		}
	}
	if key == nil || value == nil {
		return nil, nil, errors.Wrap(errs.ErrSchemaMismatch, "struct properties column missing key/value fields")
	}
	return key, value, nil
}

// PropertyGet implements the property_get(props, key) UDF: returns the
// value for key across all four input encodings, or "" if absent.
func PropertyGet(col arrow.Array, row int, key string) (string, error) {
	doc, err := DocAt(col, row)
	if err != nil {
		return "", err
	}
	v, _ := doc.Get(key)
	return v, nil
}

// PropertiesLength implements the properties_length(props) UDF.
func PropertiesLength(col arrow.Array, row int) (int, error) {
	doc, err := DocAt(col, row)
	if err != nil {
		return 0, err
	}
	return doc.Len(), nil
}

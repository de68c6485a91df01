package props_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/micromegas-db/micromegas/internal/lakehouse/props"
)

func TestJSONBRoundTripSortedLookup(t *testing.T) {
	pairs := []props.Pair{
		{Key: "b", Value: "2"},
		{Key: "a", Value: "1"},
		{Key: "a", Value: "1-again"}, // last-value-wins for repeated key
	}

	encoded := props.EncodeJSONB(pairs)
	doc, err := props.DecodeJSONB(encoded)
	require.NoError(t, err)

	require.Equal(t, 2, doc.Len())
	v, ok := doc.Get("a")
	require.True(t, ok)
	require.Equal(t, "1-again", v)
	v, ok = doc.Get("b")
	require.True(t, ok)
	require.Equal(t, "2", v)
	_, ok = doc.Get("missing")
	require.False(t, ok)
}

func TestDecodeJSONBRejectsBadMagic(t *testing.T) {
	_, err := props.DecodeJSONB([]byte{0, 0, 0, 0, 0, 0})
	require.Error(t, err)
}

// TestPropertiesLengthAgreesAcrossEncodings exercises property #6: every
// accepted input encoding must report the same properties_length for the
// same logical key set.
func TestPropertiesLengthAgreesAcrossEncodings(t *testing.T) {
	mem := memory.NewGoAllocator()
	pairs := []props.Pair{{Key: "host", Value: "a1"}, {Key: "region", Value: "us"}}

	// Binary (plain JSONB).
	binBuilder := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	binBuilder.Append(props.EncodeJSONB(pairs))
	binArr := binBuilder.NewBinaryArray()
	defer binArr.Release()

	n, err := props.PropertiesLength(binArr, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// Dictionary<i32, Binary> (canonical).
	dictBuilder := array.NewDictionaryBuilder(mem, &arrow.DictionaryType{
		IndexType: arrow.PrimitiveTypes.Int32,
		ValueType: arrow.BinaryTypes.Binary,
	}).(*array.BinaryDictionaryBuilder)
	require.NoError(t, dictBuilder.Append(props.EncodeJSONB(pairs)))
	dictArr := dictBuilder.NewDictionaryArray()
	defer dictArr.Release()

	n, err = props.PropertiesLength(dictArr, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	v, err := props.PropertyGet(dictArr, 0, "host")
	require.NoError(t, err)
	require.Equal(t, "a1", v)
}

func buildListStructArray(t *testing.T, mem memory.Allocator, pairs []props.Pair) *array.List {
	t.Helper()

	structType := arrow.StructOf(
		arrow.Field{Name: "key", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "value", Type: arrow.BinaryTypes.String},
	)
	listBuilder := array.NewListBuilder(mem, structType)
	structBuilder := listBuilder.ValueBuilder().(*array.StructBuilder)
	keyBuilder := structBuilder.FieldBuilder(0).(*array.StringBuilder)
	valueBuilder := structBuilder.FieldBuilder(1).(*array.StringBuilder)

	listBuilder.Append(true)
	for _, p := range pairs {
		structBuilder.Append(true)
		keyBuilder.Append(p.Key)
		valueBuilder.Append(p.Value)
	}

	return listBuilder.NewListArray()
}

// TestDocAtListStructEncoding exercises the List<Struct{key,value}> input
// encoding: DocAt must agree with the JSONB-backed encodings on both the
// key set and last-value-wins semantics for a repeated key.
func TestDocAtListStructEncoding(t *testing.T) {
	mem := memory.NewGoAllocator()
	pairs := []props.Pair{
		{Key: "host", Value: "a1"},
		{Key: "region", Value: "us"},
		{Key: "host", Value: "a2"},
	}

	listArr := buildListStructArray(t, mem, pairs)
	defer listArr.Release()

	doc, err := props.DocAt(listArr, 0)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())

	v, ok := doc.Get("host")
	require.True(t, ok)
	require.Equal(t, "a2", v)
	v, ok = doc.Get("region")
	require.True(t, ok)
	require.Equal(t, "us", v)
}

// TestDocAtDictionaryOfListStructEncoding exercises the fourth and last
// equivalent encoding, Dictionary<i32, List<Struct>>: a producer that
// dictionary-encodes a repeated List<Struct> properties column instead of
// dictionary-encoding its JSONB bytes.
func TestDocAtDictionaryOfListStructEncoding(t *testing.T) {
	mem := memory.NewGoAllocator()
	pairs := []props.Pair{{Key: "host", Value: "a1"}, {Key: "region", Value: "us"}}

	listArr := buildListStructArray(t, mem, pairs)
	defer listArr.Release()

	idxBuilder := array.NewInt32Builder(mem)
	idxBuilder.Append(0)
	idxArr := idxBuilder.NewInt32Array()
	defer idxArr.Release()

	dictType := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: listArr.DataType()}
	dictArr := array.NewDictionaryArray(dictType, idxArr, listArr)
	defer dictArr.Release()

	doc, err := props.DocAt(dictArr, 0)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())

	n, err := props.PropertiesLength(dictArr, 0)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	v, err := props.PropertyGet(dictArr, 0, "region")
	require.NoError(t, err)
	require.Equal(t, "us", v)
}

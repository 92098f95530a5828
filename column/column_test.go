package column_test

import (
	"bytes"
	"net/netip"
	"testing"

	"github.com/mickamy/chnative/chtype"
	"github.com/mickamy/chnative/chvalue"
	"github.com/mickamy/chnative/column"
	"github.com/mickamy/chnative/wire"
)

func roundTrip(t *testing.T, typ *chtype.Type, values []chvalue.Value) []chvalue.Value {
	t.Helper()
	var buf bytes.Buffer
	if err := column.SerializePrefix(typ, &buf); err != nil {
		t.Fatalf("SerializePrefix: %v", err)
	}
	if err := column.SerializeColumn(typ, values, &buf); err != nil {
		t.Fatalf("SerializeColumn: %v", err)
	}
	if err := column.DeserializePrefix(typ, &buf); err != nil {
		t.Fatalf("DeserializePrefix: %v", err)
	}
	got, err := column.DeserializeColumn(typ, uint64(len(values)), &buf)
	if err != nil {
		t.Fatalf("DeserializeColumn: %v", err)
	}
	if len(got) != len(values) {
		t.Fatalf("got %d values, want %d", len(got), len(values))
	}
	return got
}

func TestSizedRoundTrip(t *testing.T) {
	values := []chvalue.Value{chvalue.Int32(-7), chvalue.Int32(0), chvalue.Int32(1 << 20)}
	got := roundTrip(t, chtype.Int32, values)
	for i, v := range got {
		if v.String() != values[i].String() {
			t.Errorf("row %d: got %s, want %s", i, v.String(), values[i].String())
		}
	}
}

func TestFloat64NaN(t *testing.T) {
	values := []chvalue.Value{chvalue.Float64(3.5), chvalue.Float64(nanFloat())}
	got := roundTrip(t, chtype.Float64, values)
	if got[0].(chvalue.Float64) != 3.5 {
		t.Fatalf("got %v, want 3.5", got[0])
	}
	f := float64(got[1].(chvalue.Float64))
	if f == f {
		t.Fatalf("expected NaN to survive the round trip, got %v", f)
	}
}

func nanFloat() float64 {
	var zero float64
	return zero / zero
}

func TestDecimal256RoundTrip(t *testing.T) {
	var mantissa chvalue.Int256
	mantissa[31] = 0xD2 // low byte = 210, so "2.10" at scale 2
	values := []chvalue.Value{
		chvalue.Decimal256{Scale: 2, Mantissa: mantissa},
		chvalue.Decimal256{Scale: 2, Mantissa: chvalue.Int256{}},
	}
	got := roundTrip(t, chtype.Decimal256(2), values)
	if got[0].String() != "2.10" {
		t.Errorf("row 0: got %s, want 2.10", got[0].String())
	}
	if got[1].String() != values[1].String() {
		t.Errorf("row 1: got %s, want %s", got[1].String(), values[1].String())
	}
}

func TestStringRoundTrip(t *testing.T) {
	values := []chvalue.Value{chvalue.String("hello"), chvalue.String(""), chvalue.String("\x00\x01")}
	got := roundTrip(t, chtype.String, values)
	for i, v := range got {
		if !bytes.Equal([]byte(v.(chvalue.String)), []byte(values[i].(chvalue.String))) {
			t.Errorf("row %d: got %q, want %q", i, v, values[i])
		}
	}
}

func TestFixedStringPadsAndTrims(t *testing.T) {
	typ := chtype.FixedString(8)
	values := []chvalue.Value{chvalue.String("hi")}
	got := roundTrip(t, typ, values)
	if string(got[0].(chvalue.String)) != "hi" {
		t.Fatalf("got %q, want %q (trailing NULs stripped)", got[0], "hi")
	}
}

func TestArrayRoundTrip(t *testing.T) {
	typ := chtype.Array(chtype.Int32)
	values := []chvalue.Value{
		chvalue.Array{chvalue.Int32(1), chvalue.Int32(2)},
		chvalue.Array{},
		chvalue.Array{chvalue.Int32(3)},
	}
	got := roundTrip(t, typ, values)
	for i, v := range got {
		if v.String() != values[i].String() {
			t.Errorf("row %d: got %s, want %s", i, v.String(), values[i].String())
		}
	}
}

func TestNestedArrayRoundTrip(t *testing.T) {
	typ := chtype.Array(chtype.Array(chtype.String))
	values := []chvalue.Value{
		chvalue.Array{
			chvalue.Array{chvalue.String("a"), chvalue.String("b")},
			chvalue.Array{},
		},
	}
	got := roundTrip(t, typ, values)
	if got[0].String() != values[0].String() {
		t.Fatalf("got %s, want %s", got[0].String(), values[0].String())
	}
}

func TestNullableRoundTrip(t *testing.T) {
	typ := chtype.Nullable(chtype.Int32)
	values := []chvalue.Value{chvalue.Int32(42), chvalue.Null, chvalue.Int32(-1)}
	got := roundTrip(t, typ, values)
	if !chvalue.IsNull(got[1]) {
		t.Fatalf("row 1: expected Null, got %v", got[1])
	}
	if got[0].String() != "42" || got[2].String() != "-1" {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestTupleRoundTrip(t *testing.T) {
	typ := chtype.Tuple(chtype.Int32, chtype.String)
	values := []chvalue.Value{
		chvalue.Tuple{chvalue.Int32(1), chvalue.String("x")},
		chvalue.Tuple{chvalue.Int32(2), chvalue.String("y")},
	}
	got := roundTrip(t, typ, values)
	for i, v := range got {
		if v.String() != values[i].String() {
			t.Errorf("row %d: got %s, want %s", i, v.String(), values[i].String())
		}
	}
}

func TestMapRoundTrip(t *testing.T) {
	typ := chtype.Map(chtype.String, chtype.Int32)
	values := []chvalue.Value{
		chvalue.Map{Keys: []chvalue.Value{chvalue.String("a"), chvalue.String("b")}, Values: []chvalue.Value{chvalue.Int32(1), chvalue.Int32(2)}},
		chvalue.Map{},
	}
	got := roundTrip(t, typ, values)
	for i, v := range got {
		if v.String() != values[i].String() {
			t.Errorf("row %d: got %s, want %s", i, v.String(), values[i].String())
		}
	}
}

func TestLowCardinalityRoundTrip(t *testing.T) {
	typ := chtype.LowCardinality(chtype.String)
	values := []chvalue.Value{
		chvalue.String("a"), chvalue.String("b"), chvalue.String("a"), chvalue.String("c"),
	}
	got := roundTrip(t, typ, values)
	for i, v := range got {
		if v.String() != values[i].String() {
			t.Errorf("row %d: got %s, want %s", i, v.String(), values[i].String())
		}
	}
}

func TestLowCardinalityNullableRoundTrip(t *testing.T) {
	typ := chtype.LowCardinality(chtype.Nullable(chtype.String))
	values := []chvalue.Value{chvalue.String("a"), chvalue.Null, chvalue.String("a")}
	got := roundTrip(t, typ, values)
	if !chvalue.IsNull(got[1]) {
		t.Fatalf("row 1: expected Null, got %v", got[1])
	}
	if got[0].String() != "'a'" || got[2].String() != "'a'" {
		t.Fatalf("unexpected values: %v", got)
	}
}

// TestLowCardinalityMultiChunkGlobalDictionary hand-builds a two-chunk
// "shared dictionaries with additional keys" stream the way a real server
// sends one: the first chunk carries NEED_GLOBAL_DICTIONARY and the
// dictionary bytes, the second chunk sets NEED_GLOBAL_DICTIONARY again but
// omits NEED_UPDATE_DICTIONARY, so it must resolve its indices against the
// dictionary read by the first chunk rather than expecting it resent.
func TestLowCardinalityMultiChunkGlobalDictionary(t *testing.T) {
	const lcNeedGlobalDictionaryBit = 1 << 8
	typ := chtype.LowCardinality(chtype.String)

	var buf bytes.Buffer
	if err := column.SerializePrefix(typ, &buf); err != nil {
		t.Fatalf("SerializePrefix: %v", err)
	}

	// Chunk 1: 2 rows, carries the global dictionary ["x", "y"].
	if err := wire.WriteU64(&buf, lcNeedGlobalDictionaryBit); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 2); err != nil {
		t.Fatal(err)
	}
	if err := column.SerializeColumn(chtype.String, []chvalue.Value{chvalue.String("x"), chvalue.String("y")}, &buf); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 2); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU8(&buf, 0); err != nil { // x
		t.Fatal(err)
	}
	if err := wire.WriteU8(&buf, 1); err != nil { // y
		t.Fatal(err)
	}

	// Chunk 2: 3 rows, NEED_GLOBAL_DICTIONARY but no NEED_UPDATE_DICTIONARY
	// and no dictionary bytes at all — must reuse chunk 1's dictionary.
	if err := wire.WriteU64(&buf, lcNeedGlobalDictionaryBit); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 3); err != nil {
		t.Fatal(err)
	}
	for _, idx := range []uint8{1, 0, 1} { // y, x, y
		if err := wire.WriteU8(&buf, idx); err != nil {
			t.Fatal(err)
		}
	}

	if err := column.DeserializePrefix(typ, &buf); err != nil {
		t.Fatalf("DeserializePrefix: %v", err)
	}
	got, err := column.DeserializeColumn(typ, 5, &buf)
	if err != nil {
		t.Fatalf("DeserializeColumn: %v", err)
	}
	want := []string{"'x'", "'y'", "'y'", "'x'", "'y'"}
	if len(got) != len(want) {
		t.Fatalf("got %d values, want %d", len(got), len(want))
	}
	for i, v := range got {
		if v.String() != want[i] {
			t.Errorf("row %d: got %s, want %s", i, v.String(), want[i])
		}
	}
}

// TestLowCardinalityGlobalDictionaryPlusAdditionalKeys covers the combined
// branch, where a chunk carries both NEED_GLOBAL_DICTIONARY and
// HAS_ADDITIONAL_KEYS: indices below the additional-keys count resolve
// there, and the remainder index into the global dictionary.
func TestLowCardinalityGlobalDictionaryPlusAdditionalKeys(t *testing.T) {
	const (
		lcNeedGlobalDictionaryBit = 1 << 8
		lcHasAdditionalKeysBit    = 1 << 9
	)
	typ := chtype.LowCardinality(chtype.String)

	var buf bytes.Buffer
	if err := column.SerializePrefix(typ, &buf); err != nil {
		t.Fatalf("SerializePrefix: %v", err)
	}

	if err := wire.WriteU64(&buf, lcNeedGlobalDictionaryBit|lcHasAdditionalKeysBit); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 2); err != nil {
		t.Fatal(err)
	}
	if err := column.SerializeColumn(chtype.String, []chvalue.Value{chvalue.String("g0"), chvalue.String("g1")}, &buf); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 2); err != nil {
		t.Fatal(err)
	}
	if err := column.SerializeColumn(chtype.String, []chvalue.Value{chvalue.String("k0"), chvalue.String("k1")}, &buf); err != nil {
		t.Fatal(err)
	}
	if err := wire.WriteU64(&buf, 3); err != nil {
		t.Fatal(err)
	}
	for _, idx := range []uint8{0, 2, 3} { // k0, g0 (2-2=0), g1 (3-2=1)
		if err := wire.WriteU8(&buf, idx); err != nil {
			t.Fatal(err)
		}
	}

	if err := column.DeserializePrefix(typ, &buf); err != nil {
		t.Fatalf("DeserializePrefix: %v", err)
	}
	got, err := column.DeserializeColumn(typ, 3, &buf)
	if err != nil {
		t.Fatalf("DeserializeColumn: %v", err)
	}
	want := []string{"'k0'", "'g0'", "'g1'"}
	for i, v := range got {
		if v.String() != want[i] {
			t.Errorf("row %d: got %s, want %s", i, v.String(), want[i])
		}
	}
}

func TestIpv4RoundTrip(t *testing.T) {
	addr := netip.MustParseAddr("192.168.1.1")
	values := []chvalue.Value{chvalue.Ipv4(addr)}
	got := roundTrip(t, chtype.Ipv4, values)
	gotAddr := netip.Addr(got[0].(chvalue.Ipv4))
	if gotAddr != addr {
		t.Fatalf("got %s, want %s", gotAddr, addr)
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	values := []chvalue.Value{chvalue.UUID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}}
	got := roundTrip(t, chtype.UUID, values)
	if got[0].String() != values[0].String() {
		t.Fatalf("got %s, want %s", got[0].String(), values[0].String())
	}
}

func TestGuessType(t *testing.T) {
	cases := []struct {
		v    chvalue.Value
		want string
	}{
		{chvalue.Int32(1), "Int32"},
		{chvalue.String("x"), "String"},
		{chvalue.Array{chvalue.Int32(1)}, "Array(Int32)"},
	}
	for _, c := range cases {
		got := column.Guess(c.v)
		if got.String() != c.want {
			t.Errorf("Guess(%v) = %s, want %s", c.v, got.String(), c.want)
		}
	}
}

func TestValidateValueRejectsArityMismatch(t *testing.T) {
	typ := chtype.Tuple(chtype.Int32, chtype.String)
	err := column.ValidateValue(typ, chvalue.Tuple{chvalue.Int32(1)})
	if err == nil {
		t.Fatal("expected an error for a short tuple")
	}
}

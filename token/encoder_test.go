package token

import (
	"strings"
	"testing"
)

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	d, _ := NewDigester("sha512")
	rec := &Record{
		Digest:    d.Sum("plaintext"),
		LookupKey: "abcdefghij01234",
		Owner:     "user-1",
		Created:   1700000000,
		Expiry:    1700036000,
	}

	data, err := EncodeRecord(rec)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *rec {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, rec)
	}
}

func TestRecordEncodeRejectsBadLengths(t *testing.T) {
	if _, err := EncodeRecord(&Record{Digest: "short", LookupKey: "abcdefghij01234"}); err == nil {
		t.Fatal("expected digest length error")
	}
	d, _ := NewDigester("sha512")
	if _, err := EncodeRecord(&Record{Digest: d.Sum("x"), LookupKey: "short"}); err == nil {
		t.Fatal("expected lookup key length error")
	}
}

func TestDecodeRecordRejectsCorruptInput(t *testing.T) {
	if _, err := DecodeRecord(nil); err == nil {
		t.Fatal("expected error for empty blob")
	}
	if _, err := DecodeRecord([]byte{99, 1, 2, 3}); err == nil {
		t.Fatal("expected error for unknown version")
	}
	if _, err := DecodeRecord([]byte{recordFormatVersionCurrent, 1, 2}); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}

func TestFamilyMemberEncodeDecodeRoundTrip(t *testing.T) {
	m := &FamilyMember{
		Parent:     "parent-key-0000",
		TokenKey:   "token-key-00000",
		RefreshKey: "refresh-key-000",
		Owner:      "user-1",
		Created:    1700000000123456789,
	}

	data, err := EncodeFamilyMember(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeFamilyMember(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *m {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestEncodeRejectsOversizeField(t *testing.T) {
	m := &FamilyMember{
		Parent: strings.Repeat("x", 256),
	}
	if _, err := EncodeFamilyMember(m); err == nil {
		t.Fatal("expected error for oversize parent field")
	}
}

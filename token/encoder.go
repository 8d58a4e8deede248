package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	recordFormatVersionCurrent = 1
	familyFormatVersionCurrent = 1
)

func writeString(buf *bytes.Buffer, s string, field string) error {
	if len(s) > 255 {
		return errors.New(field + " too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, n)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

// EncodeRecord serializes a token record into the versioned binary layout
// stored in Redis.
func EncodeRecord(r *Record) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(recordFormatVersionCurrent)

	if len(r.Digest) != DigestLength {
		return nil, errors.New("digest length mismatch")
	}
	buf.WriteString(r.Digest)

	if len(r.LookupKey) != KeyLength {
		return nil, errors.New("lookup key length mismatch")
	}
	buf.WriteString(r.LookupKey)

	if err := writeString(&buf, r.Owner, "owner"); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, r.Created); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.Expiry); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeRecord parses a blob produced by [EncodeRecord].
func DecodeRecord(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &Record{}

	digest := make([]byte, DigestLength)
	if _, err := io.ReadFull(reader, digest); err != nil {
		return nil, err
	}
	r.Digest = string(digest)

	lookupKey := make([]byte, KeyLength)
	if _, err := io.ReadFull(reader, lookupKey); err != nil {
		return nil, err
	}
	r.LookupKey = string(lookupKey)

	if r.Owner, err = readString(reader); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &r.Created); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &r.Expiry); err != nil {
		return nil, err
	}

	return r, nil
}

// EncodeFamilyMember serializes one rotation-chain row.
func EncodeFamilyMember(m *FamilyMember) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(familyFormatVersionCurrent)

	if err := writeString(&buf, m.Parent, "parent"); err != nil {
		return nil, err
	}
	if err := writeString(&buf, m.TokenKey, "token key"); err != nil {
		return nil, err
	}
	if err := writeString(&buf, m.RefreshKey, "refresh key"); err != nil {
		return nil, err
	}
	if err := writeString(&buf, m.Owner, "owner"); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, m.Created); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DecodeFamilyMember parses a blob produced by [EncodeFamilyMember].
func DecodeFamilyMember(data []byte) (*FamilyMember, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != familyFormatVersionCurrent {
		return nil, errors.New("invalid family member version")
	}

	m := &FamilyMember{}

	if m.Parent, err = readString(reader); err != nil {
		return nil, err
	}
	if m.TokenKey, err = readString(reader); err != nil {
		return nil, err
	}
	if m.RefreshKey, err = readString(reader); err != nil {
		return nil, err
	}
	if m.Owner, err = readString(reader); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &m.Created); err != nil {
		return nil, err
	}

	return m, nil
}

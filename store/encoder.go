package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const refreshFormatVersionCurrent = 1

// revokedByteOffset is the fixed position of the revoked flag inside an
// encoded record. The Redis Lua scripts flip this byte with SETRANGE, so
// it must never move between format versions without updating them.
const revokedByteOffset = 1

// Encode serializes a refresh record into the fixed-layout binary blob
// stored in Redis. The token id is the storage key and is not part of
// the blob.
func Encode(r *RefreshRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(refreshFormatVersionCurrent)

	if r.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if len(r.Subject) == 0 || len(r.Subject) > 255 {
		return nil, errors.New("subject length out of range")
	}
	buf.WriteByte(byte(len(r.Subject)))
	buf.WriteString(r.Subject)

	if err := binary.Write(&buf, binary.BigEndian, r.CreatedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, r.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	if len(r.Material) > 65535 {
		return nil, errors.New("material too large")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(r.Material))); err != nil {
		return nil, err
	}
	buf.WriteString(r.Material)

	return buf.Bytes(), nil
}

// Decode deserializes a blob produced by [Encode]. The caller fills in
// the token id from the storage key.
func Decode(data []byte) (*RefreshRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != refreshFormatVersionCurrent {
		return nil, errors.New("invalid record version")
	}

	r := &RefreshRecord{}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	r.Revoked = revoked != 0

	subjectLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	subject := make([]byte, subjectLen)
	if _, err := io.ReadFull(reader, subject); err != nil {
		return nil, err
	}
	r.Subject = string(subject)

	var createdAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.ExpiresAt = time.Unix(expiresAt, 0).UTC()

	var materialLen uint16
	if err := binary.Read(reader, binary.BigEndian, &materialLen); err != nil {
		return nil, err
	}
	material := make([]byte, materialLen)
	if _, err := io.ReadFull(reader, material); err != nil {
		return nil, err
	}
	r.Material = string(material)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in record")
	}

	return r, nil
}

package store

import (
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second).UTC()
	original := &RefreshRecord{
		Subject:   "42",
		Material:  "header.payload.signature",
		Revoked:   false,
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	data, err := Encode(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Subject != original.Subject {
		t.Fatalf("subject mismatch: %q", decoded.Subject)
	}
	if decoded.Material != original.Material {
		t.Fatalf("material mismatch: %q", decoded.Material)
	}
	if decoded.Revoked != original.Revoked {
		t.Fatal("revoked flag mismatch")
	}
	if !decoded.CreatedAt.Equal(original.CreatedAt) {
		t.Fatalf("created_at mismatch: %v vs %v", decoded.CreatedAt, original.CreatedAt)
	}
	if !decoded.ExpiresAt.Equal(original.ExpiresAt) {
		t.Fatalf("expires_at mismatch: %v vs %v", decoded.ExpiresAt, original.ExpiresAt)
	}
}

func TestRevokedFlagOffset(t *testing.T) {
	record := &RefreshRecord{
		Subject:   "42",
		Material:  "m",
		Revoked:   true,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}

	data, err := Encode(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if data[revokedByteOffset] != 1 {
		t.Fatalf("revoked flag not at offset %d", revokedByteOffset)
	}

	// Flipping the byte in place must be visible to Decode, since that is
	// exactly what the Lua rotation script does.
	data[revokedByteOffset] = 0
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Revoked {
		t.Fatal("expected revoked=false after byte flip")
	}
}

func TestEncodeRejectsBadSubject(t *testing.T) {
	record := &RefreshRecord{
		Material:  "m",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if _, err := Encode(record); err == nil {
		t.Fatal("expected empty subject to be rejected")
	}

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	record.Subject = string(long)
	if _, err := Encode(record); err == nil {
		t.Fatal("expected oversize subject to be rejected")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	record := &RefreshRecord{
		Subject:   "42",
		Material:  "header.payload.signature",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	data, err := Encode(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	for i := 0; i < len(data); i++ {
		if _, err := Decode(data[:i]); err == nil {
			t.Fatalf("truncation at %d decoded successfully", i)
		}
	}

	if _, err := Decode(append(data, 0x00)); err == nil {
		t.Fatal("trailing byte decoded successfully")
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	record := &RefreshRecord{
		Subject:   "42",
		Material:  "m",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	data, err := Encode(record)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	data[0] = 99
	if _, err := Decode(data); err == nil {
		t.Fatal("unknown version decoded successfully")
	}
}

package jwt

import (
	"errors"
	"testing"
	"time"
)

// FuzzParse feeds arbitrary strings through the codec and asserts the
// decode contract: no panics, and every failure is one of the typed
// sentinels.
func FuzzParse(f *testing.F) {
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
	})
	if err != nil {
		f.Fatalf("new manager: %v", err)
	}

	valid, _, _, err := m.CreateAccess("42")
	if err != nil {
		f.Fatalf("create access: %v", err)
	}

	f.Add(valid)
	f.Add("")
	f.Add(".")
	f.Add("..")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJIUzI1NiJ9..")
	f.Add(valid + "x")
	f.Add(valid[:len(valid)/2])

	f.Fuzz(func(t *testing.T, input string) {
		claims, perr := m.Parse(input)
		if perr != nil {
			if !errors.Is(perr, ErrBadSignature) &&
				!errors.Is(perr, ErrExpired) &&
				!errors.Is(perr, ErrMalformed) {
				t.Fatalf("untyped decode error: %v", perr)
			}
			return
		}
		if claims == nil {
			t.Fatal("nil claims on successful parse")
		}
		if claims.ID == "" || claims.Subject == "" {
			t.Fatalf("successful parse with incomplete claims: %+v", claims)
		}
	})
}

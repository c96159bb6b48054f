package flows

import (
	"context"
	"errors"
	"testing"
)

func workingValidateDeps(revokedIDs map[string]bool) ValidateDeps {
	return ValidateDeps{
		DecodeAccess: func(token string) (string, string, error) {
			if token == "good-access" {
				return "42", "acc-1", nil
			}
			return "", "", errors.New("malformed")
		},
		IsRevoked: func(_ context.Context, tokenID string) (bool, error) {
			return revokedIDs[tokenID], nil
		},
	}
}

func TestRunValidateSuccess(t *testing.T) {
	result := RunValidate(context.Background(), "good-access", workingValidateDeps(nil))
	if result.Failure != ValidateFailureNone {
		t.Fatalf("unexpected failure %d: %v", result.Failure, result.Err)
	}
	if result.Subject != "42" || result.TokenID != "acc-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunValidateDecodeFailure(t *testing.T) {
	storeTouched := false
	deps := workingValidateDeps(nil)
	deps.IsRevoked = func(context.Context, string) (bool, error) {
		storeTouched = true
		return false, nil
	}

	result := RunValidate(context.Background(), "garbage", deps)
	if result.Failure != ValidateFailureDecode {
		t.Fatalf("expected decode failure, got %d", result.Failure)
	}
	if storeTouched {
		t.Fatal("forged token triggered a store round trip")
	}
}

func TestRunValidateRevoked(t *testing.T) {
	result := RunValidate(context.Background(), "good-access",
		workingValidateDeps(map[string]bool{"acc-1": true}))
	if result.Failure != ValidateFailureRevoked {
		t.Fatalf("expected revoked, got %d", result.Failure)
	}
}

func TestRunValidateStoreFailure(t *testing.T) {
	deps := workingValidateDeps(nil)
	deps.IsRevoked = func(context.Context, string) (bool, error) {
		return false, errors.New("backend down")
	}

	result := RunValidate(context.Background(), "good-access", deps)
	if result.Failure != ValidateFailureStore {
		t.Fatalf("expected store failure, got %d", result.Failure)
	}
}

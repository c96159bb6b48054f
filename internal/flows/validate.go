package flows

import "context"

// ValidateFailureKind classifies access validation failures for
// root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureDecode
	ValidateFailureRevoked
	ValidateFailureStore
)

// ValidateResult carries the validated subject or failure metadata.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Subject string
	TokenID string
}

// ValidateDeps captures access validation dependencies.
type ValidateDeps struct {
	DecodeAccess func(string) (subject, tokenID string, err error)
	IsRevoked    func(ctx context.Context, tokenID string) (bool, error)
}

// RunValidate checks signature, structure, expiry (via DecodeAccess) and
// the revocation denylist, in that order. The denylist check is last so a
// forged token never triggers a store round trip.
func RunValidate(ctx context.Context, accessToken string, deps ValidateDeps) ValidateResult {
	subject, tokenID, err := deps.DecodeAccess(accessToken)
	if err != nil {
		return ValidateResult{
			Failure: ValidateFailureDecode,
			Err:     err,
		}
	}

	revoked, err := deps.IsRevoked(ctx, tokenID)
	if err != nil {
		return ValidateResult{
			Failure: ValidateFailureStore,
			Err:     err,
			Subject: subject,
			TokenID: tokenID,
		}
	}
	if revoked {
		return ValidateResult{
			Failure: ValidateFailureRevoked,
			Subject: subject,
			TokenID: tokenID,
		}
	}

	return ValidateResult{
		Subject: subject,
		TokenID: tokenID,
	}
}

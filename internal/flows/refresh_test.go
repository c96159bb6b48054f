package flows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Qonteh/fxauth/store"
)

type stubRefreshStore struct {
	record    *store.RefreshRecord
	getErr    error
	revokeWon bool
	revokeErr error
	revoked   []string
}

func (s *stubRefreshStore) GetRefresh(_ context.Context, tokenID string) (*store.RefreshRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.record == nil || s.record.TokenID != tokenID {
		return nil, store.ErrNotFound
	}
	return s.record, nil
}

func (s *stubRefreshStore) RevokeRefresh(_ context.Context, tokenID string) (bool, error) {
	if s.revokeErr != nil {
		return false, s.revokeErr
	}
	s.revoked = append(s.revoked, tokenID)
	return s.revokeWon, nil
}

type stubRefreshLimiter struct {
	err error
}

func (l *stubRefreshLimiter) CheckRefresh(context.Context, string) error {
	return l.err
}

func validRefreshRecord(material string) *store.RefreshRecord {
	now := time.Now()
	return &store.RefreshRecord{
		TokenID:   "tok-1",
		Subject:   "42",
		Material:  material,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func workingRefreshDeps(st *stubRefreshStore) RefreshDeps {
	return RefreshDeps{
		DecodeRefresh: func(string) (string, string, error) {
			return "42", "tok-1", nil
		},
		IssueRefresh: func(context.Context, string) (string, error) {
			return "new-refresh", nil
		},
		IssueAccess: func(context.Context, string) (string, time.Time, error) {
			return "new-access", time.Now().Add(time.Minute), nil
		},
		Now:   time.Now,
		Store: st,
	}
}

func TestRunRefreshSuccess(t *testing.T) {
	st := &stubRefreshStore{record: validRefreshRecord("presented"), revokeWon: true}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureNone {
		t.Fatalf("unexpected failure %d: %v", result.Failure, result.Err)
	}
	if result.Subject != "42" {
		t.Fatalf("subject: %q", result.Subject)
	}
	if result.RefreshToken != "new-refresh" || result.AccessToken != "new-access" {
		t.Fatalf("unexpected pair: %q / %q", result.RefreshToken, result.AccessToken)
	}
	if len(st.revoked) != 1 || st.revoked[0] != "tok-1" {
		t.Fatalf("old token not revoked: %v", st.revoked)
	}
}

func TestRunRefreshDecodeFailure(t *testing.T) {
	deps := workingRefreshDeps(&stubRefreshStore{})
	deps.DecodeRefresh = func(string) (string, string, error) {
		return "", "", errors.New("malformed")
	}

	result := RunRefresh(context.Background(), "garbage", deps)
	if result.Failure != RefreshFailureDecode {
		t.Fatalf("expected decode failure, got %d", result.Failure)
	}
}

func TestRunRefreshRateLimited(t *testing.T) {
	st := &stubRefreshStore{record: validRefreshRecord("presented"), revokeWon: true}
	deps := workingRefreshDeps(st)
	deps.RateLimiter = &stubRefreshLimiter{err: errors.New("rate limited")}

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureRateLimited {
		t.Fatalf("expected rate limit failure, got %d", result.Failure)
	}
	if len(st.revoked) != 0 {
		t.Fatal("rate-limited attempt touched the store")
	}
}

func TestRunRefreshNotFound(t *testing.T) {
	deps := workingRefreshDeps(&stubRefreshStore{})

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureNotFound {
		t.Fatalf("expected not-found failure, got %d", result.Failure)
	}
}

func TestRunRefreshRevokedRecordIsReuse(t *testing.T) {
	record := validRefreshRecord("presented")
	record.Revoked = true
	st := &stubRefreshStore{record: record}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureReuse {
		t.Fatalf("expected reuse, got %d", result.Failure)
	}
	if result.Subject != "42" {
		t.Fatal("reuse result must carry the subject for containment")
	}
}

func TestRunRefreshMaterialMismatchIsReuse(t *testing.T) {
	st := &stubRefreshStore{record: validRefreshRecord("stored-material"), revokeWon: true}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "different-material", deps)
	if result.Failure != RefreshFailureReuse {
		t.Fatalf("expected reuse, got %d", result.Failure)
	}
	if len(st.revoked) != 0 {
		t.Fatal("mismatched material must not rotate the record")
	}
}

func TestRunRefreshExpiredRecord(t *testing.T) {
	record := validRefreshRecord("presented")
	record.ExpiresAt = time.Now().Add(-time.Minute)
	st := &stubRefreshStore{record: record}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureExpired {
		t.Fatalf("expected expired, got %d", result.Failure)
	}
}

func TestRunRefreshLostRaceIsReuse(t *testing.T) {
	st := &stubRefreshStore{record: validRefreshRecord("presented"), revokeWon: false}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureReuse {
		t.Fatalf("expected reuse after lost race, got %d", result.Failure)
	}
}

func TestRunRefreshStoreFailure(t *testing.T) {
	st := &stubRefreshStore{getErr: store.ErrUnavailable}
	deps := workingRefreshDeps(st)

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureStore {
		t.Fatalf("expected store failure, got %d", result.Failure)
	}
	if !errors.Is(result.Err, store.ErrUnavailable) {
		t.Fatalf("expected unavailability to propagate, got %v", result.Err)
	}
}

func TestRunRefreshIssueFailure(t *testing.T) {
	st := &stubRefreshStore{record: validRefreshRecord("presented"), revokeWon: true}
	deps := workingRefreshDeps(st)
	deps.IssueRefresh = func(context.Context, string) (string, error) {
		return "", errors.New("mint failed")
	}

	result := RunRefresh(context.Background(), "presented", deps)
	if result.Failure != RefreshFailureIssue {
		t.Fatalf("expected issue failure, got %d", result.Failure)
	}
}

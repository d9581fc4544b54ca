package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abuobaidahamim/Unify/internal/backend"
)

// --- Mocks ---

type mockAuth struct {
	signInFn  func(ctx context.Context, email, password string) (*backend.Session, error)
	createFn  func(ctx context.Context, email, password string) (*backend.Session, error)
	resolveFn func(ctx context.Context, token string) (*backend.Session, error)
	signOutFn func(ctx context.Context, token string) error
}

func (m *mockAuth) SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	if m.signInFn != nil {
		return m.signInFn(ctx, email, password)
	}
	return nil, &backend.Error{Code: backend.CodeUserNotFound}
}

func (m *mockAuth) CreateUserWithPassword(ctx context.Context, email, password string) (*backend.Session, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, password)
	}
	return nil, &backend.Error{Code: backend.CodeInternal}
}

func (m *mockAuth) ResolveSession(ctx context.Context, token string) (*backend.Session, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	return nil, &backend.Error{Code: backend.CodeNoSession}
}

func (m *mockAuth) SignOut(ctx context.Context, token string) error {
	if m.signOutFn != nil {
		return m.signOutFn(ctx, token)
	}
	return nil
}

type mockStore struct {
	getFn func(ctx context.Context, collection, id string) (backend.Document, error)
	setFn func(ctx context.Context, collection, id string, doc backend.Document, merge bool) error
}

func (m *mockStore) Get(ctx context.Context, collection, id string) (backend.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, collection, id)
	}
	return nil, &backend.Error{Code: backend.CodeNotFound}
}

func (m *mockStore) Set(ctx context.Context, collection, id string, doc backend.Document, merge bool) error {
	if m.setFn != nil {
		return m.setFn(ctx, collection, id, doc, merge)
	}
	return nil
}

func testSession() *Session {
	return &Session{Token: "tok", UID: "uid-1", Email: "a@uni.edu"}
}

func codeErr(code backend.Code) error {
	return &backend.Error{Code: code}
}

// --- LoginUser ---

func TestLoginUser_Success(t *testing.T) {
	want := testSession()
	auth := &mockAuth{signInFn: func(_ context.Context, email, password string) (*backend.Session, error) {
		assert.Equal(t, "a@uni.edu", email)
		assert.Equal(t, "Abcdef1!", password)
		return want, nil
	}}
	gw := NewGateway(auth, &mockStore{})

	result := gw.LoginUser(context.Background(), "a@uni.edu", "Abcdef1!")

	assert.True(t, result.Success)
	assert.Equal(t, want, result.User)
	assert.Empty(t, result.Message)
	assert.Equal(t, FieldNone, result.Field())
}

func TestLoginUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  ErrorKind
		wantMsg   string
		wantField Field
	}{
		{"user not found", codeErr(backend.CodeUserNotFound), KindInvalidCredentials, "Invalid email or password.", FieldEmail},
		{"wrong password", codeErr(backend.CodeWrongPassword), KindInvalidCredentials, "Invalid email or password.", FieldEmail},
		{"too many requests", codeErr(backend.CodeTooManyRequests), KindRateLimited, "Too many failed attempts. Try again later.", FieldPassword},
		{"unavailable", codeErr(backend.CodeUnavailable), KindGeneric, "Login failed. Please check your credentials.", FieldPassword},
		{"untyped error", errors.New("boom"), KindGeneric, "Login failed. Please check your credentials.", FieldPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuth{signInFn: func(context.Context, string, string) (*backend.Session, error) {
				return nil, tt.err
			}}
			result := NewGateway(auth, &mockStore{}).LoginUser(context.Background(), "a@uni.edu", "x")

			assert.False(t, result.Success)
			assert.Nil(t, result.User)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantMsg, result.Message)
			assert.Equal(t, tt.wantField, result.Field())
		})
	}
}

// --- RegisterUser ---

func TestRegisterUser_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		code      backend.Code
		wantKind  ErrorKind
		wantMsg   string
		wantField Field
	}{
		{"email in use", backend.CodeEmailAlreadyInUse, KindEmailInUse, "This email is already registered.", FieldEmail},
		{"invalid email", backend.CodeInvalidEmail, KindInvalidEmail, "Invalid email address.", FieldEmail},
		{"weak password", backend.CodeWeakPassword, KindWeakPassword, "Password is too weak. Use at least 6 characters.", FieldPassword},
		{"internal", backend.CodeInternal, KindGeneric, "Registration failed.", FieldPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &mockAuth{createFn: func(context.Context, string, string) (*backend.Session, error) {
				return nil, codeErr(tt.code)
			}}
			result := NewGateway(auth, &mockStore{}).RegisterUser(context.Background(), "a@uni.edu", "Abcdef1!")

			assert.False(t, result.Success)
			assert.Equal(t, tt.wantKind, result.Kind)
			assert.Equal(t, tt.wantMsg, result.Message)
			assert.Equal(t, tt.wantField, result.Field())
		})
	}
}

func TestRegisterUser_Success(t *testing.T) {
	auth := &mockAuth{createFn: func(context.Context, string, string) (*backend.Session, error) {
		return testSession(), nil
	}}
	result := NewGateway(auth, &mockStore{}).RegisterUser(context.Background(), "a@uni.edu", "Abcdef1!")

	require.True(t, result.Success)
	assert.Equal(t, "uid-1", result.User.UID)
}

// --- SaveProfile ---

func TestSaveProfile_NoSession(t *testing.T) {
	store := &mockStore{setFn: func(context.Context, string, string, backend.Document, bool) error {
		t.Fatal("store must not be called without a session")
		return nil
	}}
	result := NewGateway(&mockAuth{}, store).SaveProfile(context.Background(), Profile{"full_name": "A"})

	assert.False(t, result.Success)
	assert.Equal(t, KindNoSession, result.Kind)
	assert.Equal(t, "No authenticated user found.", result.Message)
	assert.Equal(t, FieldForm, result.Kind.Field())
}

func TestSaveProfile_WritesMergedDocument(t *testing.T) {
	var (
		gotCollection, gotID string
		gotDoc               backend.Document
		gotMerge             = true
	)
	store := &mockStore{setFn: func(_ context.Context, collection, id string, doc backend.Document, merge bool) error {
		gotCollection, gotID, gotDoc, gotMerge = collection, id, doc, merge
		return nil
	}}
	ctx := WithSession(context.Background(), testSession())

	result := NewGateway(&mockAuth{}, store).SaveProfile(ctx, Profile{
		"full_name":  "<b>Ada</b> Lovelace",
		"year":       2,
		"university": "State",
	})

	require.True(t, result.Success)
	assert.Equal(t, "users", gotCollection)
	assert.Equal(t, "uid-1", gotID)
	assert.False(t, gotMerge)
	assert.Equal(t, "Ada Lovelace", gotDoc["full_name"])
	assert.Equal(t, 2, gotDoc["year"])
	assert.Equal(t, "State", gotDoc["university"])
	assert.Equal(t, "a@uni.edu", gotDoc["email"])
	assert.Equal(t, backend.ServerTimestamp, gotDoc["createdAt"])
}

func TestSaveProfile_SessionEmailWins(t *testing.T) {
	var gotDoc backend.Document
	store := &mockStore{setFn: func(_ context.Context, _, _ string, doc backend.Document, _ bool) error {
		gotDoc = doc
		return nil
	}}
	ctx := WithSession(context.Background(), testSession())

	NewGateway(&mockAuth{}, store).SaveProfile(ctx, Profile{"email": "spoof@evil.com"})

	assert.Equal(t, "a@uni.edu", gotDoc["email"])
}

func TestSaveProfile_StoreFailure(t *testing.T) {
	store := &mockStore{setFn: func(context.Context, string, string, backend.Document, bool) error {
		return codeErr(backend.CodeInternal)
	}}
	ctx := WithSession(context.Background(), testSession())

	result := NewGateway(&mockAuth{}, store).SaveProfile(ctx, Profile{})

	assert.False(t, result.Success)
	assert.Equal(t, "Failed to save profile. Please try again.", result.Message)
}

// --- Profile reads ---

func TestGetCurrentUserProfile(t *testing.T) {
	doc := backend.Document{"full_name": "Ada"}

	tests := []struct {
		name    string
		session *Session
		getErr  error
		want    Profile
	}{
		{"found", testSession(), nil, Profile(doc)},
		{"no session", nil, nil, nil},
		{"not found", testSession(), codeErr(backend.CodeNotFound), nil},
		{"read failure", testSession(), codeErr(backend.CodeUnavailable), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{getFn: func(_ context.Context, collection, id string) (backend.Document, error) {
				assert.Equal(t, "users", collection)
				assert.Equal(t, "uid-1", id)
				if tt.getErr != nil {
					return nil, tt.getErr
				}
				return doc, nil
			}}
			ctx := context.Background()
			if tt.session != nil {
				ctx = WithSession(ctx, tt.session)
			}
			gw := NewGateway(&mockAuth{}, store)

			assert.Equal(t, tt.want, gw.GetCurrentUserProfile(ctx))
			assert.Equal(t, tt.want != nil, gw.UserHasProfile(ctx))
		})
	}
}

func TestLookupProfile_DistinguishesReasons(t *testing.T) {
	gw := &gateway{auth: &mockAuth{}, store: &mockStore{}}

	_, status := gw.lookupProfile(context.Background())
	assert.Equal(t, profileNoSession, status)

	_, status = gw.lookupProfile(WithSession(context.Background(), testSession()))
	assert.Equal(t, profileNotFound, status)
	assert.Equal(t, "not_found", status.String())
}

// --- Sessions ---

func TestGetCurrentUser(t *testing.T) {
	gw := NewGateway(&mockAuth{}, &mockStore{})
	assert.Nil(t, gw.GetCurrentUser(context.Background()))

	s := testSession()
	assert.Same(t, s, gw.GetCurrentUser(WithSession(context.Background(), s)))
}

func TestResolveSession(t *testing.T) {
	auth := &mockAuth{resolveFn: func(_ context.Context, token string) (*backend.Session, error) {
		switch token {
		case "good":
			return testSession(), nil
		case "broken":
			return nil, codeErr(backend.CodeInternal)
		default:
			return nil, codeErr(backend.CodeNoSession)
		}
	}}
	gw := NewGateway(auth, &mockStore{})
	ctx := context.Background()

	assert.NotNil(t, gw.ResolveSession(ctx, "good"))
	assert.Nil(t, gw.ResolveSession(ctx, "stale"))
	assert.Nil(t, gw.ResolveSession(ctx, "broken"))
	assert.Nil(t, gw.ResolveSession(ctx, ""))
}

func TestLogout_SwallowsErrors(t *testing.T) {
	called := false
	auth := &mockAuth{signOutFn: func(_ context.Context, token string) error {
		called = true
		assert.Equal(t, "tok", token)
		return codeErr(backend.CodeInternal)
	}}

	NewGateway(auth, &mockStore{}).Logout(context.Background(), "tok")
	assert.True(t, called)
}

// --- Against the in-memory backend ---

func newMemoryGateway(t *testing.T) (Gateway, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))
	mem := backend.NewMemory(clock)
	svc := backend.NewService(mem.Accounts(), mem.Sessions(), mem.Attempts(), backend.Options{Clock: clock})
	return NewGateway(svc, mem.Store()), clock
}

func TestGateway_RegisterLoginProfileRoundTrip(t *testing.T) {
	gw, _ := newMemoryGateway(t)
	ctx := context.Background()

	reg := gw.RegisterUser(ctx, "ada@uni.edu", "Abcdef1!")
	require.True(t, reg.Success)

	dup := gw.RegisterUser(ctx, "ada@uni.edu", "Abcdef1!")
	assert.Equal(t, KindEmailInUse, dup.Kind)

	wrong := gw.LoginUser(ctx, "ada@uni.edu", "nope")
	assert.Equal(t, KindInvalidCredentials, wrong.Kind)

	login := gw.LoginUser(ctx, "ada@uni.edu", "Abcdef1!")
	require.True(t, login.Success)
	assert.Equal(t, reg.User.UID, login.User.UID)

	authed := WithSession(ctx, gw.ResolveSession(ctx, login.User.Token))
	assert.False(t, gw.UserHasProfile(authed))

	require.True(t, gw.SaveProfile(authed, Profile{"full_name": "Ada"}).Success)
	profile := gw.GetCurrentUserProfile(authed)
	require.NotNil(t, profile)
	assert.Equal(t, "Ada", profile["full_name"])
	assert.Equal(t, "ada@uni.edu", profile["email"])
	assert.NotEqual(t, backend.ServerTimestamp, profile["createdAt"])

	gw.Logout(ctx, login.User.Token)
	assert.Nil(t, gw.ResolveSession(ctx, login.User.Token))
}

func TestGateway_LockoutAfterRepeatedFailures(t *testing.T) {
	gw, clock := newMemoryGateway(t)
	ctx := context.Background()
	require.True(t, gw.RegisterUser(ctx, "ada@uni.edu", "Abcdef1!").Success)

	for i := 0; i < 5; i++ {
		gw.LoginUser(ctx, "ada@uni.edu", "wrong")
	}
	assert.Equal(t, KindRateLimited, gw.LoginUser(ctx, "ada@uni.edu", "Abcdef1!").Kind)

	clock.Advance(16 * time.Minute)
	assert.True(t, gw.LoginUser(ctx, "ada@uni.edu", "Abcdef1!").Success)
}

package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bloghub/internal/fixture"
	"github.com/hitoshi/bloghub/internal/model"
	"github.com/hitoshi/bloghub/internal/repository"
)

// コンパイル時にインターフェースの実装を検証する。
var (
	_ Provider      = (*FixtureProvider)(nil)
	_ Provider      = (*DirectoryProvider)(nil)
	_ Provider      = (*FallbackProvider)(nil)
	_ ResetNotifier = (*LogResetNotifier)(nil)
)

// --- モック定義 ---

type mockAccountRepo struct {
	findByEmailFn func(ctx context.Context, email string) (*model.Account, error)
	createFn      func(ctx context.Context, account *model.Account) error
	upsertFn      func(ctx context.Context, account *model.Account) error
}

var _ repository.AccountRepository = (*mockAccountRepo)(nil)

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockAccountRepo) Create(ctx context.Context, account *model.Account) error {
	if m.createFn != nil {
		return m.createFn(ctx, account)
	}
	return nil
}

func (m *mockAccountRepo) Upsert(ctx context.Context, account *model.Account) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, account)
	}
	return nil
}

type mockProvider struct {
	name           string
	authenticateFn func(ctx context.Context, email, password string) (*model.Identity, error)
	registerFn     func(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error)
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, email, password)
	}
	return nil, model.NewInvalidCredentialsError()
}

func (m *mockProvider) Register(ctx context.Context, email, password string, reg model.Registration) (*model.Identity, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, email, password, reg)
	}
	return nil, errors.New("not supported")
}

func demoAccounts(t *testing.T) []fixture.Account {
	t.Helper()
	set, err := fixture.Load()
	if err != nil {
		t.Fatalf("fixture.Load returned error: %v", err)
	}
	return set.Accounts
}

// --- FixtureProvider ---

func TestFixtureProvider_Authenticate(t *testing.T) {
	p := NewFixtureProvider(demoAccounts(t))

	tests := []struct {
		name     string
		email    string
		password string
		wantRole model.Role
		wantErr  bool
	}{
		{name: "admin", email: "admin@blog.com", password: "password", wantRole: model.RoleAdmin},
		{name: "user", email: "user@blog.com", password: "password", wantRole: model.RoleUser},
		{name: "demo", email: "demo@blog.com", password: "password", wantRole: model.RoleUser},
		{name: "wrong password", email: "admin@blog.com", password: "wrong", wantErr: true},
		{name: "unknown email", email: "nobody@blog.com", password: "password", wantErr: true},
		{name: "case sensitive email", email: "Admin@blog.com", password: "password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := p.Authenticate(context.Background(), tt.email, tt.password)
			if tt.wantErr {
				if !model.HasCode(err, model.ErrCodeInvalidCredentials) {
					t.Errorf("err = %v, want INVALID_CREDENTIALS", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if identity.Role != tt.wantRole {
				t.Errorf("role = %q, want %q", identity.Role, tt.wantRole)
			}
		})
	}
}

func TestFixtureProvider_Register_NoUniquenessCheck(t *testing.T) {
	p := NewFixtureProvider(demoAccounts(t))

	identity, err := p.Register(context.Background(), "admin@blog.com", "x", model.Registration{Name: "Impostor"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Role != model.RoleUser {
		t.Errorf("role = %q, want user", identity.Role)
	}
	if identity.ID == "" || identity.ID == "1" {
		t.Errorf("expected a freshly generated id, got %q", identity.ID)
	}
	if identity.Avatar != DefaultAvatar {
		t.Errorf("avatar = %q, want default avatar", identity.Avatar)
	}
}

func TestFixtureProvider_Register_NameFallsBackToEmail(t *testing.T) {
	p := NewFixtureProvider(nil)

	identity, err := p.Register(context.Background(), "jane@example.com", "x", model.Registration{
		Profile: model.Profile{model.ProfileBio: "hi"},
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Name != "jane" {
		t.Errorf("name = %q, want %q", identity.Name, "jane")
	}
	if identity.Profile[model.ProfileBio] != "hi" {
		t.Errorf("profile = %v", identity.Profile)
	}
}

// --- DirectoryProvider ---

func TestDirectoryProvider_Authenticate(t *testing.T) {
	hash, err := HashPassword("password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	repo := &mockAccountRepo{
		findByEmailFn: func(_ context.Context, email string) (*model.Account, error) {
			if email != "admin@blog.com" {
				return nil, nil
			}
			return &model.Account{ID: "1", Email: email, PasswordHash: hash, Name: "Admin User", Role: model.RoleAdmin}, nil
		},
	}
	p := NewDirectoryProvider(repo)

	identity, err := p.Authenticate(context.Background(), "admin@blog.com", "password")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if !identity.IsAdmin() {
		t.Errorf("identity = %+v, want admin", identity)
	}

	if _, err := p.Authenticate(context.Background(), "admin@blog.com", "wrong"); !model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Errorf("wrong password err = %v, want INVALID_CREDENTIALS", err)
	}
	if _, err := p.Authenticate(context.Background(), "nobody@blog.com", "password"); !model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Errorf("unknown email err = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestDirectoryProvider_Authenticate_RepoError(t *testing.T) {
	repo := &mockAccountRepo{
		findByEmailFn: func(context.Context, string) (*model.Account, error) {
			return nil, errors.New("connection refused")
		},
	}
	p := NewDirectoryProvider(repo)

	_, err := p.Authenticate(context.Background(), "admin@blog.com", "password")
	if err == nil || model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Errorf("err = %v, want a wrapped infrastructure error", err)
	}
}

func TestDirectoryProvider_Register_StoresHash(t *testing.T) {
	var created *model.Account
	repo := &mockAccountRepo{
		createFn: func(_ context.Context, account *model.Account) error {
			created = account
			return nil
		},
	}
	p := NewDirectoryProvider(repo)
	p.cost = bcrypt.MinCost

	identity, err := p.Register(context.Background(), "new@blog.com", "secret", model.Registration{Name: "New"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected the account to be created")
	}
	if created.ID != identity.ID || created.Role != model.RoleUser {
		t.Errorf("created = %+v, identity = %+v", created, identity)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret")); err != nil {
		t.Errorf("stored hash does not match the password: %v", err)
	}
}

// --- FallbackProvider ---

func TestFallbackProvider_UsesPrimaryWhenItSucceeds(t *testing.T) {
	secondaryCalled := false
	p := NewFallbackProvider(
		&mockProvider{name: "primary", authenticateFn: func(context.Context, string, string) (*model.Identity, error) {
			return &model.Identity{ID: "p"}, nil
		}},
		&mockProvider{name: "secondary", authenticateFn: func(context.Context, string, string) (*model.Identity, error) {
			secondaryCalled = true
			return &model.Identity{ID: "s"}, nil
		}},
	)

	identity, err := p.Authenticate(context.Background(), "a", "b")
	if err != nil || identity.ID != "p" {
		t.Errorf("Authenticate = %+v, %v; want primary identity", identity, err)
	}
	if secondaryCalled {
		t.Error("secondary should not be called when primary succeeds")
	}
}

func TestFallbackProvider_FallsBackOnAnyPrimaryError(t *testing.T) {
	p := NewFallbackProvider(
		&mockProvider{name: "primary", authenticateFn: func(context.Context, string, string) (*model.Identity, error) {
			return nil, errors.New("directory unavailable")
		}},
		NewFixtureProvider(demoAccounts(t)),
	)

	identity, err := p.Authenticate(context.Background(), "admin@blog.com", "password")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if !identity.IsAdmin() {
		t.Errorf("identity = %+v, want admin from secondary", identity)
	}
	if p.Name() != "primary+fixture" {
		t.Errorf("Name = %q", p.Name())
	}
}

func TestFallbackProvider_BothFail(t *testing.T) {
	p := NewFallbackProvider(&mockProvider{name: "a"}, &mockProvider{name: "b"})

	_, err := p.Authenticate(context.Background(), "x", "y")
	if !model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Errorf("err = %v, want INVALID_CREDENTIALS from secondary", err)
	}
}

func TestFallbackProvider_RegisterFallsBack(t *testing.T) {
	p := NewFallbackProvider(&mockProvider{name: "primary"}, NewFixtureProvider(nil))

	identity, err := p.Register(context.Background(), "new@blog.com", "pw", model.Registration{Name: "New"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if identity.Email != "new@blog.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestFallbackProvider_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	secondaryCalled := false
	p := NewFallbackProvider(
		&mockProvider{name: "primary", authenticateFn: func(ctx context.Context, _, _ string) (*model.Identity, error) {
			return nil, ctx.Err()
		}},
		&mockProvider{name: "secondary", authenticateFn: func(context.Context, string, string) (*model.Identity, error) {
			secondaryCalled = true
			return nil, nil
		}},
	)

	if _, err := p.Authenticate(ctx, "a", "b"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if secondaryCalled {
		t.Error("secondary should not be called after cancellation")
	}
}

func TestLogResetNotifier(t *testing.T) {
	if err := NewLogResetNotifier("http://localhost:8080").SendReset(context.Background(), "a@b.c"); err != nil {
		t.Errorf("SendReset returned error: %v", err)
	}
}

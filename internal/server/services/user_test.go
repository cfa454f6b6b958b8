package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/univx/authcore/internal/common"
	"github.com/univx/authcore/internal/dbx"
	"github.com/univx/authcore/internal/server/auth"
	"github.com/univx/authcore/internal/server/config"
	"github.com/univx/authcore/internal/server/models"
	usersrepo "github.com/univx/authcore/internal/server/repositories/users"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func newUserService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:             "k",
		TokenValidityDuration: 24 * time.Hour,
		MaxActivityEntries:    5,
	}
	return NewUserService(db, rm, cfg)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

type fakeUsersRepo struct {
	getByEmailOut *models.User
	getByEmailErr error

	getByIDOut *models.User
	getByIDErr error

	createOut *models.User
	createErr error

	updateActivityErr error
	updatePasswordErr error

	createdUser     *models.User
	updatedActivity []models.ActivityEntry
	updatedHash     string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.createdUser = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getByEmailErr != nil {
		return nil, f.getByEmailErr
	}
	return f.getByEmailOut, nil
}

func (f *fakeUsersRepo) GetByEmailForUpdate(ctx context.Context, email string) (*models.User, error) {
	return f.GetByEmail(ctx, email)
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	return f.getByIDOut, nil
}

func (f *fakeUsersRepo) UpdateActivity(ctx context.Context, id string, activity []models.ActivityEntry) error {
	f.updatedActivity = activity
	return f.updateActivityErr
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id string, hash string) error {
	f.updatedHash = hash
	return f.updatePasswordErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository { return m.u }

// --- Register ---

func TestRegister_Success(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{getByEmailErr: common.ErrorNotFound}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	client := ClientInfo{IP: "1.2.3.4", UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0"}
	u, token, err := s.Register(context.Background(), "a", "a@x.com", "p1", client)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.ID == "" || token == "" {
		t.Fatalf("missing id or token: %+v", u)
	}
	if u.Email != "a@x.com" || u.Username != "a" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.PasswordHash == "p1" {
		t.Fatalf("password stored in plaintext")
	}
	if len(u.Activity) != 1 || u.Activity[0].IP != "1.2.3.4" || u.Activity[0].Type != models.ActivityRegister {
		t.Fatalf("initial activity entry wrong: %+v", u.Activity)
	}

	claims, err := auth.ParseToken(token, []byte("k"))
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.UserID != u.ID {
		t.Fatalf("token subject mismatch: %q vs %q", claims.UserID, u.ID)
	}
}

func TestRegister_ValidationError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})

	for _, tc := range []struct{ username, email, password string }{
		{"", "a@x.com", "p"},
		{"a", "", "p"},
		{"a", "a@x.com", ""},
	} {
		_, _, err := s.Register(context.Background(), tc.username, tc.email, tc.password, ClientInfo{})
		if !errors.Is(err, common.ErrorValidation) {
			t.Fatalf("want ErrorValidation for %+v, got %v", tc, err)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{getByEmailOut: &models.User{ID: "u1", Email: "a@x.com"}}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Register(context.Background(), "a", "a@x.com", "p1", ClientInfo{})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestRegister_RacingDuplicateFromCreate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{
		getByEmailErr: common.ErrorNotFound,
		createErr:     common.ErrorAlreadyExists,
	}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Register(context.Background(), "a", "a@x.com", "p1", ClientInfo{})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestRegister_CreateErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{getByEmailErr: common.ErrorNotFound, createErr: errBoom{}}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Register(context.Background(), "a", "a@x.com", "p1", ClientInfo{})
	if err == nil || !regexp.MustCompile(`error creating user: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped create error, got %v", err)
	}
}

// --- Login ---

func TestLogin_Success_RecordsActivity(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeUsersRepo{
		getByEmailOut: &models.User{
			ID:           "u1",
			Email:        "a@x.com",
			PasswordHash: hashOf(t, "p1"),
			Activity: []models.ActivityEntry{
				{IP: "9.9.9.9", Type: models.ActivityLogin, Timestamp: time.Now().Add(-time.Hour)},
			},
		},
	}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	u, token, err := s.Login(context.Background(), "a@x.com", "p1", ClientInfo{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
	if len(repo.updatedActivity) != 2 || repo.updatedActivity[0].IP != "1.2.3.4" {
		t.Fatalf("activity not prepended: %+v", repo.updatedActivity)
	}
	if u.Activity[0].Type != models.ActivityLogin {
		t.Fatalf("login entry type wrong: %+v", u.Activity[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogin_SameIPDeduplicated(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeUsersRepo{
		getByEmailOut: &models.User{
			ID:           "u1",
			Email:        "a@x.com",
			PasswordHash: hashOf(t, "p1"),
			Activity: []models.ActivityEntry{
				{IP: "1.2.3.4", Type: models.ActivityLogin, Timestamp: time.Now().Add(-time.Hour)},
				{IP: "9.9.9.9", Type: models.ActivityLogin, Timestamp: time.Now().Add(-2 * time.Hour)},
			},
		},
	}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Login(context.Background(), "a@x.com", "p1", ClientInfo{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if len(repo.updatedActivity) != 2 {
		t.Fatalf("same-IP login must replace, not append: %+v", repo.updatedActivity)
	}
	if repo.updatedActivity[0].IP != "1.2.3.4" || repo.updatedActivity[1].IP != "9.9.9.9" {
		t.Fatalf("unexpected history: %+v", repo.updatedActivity)
	}
}

func TestLogin_HistoryBounded(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	var history []models.ActivityEntry
	for i := 0; i < 5; i++ {
		history = append(history, models.ActivityEntry{IP: fmt.Sprintf("10.0.0.%d", i), Type: models.ActivityLogin})
	}
	repo := &fakeUsersRepo{
		getByEmailOut: &models.User{ID: "u1", Email: "a@x.com", PasswordHash: hashOf(t, "p1"), Activity: history},
	}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Login(context.Background(), "a@x.com", "p1", ClientInfo{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if len(repo.updatedActivity) != 5 {
		t.Fatalf("history must stay bounded at 5: got %d", len(repo.updatedActivity))
	}
	if repo.updatedActivity[0].IP != "1.2.3.4" {
		t.Fatalf("newest entry missing: %+v", repo.updatedActivity)
	}
}

func TestLogin_UnknownEmailAndWrongPassword_SameError(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// unknown email
	mock.ExpectBegin()
	mock.ExpectRollback()
	sNF := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getByEmailErr: common.ErrorNotFound}})
	_, _, errNF := sNF.Login(context.Background(), "ghost@x.com", "p1", ClientInfo{})

	// wrong password
	mock.ExpectBegin()
	mock.ExpectRollback()
	sWP := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{
		getByEmailOut: &models.User{ID: "u1", PasswordHash: hashOf(t, "p1")},
	}})
	_, _, errWP := sWP.Login(context.Background(), "a@x.com", "wrong", ClientInfo{})

	if !errors.Is(errNF, common.ErrorUnauthorized) {
		t.Fatalf("unknown email: want ErrorUnauthorized, got %v", errNF)
	}
	if !errors.Is(errWP, common.ErrorUnauthorized) {
		t.Fatalf("wrong password: want ErrorUnauthorized, got %v", errWP)
	}
	// both paths must be indistinguishable
	if errNF.Error() != errWP.Error() {
		t.Fatalf("error messages differ: %q vs %q", errNF, errWP)
	}
}

func TestLogin_ValidationError(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}})
	_, _, err := s.Login(context.Background(), "", "p1", ClientInfo{})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestLogin_UpdateActivityErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	repo := &fakeUsersRepo{
		getByEmailOut:     &models.User{ID: "u1", PasswordHash: hashOf(t, "p1")},
		updateActivityErr: errBoom{},
	}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	_, _, err := s.Login(context.Background(), "a@x.com", "p1", ClientInfo{})
	if err == nil || !regexp.MustCompile(`error updating activity: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped update error, got %v", err)
	}
}

// --- Register → Login round trip ---

func TestRegisterThenLogin_SameCredentialsSucceed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{getByEmailErr: common.ErrorNotFound}
	s := newUserService(t, db, &fakeRepoManager{u: repo})

	registered, _, err := s.Register(context.Background(), "a", "a@x.com", "p1", ClientInfo{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	// the stored record is now the login fixture
	repo.getByEmailErr = nil
	repo.getByEmailOut = repo.createdUser

	mock.ExpectBegin()
	mock.ExpectCommit()

	loggedIn, token, err := s.Login(context.Background(), "a@x.com", "p1", ClientInfo{IP: "1.2.3.4"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if loggedIn.ID != registered.ID {
		t.Fatalf("ids differ: %q vs %q", loggedIn.ID, registered.ID)
	}

	claims, err := auth.ParseToken(token, []byte("k"))
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != registered.ID {
		t.Fatalf("token decodes to wrong user: %q", claims.UserID)
	}
}

// --- GetByID ---

func TestGetByID_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	sOK := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{
		getByIDOut: &models.User{ID: "u1", Username: "a"},
	}})
	u, err := sOK.GetByID(context.Background(), "u1")
	if err != nil || u.Username != "a" {
		t.Fatalf("GetByID ok: got (%v, %v)", u, err)
	}

	sNF := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getByIDErr: common.ErrorNotFound}})
	if _, err := sNF.GetByID(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	sIE := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{getByIDErr: errBoom{}}})
	if _, err := sIE.GetByID(context.Background(), "u1"); !errors.Is(err, common.ErrorInternal) {
		t.Fatalf("want ErrorInternal, got %v", err)
	}
}

// --- UpdatePassword ---

func TestUpdatePassword_Flows(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// success
	mock.ExpectBegin()
	mock.ExpectCommit()
	repo := &fakeUsersRepo{getByIDOut: &models.User{ID: "u1", PasswordHash: hashOf(t, "old")}}
	s := newUserService(t, db, &fakeRepoManager{u: repo})
	if err := s.UpdatePassword(context.Background(), "u1", "old", "new"); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}
	if repo.updatedHash == "" || !auth.CheckPassword("new", repo.updatedHash) {
		t.Fatalf("new hash not stored correctly")
	}

	// wrong current password
	mock.ExpectBegin()
	mock.ExpectRollback()
	if err := s.UpdatePassword(context.Background(), "u1", "bad", "new"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("want ErrorUnauthorized, got %v", err)
	}

	// missing input
	if err := s.UpdatePassword(context.Background(), "u1", "", "new"); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

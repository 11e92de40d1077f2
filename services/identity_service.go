package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"streakMateAPI/internal/credentials"
	"streakMateAPI/internal/types/identity"
	"streakMateAPI/internal/types/streak"
	"streakMateAPI/middleware"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrNoCurrentIdentity = errors.New("no current identity")
)

type IdentityService struct {
	db *pgxpool.Pool
}

func NewIdentityService(db *pgxpool.Pool) *IdentityService {
	return &IdentityService{db: db}
}

const userColumns = `id, clerk_id, username, email, photo_url, is_guest, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*identity.User, error) {
	u := &identity.User{}
	err := row.Scan(
		&u.ID,
		&u.ClerkID,
		&u.Username,
		&u.Email,
		&u.PhotoURL,
		&u.IsGuest,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return u, nil
}

// ResolveCurrent maps the request context to the persisted identity, whoever
// set it: guest tokens carry our own user id, Clerk tokens carry the
// provider's.
func (s *IdentityService) ResolveCurrent(ctx context.Context) (*identity.User, error) {
	if guestID, ok := middleware.GetGuestID(ctx); ok {
		id, err := uuid.Parse(guestID)
		if err != nil {
			return nil, ErrNoCurrentIdentity
		}
		return s.GetUserByID(ctx, id)
	}
	if clerkID, ok := middleware.GetClerkID(ctx); ok {
		return s.GetUserByClerkID(ctx, clerkID)
	}
	return nil, ErrNoCurrentIdentity
}

func (s *IdentityService) GetUserByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(s.db.QueryRow(ctx, query, id))
}

func (s *IdentityService) GetUserByClerkID(ctx context.Context, clerkID string) (*identity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE clerk_id = $1`
	return scanUser(s.db.QueryRow(ctx, query, clerkID))
}

// CreateFromClerk handles a provider first-login: one user row plus the
// default inactive streak record, created together.
func (s *IdentityService) CreateFromClerk(ctx context.Context, clerkID, username string, email, photoURL *string) (*identity.User, error) {
	now := time.Now()
	user := &identity.User{
		ID:        uuid.New(),
		ClerkID:   &clerkID,
		Username:  username,
		Email:     email,
		PhotoURL:  photoURL,
		IsGuest:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.insertUserWithStreak(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateFromClerk mirrors provider-side profile changes.
func (s *IdentityService) UpdateFromClerk(ctx context.Context, clerkID, username string, email, photoURL *string) error {
	query := `
	UPDATE users
	SET username = COALESCE(NULLIF($2, ''), username),
		email = COALESCE($3, email),
		photo_url = COALESCE($4, photo_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	`

	_, err := s.db.Exec(ctx, query, clerkID, username, email, photoURL)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DetachClerk handles provider-side account deletion. The streak record is
// never deleted; the identity just loses its provider binding.
func (s *IdentityService) DetachClerk(ctx context.Context, clerkID string) error {
	query := `UPDATE users SET clerk_id = NULL, email = NULL, updated_at = NOW() WHERE clerk_id = $1`

	result, err := s.db.Exec(ctx, query, clerkID)
	if err != nil {
		return fmt.Errorf("failed to detach clerk identity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RegisterGuest creates a credential-bound guest so the identity can be
// reclaimed from another device. The password is stored only as a bcrypt
// hash.
func (s *IdentityService) RegisterGuest(ctx context.Context, req *identity.GuestRegisterRequest) (*identity.GuestSession, error) {
	if err := credentials.Validate(req.Username, req.Password); err != nil {
		return nil, err
	}

	var taken bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, req.Username).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := credentials.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &identity.User{
		ID:           uuid.New(),
		Username:     req.Username,
		IsGuest:      true,
		PasswordHash: &hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.insertUserWithStreak(ctx, user); err != nil {
		return nil, err
	}

	return s.guestSession(user)
}

// LoginGuest reclaims a credential-bound guest identity.
func (s *IdentityService) LoginGuest(ctx context.Context, req *identity.GuestLoginRequest) (*identity.GuestSession, error) {
	if err := credentials.Validate(req.Username, req.Password); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_guest = true`
	user, err := scanUser(s.db.QueryRow(ctx, query, req.Username))
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, credentials.ErrWrongPassword
	}
	if err := credentials.CheckPassword(*user.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	return s.guestSession(user)
}

// AnonymousGuest creates a guest with a generated name and no credentials;
// the returned token is the only way back to this identity.
func (s *IdentityService) AnonymousGuest(ctx context.Context) (*identity.GuestSession, error) {
	name, err := credentials.GenerateGuestName()
	if err != nil {
		return nil, fmt.Errorf("failed to generate guest name: %w", err)
	}

	now := time.Now()
	user := &identity.User{
		ID:        uuid.New(),
		Username:  name,
		IsGuest:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.insertUserWithStreak(ctx, user); err != nil {
		return nil, err
	}

	return s.guestSession(user)
}

// RegisterDevice stores an FCM token so the sweeper can reach this user with
// confirmation warnings.
func (s *IdentityService) RegisterDevice(ctx context.Context, userID uuid.UUID, token, platform string) error {
	if token == "" {
		return errors.New("device token must not be empty")
	}

	query := `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3
	`

	if _, err := s.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *IdentityService) guestSession(user *identity.User) (*identity.GuestSession, error) {
	token, err := middleware.IssueGuestToken(user.ID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to issue guest token: %w", err)
	}
	return &identity.GuestSession{User: user, Token: token}, nil
}

// insertUserWithStreak creates the identity and its default inactive streak
// record in one transaction.
func (s *IdentityService) insertUserWithStreak(ctx context.Context, user *identity.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO users (id, clerk_id, username, email, photo_url, is_guest, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		user.ID,
		user.ClerkID,
		user.Username,
		user.Email,
		user.PhotoURL,
		user.IsGuest,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	rec := streak.NewRecord(user.ID, user.CreatedAt)
	_, err = tx.Exec(ctx, `
	INSERT INTO streaks (user_id, start_date, is_active, last_update_time, relapse_time, previous_start_date, exempt, warned_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.UserID,
		rec.StartDate,
		rec.IsActive,
		rec.LastUpdateTime,
		rec.RelapseTime,
		rec.PreviousStartDate,
		rec.Exempt,
		rec.WarnedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create streak record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	log.Printf("Created %s identity %s (%s)", partitionLabel(user), user.Username, user.ID)
	return nil
}

func partitionLabel(user *identity.User) string {
	if user.IsGuest {
		return "guest"
	}
	return "authenticated"
}

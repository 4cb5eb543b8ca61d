package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"quizarena-backend/internal/middleware"
	"quizarena-backend/internal/models"
	"quizarena-backend/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	IdentityTaken(ctx context.Context, username, email string) (bool, bool, error)
	List(ctx context.Context) ([]*models.User, error)
	SetScore(ctx context.Context, userID int64, score int) error
	Delete(ctx context.Context, userID int64) error
}

type AdminStore interface {
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	GetByID(ctx context.Context, id int64) (*models.Admin, error)
	Upsert(ctx context.Context, admin *models.Admin) error
}

type AuthService struct {
	users          UserStore
	admins         AdminStore
	redis          *redis.Client
	jwt            *middleware.JWTAuth
	bcryptCost     int
	startingTokens int
	logger         *slog.Logger

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users UserStore, admins AdminStore, redisClient *redis.Client, jwt *middleware.JWTAuth,
	bcryptCost, startingTokens int, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:          users,
		admins:         admins,
		redis:          redisClient,
		jwt:            jwt,
		bcryptCost:     bcryptCost,
		startingTokens: startingTokens,
		logger:         logger,
	}
}

const invalidCredentials = "Invalid username or password"

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if req.Username == "" {
		fieldErrors["username"] = "Username is required"
	} else if len(req.Username) > 64 {
		fieldErrors["username"] = "Username must be at most 64 characters"
	}
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	} else if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	usernameTaken, emailTaken, err := s.users.IdentityTaken(ctx, req.Username, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if usernameTaken {
		return nil, &ConflictError{Message: "Username already taken"}
	}
	if emailTaken {
		return nil, &ConflictError{Message: "Email already in use"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Score:        0,
		Tokens:       s.startingTokens,
	}

	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration.
		if repository.IsUniqueViolation(err) {
			return nil, &ConflictError{Message: "Username or email already in use"}
		}
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Authenticate checks admins first, then users. Unknown usernames still pay for a
// bcrypt comparison so response time does not reveal which accounts exist.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &UnauthorizedError{Message: invalidCredentials}
	}

	found := false

	admin, err := s.admins.GetByUsername(ctx, username)
	switch {
	case err == nil:
		found = true
		if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil {
			return &models.Identity{ID: admin.ID, Username: admin.Username, Role: models.RoleAdmin}, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		found = true
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil {
			return &models.Identity{ID: user.ID, Username: user.Username, Role: models.RoleUser}, nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	if !found {
		bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
	}
	return nil, &UnauthorizedError{Message: invalidCredentials}
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.bcryptCost)
		if err != nil {
			s.logger.Warn("dummy hash at configured cost failed, using default cost", "cost", s.bcryptCost, "error", err)
			hash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

// IssueSession signs a session token for identity.
func (s *AuthService) IssueSession(identity *models.Identity) (string, time.Time, error) {
	token, claims, err := s.jwt.GenerateSessionToken(*identity)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

func revokedKey(jti string) string { return "revoked:" + jti }

// ResolveSession turns a token back into a live identity. Revoked tokens and
// tokens whose account has since been deleted are rejected.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := s.jwt.ParseSessionToken(token)
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid session"}
	}

	revoked, err := s.redis.Exists(ctx, revokedKey(claims.ID)).Result()
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked > 0 {
		return nil, &UnauthorizedError{Message: "Session has ended"}
	}

	identity := claims.Identity()
	switch identity.Role {
	case models.RoleAdmin:
		admin, err := s.admins.GetByID(ctx, identity.ID)
		if err != nil {
			return nil, staleSession(err)
		}
		identity.Username = admin.Username
	default:
		user, err := s.users.GetByID(ctx, identity.ID)
		if err != nil {
			return nil, staleSession(err)
		}
		identity.Username = user.Username
	}
	return &identity, nil
}

func staleSession(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &UnauthorizedError{Message: "Account no longer exists"}
	}
	return err
}

// RevokeSession blacklists the token's jti until it would have expired anyway.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	claims, err := s.jwt.ParseSessionToken(token)
	if err != nil {
		return nil // already unusable
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedKey(claims.ID), "1", ttl).Err()
}

func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.users.List(ctx)
}

func (s *AuthService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return user, nil
}

// SetScore is the admin override of a user's score.
func (s *AuthService) SetScore(ctx context.Context, id int64, score int) error {
	if score < 0 {
		return &ValidationError{Fields: map[string]string{"score": "Score cannot be negative"}}
	}
	if err := s.users.SetScore(ctx, id, score); err != nil {
		return notFound(err, "User not found")
	}
	s.logger.Info("score overridden", "user_id", id, "score", score)
	return nil
}

func (s *AuthService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "User not found")
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// SeedAdmin creates the admin account, or resets its password when it exists.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	fieldErrors := make(map[string]string)
	if username == "" {
		fieldErrors["username"] = "Username is required"
	}
	if err := validatePassword(password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.Admin{Username: username, PasswordHash: string(hash)}
	if err := s.admins.Upsert(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// bcrypt only hashes the first 72 bytes and rejects anything longer.
const maxPasswordBytes = 72

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	if len(pw) > maxPasswordBytes {
		return fmt.Errorf("Password must be at most %d bytes", maxPasswordBytes)
	}
	return nil
}

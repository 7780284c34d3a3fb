package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/repository"
	"github.com/yeremiapane/restqr/utils"
)

const (
	DefaultSessionDuration = 2 * time.Hour
	defaultCreateRetries   = 5
	createRetryInterval    = 15 * time.Millisecond
)

type TokenConfig struct {
	SessionDuration time.Duration
	CreateRetries   int
}

// TokenService issues and validates the per-table secrets encoded in QR codes.
type TokenService struct {
	repo     repository.TokenRepository
	log      logrus.FieldLogger
	duration time.Duration
	retries  uint64
	now      func() time.Time
}

func NewTokenService(repo repository.TokenRepository, cfg TokenConfig, log logrus.FieldLogger) *TokenService {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = DefaultSessionDuration
	}
	if cfg.CreateRetries <= 0 {
		cfg.CreateRetries = defaultCreateRetries
	}
	return &TokenService{
		repo:     repo,
		log:      log,
		duration: cfg.SessionDuration,
		retries:  uint64(cfg.CreateRetries),
		now:      time.Now,
	}
}

// GetOrCreate returns the table's active token, issuing one if none exists.
//
// Two callers racing for the same table both miss the lookup and try to
// insert; the loser hits the active-table unique index and retries, at which
// point the lookup returns the winner's row.
func (s *TokenService) GetOrCreate(ctx context.Context, tableNumber int) (*models.TableToken, error) {
	if tableNumber <= 0 {
		return nil, &ValidationError{Field: "table_number", Message: "must be a positive integer"}
	}

	ctx, span := tracer.Start(ctx, "TokenService.GetOrCreate",
		trace.WithAttributes(attribute.Int("table.number", tableNumber)))
	defer span.End()

	var result *models.TableToken
	attempt := 0
	op := func() error {
		attempt++
		existing, err := s.repo.FindActiveByTable(ctx, tableNumber)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return backoff.Permanent(err)
		}

		token, err := s.newToken(tableNumber)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := s.repo.Create(ctx, token); err != nil {
			if repository.IsDuplicateKey(err) {
				s.log.WithFields(logrus.Fields{
					"table_number": tableNumber,
					"attempt":      attempt,
				}).Debug("token insert lost race, retrying")
				return err
			}
			return backoff.Permanent(err)
		}

		s.log.WithFields(logrus.Fields{
			"table_number": tableNumber,
			"token":        utils.TokenPrefix(token.Token),
		}).Info("issued table token")
		result = token
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(createRetryInterval), s.retries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		spanError(span, err)
		return nil, &PersistenceError{Op: "issue table token", Err: err}
	}
	span.SetAttributes(attribute.Int("token.attempts", attempt))
	return result, nil
}

func (s *TokenService) newToken(tableNumber int) (*models.TableToken, error) {
	secret, err := utils.NewTableSecret()
	if err != nil {
		return nil, err
	}
	code, err := utils.NewActivationCode()
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &models.TableToken{
		Token:          secret,
		TableNumber:    tableNumber,
		IsActive:       true,
		ActivationCode: code,
		LastUsed:       now,
		CreatedAt:      now,
	}, nil
}

// Validate resolves a token string. Unknown, retired and expired tokens all
// yield ErrInvalidToken; any other error is a storage failure.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.TableToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	row, err := s.repo.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, &PersistenceError{Op: "look up table token", Err: err}
	}
	if !row.UsableAt(s.now()) {
		return nil, ErrInvalidToken
	}
	return row, nil
}

// ValidateForUse is Validate plus a best-effort last_used bump.
func (s *TokenService) ValidateForUse(ctx context.Context, token string) (*models.TableToken, error) {
	row, err := s.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	s.Touch(ctx, row)
	return row, nil
}

// Touch records use of a validated token. Failures are logged only.
func (s *TokenService) Touch(ctx context.Context, row *models.TableToken) {
	now := s.now()
	if err := s.repo.TouchLastUsed(ctx, row.ID, now); err != nil {
		s.log.WithError(err).WithField("table_number", row.TableNumber).Warn("failed to update token last_used")
		return
	}
	row.LastUsed = now
}

// Activate opens a session window on the table's active token. A zero
// duration uses the configured default.
func (s *TokenService) Activate(ctx context.Context, tableNumber int, duration time.Duration) (*models.TableToken, error) {
	row, err := s.activeForTable(ctx, tableNumber)
	if err != nil {
		return nil, err
	}
	return s.activate(ctx, row, duration)
}

// ActivateWithCode lets a patron open the session by typing the code shown at
// the table.
func (s *TokenService) ActivateWithCode(ctx context.Context, token, code string) (*models.TableToken, error) {
	row, err := s.repo.FindByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, &PersistenceError{Op: "look up table token", Err: err}
	}
	if !row.IsActive {
		return nil, ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(row.ActivationCode), []byte(code)) != 1 {
		return nil, &ValidationError{Field: "activation_code", Message: "does not match"}
	}
	return s.activate(ctx, row, 0)
}

func (s *TokenService) activate(ctx context.Context, row *models.TableToken, duration time.Duration) (*models.TableToken, error) {
	if duration <= 0 {
		duration = s.duration
	}
	start := s.now()
	end := start.Add(duration)
	if err := s.repo.Activate(ctx, row.ID, start, end); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "active token for table", ID: row.TableNumber}
		}
		return nil, &PersistenceError{Op: "activate table session", Err: err}
	}
	row.SessionActive = true
	row.SessionStart = &start
	row.SessionEnd = &end

	s.log.WithFields(logrus.Fields{
		"table_number": row.TableNumber,
		"session_end":  end.Format(time.RFC3339),
	}).Info("table session activated")
	return row, nil
}

// Deactivate closes the table's session window now. The token stays active.
func (s *TokenService) Deactivate(ctx context.Context, tableNumber int) (*models.TableToken, error) {
	row, err := s.activeForTable(ctx, tableNumber)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.repo.Deactivate(ctx, row.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "active token for table", ID: tableNumber}
		}
		return nil, &PersistenceError{Op: "deactivate table session", Err: err}
	}
	row.SessionActive = false
	row.SessionEnd = &now

	s.log.WithField("table_number", tableNumber).Info("table session deactivated")
	return row, nil
}

// Retire permanently disables the table's token. The next GetOrCreate for
// the table issues a fresh one.
func (s *TokenService) Retire(ctx context.Context, tableNumber int) error {
	if tableNumber <= 0 {
		return &ValidationError{Field: "table_number", Message: "must be a positive integer"}
	}
	err := s.repo.Retire(ctx, tableNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: "active token for table", ID: tableNumber}
	}
	if err != nil {
		return &PersistenceError{Op: "retire table token", Err: err}
	}
	s.log.WithField("table_number", tableNumber).Info("table token retired")
	return nil
}

// ListActiveSessions returns tokens whose session window is open right now.
func (s *TokenService) ListActiveSessions(ctx context.Context) ([]models.TableToken, error) {
	tokens, err := s.repo.ListActiveSessions(ctx, s.now())
	if err != nil {
		return nil, &PersistenceError{Op: "list active tables", Err: err}
	}
	return tokens, nil
}

func (s *TokenService) activeForTable(ctx context.Context, tableNumber int) (*models.TableToken, error) {
	if tableNumber <= 0 {
		return nil, &ValidationError{Field: "table_number", Message: "must be a positive integer"}
	}
	row, err := s.repo.FindActiveByTable(ctx, tableNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "active token for table", ID: tableNumber}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "look up table token", Err: err}
	}
	return row, nil
}

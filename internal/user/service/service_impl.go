package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizhub/internal/clock"
	"github.com/smallbiznis/bizhub/internal/user/domain"
	"github.com/smallbiznis/bizhub/internal/user/password"
	"github.com/smallbiznis/bizhub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	var hash *string
	if req.Password != "" {
		hashed, err := password.Hash(req.Password)
		if err != nil {
			return domain.User{}, err
		}
		hash = &hashed
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.User, error) {
	userID, err := domain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

// Delete removes the principal row and clears dangling references. The
// activity ledger keeps its entries and voided items keep their void state;
// only the actor pointers are nulled, mirroring ON DELETE SET NULL for
// engines where the constraint is not declared.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := domain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.Delete(ctx, tx, userID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotFound
		}

		if err := tx.Exec(`UPDATE activity_logs SET actor_user_id = NULL WHERE actor_user_id = ?`, userID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE invoice_items SET voided_by_user_id = NULL WHERE voided_by_user_id = ?`, userID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE customers SET deleted_by_user_id = NULL WHERE deleted_by_user_id = ?`, userID).Error; err != nil {
			return err
		}
		if err := tx.Exec(`UPDATE assets SET deleted_by_user_id = NULL WHERE deleted_by_user_id = ?`, userID).Error; err != nil {
			return err
		}

		s.log.Info("deleted principal", zap.String("user_id", userID.String()))
		return nil
	})
}

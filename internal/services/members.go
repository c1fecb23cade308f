package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vibepay/internal/models"
	"vibepay/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type MemberService struct {
	Members MemberStore
	Ledger  LedgerStore
	// InitialBalance is granted to every new member as an EARN entry.
	InitialBalance int64
}

type SignupInput struct {
	Email    string
	Password string
	Name     string
}

func (s *MemberService) Signup(ctx context.Context, in SignupInput) (*models.Member, error) {
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, validationf("email, password and name are required")
	}

	if _, err := s.Members.GetMemberByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	member := &models.Member{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.Members.CreateMember(ctx, member); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if err := s.Ledger.CreateInitialBalance(ctx, member.ID, s.InitialBalance); err != nil {
		slog.Error("initial point grant failed", "memberId", member.ID, "err", err)
		return nil, err
	}

	return member, nil
}

func (s *MemberService) Login(ctx context.Context, email, password string) (*models.Member, error) {
	member, err := s.Members.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return member, nil
}

func (s *MemberService) GetMember(ctx context.Context, memberID string) (*models.Member, error) {
	member, err := s.Members.GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return member, nil
}

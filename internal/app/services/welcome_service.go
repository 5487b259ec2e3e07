package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/faeln1/go-onebot-guard/internal/app/repositories"
	"github.com/faeln1/go-onebot-guard/internal/domain/welcome"
	"github.com/faeln1/go-onebot-guard/internal/platform/onebot"
)

const MaxWelcomeLength = 500

var (
	ErrWelcomeEmpty   = errors.New("welcome message is empty")
	ErrWelcomeTooLong = fmt.Errorf("welcome message exceeds %d characters", MaxWelcomeLength)
)

type WelcomeService interface {
	Set(ctx context.Context, groupID, message string) (*welcome.Template, error)
	Delete(ctx context.Context, groupID string) error
	Get(ctx context.Context, groupID string) (*welcome.Template, error)
}

type welcomeService struct {
	repo repositories.WelcomeRepository
}

func NewWelcomeService(repo repositories.WelcomeRepository) WelcomeService {
	return &welcomeService{repo: repo}
}

func (s *welcomeService) Set(ctx context.Context, groupID, message string) (*welcome.Template, error) {
	if !onebot.IsNumericID(strings.TrimSpace(groupID)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupID, groupID)
	}
	// Operators type "\n" literally in chat.
	message = strings.TrimSpace(strings.ReplaceAll(message, `\n`, "\n"))
	if message == "" {
		return nil, ErrWelcomeEmpty
	}
	if utf8.RuneCountInString(message) > MaxWelcomeLength {
		return nil, ErrWelcomeTooLong
	}
	return s.repo.Set(ctx, strings.TrimSpace(groupID), message)
}

func (s *welcomeService) Delete(ctx context.Context, groupID string) error {
	if !onebot.IsNumericID(strings.TrimSpace(groupID)) {
		return fmt.Errorf("%w: %q", ErrInvalidGroupID, groupID)
	}
	return s.repo.Delete(ctx, strings.TrimSpace(groupID))
}

func (s *welcomeService) Get(ctx context.Context, groupID string) (*welcome.Template, error) {
	if !onebot.IsNumericID(strings.TrimSpace(groupID)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroupID, groupID)
	}
	return s.repo.Get(ctx, strings.TrimSpace(groupID))
}

package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	oauthService "github.com/allisson/tokend/internal/oauth/service"

	apperrors "github.com/allisson/tokend/internal/errors"
	appvalidation "github.com/allisson/tokend/internal/validation"
)

// clientUseCase implements ClientUseCase for administrative client registration.
type clientUseCase struct {
	clientRepo    ClientRepository
	secretService oauthService.SecretService
}

// NewClientUseCase creates a new ClientUseCase.
func NewClientUseCase(
	clientRepo ClientRepository,
	secretService oauthService.SecretService,
) ClientUseCase {
	return &clientUseCase{
		clientRepo:    clientRepo,
		secretService: secretService,
	}
}

// validateCreateInput validates the registration input.
func (u *clientUseCase) validateCreateInput(input *oauthDomain.CreateClientInput) error {
	err := validation.Errors{
		"client_id": validation.Validate(input.ClientID,
			validation.Required.Error("client_id is required"),
			appvalidation.ClientID,
			validation.Length(1, 255).Error("client_id must be between 1 and 255 characters"),
		),
		"name": validation.Validate(input.Name,
			validation.Required.Error("name is required"),
			appvalidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
	}.Filter()
	return appvalidation.WrapValidationError(err)
}

// Create registers a new client. The generated secret is returned in plain
// exactly once; only its hash is stored.
func (u *clientUseCase) Create(
	ctx context.Context,
	input *oauthDomain.CreateClientInput,
) (*oauthDomain.CreateClientOutput, error) {
	if err := u.validateCreateInput(input); err != nil {
		return nil, err
	}

	if _, err := u.clientRepo.GetByClientID(ctx, input.ClientID); err == nil {
		return nil, oauthDomain.ErrClientExists
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	plainSecret, hashedSecret, err := u.secretService.GenerateSecret()
	if err != nil {
		return nil, err
	}

	client := &oauthDomain.Client{
		ID:                  uuid.Must(uuid.NewV7()),
		ClientID:            input.ClientID,
		Secret:              hashedSecret,
		Name:                strings.TrimSpace(input.Name),
		IsActive:            true,
		AllowedScopes:       input.AllowedScopes,
		DefaultSubjectID:    input.DefaultSubjectID,
		RefreshTokenEnabled: input.RefreshTokenEnabled,
		CreatedAt:           time.Now().UTC(),
	}

	if err := u.clientRepo.Create(ctx, client); err != nil {
		return nil, err
	}

	return &oauthDomain.CreateClientOutput{
		Client:      client,
		PlainSecret: plainSecret,
	}, nil
}

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	oauthUseCase "github.com/allisson/tokend/internal/oauth/usecase"
)

// RunCreateClient registers a new OAuth client. The generated secret is
// printed exactly once; only its hash is stored. Outputs the client id
// and plain secret in either text or JSON format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateClient(
	ctx context.Context,
	clientUseCase oauthUseCase.ClientUseCase,
	logger *slog.Logger,
	clientID string,
	name string,
	allowedScopesCSV string,
	refreshTokenEnabled bool,
	defaultSubjectID string,
	format string,
	io IOTuple,
) error {
	logger.Info("creating new client", slog.String("client_id", clientID))

	input := &oauthDomain.CreateClientInput{
		ClientID:            clientID,
		Name:                name,
		AllowedScopes:       splitCSV(allowedScopesCSV),
		RefreshTokenEnabled: refreshTokenEnabled,
	}

	if defaultSubjectID != "" {
		subjectID, err := uuid.Parse(defaultSubjectID)
		if err != nil {
			return fmt.Errorf("invalid default subject id: %w", err)
		}
		input.DefaultSubjectID = &subjectID
	}

	output, err := clientUseCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if format == "json" {
		outputJSON(map[string]any{
			"id":                    output.Client.ID.String(),
			"client_id":             output.Client.ClientID,
			"secret":                output.PlainSecret,
			"allowed_scopes":        output.Client.AllowedScopes,
			"refresh_token_enabled": output.Client.RefreshTokenEnabled,
		}, io.Writer)
	} else {
		_, _ = fmt.Fprintln(io.Writer, "Client created successfully")
		_, _ = fmt.Fprintf(io.Writer, "ID:        %s\n", output.Client.ID)
		_, _ = fmt.Fprintf(io.Writer, "Client ID: %s\n", output.Client.ClientID)
		_, _ = fmt.Fprintf(io.Writer, "Secret:    %s\n", output.PlainSecret)
		_, _ = fmt.Fprintln(io.Writer, "\nSave the secret now. It cannot be recovered later.")
	}

	logger.Info("client created successfully",
		slog.String("id", output.Client.ID.String()),
		slog.String("client_id", output.Client.ClientID),
	)

	return nil
}

package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	oauthDomain "github.com/allisson/tokend/internal/oauth/domain"
	"github.com/allisson/tokend/internal/oauth/usecase/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testIO(input string) (IOTuple, *bytes.Buffer) {
	output := &bytes.Buffer{}
	return IOTuple{Reader: strings.NewReader(input), Writer: output}, output
}

func TestRunCreateClient(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_TextOutput", func(t *testing.T) {
		clientUseCase := &mocks.MockClientUseCase{}
		clientUseCase.On("Create", mock.Anything, mock.MatchedBy(func(input *oauthDomain.CreateClientInput) bool {
			return input.ClientID == "web-app" &&
				input.Name == "Web App" &&
				assert.ObjectsAreEqual([]string{"content:read", "content:write"}, input.AllowedScopes) &&
				input.RefreshTokenEnabled
		})).Return(&oauthDomain.CreateClientOutput{
			Client: &oauthDomain.Client{
				ID:                  uuid.New(),
				ClientID:            "web-app",
				Name:                "Web App",
				IsActive:            true,
				AllowedScopes:       []string{"content:read", "content:write"},
				RefreshTokenEnabled: true,
				CreatedAt:           time.Now(),
			},
			PlainSecret: "plain-secret-value",
		}, nil)

		commandIO, output := testIO("")
		err := RunCreateClient(
			ctx, clientUseCase, testLogger(),
			"web-app", "Web App", "content:read, content:write",
			true, "", "text", commandIO,
		)

		require.NoError(t, err)
		assert.Contains(t, output.String(), "Client created successfully")
		assert.Contains(t, output.String(), "Client ID: web-app")
		assert.Contains(t, output.String(), "Secret:    plain-secret-value")
		assert.Contains(t, output.String(), "Save the secret now. It cannot be recovered later.")
		clientUseCase.AssertExpectations(t)
	})

	t.Run("Success_JSONOutput", func(t *testing.T) {
		clientID := uuid.New()
		clientUseCase := &mocks.MockClientUseCase{}
		clientUseCase.On("Create", mock.Anything, mock.Anything).Return(&oauthDomain.CreateClientOutput{
			Client: &oauthDomain.Client{
				ID:       clientID,
				ClientID: "cli-app",
				Name:     "CLI App",
				IsActive: true,
			},
			PlainSecret: "another-secret",
		}, nil)

		commandIO, output := testIO("")
		err := RunCreateClient(
			ctx, clientUseCase, testLogger(),
			"cli-app", "CLI App", "", false, "", "json", commandIO,
		)

		require.NoError(t, err)
		assert.Contains(t, output.String(), `"client_id": "cli-app"`)
		assert.Contains(t, output.String(), `"secret": "another-secret"`)
		assert.Contains(t, output.String(), clientID.String())
	})

	t.Run("Success_DefaultSubject", func(t *testing.T) {
		subjectID := uuid.New()
		clientUseCase := &mocks.MockClientUseCase{}
		clientUseCase.On("Create", mock.Anything, mock.MatchedBy(func(input *oauthDomain.CreateClientInput) bool {
			return input.DefaultSubjectID != nil && *input.DefaultSubjectID == subjectID
		})).Return(&oauthDomain.CreateClientOutput{
			Client:      &oauthDomain.Client{ID: uuid.New(), ClientID: "service-app"},
			PlainSecret: "secret",
		}, nil)

		commandIO, _ := testIO("")
		err := RunCreateClient(
			ctx, clientUseCase, testLogger(),
			"service-app", "Service App", "", false, subjectID.String(), "text", commandIO,
		)

		require.NoError(t, err)
		clientUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidDefaultSubject", func(t *testing.T) {
		clientUseCase := &mocks.MockClientUseCase{}

		commandIO, _ := testIO("")
		err := RunCreateClient(
			ctx, clientUseCase, testLogger(),
			"service-app", "Service App", "", false, "not-a-uuid", "text", commandIO,
		)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid default subject id")
		clientUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("Error_UseCaseFailure", func(t *testing.T) {
		clientUseCase := &mocks.MockClientUseCase{}
		clientUseCase.On("Create", mock.Anything, mock.Anything).
			Return(nil, assert.AnError)

		commandIO, _ := testIO("")
		err := RunCreateClient(
			ctx, clientUseCase, testLogger(),
			"web-app", "Web App", "", false, "", "text", commandIO,
		)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create client")
	})
}

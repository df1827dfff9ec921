package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	subjectDomain "github.com/allisson/tokend/internal/subject/domain"
	subjectUseCase "github.com/allisson/tokend/internal/subject/usecase"
)

// RunCreateSubject registers a new resource owner. When password is
// empty the command prompts for it interactively. Permissions and roles
// are comma-separated host-defined values consumed by granularity
// policies.
//
// Requirements: Database must be migrated and accessible.
func RunCreateSubject(
	ctx context.Context,
	useCase subjectUseCase.SubjectUseCase,
	logger *slog.Logger,
	username string,
	password string,
	permissionsCSV string,
	rolesCSV string,
	format string,
	io IOTuple,
) error {
	logger.Info("creating new subject", slog.String("username", username))

	if password == "" {
		prompted, err := promptForPassword(io)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = prompted
	}

	input := &subjectDomain.CreateSubjectInput{
		Username:    username,
		Password:    password,
		Permissions: splitCSV(permissionsCSV),
		Roles:       splitCSV(rolesCSV),
	}

	subject, err := useCase.Create(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create subject: %w", err)
	}

	if format == "json" {
		outputJSON(map[string]any{
			"id":          subject.ID.String(),
			"username":    subject.Username,
			"permissions": subject.Permissions,
			"roles":       subject.Roles,
		}, io.Writer)
	} else {
		_, _ = fmt.Fprintln(io.Writer, "Subject created successfully")
		_, _ = fmt.Fprintf(io.Writer, "ID:       %s\n", subject.ID)
		_, _ = fmt.Fprintf(io.Writer, "Username: %s\n", subject.Username)
	}

	logger.Info("subject created successfully",
		slog.String("id", subject.ID.String()),
		slog.String("username", subject.Username),
	)

	return nil
}

// promptForPassword reads the password from the interactive reader.
func promptForPassword(io IOTuple) (string, error) {
	reader := bufio.NewReader(io.Reader)

	_, _ = fmt.Fprint(io.Writer, "Enter password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

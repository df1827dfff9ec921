package app

import (
	"fmt"
	"sync"

	subjectRepository "github.com/allisson/tokend/internal/subject/repository"
	subjectUseCase "github.com/allisson/tokend/internal/subject/usecase"
)

// subjectComponents holds the subject feature dependencies inside the container.
type subjectComponents struct {
	subjectRepo        subjectUseCase.SubjectRepository
	subjectUseCase     subjectUseCase.SubjectUseCase
	subjectRepoInit    sync.Once
	subjectUseCaseInit sync.Once
}

// SubjectRepository returns the subject repository instance.
func (c *Container) SubjectRepository() (subjectUseCase.SubjectRepository, error) {
	var err error
	c.subjectRepoInit.Do(func() {
		c.subjectRepo, err = c.initSubjectRepository()
		if err != nil {
			c.initErrors["subjectRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subjectRepo"]; exists {
		return nil, storedErr
	}
	return c.subjectRepo, nil
}

// SubjectUseCase returns the subject use case instance.
func (c *Container) SubjectUseCase() (subjectUseCase.SubjectUseCase, error) {
	var err error
	c.subjectUseCaseInit.Do(func() {
		c.subjectUseCase, err = c.initSubjectUseCase()
		if err != nil {
			c.initErrors["subjectUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["subjectUseCase"]; exists {
		return nil, storedErr
	}
	return c.subjectUseCase, nil
}

// initSubjectRepository creates the subject repository instance.
func (c *Container) initSubjectRepository() (subjectUseCase.SubjectRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for subject repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return subjectRepository.NewMySQLSubjectRepository(db), nil
	case "postgres":
		return subjectRepository.NewPostgreSQLSubjectRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSubjectUseCase creates the subject use case.
func (c *Container) initSubjectUseCase() (subjectUseCase.SubjectUseCase, error) {
	subjectRepo, err := c.SubjectRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get subject repository for subject use case: %w", err)
	}

	useCase, err := subjectUseCase.NewSubjectUseCase(subjectRepo)
	if err != nil {
		return nil, fmt.Errorf("failed to create subject use case: %w", err)
	}

	return useCase, nil
}

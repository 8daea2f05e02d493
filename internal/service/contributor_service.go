package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

const pqUniqueViolation = "23505"

type contributorRepository interface {
	List(ctx context.Context, filter models.ContributorFilter) ([]models.Contributor, int, error)
	FindByID(ctx context.Context, id int64) (*models.Contributor, error)
	FindByUserID(ctx context.Context, userID string) (*models.Contributor, error)
	Create(ctx context.Context, contributor *models.Contributor) error
	Update(ctx context.Context, contributor *models.Contributor) error
	Delete(ctx context.Context, id int64) error
}

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.ContributorAssignment) error
	Delete(ctx context.Context, id int64) error
	ListByContributor(ctx context.Context, contributorID int64) ([]models.ContributorAssignment, error)
}

type contentLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.ContentItem, error)
}

// ContributorRequest represents payload for creating or updating contributors.
type ContributorRequest struct {
	UserID      *string `json:"user_id" validate:"omitempty,uuid"`
	FirstName   string  `json:"first_name" validate:"required,max=100"`
	LastName    string  `json:"last_name" validate:"max=100"`
	Email       string  `json:"email" validate:"required,email"`
	PhoneNumber string  `json:"phone_number" validate:"max=50"`
	Address     string  `json:"address" validate:"max=255"`
	PhotoURL    string  `json:"photo_url" validate:"omitempty,url"`
	Biography   string  `json:"biography" validate:"max=2000"`
}

// AssignmentRequest links a contributor to a scheduled item.
type AssignmentRequest struct {
	ContributorID      int64                 `json:"contributor_id" validate:"required,gt=0"`
	ScheduledContentID int64                 `json:"scheduled_content_id" validate:"required,gt=0"`
	Role               models.AssignmentRole `json:"role" validate:"required,oneof=Host CoHost Guest Reporter"`
}

// ContributorService manages contributor profiles and their assignments.
type ContributorService struct {
	repo        contributorRepository
	assignments assignmentRepository
	content     contentLookup
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewContributorService constructs a ContributorService.
func NewContributorService(repo contributorRepository, assignments assignmentRepository, content contentLookup, validate *validator.Validate, logger *zap.Logger) *ContributorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContributorService{repo: repo, assignments: assignments, content: content, validator: validate, logger: logger}
}

// List returns contributors plus pagination data.
func (s *ContributorService) List(ctx context.Context, filter models.ContributorFilter) ([]models.Contributor, *models.Pagination, error) {
	contributors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contributors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	if contributors == nil {
		contributors = []models.Contributor{}
	}
	return contributors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a contributor by id.
func (s *ContributorService) Get(ctx context.Context, id int64) (*models.Contributor, error) {
	contributor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contributor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contributor")
	}
	return contributor, nil
}

// GetByUser returns the profile linked to the signed-in account.
func (s *ContributorService) GetByUser(ctx context.Context, userID string) (*models.Contributor, error) {
	contributor, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no contributor profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contributor")
	}
	return contributor, nil
}

// Create registers a new contributor.
func (s *ContributorService) Create(ctx context.Context, req ContributorRequest) (*models.Contributor, error) {
	req = normalizeContributorRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contributor payload")
	}

	contributor := &models.Contributor{}
	applyContributorRequest(contributor, req)
	if err := s.repo.Create(ctx, contributor); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "contributor email or account already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contributor")
	}
	s.logger.Info("contributor created", zap.Int64("id", contributor.ID))
	return contributor, nil
}

// Update replaces the mutable fields of a contributor.
func (s *ContributorService) Update(ctx context.Context, id int64, req ContributorRequest) (*models.Contributor, error) {
	req = normalizeContributorRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contributor payload")
	}

	contributor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyContributorRequest(contributor, req)
	if err := s.repo.Update(ctx, contributor); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contributor not found")
		case isUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "contributor email or account already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contributor")
	}
	return contributor, nil
}

// Delete removes a contributor with its assignments and payments.
func (s *ContributorService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contributor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contributor")
	}
	s.logger.Info("contributor deleted", zap.Int64("id", id))
	return nil
}

// Assign links a contributor to a scheduled item.
func (s *ContributorService) Assign(ctx context.Context, req AssignmentRequest) (*models.ContributorAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if _, err := s.Get(ctx, req.ContributorID); err != nil {
		return nil, err
	}
	if _, err := s.content.FindByID(ctx, nil, req.ScheduledContentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	assignment := &models.ContributorAssignment{
		ContributorID:      req.ContributorID,
		ScheduledContentID: req.ScheduledContentID,
		Role:               req.Role,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "contributor already assigned with this role")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Unassign removes an assignment.
func (s *ContributorService) Unassign(ctx context.Context, id int64) error {
	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

// Assignments lists a contributor's assignments.
func (s *ContributorService) Assignments(ctx context.Context, contributorID int64) ([]models.ContributorAssignment, error) {
	assignments, err := s.assignments.ListByContributor(ctx, contributorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.ContributorAssignment{}
	}
	return assignments, nil
}

func normalizeContributorRequest(req ContributorRequest) ContributorRequest {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Address = strings.TrimSpace(req.Address)
	req.PhotoURL = strings.TrimSpace(req.PhotoURL)
	req.Biography = strings.TrimSpace(req.Biography)
	if req.UserID != nil {
		trimmed := strings.TrimSpace(*req.UserID)
		if trimmed == "" {
			req.UserID = nil
		} else {
			req.UserID = &trimmed
		}
	}
	return req
}

func applyContributorRequest(contributor *models.Contributor, req ContributorRequest) {
	contributor.UserID = req.UserID
	contributor.FirstName = req.FirstName
	contributor.LastName = req.LastName
	contributor.Email = req.Email
	contributor.PhoneNumber = req.PhoneNumber
	contributor.Address = req.Address
	contributor.PhotoURL = req.PhotoURL
	contributor.Biography = req.Biography
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

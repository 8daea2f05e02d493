package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/radio-schedule-api/internal/middleware"
	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/internal/service"
	appErrors "github.com/noah-isme/radio-schedule-api/pkg/errors"
)

type userServiceMock struct {
	filter      models.UserFilter
	actor       string
	deactivated string
}

func (m *userServiceMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.filter = filter
	return []models.User{{ID: "u1", Email: "ann@station.fm"}}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (m *userServiceMock) Get(ctx context.Context, id string) (*models.User, error) {
	if id != "u1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return &models.User{ID: "u1", Email: "ann@station.fm"}, nil
}

func (m *userServiceMock) Update(ctx context.Context, id string, req service.UpdateUserRequest, actorID string) (*models.User, error) {
	m.actor = actorID
	return &models.User{ID: id, FullName: req.FullName, Role: req.Role}, nil
}

func (m *userServiceMock) Deactivate(ctx context.Context, id string, actorID string) error {
	m.actor = actorID
	m.deactivated = id
	return nil
}

type userCreatorMock struct{}

func (userCreatorMock) CreateUser(ctx context.Context, req service.CreateUserRequest) (*models.User, error) {
	if req.Email == "taken@station.fm" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	}
	return &models.User{ID: "new", Email: req.Email, Role: req.Role}, nil
}

func TestUserHandlerList(t *testing.T) {
	svc := &userServiceMock{}
	h := NewUserHandler(svc, userCreatorMock{})

	c, w := newGinContext(http.MethodGet, "/users?role=CONTRIBUTOR&active=true&page=2&page_size=5&search=ann", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.Role)
	assert.Equal(t, models.RoleContributor, *svc.filter.Role)
	require.NotNil(t, svc.filter.Active)
	assert.True(t, *svc.filter.Active)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.PageSize)
	assert.Equal(t, "ann", svc.filter.Search)
}

func TestUserHandlerGetNotFound(t *testing.T) {
	h := NewUserHandler(&userServiceMock{}, userCreatorMock{})

	c, w := newGinContext(http.MethodGet, "/users/zz", nil)
	c.Params = gin.Params{{Key: "id", Value: "zz"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserHandlerCreate(t *testing.T) {
	h := NewUserHandler(&userServiceMock{}, userCreatorMock{})

	c, w := newGinContext(http.MethodPost, "/users", mustJSON(t, service.CreateUserRequest{Email: "new@station.fm", Password: "longenough", FullName: "New", Role: models.RoleContributor}))
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodPost, "/users", mustJSON(t, service.CreateUserRequest{Email: "taken@station.fm"}))
	h.Create(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUserHandlerUpdateRequiresClaims(t *testing.T) {
	svc := &userServiceMock{}
	h := NewUserHandler(svc, userCreatorMock{})
	body := mustJSON(t, service.UpdateUserRequest{FullName: "Ann", Role: models.RoleAdmin})

	c, w := newGinContext(http.MethodPut, "/users/u1", body)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}
	h.Update(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPut, "/users/u1", body)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	h.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", svc.actor)
}

func TestUserHandlerDelete(t *testing.T) {
	svc := &userServiceMock{}
	h := NewUserHandler(svc, userCreatorMock{})

	c, w := newGinContext(http.MethodDelete, "/users/u1", nil)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u1", svc.deactivated)
}

package db

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/balkashynov/mentalbank/internal/apperrors"
	"github.com/balkashynov/mentalbank/internal/earnings"
	"github.com/balkashynov/mentalbank/internal/models"
)

// CreateCategoryRequest holds the data needed to create a new category
type CreateCategoryRequest struct {
	OwnerID       string
	Name          string
	Color         string
	HourlyRateUSD *float64
}

// CreateCategory creates a new category for the owner
func (s *Store) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.Validation("name", "name is required")
	}
	if req.HourlyRateUSD != nil && !earnings.ValidRate(*req.HourlyRateUSD) {
		return nil, apperrors.Validation("hourlyRateUsd", "hourlyRateUsd must be a non-negative number no greater than 1000000000")
	}

	category := models.Category{
		ID:            uuid.NewString(),
		OwnerID:       req.OwnerID,
		Name:          name,
		Color:         strings.TrimSpace(req.Color),
		HourlyRateUSD: req.HourlyRateUSD,
	}

	if err := s.DB.WithContext(ctx).Create(&category).Error; err != nil {
		if IsDuplicate(err) {
			return nil, apperrors.Validation("name", "a category named \""+name+"\" already exists")
		}
		return nil, apperrors.Upstream("create category", err)
	}
	return &category, nil
}

// GetCategory retrieves one of the owner's categories by ID
func (s *Store) GetCategory(ctx context.Context, ownerID, id string) (*models.Category, error) {
	var category models.Category
	err := s.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&category).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.NotFound("category")
		}
		return nil, apperrors.Upstream("fetch category", err)
	}
	return &category, nil
}

// FindCategoryByName looks a category up by its case-insensitive name
func (s *Store) FindCategoryByName(ctx context.Context, ownerID, name string) (*models.Category, error) {
	var category models.Category
	err := s.DB.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) = LOWER(?)", ownerID, strings.TrimSpace(name)).
		First(&category).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.NotFound("category")
		}
		return nil, apperrors.Upstream("fetch category", err)
	}
	return &category, nil
}

// ListCategories returns the owner's categories ordered by name
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]models.Category, error) {
	var categories []models.Category
	err := s.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&categories).Error
	if err != nil {
		return nil, apperrors.Upstream("list categories", err)
	}
	return categories, nil
}

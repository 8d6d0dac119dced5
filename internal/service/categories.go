package service

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "tazkara/internal/errors"
	"tazkara/internal/models"
	"tazkara/internal/repository"
)

type CategoryService struct {
	categories *repository.CategoryRepository
}

func NewCategoryService(categories *repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) Create(ctx context.Context, createdBy primitive.ObjectID, req *models.CreateCategoryRequest) (*models.Category, error) {
	category := &models.Category{
		Name:      req.Name,
		CreatedBy: createdBy,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	categoryID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	if category == nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *CategoryService) Update(ctx context.Context, id string, req *models.UpdateCategoryRequest) (*models.Category, error) {
	categoryID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.ErrCategoryNotFound
	}
	if err := s.categories.Update(ctx, categoryID, req.Name); err != nil {
		return nil, err
	}
	return s.categories.GetByID(ctx, categoryID)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	categoryID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.ErrCategoryNotFound
	}
	return s.categories.Delete(ctx, categoryID)
}

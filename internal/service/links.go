package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mvolkov/biotap/internal/link"
	"github.com/mvolkov/biotap/internal/models"
)

const defaultLinksPageSize = 100

// CreateLink stores a new link owned by the given user.
func (s *Service) CreateLink(ctx context.Context, userID string, request *models.LinkCreateRequest) (*link.Link, error) {
	isActive := true
	if request.IsActive != nil {
		isActive = *request.IsActive
	}

	now := time.Now()
	lnk := &link.Link{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        request.Title,
		URL:          request.URL,
		Description:  request.Description,
		Icon:         request.Icon,
		IsActive:     isActive,
		DisplayOrder: request.DisplayOrder,
		CreatedAt:    now,
	}
	if err := s.db.CreateLink(ctx, lnk); err != nil {
		return nil, fmt.Errorf(
			"in internal/service/links.go/CreateLink(): error while `s.db.CreateLink()` calling: %w",
			err,
		)
	}

	return lnk, nil
}

// GetLink returns a link after checking it belongs to the given user.
func (s *Service) GetLink(ctx context.Context, userID, linkID string) (*link.Link, error) {
	lnk, err := s.db.GetLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/service/links.go/GetLink(): error while `s.db.GetLinkByID()` calling: %w",
			err,
		)
	}
	if lnk.UserID != userID {
		return nil, models.ErrNotOwner
	}

	return lnk, nil
}

// GetUserLinks lists the links of the user, ordered for display, with
// skip/limit paging. A non-positive limit falls back to the default
// page size.
func (s *Service) GetUserLinks(ctx context.Context, userID string, skip, limit int) ([]link.Link, error) {
	if limit <= 0 {
		limit = defaultLinksPageSize
	}
	if skip < 0 {
		skip = 0
	}

	links, err := s.db.GetUserLinks(ctx, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/links.go/GetUserLinks(): error while `s.db.GetUserLinks()` calling: %w",
			err,
		)
	}

	return links, nil
}

// UpdateLink applies the non-nil fields of the request to a link owned
// by the given user.
func (s *Service) UpdateLink(ctx context.Context, userID, linkID string, request *models.LinkUpdateRequest) (*link.Link, error) {
	lnk, err := s.GetLink(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}

	if request.Title != nil {
		lnk.Title = *request.Title
	}
	if request.URL != nil {
		lnk.URL = *request.URL
	}
	if request.Description != nil {
		lnk.Description = *request.Description
	}
	if request.Icon != nil {
		lnk.Icon = *request.Icon
	}
	if request.IsActive != nil {
		lnk.IsActive = *request.IsActive
	}
	if request.DisplayOrder != nil {
		lnk.DisplayOrder = *request.DisplayOrder
	}

	now := time.Now()
	lnk.UpdatedAt = &now
	if err := s.db.UpdateLink(ctx, lnk); err != nil {
		return nil, fmt.Errorf(
			"in internal/service/links.go/UpdateLink(): error while `s.db.UpdateLink()` calling: %w",
			err,
		)
	}

	return lnk, nil
}

// DeleteLink removes a link owned by the given user.
func (s *Service) DeleteLink(ctx context.Context, userID, linkID string) error {
	if _, err := s.GetLink(ctx, userID, linkID); err != nil {
		return err
	}

	if err := s.db.DeleteLink(ctx, linkID); err != nil {
		return fmt.Errorf(
			"in internal/service/links.go/DeleteLink(): error while `s.db.DeleteLink()` calling: %w",
			err,
		)
	}

	return nil
}

// RegisterClick bumps the click counter of an active link.
func (s *Service) RegisterClick(ctx context.Context, linkID string) (*link.Link, error) {
	lnk, err := s.db.GetLinkByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf(
			"in internal/service/links.go/RegisterClick(): error while `s.db.GetLinkByID()` calling: %w",
			err,
		)
	}
	if !lnk.IsActive {
		return nil, models.ErrLinkInactive
	}

	lnk, err = s.db.IncrementClickCount(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf(
			"in internal/service/links.go/RegisterClick(): error while `s.db.IncrementClickCount()` calling: %w",
			err,
		)
	}

	return lnk, nil
}

// ResolveClick records a click with its request metadata and returns
// the target URL to redirect to. The click event itself is persisted
// asynchronously by the tracker.
func (s *Service) ResolveClick(ctx context.Context, linkID string, job *models.ClickJob) (string, error) {
	lnk, err := s.RegisterClick(ctx, linkID)
	if err != nil {
		return "", err
	}

	job.LinkID = lnk.ID
	job.ClickedAt = time.Now()
	s.clicks.EnqueueJob(job)

	return lnk.URL, nil
}

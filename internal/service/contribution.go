// Package service — contributor dashboard and deletion business logic.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sheherjaano/backend/internal/apperror"
	"github.com/sheherjaano/backend/internal/model"
	"github.com/sheherjaano/backend/internal/repository"
)

// ContributionService serves the contributor dashboard: everything one user
// owns across the contributions collection and the five place collections,
// plus the deletion path that can demote them back to a plain user.
type ContributionService struct {
	places        repository.PlaceRepository
	contributions repository.ContributionRepository
	users         repository.UserRepository
	logger        *slog.Logger
}

// NewContributionService creates a ContributionService.
func NewContributionService(
	places repository.PlaceRepository,
	contributions repository.ContributionRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *ContributionService {
	return &ContributionService{
		places:        places,
		contributions: contributions,
		users:         users,
		logger:        logger,
	}
}

// DashboardItem is one owned content item, normalised across the six
// collections so the client can render a single list and address any item
// for deletion (IsContribution + Kind are exactly the parameters the delete
// endpoint takes back).
type DashboardItem struct {
	ID             string     `json:"id"`
	Kind           model.Kind `json:"kind"`
	KindLabel      string     `json:"kindLabel"`
	IsContribution bool       `json:"isContribution"`
	Name           string     `json:"name"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	Status         string     `json:"status,omitempty"`  // contributions only
	PlaceID        string     `json:"placeId,omitempty"` // contributions only
	CreatedAt      time.Time  `json:"createdAt"`
}

// Dashboard is the full owned-content view for one user.
type Dashboard struct {
	Items         []DashboardItem      `json:"items"`
	Contributions int64                `json:"contributions"`
	Places        map[model.Kind]int64 `json:"places"`
	Total         int64                `json:"total"`
}

// Dashboard lists everything the user owns, newest first.
//
// This is the read path over the six collections. The totals come from a
// count fan-out over the same collections rather than the user's atomic
// counter: the counter drives role transitions, this drives display, and the
// two stay honest independently.
func (s *ContributionService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	tally, err := s.tally(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Items:         []DashboardItem{},
		Contributions: tally.Contributions,
		Places:        tally.Places,
		Total:         tally.Total(),
	}

	contributions, err := s.contributions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/contribution: listing contributions for user %s: %w", userID, err)
	}
	for _, c := range contributions {
		d.Items = append(d.Items, DashboardItem{
			ID:             c.ID,
			Kind:           c.Type,
			KindLabel:      c.Type.Label(),
			IsContribution: true,
			Name:           c.Content,
			Status:         c.Status,
			PlaceID:        c.PlaceID,
			CreatedAt:      c.CreatedAt,
		})
	}

	for _, kind := range model.Kinds() {
		places, err := s.places.ListByUser(ctx, kind, userID)
		if err != nil {
			return nil, fmt.Errorf("service/contribution: listing %s for user %s: %w", kind, userID, err)
		}
		for _, p := range places {
			d.Items = append(d.Items, DashboardItem{
				ID:        p.ID,
				Kind:      kind,
				KindLabel: kind.Label(),
				Name:      p.Name,
				City:      p.City,
				State:     p.State,
				CreatedAt: p.CreatedAt,
			})
		}
	}

	sort.Slice(d.Items, func(i, j int) bool {
		return d.Items[i].CreatedAt.After(d.Items[j].CreatedAt)
	})

	return d, nil
}

// tally counts the caller's owned content per collection.
func (s *ContributionService) tally(ctx context.Context, userID string) (repository.ContentTally, error) {
	tally := repository.ContentTally{Places: map[model.Kind]int64{}}

	n, err := s.contributions.CountByUser(ctx, userID)
	if err != nil {
		return tally, fmt.Errorf("service/contribution: counting contributions for user %s: %w", userID, err)
	}
	tally.Contributions = n

	for _, kind := range model.Kinds() {
		n, err := s.places.CountByUser(ctx, kind, userID)
		if err != nil {
			return tally, fmt.Errorf("service/contribution: counting %s for user %s: %w", kind, userID, err)
		}
		tally.Places[kind] = n
	}

	return tally, nil
}

// DeleteResult reports the state after a deletion: how many items the caller
// still owns, and their new role when this deletion demoted them.
type DeleteResult struct {
	TotalItems int64
	NewRole    string
}

// Delete removes one owned item — a contribution, or a master place record.
//
// OWNERSHIP:
// Only the owner may delete. The check happens here, not in middleware,
// because ownership lives on the document, not in the token.
//
// ROLE DOWNGRADE:
// After the delete the owner's counter drops by one; at zero the conditional
// demotion flips them back to a plain user. Unlike promotion, no fresh token
// is minted — the old one keeps working until it expires, and the client
// re-reads the role from the response.
func (s *ContributionService) Delete(ctx context.Context, callerID string, kind model.Kind, id string, isContribution bool) (*DeleteResult, error) {
	var ownerID string

	if isContribution {
		c, err := s.contributions.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("service/contribution: resolving contribution %s: %w", id, err)
		}
		ownerID = c.UserID
	} else {
		if !kind.Valid() {
			return nil, apperror.ValidationFailed("model", fmt.Sprintf("unknown place kind %q", kind))
		}
		p, err := s.places.GetByID(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("service/contribution: resolving %s %s: %w", kind, id, err)
		}
		ownerID = p.UserID
	}

	if ownerID != callerID {
		return nil, apperror.Forbidden("you can only delete your own content")
	}

	if isContribution {
		if err := s.contributions.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("service/contribution: deleting contribution %s: %w", id, err)
		}
	} else {
		if err := s.places.Delete(ctx, kind, id); err != nil {
			return nil, fmt.Errorf("service/contribution: deleting %s %s: %w", kind, id, err)
		}
	}

	total, err := s.users.AdjustContentCount(ctx, callerID, -1)
	if err != nil {
		return nil, fmt.Errorf("service/contribution: counting content for user %s: %w", callerID, err)
	}

	result := &DeleteResult{TotalItems: total}

	if total == 0 {
		demoted, err := s.users.DemoteIfEmpty(ctx, callerID)
		if err != nil {
			return nil, fmt.Errorf("service/contribution: demoting user %s: %w", callerID, err)
		}
		if demoted {
			s.logger.Info("user demoted to plain user", slog.String("userID", callerID))
			result.NewRole = model.RoleUser
		}
	}

	s.logger.Info("content deleted",
		slog.String("userID", callerID),
		slog.String("itemID", id),
		slog.Bool("isContribution", isContribution),
		slog.Int64("remainingItems", total),
	)

	return result, nil
}

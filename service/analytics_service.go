package service

import (
	"context"

	"cmrp/models"

	"github.com/sirupsen/logrus"
)

// AnalyticsService serves the anonymous dashboards and the admin counters
type AnalyticsService struct {
	store  AnalyticsStore
	cache  AnalyticsCacher
	logger logrus.FieldLogger
}

// NewAnalyticsService creates a new analytics service. cache may be nil.
func NewAnalyticsService(store AnalyticsStore, cache AnalyticsCacher, logger logrus.FieldLogger) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		cache:  cache,
		logger: logger.WithField("component", "analytics"),
	}
}

// Dashboard lists complaints for the public board
func (s *AnalyticsService) Dashboard(ctx context.Context, f models.ComplaintFilter) ([]models.DashboardItem, error) {
	complaints, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}

	items := make([]models.DashboardItem, 0, len(complaints))
	for _, c := range complaints {
		items = append(items, models.DashboardItem{
			TrackingID: c.PublicID,
			Status:     c.Status,
			Category:   c.Category,
			Priority:   c.Priority,
			CreatedAt:  c.CreatedAt,
			Address:    c.Address,
		})
	}
	return items, nil
}

// Locations returns map markers for complaints with coordinates
func (s *AnalyticsService) Locations(ctx context.Context, f models.ComplaintFilter) ([]models.LocationItem, error) {
	return s.store.ListLocations(ctx, f)
}

// Public returns totals by status and category, served from cache when possible.
// Cache errors degrade to a direct computation.
func (s *AnalyticsService) Public(ctx context.Context) (*models.Analytics, error) {
	if s.cache != nil {
		a, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("analytics cache read failed")
		} else if ok {
			return a, nil
		}
	}

	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := s.store.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}

	a := &models.Analytics{
		ByStatus:   make(map[models.ComplaintStatus]int, len(models.AllStatuses)),
		ByCategory: categories,
	}
	for _, st := range models.AllStatuses {
		a.ByStatus[st] = counts[st]
		a.Total += counts[st]
	}
	if a.ByCategory == nil {
		a.ByCategory = []models.CategoryStat{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, a); err != nil {
			s.logger.WithError(err).Warn("analytics cache write failed")
		}
	}
	return a, nil
}

// Stats returns the admin counters
func (s *AnalyticsService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.DashboardStats{
		NoOfficer:  counts[models.StatusNoOfficer],
		Pending:    counts[models.StatusPending],
		InProgress: counts[models.StatusInProgress],
		Resolved:   counts[models.StatusResolved],
	}
	stats.Total = stats.NoOfficer + stats.Pending + stats.InProgress + stats.Resolved
	return stats, nil
}

// Invalidate drops the cached analytics document
func (s *AnalyticsService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

package service

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/domain"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
)

//go:embed seed/courts.yaml
var defaultCourts []byte

// CourtCache holds court listings keyed by city ("" for all courts).
type CourtCache interface {
	Get(ctx context.Context, city string) ([]domain.Court, bool, error)
	Set(ctx context.Context, city string, courts []domain.Court) error
	Invalidate(ctx context.Context) error
}

type CourtSvc struct {
	repo  *repository.CourtRepo
	cache CourtCache
	log   *slog.Logger
}

// NewCourtSvc builds the catalog service. cache may be nil.
func NewCourtSvc(repo *repository.CourtRepo, cache CourtCache, logger *slog.Logger) *CourtSvc {
	if logger == nil {
		logger = obs.Discard()
	}
	return &CourtSvc{repo: repo, cache: cache, log: logger.With("component", "catalog")}
}

func (s *CourtSvc) List(ctx context.Context, city string) ([]domain.Court, error) {
	city = strings.ToLower(strings.TrimSpace(city))
	if s.cache != nil {
		courts, ok, err := s.cache.Get(ctx, city)
		if err != nil {
			s.log.Warn("court cache read failed", "city", city, "err", err)
		} else if ok {
			return courts, nil
		}
	}
	courts, err := s.repo.List(ctx, city)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, city, courts); err != nil {
			s.log.Warn("court cache write failed", "city", city, "err", err)
		}
	}
	return courts, nil
}

func (s *CourtSvc) Get(ctx context.Context, id string) (*domain.Court, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "required"}
	}
	return s.repo.ByID(ctx, id)
}

type seedFile struct {
	Courts []domain.Court `yaml:"courts"`
}

// SeedDefaults loads the built-in catalog into an empty courts table and
// reports how many courts were written.
func (s *CourtSvc) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	return s.SeedFromYAML(ctx, bytes.NewReader(defaultCourts))
}

// SeedFromYAML upserts every court listed in r.
func (s *CourtSvc) SeedFromYAML(ctx context.Context, r io.Reader) (int, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return 0, fmt.Errorf("decode court seed: %w", err)
	}
	for i := range f.Courts {
		c := &f.Courts[i]
		if strings.TrimSpace(c.Name) == "" {
			return i, &domain.ValidationError{Field: fmt.Sprintf("courts[%d].name", i), Reason: "required"}
		}
		if c.Price < 0 {
			return i, &domain.ValidationError{Field: fmt.Sprintf("courts[%d].price", i), Reason: "must not be negative"}
		}
		if err := s.repo.Upsert(ctx, c); err != nil {
			return i, err
		}
	}
	if s.cache != nil && len(f.Courts) > 0 {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("court cache invalidate failed", "err", err)
		}
	}
	s.log.Info("courts seeded", "count", len(f.Courts))
	return len(f.Courts), nil
}

package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/phenofarm/internal/events"
	"github.com/Skotchmaster/phenofarm/internal/models"
	"github.com/Skotchmaster/phenofarm/internal/repo"
	"github.com/Skotchmaster/phenofarm/internal/transport"
	"github.com/Skotchmaster/phenofarm/pkg/logging"
)

var genetics = map[string]bool{"indica": true, "sativa": true, "hybrid": true}

type LabService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *LabService) ListStrains(ctx context.Context, growerID *uuid.UUID) ([]models.Strain, error) {
	return s.Repo.ListStrains(ctx, growerID)
}

func (s *LabService) CreateStrain(ctx context.Context, actor Actor, req transport.StrainRequest) (*models.Strain, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	g := strings.ToLower(strings.TrimSpace(req.Genetics))
	if g == "" {
		g = "hybrid"
	}
	if !genetics[g] {
		return nil, fmt.Errorf("%w: genetics must be indica, sativa or hybrid", ErrValidation)
	}

	st := &models.Strain{GrowerID: actor.ID, Name: name, Genetics: g, Description: req.Description}
	if err := s.Repo.CreateStrain(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *LabService) ListBatches(ctx context.Context, actor Actor) ([]models.Batch, error) {
	if actor.IsAdmin() {
		return s.Repo.ListBatches(ctx, nil)
	}
	return s.Repo.ListBatches(ctx, &actor.ID)
}

func (s *LabService) GetBatch(ctx context.Context, actor Actor, id uuid.UUID) (*models.Batch, error) {
	b, err := s.Repo.GetBatch(ctx, id)
	if err != nil {
		return nil, notFound(err, "batch", id)
	}
	if !actor.Owns(b.GrowerID) {
		return nil, fmt.Errorf("%w: batch %s", ErrNotFound, id)
	}
	return b, nil
}

func (s *LabService) CreateBatch(ctx context.Context, actor Actor, req transport.BatchRequest) (*models.Batch, error) {
	if req.BatchNumber == nil || strings.TrimSpace(*req.BatchNumber) == "" {
		return nil, fmt.Errorf("%w: batchNumber required", ErrValidation)
	}
	if req.HarvestDate == nil || req.HarvestDate.IsZero() {
		return nil, fmt.Errorf("%w: harvestDate required", ErrValidation)
	}

	b := &models.Batch{GrowerID: actor.ID}
	if err := s.apply(ctx, actor, b, req); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateBatch(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, events.BatchCreated, b)
	return s.Repo.GetBatch(ctx, b.ID)
}

func (s *LabService) UpdateBatch(ctx context.Context, actor Actor, id uuid.UUID, req transport.BatchRequest) (*models.Batch, error) {
	b, err := s.GetBatch(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, b, req); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveBatch(ctx, b); err != nil {
		return nil, err
	}
	s.publish(ctx, events.BatchUpdated, b)
	return s.Repo.GetBatch(ctx, id)
}

func (s *LabService) DeleteBatch(ctx context.Context, actor Actor, id uuid.UUID) error {
	b, err := s.GetBatch(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		return tx.DeleteBatch(ctx, id)
	}); err != nil {
		return notFound(err, "batch", id)
	}
	s.publish(ctx, events.BatchDeleted, b)
	return nil
}

func (s *LabService) apply(ctx context.Context, actor Actor, b *models.Batch, req transport.BatchRequest) error {
	if req.BatchNumber != nil {
		number := strings.TrimSpace(*req.BatchNumber)
		if number == "" {
			return fmt.Errorf("%w: batchNumber cannot be empty", ErrValidation)
		}
		taken, err := s.Repo.BatchNumberTaken(ctx, b.GrowerID, number, b.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: batch number %q already used", ErrConflict, number)
		}
		b.BatchNumber = number
	}
	if req.HarvestDate != nil {
		b.HarvestDate = req.HarvestDate.UTC()
	}

	for name, v := range map[string]*float64{"thc": req.THC, "cbd": req.CBD, "totalCannabinoids": req.TotalCannabinoids} {
		if err := inPercentRange(name, v); err != nil {
			return err
		}
	}
	if req.THC != nil {
		b.THC = req.THC
	}
	if req.CBD != nil {
		b.CBD = req.CBD
	}
	if req.TotalCannabinoids != nil {
		b.TotalCannabinoids = req.TotalCannabinoids
	}

	if req.Terpenes != nil {
		for name, v := range req.Terpenes {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("%w: terpene name required", ErrValidation)
			}
			if err := inPercentRange("terpene "+name, &v); err != nil {
				return err
			}
		}
		b.Terpenes = req.Terpenes
	}

	if req.COADocumentURL != nil {
		raw := strings.TrimSpace(*req.COADocumentURL)
		if raw == "" {
			b.COADocumentURL = nil
		} else {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: coaDocumentUrl must be an http(s) url", ErrValidation)
			}
			b.COADocumentURL = &raw
		}
	}
	if req.Notes != nil {
		b.Notes = req.Notes
	}

	if req.StrainID != nil {
		if *req.StrainID == uuid.Nil {
			b.StrainID, b.Strain = nil, nil
		} else {
			st, err := s.Repo.GetStrain(ctx, *req.StrainID)
			if err != nil {
				return fmt.Errorf("%w: strain %s", ErrValidation, *req.StrainID)
			}
			if !actor.Owns(st.GrowerID) {
				return fmt.Errorf("%w: strain %s belongs to another grower", ErrValidation, st.ID)
			}
			b.StrainID, b.Strain = &st.ID, nil
		}
	}
	return nil
}

func (s *LabService) publish(ctx context.Context, kind string, b *models.Batch) {
	if err := s.Events.PublishEvent(ctx, events.TopicProducts, b.ID.String(), events.BatchEvent{
		Type:        kind,
		BatchID:     b.ID,
		GrowerID:    b.GrowerID,
		BatchNumber: b.BatchNumber,
	}); err != nil {
		logging.FromContext(ctx).Warn("batch_event_error", "type", kind, "error", err)
	}
}

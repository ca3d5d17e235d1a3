package service

import (
	"context"
	"time"

	"book-store/internal/access"
	"book-store/internal/domain"
	"book-store/internal/queue"
	"book-store/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NewReview is the input of ReviewService.Create. CustomerID defaults to the
// caller when the caller is authenticated.
type NewReview struct {
	ProductID  uuid.UUID
	CustomerID *uuid.UUID
	Value      float64
}

// ReviewPatch carries a partial review update.
type ReviewPatch struct {
	ProductID *uuid.UUID
	Value     *float64
}

// ReviewService stores reviews and schedules the product average refresh
// after every committed write.
type ReviewService interface {
	Create(ctx context.Context, caller access.Caller, input NewReview) (*domain.Review, error)
	Update(ctx context.Context, caller access.Caller, id uuid.UUID, patch ReviewPatch) (*domain.Review, error)
	Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Review, int, error)
}

type reviewService struct {
	store  repository.Store
	tasks  queue.Enqueuer
	logger *zap.Logger
}

func NewReviewService(store repository.Store, tasks queue.Enqueuer, logger *zap.Logger) ReviewService {
	return &reviewService{store: store, tasks: tasks, logger: logger}
}

func (s *reviewService) Create(ctx context.Context, caller access.Caller, input NewReview) (*domain.Review, error) {
	customerID, err := reviewAuthor(caller, input.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:         uuid.New(),
		ProductID:  input.ProductID,
		CustomerID: customerID,
		Value:      input.Value,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Reviews().Create(ctx, review); err != nil {
		return nil, err
	}

	s.scheduleRecompute(ctx, review.ProductID)
	return review, nil
}

// reviewAuthor resolves who a new review belongs to. Authenticated customers
// may only review as themselves; staff may review on anyone's behalf.
func reviewAuthor(caller access.Caller, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case requested == nil && caller.Authenticated:
		return caller.CustomerID, nil
	case requested == nil:
		return uuid.Nil, domain.NewValidationError("customer", "is required")
	case caller.Authenticated && !caller.IsStaff() && !caller.Is(*requested):
		return uuid.Nil, ErrNotOwner
	default:
		return *requested, nil
	}
}

func (s *reviewService) Update(ctx context.Context, caller access.Caller, id uuid.UUID, patch ReviewPatch) (*domain.Review, error) {
	review, err := s.authorized(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	previousProduct := review.ProductID
	if patch.ProductID != nil {
		review.ProductID = *patch.ProductID
	}
	if patch.Value != nil {
		review.Value = *patch.Value
	}

	if err := s.store.Reviews().Update(ctx, review); err != nil {
		return nil, err
	}

	s.scheduleRecompute(ctx, review.ProductID)
	if previousProduct != review.ProductID {
		s.scheduleRecompute(ctx, previousProduct)
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, caller access.Caller, id uuid.UUID) error {
	review, err := s.authorized(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.store.Reviews().Delete(ctx, id); err != nil {
		return err
	}

	s.scheduleRecompute(ctx, review.ProductID)
	return nil
}

func (s *reviewService) authorized(ctx context.Context, caller access.Caller, id uuid.UUID) (*domain.Review, error) {
	review, err := s.store.Reviews().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && !caller.Is(review.CustomerID) {
		return nil, ErrNotOwner
	}
	return review, nil
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	return s.store.Reviews().FindByID(ctx, id)
}

func (s *reviewService) List(ctx context.Context, productID *uuid.UUID, page, pageSize int) ([]*domain.Review, int, error) {
	return s.store.Reviews().List(ctx, productID, page, pageSize)
}

// scheduleRecompute logs enqueue failures and never returns them.
func (s *reviewService) scheduleRecompute(ctx context.Context, productID uuid.UUID) {
	if s.tasks == nil {
		return
	}
	task := queue.NewRecomputeAverage(productID)
	if err := s.tasks.Enqueue(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Error("Failed to enqueue average recompute",
			zap.String("product_id", productID.String()),
			zap.Error(err),
		)
	}
}

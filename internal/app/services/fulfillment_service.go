package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultMaxAttempts    = 5
	defaultBackoffBase    = 30 * time.Second
	defaultBackoffCap     = 30 * time.Minute
	defaultClaimLease     = 2 * time.Minute
	defaultSweepBatchSize = 50
	defaultPayoutTimeout  = 30 * time.Second
)

// PayoutProvider is the external disbursement collaborator. Calls are
// at-least-once; the idempotency key on each request carries deduplication.
type PayoutProvider interface {
	CreatePayout(ctx context.Context, data *models.PayoutRequest) (*models.PayoutResponse, error)
}

// FulfillmentService sweeps the job table and drives each claimed job through
// one payout attempt. Claiming is a conditional update on (status, attempts),
// so two sweepers never double-pay the same job.
type FulfillmentService struct {
	db                *gorm.DB
	redemptionService *RedemptionService
	variantService    *VariantService
	payout            PayoutProvider

	maxAttempts   int
	backoffBase   time.Duration
	backoffCap    time.Duration
	claimLease    time.Duration
	batchSize     int
	payoutTimeout time.Duration
}

func NewFulfillmentService(db *gorm.DB, redemptionService *RedemptionService, variantService *VariantService, payout PayoutProvider) *FulfillmentService {
	s := &FulfillmentService{
		db:                db,
		redemptionService: redemptionService,
		variantService:    variantService,
		payout:            payout,
		maxAttempts:       defaultMaxAttempts,
		backoffBase:       defaultBackoffBase,
		backoffCap:        defaultBackoffCap,
		claimLease:        defaultClaimLease,
		batchSize:         defaultSweepBatchSize,
		payoutTimeout:     defaultPayoutTimeout,
	}
	if cfg := infrastructures.Config; cfg != nil {
		if cfg.MaxAttempts > 0 {
			s.maxAttempts = cfg.MaxAttempts
		}
		if cfg.BackoffBase > 0 {
			s.backoffBase = cfg.BackoffBase
		}
		if cfg.BackoffCap > 0 {
			s.backoffCap = cfg.BackoffCap
		}
		if cfg.ClaimLease > 0 {
			s.claimLease = cfg.ClaimLease
		}
		if cfg.SweepBatchSize > 0 {
			s.batchSize = cfg.SweepBatchSize
		}
		if cfg.PayoutConfig.Timeout > 0 {
			s.payoutTimeout = cfg.PayoutConfig.Timeout
		}
	}
	return s
}

// Sweep claims and attempts every due job, one batch per call. Jobs whose lease
// expired while PROCESSING are treated as crashed attempts and picked up again.
func (s *FulfillmentService) Sweep(ctx context.Context) error {
	now := time.Now()

	var due []models.FulfillmentJob
	err := s.db.
		Where("(status = ? OR (status = ? AND next_run_at <= ?)) AND next_run_at <= ?",
			models.FulfillmentJobStatusQueued, models.FulfillmentJobStatusProcessing, now, now).
		Order("next_run_at ASC").
		Limit(s.batchSize).
		Find(&due).Error
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to list due fulfillment jobs")
	}

	s.updateQueueDepth()

	for _, job := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		claimed, err := s.claim(&job, now)
		if err != nil {
			logrus.Errorf("fulfillment: claim job %s: %v", job.ID, err)
			continue
		}
		if !claimed {
			// Another sweeper took it first.
			continue
		}

		s.attempt(ctx, &job)
	}

	return nil
}

// claim flips the job to PROCESSING only if nobody else moved it since it was
// read. The lease on next_run_at bounds how long a crashed attempt stays
// invisible to other sweepers.
func (s *FulfillmentService) claim(job *models.FulfillmentJob, now time.Time) (bool, error) {
	res := s.db.Model(&models.FulfillmentJob{}).
		Where("id = ? AND status = ? AND attempts = ?", job.ID, job.Status, job.Attempts).
		Updates(map[string]interface{}{
			"status":      models.FulfillmentJobStatusProcessing,
			"next_run_at": now.Add(s.claimLease),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	job.Status = models.FulfillmentJobStatusProcessing
	return true, nil
}

// attempt performs one payout try for a claimed job and records the outcome.
func (s *FulfillmentService) attempt(ctx context.Context, job *models.FulfillmentJob) {
	redemption, err := s.redemptionService.GetRedemption(job.RedemptionID.String())
	if err != nil {
		s.markFailure(job, fmt.Sprintf("load redemption: %v", err))
		return
	}

	// The redemption can move underneath a queued job (force-reject, or a
	// previous attempt that fulfilled but crashed before marking the job).
	if redemption.Status != models.RedemptionStatusProcessing {
		s.resolveStaleJob(job, redemption)
		return
	}

	variant, err := s.variantService.GetVariant(redemption.VariantID.String())
	if err != nil {
		s.markFailure(job, fmt.Sprintf("load variant: %v", err))
		return
	}

	attemptCtx, cancel := context.WithTimeout(ctx, s.payoutTimeout)
	defer cancel()

	resp, err := s.payout.CreatePayout(attemptCtx, &models.PayoutRequest{
		IdempotencyKey: redemption.ID.String(),
		Denomination:   variant.Denomination,
		Amount:         redemption.PayoutAmount.String(),
		Currency:       "USD",
		RecipientID:    redemption.UserID.String(),
		Remark:         "offerpoint redemption " + redemption.ID.String(),
	})
	if err != nil {
		pkg.FulfillmentAttempts.WithLabelValues("failure").Inc()
		s.markFailure(job, err.Error())
		return
	}

	_, err = s.redemptionService.Transition(redemption.ID.String(), &models.RedemptionTransitionRequest{
		ToStatus:        models.RedemptionStatusFulfilled,
		ExpectedVersion: redemption.StatusVersion,
		ExternalRef:     &resp.Reference,
	}, nil)
	if err != nil {
		// Money left the building but the status write lost. The provider-side
		// idempotency key makes the retry safe.
		pkg.FulfillmentAttempts.WithLabelValues("failure").Inc()
		s.markFailure(job, fmt.Sprintf("payout sent (%s) but transition failed: %v", resp.Reference, err))
		return
	}

	pkg.FulfillmentAttempts.WithLabelValues("success").Inc()
	s.markSuccess(job)
}

// resolveStaleJob settles a job whose redemption is no longer PROCESSING.
func (s *FulfillmentService) resolveStaleJob(job *models.FulfillmentJob, redemption *models.RedemptionRequest) {
	switch redemption.Status {
	case models.RedemptionStatusFulfilled:
		s.markSuccess(job)
	case models.RedemptionStatusRejected:
		s.park(job, "redemption was rejected before payout")
	default:
		// APPROVED again after an admin rollback path does not exist, so this
		// is unexpected; park for manual review rather than retry blindly.
		s.park(job, fmt.Sprintf("redemption in unexpected status %s", redemption.Status))
	}
}

func (s *FulfillmentService) markSuccess(job *models.FulfillmentJob) {
	err := s.db.Model(job).Updates(map[string]interface{}{
		"status":     models.FulfillmentJobStatusSuccess,
		"last_error": gorm.Expr("NULL"),
	}).Error
	if err != nil {
		logrus.Errorf("fulfillment: mark job %s success: %v", job.ID, err)
	}
}

// markFailure increments attempts and either requeues with backoff or parks the
// job once the attempt ceiling is reached.
func (s *FulfillmentService) markFailure(job *models.FulfillmentJob, reason string) {
	nextAttempts := job.Attempts + 1

	if nextAttempts >= s.maxAttempts {
		pkg.FulfillmentAttempts.WithLabelValues("permanent_failure").Inc()
		err := s.db.Model(job).Updates(map[string]interface{}{
			"status":     models.FulfillmentJobStatusPermanentlyFailed,
			"attempts":   nextAttempts,
			"last_error": reason,
		}).Error
		if err != nil {
			logrus.Errorf("fulfillment: park job %s: %v", job.ID, err)
		}
		return
	}

	err := s.db.Model(job).Updates(map[string]interface{}{
		"status":      models.FulfillmentJobStatusQueued,
		"attempts":    nextAttempts,
		"last_error":  reason,
		"next_run_at": time.Now().Add(s.nextDelay(job.Attempts)),
	}).Error
	if err != nil {
		logrus.Errorf("fulfillment: requeue job %s: %v", job.ID, err)
	}
}

func (s *FulfillmentService) park(job *models.FulfillmentJob, reason string) {
	err := s.db.Model(job).Updates(map[string]interface{}{
		"status":     models.FulfillmentJobStatusPermanentlyFailed,
		"last_error": reason,
	}).Error
	if err != nil {
		logrus.Errorf("fulfillment: park job %s: %v", job.ID, err)
	}
}

// nextDelay is exponential in the number of attempts already made, capped.
func (s *FulfillmentService) nextDelay(attempts int) time.Duration {
	delay := s.backoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.backoffCap || delay < 0 {
			return s.backoffCap
		}
	}
	if delay > s.backoffCap {
		return s.backoffCap
	}
	return delay
}

func (s *FulfillmentService) updateQueueDepth() {
	var open int64
	err := s.db.Model(&models.FulfillmentJob{}).
		Where("status IN ?", []models.FulfillmentJobStatus{
			models.FulfillmentJobStatusQueued,
			models.FulfillmentJobStatusProcessing,
		}).
		Count(&open).Error
	if err != nil {
		return
	}
	pkg.FulfillmentQueueDepth.Set(float64(open))
}

// GetJob loads one job by id.
func (s *FulfillmentService) GetJob(jobId string) (*models.FulfillmentJob, error) {
	jobUUID, err := uuid.Parse(jobId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid job ID format")
	}

	var job models.FulfillmentJob
	err = s.db.Where("id = ?", jobUUID).First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Fulfillment job not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get fulfillment job")
	}
	return &job, nil
}

// ListJobs is the admin view over the queue, optionally filtered by status.
func (s *FulfillmentService) ListJobs(status *models.FulfillmentJobStatus, pagination *models.PaginationRequest) ([]models.FulfillmentJob, error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 50
	}
	if pagination.Page <= 0 {
		pagination.Page = 1
	}

	query := s.db.Order("next_run_at ASC").
		Limit(pagination.Limit).
		Offset((pagination.Page - 1) * pagination.Limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var jobs []models.FulfillmentJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list fulfillment jobs")
	}
	return jobs, nil
}

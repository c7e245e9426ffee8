package services

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/offerpoint/offerpoint-core/internal/app/errors"
	"github.com/offerpoint/offerpoint-core/internal/app/models"
	"github.com/offerpoint/offerpoint-core/internal/app/pkg"
	"github.com/offerpoint/offerpoint-core/internal/infrastructures"
	"gorm.io/gorm"
)

const defaultMinRedeemPoints = 100

// legalTransitions is the complete edge table of the redemption state machine.
// No transition skips a state; FULFILLED and REJECTED are terminal.
var legalTransitions = map[models.RedemptionStatus][]models.RedemptionStatus{
	models.RedemptionStatusPending:    {models.RedemptionStatusApproved, models.RedemptionStatusRejected},
	models.RedemptionStatusApproved:   {models.RedemptionStatusProcessing, models.RedemptionStatusRejected},
	models.RedemptionStatusProcessing: {models.RedemptionStatusFulfilled, models.RedemptionStatusRejected},
	models.RedemptionStatusFulfilled:  {},
	models.RedemptionStatusRejected:   {},
}

// errIdempotencyConflict signals that a concurrent create with the same key won
// the insert; the loser re-reads the winner's row.
var errIdempotencyConflict = goerrors.New("idempotency key conflict")

// IdentityProvider is the external auth/identity collaborator. The core only
// needs the registration time for account-age checks.
type IdentityProvider interface {
	GetUser(userId string) (*models.IdentityUser, error)
}

// RedemptionService implements the redemption state machine, the idempotency
// guard around creation, and the optimistic concurrency discipline for every
// status write.
type RedemptionService struct {
	db              *gorm.DB
	validator       *infrastructures.Validator
	ledgerService   *LedgerService
	variantService  *VariantService
	riskService     *RiskService
	identity        IdentityProvider
	minRedeemPoints int64
}

func NewRedemptionService(
	db *gorm.DB,
	validator *infrastructures.Validator,
	ledgerService *LedgerService,
	variantService *VariantService,
	riskService *RiskService,
	identity IdentityProvider,
) *RedemptionService {
	minRedeem := int64(defaultMinRedeemPoints)
	if infrastructures.Config != nil && infrastructures.Config.MinRedeemPoints > 0 {
		minRedeem = infrastructures.Config.MinRedeemPoints
	}
	return &RedemptionService{
		db:              db,
		validator:       validator,
		ledgerService:   ledgerService,
		variantService:  variantService,
		riskService:     riskService,
		identity:        identity,
		minRedeemPoints: minRedeem,
	}
}

// lockUser serializes redemption creation per user so two concurrent creates
// cannot both pass the balance check and overdraw.
func (s *RedemptionService) lockUser(tx *gorm.DB, userID uuid.UUID) error {
	if tx.Dialector.Name() != "postgres" {
		// sqlite serializes writers on its own
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID.String()).Error
}

// CreateRedemption converts points into a pending payout request in one atomic
// unit: variant re-check, balance check, ledger debit and row insert. Replaying
// the same (user, idempotency key) returns the original result, never a second
// debit.
func (s *RedemptionService) CreateRedemption(userID uuid.UUID, req *models.RedemptionCreateRequest) (*models.RedemptionCreateResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	variantUUID, err := uuid.Parse(req.VariantID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid variant ID format")
	}

	// Fast path for retried requests.
	if existing, err := s.findByIdempotencyKey(userID, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return &models.RedemptionCreateResponse{Redemption: existing, Replayed: true}, nil
	}

	verdict, err := s.riskService.Evaluate(models.RiskEntityUser, userID)
	if err != nil {
		return nil, err
	}
	if verdict.Locked {
		return nil, errors.NewCodedError(423, errors.CodeLocked, "Redemptions are locked for this user: "+verdict.Reason)
	}

	var redemption *models.RedemptionRequest

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.lockUser(tx, userID); err != nil {
			return errors.NewInternalServerError(err, "Failed to acquire user lock")
		}

		variant, err := s.variantService.claimStockTx(tx, variantUUID)
		if err != nil {
			return err
		}

		if err := s.checkDailyLimit(tx, userID, variant); err != nil {
			return err
		}
		if err := s.checkAccountAge(userID, variant); err != nil {
			return err
		}

		if variant.CostPoints < s.minRedeemPoints {
			return errors.NewConflictError(errors.CodeLimitExceeded,
				fmt.Sprintf("Redemption is below the %d point minimum", s.minRedeemPoints))
		}

		// The debit lands at creation, so SUM(delta) already excludes points
		// committed to other open requests.
		balance, err := s.ledgerService.balanceTx(tx, userID)
		if err != nil {
			return err
		}
		if balance < variant.CostPoints {
			return errors.NewConflictError(errors.CodeInsufficientBalance,
				fmt.Sprintf("Balance %d does not cover %d points", balance, variant.CostPoints))
		}

		redemption = &models.RedemptionRequest{
			UserID:         userID,
			VariantID:      variant.ID,
			IdempotencyKey: req.IdempotencyKey,
			CostPoints:     variant.CostPoints,
			PayoutAmount:   variant.PayoutAmount,
			Status:         models.RedemptionStatusPending,
			StatusVersion:  0,
			Note:           req.Note,
		}

		if err := tx.Create(redemption).Error; err != nil {
			if err == gorm.ErrDuplicatedKey {
				return errIdempotencyConflict
			}
			return errors.NewInternalServerError(err, "Failed to create redemption")
		}

		if _, err := s.ledgerService.appendEntryTx(tx, userID, -variant.CostPoints,
			models.LedgerReasonRedemptionDebit, models.RefTypeRedemption, redemption.ID.String()); err != nil {
			return err
		}

		return s.recordHistoryTx(tx, redemption.ID, nil, models.RedemptionStatusPending, req.Note, nil)
	})

	if goerrors.Is(err, errIdempotencyConflict) {
		// Lost the insert race: return the winner's row.
		existing, ferr := s.findByIdempotencyKey(userID, req.IdempotencyKey)
		if ferr != nil {
			return nil, ferr
		}
		if existing == nil {
			return nil, errors.NewInternalServerError(err, "Failed to resolve idempotency conflict")
		}
		return &models.RedemptionCreateResponse{Redemption: existing, Replayed: true}, nil
	}
	if err != nil {
		return nil, err
	}

	pkg.RedemptionsCreated.Inc()
	return &models.RedemptionCreateResponse{Redemption: redemption, Replayed: false}, nil
}

func (s *RedemptionService) findByIdempotencyKey(userID uuid.UUID, key string) (*models.RedemptionRequest, error) {
	var existing models.RedemptionRequest
	err := s.db.Where("user_id = ? AND idempotency_key = ?", userID, key).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	return nil, errors.NewInternalServerError(err, "Failed to check idempotency key")
}

func (s *RedemptionService) checkDailyLimit(tx *gorm.DB, userID uuid.UUID, variant *models.RewardVariant) error {
	if variant.DailyLimitPerUser == nil {
		return nil
	}

	today := time.Now().Truncate(24 * time.Hour)
	tomorrow := today.Add(24 * time.Hour)

	var countToday int64
	err := tx.Model(&models.RedemptionRequest{}).
		Where("user_id = ? AND variant_id = ? AND created_at >= ? AND created_at < ? AND status <> ?",
			userID, variant.ID, today, tomorrow, models.RedemptionStatusRejected).
		Count(&countToday).Error
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to check daily limit")
	}

	if countToday >= int64(*variant.DailyLimitPerUser) {
		return errors.NewConflictError(errors.CodeLimitExceeded, "Daily redemption limit reached for this variant")
	}
	return nil
}

func (s *RedemptionService) checkAccountAge(userID uuid.UUID, variant *models.RewardVariant) error {
	if variant.MinAccountAgeDays == nil {
		return nil
	}

	user, err := s.identity.GetUser(userID.String())
	if err != nil {
		return err
	}

	minAge := time.Duration(*variant.MinAccountAgeDays) * 24 * time.Hour
	if time.Since(user.RegisteredAt) < minAge {
		return errors.NewConflictError(errors.CodeLimitExceeded,
			fmt.Sprintf("Account must be at least %d days old for this variant", *variant.MinAccountAgeDays))
	}
	return nil
}

// GetRedemption loads one request by id.
func (s *RedemptionService) GetRedemption(redemptionId string) (*models.RedemptionRequest, error) {
	redemptionUUID, err := uuid.Parse(redemptionId)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid redemption ID format")
	}

	var redemption models.RedemptionRequest
	err = s.db.Where("id = ?", redemptionUUID).First(&redemption).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Redemption not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get redemption")
	}

	return &redemption, nil
}

func (s *RedemptionService) GetRedemptionsByUser(userID uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.RedemptionRequest], error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 10
	}
	if pagination.Page <= 0 {
		pagination.Page = 1
	}

	offset := (pagination.Page - 1) * pagination.Limit

	var totalItems int64
	if err := s.db.Model(&models.RedemptionRequest{}).Where("user_id = ?", userID).Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count redemptions")
	}

	var redemptions []models.RedemptionRequest
	query := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(pagination.Limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&redemptions).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get redemptions")
	}

	totalPages := int((totalItems + int64(pagination.Limit) - 1) / int64(pagination.Limit))

	return &models.Pagination[[]models.RedemptionRequest]{
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		TotalPages: totalPages,
		TotalItems: int(totalItems),
		HasNext:    pagination.Page < totalPages,
		HasPrev:    pagination.Page > 1,
		Items:      redemptions,
	}, nil
}

func (s *RedemptionService) ListByStatus(status models.RedemptionStatus, pagination *models.PaginationRequest) ([]models.RedemptionRequest, error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 50
	}
	if pagination.Page <= 0 {
		pagination.Page = 1
	}

	var redemptions []models.RedemptionRequest
	err := s.db.Where("status = ?", status).
		Order("created_at ASC").
		Limit(pagination.Limit).
		Offset((pagination.Page - 1) * pagination.Limit).
		Find(&redemptions).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list redemptions")
	}
	return redemptions, nil
}

func transitionAllowed(from, to models.RedemptionStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves one redemption through the state machine. The write is a
// single conditional UPDATE on the observed status_version; zero affected rows
// is stale_version, never a merge. All side effects (reversal credit, stock
// restore, fulfillment job) commit in the same transaction as the status change.
func (s *RedemptionService) Transition(redemptionId string, req *models.RedemptionTransitionRequest, actorID *uuid.UUID) (*models.RedemptionTransitionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	redemption, err := s.GetRedemption(redemptionId)
	if err != nil {
		return nil, err
	}

	// Re-rejecting a rejected request is a no-op, not a double credit.
	if req.ToStatus == models.RedemptionStatusRejected && redemption.Status == models.RedemptionStatusRejected {
		return &models.RedemptionTransitionResponse{
			ID:         redemption.ID,
			Status:     redemption.Status,
			NewVersion: redemption.StatusVersion,
		}, nil
	}

	if !transitionAllowed(redemption.Status, req.ToStatus) {
		return nil, errors.NewConflictError(errors.CodeIllegalTransition,
			fmt.Sprintf("Cannot transition from %s to %s", redemption.Status, req.ToStatus))
	}

	if req.ToStatus == models.RedemptionStatusFulfilled && (req.ExternalRef == nil || *req.ExternalRef == "") {
		return nil, errors.NewCodedError(400, errors.CodeMissingExternalRef,
			"A settlement reference is required to mark a redemption fulfilled")
	}

	// A locked redemption may only move to REJECTED.
	if req.ToStatus != models.RedemptionStatusRejected {
		verdict, err := s.riskService.EvaluateRedemption(redemption)
		if err != nil {
			return nil, err
		}
		if verdict.Locked {
			return nil, errors.NewCodedError(423, errors.CodeLocked,
				"Redemption is locked by the risk gate: "+verdict.Reason)
		}
	}

	newVersion := req.ExpectedVersion + 1
	now := time.Now()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         req.ToStatus,
			"status_version": newVersion,
		}
		if actorID != nil {
			updates["reviewed_by"] = *actorID
			updates["reviewed_at"] = now
		}
		if req.Note != nil {
			updates["note"] = *req.Note
		}
		if req.ToStatus == models.RedemptionStatusFulfilled {
			updates["external_ref"] = *req.ExternalRef
			updates["fulfilled_at"] = now
		}

		res := tx.Model(&models.RedemptionRequest{}).
			Where("id = ? AND status_version = ?", redemption.ID, req.ExpectedVersion).
			Updates(updates)
		if res.Error != nil {
			return errors.NewInternalServerError(res.Error, "Failed to update redemption")
		}
		if res.RowsAffected == 0 {
			return errors.NewConflictError(errors.CodeStaleVersion,
				fmt.Sprintf("Redemption changed since it was read (version %d)", req.ExpectedVersion))
		}

		switch req.ToStatus {
		case models.RedemptionStatusRejected:
			// The reversal credit and the status change land together; the
			// unique reversal reference makes a double credit structurally
			// impossible.
			if _, err := s.ledgerService.appendEntryTx(tx, redemption.UserID, redemption.CostPoints,
				models.LedgerReasonRedemptionReversal, models.RefTypeRedemptionReversal, redemption.ID.String()); err != nil {
				return err
			}
			if err := s.variantService.restoreStockTx(tx, redemption.VariantID); err != nil {
				return err
			}
			if err := s.parkOpenJobsTx(tx, redemption.ID); err != nil {
				return err
			}
		case models.RedemptionStatusProcessing:
			if err := s.ensureJobTx(tx, redemption.ID, now); err != nil {
				return err
			}
		}

		fromStatus := redemption.Status
		return s.recordHistoryTx(tx, redemption.ID, &fromStatus, req.ToStatus, req.Note, actorID)
	})

	if err != nil {
		if errors.CodeOf(err) == errors.CodeStaleVersion {
			pkg.TransitionConflicts.Inc()
		}
		return nil, err
	}

	pkg.RedemptionTransitions.WithLabelValues(string(req.ToStatus)).Inc()

	return &models.RedemptionTransitionResponse{
		ID:         redemption.ID,
		Status:     req.ToStatus,
		NewVersion: newVersion,
	}, nil
}

// ensureJobTx creates the fulfillment job for a redemption entering
// PROCESSING, or reactivates a permanently failed one on a retried transition.
func (s *RedemptionService) ensureJobTx(tx *gorm.DB, redemptionID uuid.UUID, now time.Time) error {
	var job models.FulfillmentJob
	err := tx.Where("redemption_id = ?", redemptionID).First(&job).Error
	if err == gorm.ErrRecordNotFound {
		job = models.FulfillmentJob{
			RedemptionID: redemptionID,
			Status:       models.FulfillmentJobStatusQueued,
			Attempts:     0,
			NextRunAt:    now,
		}
		if err := tx.Create(&job).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create fulfillment job")
		}
		return nil
	}
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to load fulfillment job")
	}

	if job.Status == models.FulfillmentJobStatusPermanentlyFailed {
		err := tx.Model(&job).Updates(map[string]interface{}{
			"status":      models.FulfillmentJobStatusQueued,
			"attempts":    0,
			"next_run_at": now,
			"last_error":  gorm.Expr("NULL"),
		}).Error
		if err != nil {
			return errors.NewInternalServerError(err, "Failed to reactivate fulfillment job")
		}
	}
	return nil
}

// parkOpenJobsTx prevents the sweeper from paying out a force-rejected
// redemption. Money already in flight still needs the job record for manual
// review, so the job is parked, not deleted.
func (s *RedemptionService) parkOpenJobsTx(tx *gorm.DB, redemptionID uuid.UUID) error {
	err := tx.Model(&models.FulfillmentJob{}).
		Where("redemption_id = ? AND status IN ?", redemptionID,
			[]models.FulfillmentJobStatus{models.FulfillmentJobStatusQueued, models.FulfillmentJobStatusProcessing}).
		Updates(map[string]interface{}{
			"status":     models.FulfillmentJobStatusPermanentlyFailed,
			"last_error": "redemption was force-rejected by an admin",
		}).Error
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to park fulfillment jobs")
	}
	return nil
}

func (s *RedemptionService) recordHistoryTx(tx *gorm.DB, redemptionID uuid.UUID, from *models.RedemptionStatus, to models.RedemptionStatus, note *string, actorID *uuid.UUID) error {
	history := &models.RedemptionStatusHistory{
		RedemptionID: redemptionID,
		FromStatus:   from,
		ToStatus:     to,
		Note:         note,
		ActorID:      actorID,
	}
	if err := tx.Create(history).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to record status history")
	}
	return nil
}

// BulkTransition applies one transition per member with partial-failure
// semantics: each target is risk-gated and version-checked individually and
// the caller always receives a per-item result list.
func (s *RedemptionService) BulkTransition(req *models.BulkTransitionRequest, actorID *uuid.UUID) ([]models.BulkTransitionResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	results := make([]models.BulkTransitionResult, 0, len(req.IDs))
	for _, id := range req.IDs {
		redemption, err := s.GetRedemption(id)
		if err != nil {
			results = append(results, bulkFailure(id, err))
			continue
		}

		_, err = s.Transition(id, &models.RedemptionTransitionRequest{
			ToStatus:        req.ToStatus,
			ExpectedVersion: redemption.StatusVersion,
			Note:            req.Note,
		}, actorID)
		if err != nil {
			results = append(results, bulkFailure(id, err))
			continue
		}

		results = append(results, models.BulkTransitionResult{ID: id, OK: true})
	}

	return results, nil
}

func bulkFailure(id string, err error) models.BulkTransitionResult {
	return models.BulkTransitionResult{
		ID:      id,
		OK:      false,
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	}
}

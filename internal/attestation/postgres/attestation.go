package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/asset-attestation/internal/attestation"
	attestationDatamodel "github.com/frahmantamala/asset-attestation/internal/core/datamodel/attestation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errAlreadyConverted = errors.New("invite already converted")

var openRecordStatuses = []string{attestation.RecordStatusPending, attestation.RecordStatusInProgress}

type AttestationRepository struct {
	db *gorm.DB
}

func NewAttestationRepository(db *gorm.DB) *AttestationRepository {
	return &AttestationRepository{db: db}
}

// markerTime matches the precision of a postgres timestamp so that a claimed
// marker can be compared for equality when it is released.
func markerTime(at time.Time) time.Time {
	return at.UTC().Truncate(time.Microsecond)
}

func markerColumn(m attestation.Marker) (string, error) {
	switch m {
	case attestation.MarkerReminder, attestation.MarkerEscalation:
		return string(m), nil
	default:
		return "", fmt.Errorf("unknown marker %q", m)
	}
}

// ----------------- CAMPAIGNS -----------------

func (r *AttestationRepository) CreateCampaign(ctx context.Context, c *attestationDatamodel.Campaign) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *AttestationRepository) GetCampaign(ctx context.Context, id int64) (*attestationDatamodel.Campaign, error) {
	var c attestationDatamodel.Campaign
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attestation.ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *AttestationRepository) UpdateCampaign(ctx context.Context, c *attestationDatamodel.Campaign) error {
	c.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *AttestationRepository) DeleteDraftCampaign(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, attestation.CampaignStatusDraft).
		Delete(&attestationDatamodel.Campaign{})
	return result.RowsAffected > 0, result.Error
}

func (r *AttestationRepository) ListCampaigns(ctx context.Context, status string) ([]*attestationDatamodel.Campaign, error) {
	var campaigns []*attestationDatamodel.Campaign
	query := r.db.WithContext(ctx).Order("id DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&campaigns).Error
	return campaigns, err
}

// TransitionCampaign moves a campaign to status `to` only while its status is
// one of `from`, and reports whether it did.
func (r *AttestationRepository) TransitionCampaign(ctx context.Context, id int64, from []string, to string, at time.Time) (bool, error) {
	return transitionCampaign(r.db.WithContext(ctx), id, from, to, at)
}

func transitionCampaign(db *gorm.DB, id int64, from []string, to string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case attestation.CampaignStatusActive:
		updates["launched_at"] = at
	case attestation.CampaignStatusCompleted, attestation.CampaignStatusCancelled:
		updates["closed_at"] = at
	}

	result := db.Model(&attestationDatamodel.Campaign{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

// ApplyLaunch activates the campaign when asked and creates the missing
// records and invites in one transaction. Nothing is kept if any write fails.
func (r *AttestationRepository) ApplyLaunch(ctx context.Context, plan attestation.LaunchPlan) (*attestation.LaunchOutcome, error) {
	var outcome *attestation.LaunchOutcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		outcome = &attestation.LaunchOutcome{}

		if plan.Activate {
			changed, err := transitionCampaign(tx, plan.CampaignID,
				[]string{attestation.CampaignStatusDraft}, attestation.CampaignStatusActive, plan.At)
			if err != nil {
				return fmt.Errorf("failed to activate campaign: %w", err)
			}
			if !changed {
				return attestation.ErrInvalidCampaignState
			}
		} else {
			var active int64
			if err := tx.Model(&attestationDatamodel.Campaign{}).
				Where("id = ? AND status = ?", plan.CampaignID, attestation.CampaignStatusActive).
				Count(&active).Error; err != nil {
				return err
			}
			if active == 0 {
				return attestation.ErrInvalidCampaignState
			}
		}

		for _, userID := range plan.UserIDs {
			created, err := createRecordIfAbsent(tx, plan.CampaignID, userID)
			if err != nil {
				return fmt.Errorf("failed to create attestation record for user %d: %w", userID, err)
			}
			if created {
				outcome.CreatedUserIDs = append(outcome.CreatedUserIDs, userID)
			}
		}

		for _, invite := range plan.Invites {
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(invite)
			if result.Error != nil {
				return fmt.Errorf("failed to create pending invite for %s: %w", invite.EmployeeEmail, result.Error)
			}
			if result.RowsAffected > 0 {
				outcome.CreatedInvites = append(outcome.CreatedInvites, invite)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// ----------------- RECORDS -----------------

// createRecordIfAbsent relies on the (campaign_id, user_id) unique index.
func createRecordIfAbsent(db *gorm.DB, campaignID, userID int64) (bool, error) {
	record := &attestationDatamodel.Record{
		CampaignID: campaignID,
		UserID:     userID,
		Status:     attestation.RecordStatusPending,
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	return result.RowsAffected > 0, result.Error
}

func (r *AttestationRepository) GetRecord(ctx context.Context, id int64) (*attestationDatamodel.Record, error) {
	var record attestationDatamodel.Record
	err := r.db.WithContext(ctx).Preload("Campaign").Where("id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attestation.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// ListRecordsByUser returns the user's records, newest first, optionally only
// those whose campaign has the given status.
func (r *AttestationRepository) ListRecordsByUser(ctx context.Context, userID int64, campaignStatus string) ([]*attestationDatamodel.Record, error) {
	var records []*attestationDatamodel.Record
	query := r.db.WithContext(ctx).Preload("Campaign").Where("user_id = ?", userID)
	if campaignStatus != "" {
		campaigns := r.db.WithContext(ctx).Model(&attestationDatamodel.Campaign{}).
			Select("id").
			Where("status = ?", campaignStatus)
		query = query.Where("campaign_id IN (?)", campaigns)
	}
	err := query.Order("id DESC").Find(&records).Error
	return records, err
}

func (r *AttestationRepository) ListRecordsByCampaign(ctx context.Context, campaignID int64) ([]*attestationDatamodel.Record, error) {
	var records []*attestationDatamodel.Record
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

func (r *AttestationRepository) ListOpenRecords(ctx context.Context, campaignID int64) ([]*attestationDatamodel.Record, error) {
	var records []*attestationDatamodel.Record
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status IN ?", campaignID, openRecordStatuses).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

func (r *AttestationRepository) StartRecord(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&attestationDatamodel.Record{}).
		Where("id = ? AND status = ?", id, attestation.RecordStatusPending).
		Updates(map[string]interface{}{
			"status":     attestation.RecordStatusInProgress,
			"started_at": at,
			"updated_at": at,
		})
	return result.RowsAffected > 0, result.Error
}

func (r *AttestationRepository) CountRecordsByStatus(ctx context.Context, campaignID int64) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&attestationDatamodel.Record{}).
		Select("status, COUNT(*) AS count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CompleteRecord marks an open record completed and inserts the assets built by
// transfer from its staged new assets, in one transaction. A record that is no
// longer open is left alone and nothing is inserted.
func (r *AttestationRepository) CompleteRecord(ctx context.Context, recordID int64, at time.Time, transfer attestation.TransferFunc) (bool, int, error) {
	completed := false
	created := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&attestationDatamodel.Record{}).
			Where("id = ? AND status IN ?", recordID, openRecordStatuses).
			Updates(map[string]interface{}{
				"status":       attestation.RecordStatusCompleted,
				"completed_at": at,
				"started_at":   gorm.Expr("COALESCE(started_at, ?)", at),
				"updated_at":   at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		completed = true

		var staged []*attestationDatamodel.NewAsset
		if err := tx.Where("attestation_record_id = ?", recordID).Order("id ASC").Find(&staged).Error; err != nil {
			return err
		}

		for _, a := range transfer(staged) {
			if err := tx.Omit("Manager").Create(a).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return attestation.ErrTransferConflict
				}
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return completed, created, nil
}

// ClaimRecordMarker sets a one-time marker on an open record if it is still
// unset. Only the caller that gets true may send the notification.
func (r *AttestationRepository) ClaimRecordMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) (bool, error) {
	column, err := markerColumn(marker)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&attestationDatamodel.Record{}).
		Where("id = ? AND status IN ? AND "+column+" IS NULL", id, openRecordStatuses).
		Update(column, markerTime(at))
	return result.RowsAffected > 0, result.Error
}

// ReleaseRecordMarker clears a marker claimed at `at` so the next pass retries.
func (r *AttestationRepository) ReleaseRecordMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) error {
	column, err := markerColumn(marker)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&attestationDatamodel.Record{}).
		Where("id = ? AND "+column+" = ?", id, markerTime(at)).
		Update(column, nil).Error
}

// ----------------- INVITES -----------------

func (r *AttestationRepository) GetInviteByToken(ctx context.Context, token string) (*attestationDatamodel.PendingInvite, error) {
	var invite attestationDatamodel.PendingInvite
	err := r.db.WithContext(ctx).Preload("Campaign").Where("invite_token = ?", token).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attestation.ErrInviteNotFound
		}
		return nil, err
	}
	return &invite, nil
}

func (r *AttestationRepository) ListOpenInvitesByEmail(ctx context.Context, email string) ([]*attestationDatamodel.PendingInvite, error) {
	var invites []*attestationDatamodel.PendingInvite
	err := r.db.WithContext(ctx).Preload("Campaign").
		Where("LOWER(employee_email) = LOWER(?) AND registered_at IS NULL", email).
		Order("id ASC").
		Find(&invites).Error
	return invites, err
}

func (r *AttestationRepository) ListInvitesByCampaign(ctx context.Context, campaignID int64) ([]*attestationDatamodel.PendingInvite, error) {
	var invites []*attestationDatamodel.PendingInvite
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		Find(&invites).Error
	return invites, err
}

// ListOpenInvites returns the campaign's invites whose addressee has not registered.
func (r *AttestationRepository) ListOpenInvites(ctx context.Context, campaignID int64) ([]*attestationDatamodel.PendingInvite, error) {
	var invites []*attestationDatamodel.PendingInvite
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND registered_at IS NULL", campaignID).
		Order("id ASC").
		Find(&invites).Error
	return invites, err
}

func (r *AttestationRepository) CountInvites(ctx context.Context, campaignID int64) (int64, int64, error) {
	var open, converted int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&attestationDatamodel.PendingInvite{}).
		Where("campaign_id = ? AND registered_at IS NULL", campaignID).
		Count(&open).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&attestationDatamodel.PendingInvite{}).
		Where("campaign_id = ? AND registered_at IS NOT NULL", campaignID).
		Count(&converted).Error; err != nil {
		return 0, 0, err
	}
	return open, converted, nil
}

// ConvertInvite creates the user's record for the invite's campaign and stamps
// the invite, in one transaction. An invite that was already converted yields
// false and leaves everything unchanged.
func (r *AttestationRepository) ConvertInvite(ctx context.Context, invite *attestationDatamodel.PendingInvite, userID int64, at time.Time) (int64, bool, error) {
	var recordID int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := createRecordIfAbsent(tx, invite.CampaignID, userID); err != nil {
			return err
		}

		var record attestationDatamodel.Record
		if err := tx.Where("campaign_id = ? AND user_id = ?", invite.CampaignID, userID).First(&record).Error; err != nil {
			return err
		}

		result := tx.Model(&attestationDatamodel.PendingInvite{}).
			Where("id = ? AND registered_at IS NULL", invite.ID).
			Updates(map[string]interface{}{
				"registered_at":       at,
				"converted_record_id": record.ID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errAlreadyConverted
		}
		recordID = record.ID
		return nil
	})
	if errors.Is(err, errAlreadyConverted) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return recordID, true, nil
}

func (r *AttestationRepository) ClaimInviteMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) (bool, error) {
	column, err := markerColumn(marker)
	if err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).Model(&attestationDatamodel.PendingInvite{}).
		Where("id = ? AND registered_at IS NULL AND "+column+" IS NULL", id).
		Update(column, markerTime(at))
	return result.RowsAffected > 0, result.Error
}

func (r *AttestationRepository) ReleaseInviteMarker(ctx context.Context, id int64, marker attestation.Marker, at time.Time) error {
	column, err := markerColumn(marker)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&attestationDatamodel.PendingInvite{}).
		Where("id = ? AND "+column+" = ?", id, markerTime(at)).
		Update(column, nil).Error
}

// ----------------- NEW ASSETS -----------------

// ExistsStagedSerial reports whether a record that is still open has staged
// an asset with this serial number.
func (r *AttestationRepository) ExistsStagedSerial(ctx context.Context, serial string) (bool, error) {
	return r.existsStaged(ctx, "serial_number", serial)
}

func (r *AttestationRepository) ExistsStagedAssetTag(ctx context.Context, tag string) (bool, error) {
	return r.existsStaged(ctx, "asset_tag", tag)
}

func (r *AttestationRepository) existsStaged(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&attestationDatamodel.NewAsset{}).
		Joins("JOIN attestation_records ON attestation_records.id = attestation_new_assets.attestation_record_id").
		Where("attestation_new_assets."+column+" = ?", value).
		Where("attestation_records.status IN ?", openRecordStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *AttestationRepository) CreateNewAsset(ctx context.Context, a *attestationDatamodel.NewAsset) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AttestationRepository) ListNewAssets(ctx context.Context, recordID int64) ([]*attestationDatamodel.NewAsset, error) {
	var assets []*attestationDatamodel.NewAsset
	err := r.db.WithContext(ctx).
		Where("attestation_record_id = ?", recordID).
		Order("id ASC").
		Find(&assets).Error
	return assets, err
}

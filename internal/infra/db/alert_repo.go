package db

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cryptoalerts/internal/domain"
)

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	model := mapAlertToModel(*alert)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	alert.ID = model.ID
	alert.CreatedAt = model.CreatedAt
	alert.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *AlertRepository) ListActive(ctx context.Context) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models)
}

func (r *AlertRepository) ListActiveByChatID(ctx context.Context, chatID string) ([]domain.Alert, error) {
	var models []alertModel
	if err := r.db.WithContext(ctx).Where("chat_id = ? AND active = ?", chatID, true).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapAlertsToDomain(models)
}

func (r *AlertRepository) Get(ctx context.Context, alertID uint) (*domain.Alert, error) {
	var model alertModel
	if err := r.db.WithContext(ctx).First(&model, alertID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	alert, err := mapAlertToDomain(model)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *AlertRepository) Delete(ctx context.Context, alertID uint, chatID string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND chat_id = ?", alertID, chatID).Delete(&alertModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Save commits the mutable engine state of one alert. Last-writer-wins per
// record; no cross-alert transaction is needed because alerts are updated
// independently.
func (r *AlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	updates := map[string]interface{}{
		"active":              alert.Active,
		"last_observed_price": nil,
		"triggered_at":        alert.TriggeredAt,
	}
	if alert.LastObservedPrice != nil {
		updates["last_observed_price"] = alert.LastObservedPrice.String()
	}

	result := r.db.WithContext(ctx).Model(&alertModel{}).Where("id = ?", alert.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapAlertsToDomain(models []alertModel) ([]domain.Alert, error) {
	alerts := make([]domain.Alert, 0, len(models))
	for _, model := range models {
		alert, err := mapAlertToDomain(model)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func mapAlertToDomain(model alertModel) (domain.Alert, error) {
	threshold, err := decimal.NewFromString(model.Threshold)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("alert %d: bad threshold %q: %w", model.ID, model.Threshold, err)
	}

	var last *decimal.Decimal
	if model.LastObservedPrice != nil {
		price, err := decimal.NewFromString(*model.LastObservedPrice)
		if err != nil {
			return domain.Alert{}, fmt.Errorf("alert %d: bad observed price %q: %w", model.ID, *model.LastObservedPrice, err)
		}
		last = &price
	}

	return domain.Alert{
		ID:                model.ID,
		Symbol:            model.Symbol,
		Threshold:         threshold,
		Direction:         domain.Direction(model.Direction),
		ChatID:            model.ChatID,
		Active:            model.Active,
		LastObservedPrice: last,
		TriggeredAt:       model.TriggeredAt,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	}, nil
}

func mapAlertToModel(alert domain.Alert) alertModel {
	var last *string
	if alert.LastObservedPrice != nil {
		s := alert.LastObservedPrice.String()
		last = &s
	}
	return alertModel{
		ID:                alert.ID,
		Symbol:            alert.Symbol,
		Threshold:         alert.Threshold.String(),
		Direction:         string(alert.Direction),
		ChatID:            alert.ChatID,
		Active:            alert.Active,
		LastObservedPrice: last,
		TriggeredAt:       alert.TriggeredAt,
		CreatedAt:         alert.CreatedAt,
		UpdatedAt:         alert.UpdatedAt,
	}
}

package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/fashionstore-backend/pkg/db/models"
	"github.com/angelmondragon/fashionstore-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("ShippingAddress").
		Preload("BillingAddress").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate loads the header and holds its row lock until the
// surrounding transaction ends. sqlite ignores the locking clause.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) ListHistory(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusHistory, error) {
	var rows []models.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// EnsureSequence inserts the counter row for year unless one already exists.
func (r *repository) EnsureSequence(ctx context.Context, year, seed int) error {
	row := models.OrderNumberSequence{Year: year, LastValue: seed}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "year"}}, DoNothing: true}).
		Create(&row).Error
}

// IncrementSequence bumps the counter in place and returns the new value.
// On postgres the UPDATE holds the row lock until commit, so concurrent
// checkouts for the same year queue behind each other.
func (r *repository) IncrementSequence(ctx context.Context, year int) (int, error) {
	err := r.db.WithContext(ctx).
		Model(&models.OrderNumberSequence{}).
		Where("year = ?", year).
		UpdateColumn("last_value", gorm.Expr("last_value + 1")).Error
	if err != nil {
		return 0, err
	}
	var row models.OrderNumberSequence
	if err := r.db.WithContext(ctx).Where("year = ?", year).First(&row).Error; err != nil {
		return 0, err
	}
	return row.LastValue, nil
}

func (r *repository) SetSequence(ctx context.Context, year, value int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderNumberSequence{}).
		Where("year = ?", year).
		UpdateColumn("last_value", value).Error
}

// MaxOrderNumberSuffix returns the highest numeric suffix already used for
// year, or 0. Suffixes may outgrow six digits, so length sorts first.
func (r *repository) MaxOrderNumberSuffix(ctx context.Context, year int) (int, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_number LIKE ?", orderNumberPrefix(year)+"%").
		Order("LENGTH(order_number) DESC").
		Order("order_number DESC").
		Limit(1).
		Pluck("order_number", &numbers).Error
	if err != nil || len(numbers) == 0 {
		return 0, err
	}
	suffix, ok := orderNumberSuffix(numbers[0], year)
	if !ok {
		return 0, nil
	}
	return suffix, nil
}

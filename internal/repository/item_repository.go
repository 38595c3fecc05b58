package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auction-engine/internal/model"
)

// ItemRepo reads items.  Shipping costs are DECIMAL columns scanned
// straight into decimal.Decimal so they never pass through float64.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

// GetByID fetches an item by id.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (*model.Item, error) {
	var it model.Item
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, seller_id, name, description, auction_type, base_ship_cost, expedited_cost
		 FROM items WHERE id = ? LIMIT 1`,
		id).Scan(&it.ID, &it.SellerID, &it.Name, &it.Description, &it.Type, &it.BaseShipCost, &it.ExpeditedCost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

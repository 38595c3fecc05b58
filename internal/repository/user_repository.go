package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/auction-engine/internal/model"
)

// UserRepo reads bidder and payee records.  Accounts are created by the
// auth service; only profile and address columns are read here.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// GetByID fetches a user and their shipping address by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, street_number, street_name, city, country, postal_code
		 FROM users WHERE id = ? LIMIT 1`,
		id).Scan(&u.ID, &u.FirstName, &u.LastName,
		&u.Address.StreetNumber, &u.Address.StreetName, &u.Address.City, &u.Address.Country, &u.Address.PostalCode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

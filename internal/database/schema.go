package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent.  auctions.version is the compare-and-swap token;
// bids.placed_at keeps microseconds so insertion order is visible in time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		first_name VARCHAR(100) NOT NULL,
		last_name VARCHAR(100) NOT NULL,
		street_number VARCHAR(20) NOT NULL DEFAULT '',
		street_name VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL DEFAULT '',
		postal_code VARCHAR(20) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS items (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		seller_id BIGINT UNSIGNED NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		auction_type VARCHAR(20) NOT NULL DEFAULT 'FORWARD',
		base_ship_cost DECIMAL(10, 2) NOT NULL DEFAULT 0,
		expedited_cost DECIMAL(10, 2) NOT NULL DEFAULT 0,
		FOREIGN KEY (seller_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS auctions (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		item_id BIGINT UNSIGNED NOT NULL UNIQUE,
		start_price BIGINT NOT NULL,
		current_price BIGINT NOT NULL,
		highest_bidder_id BIGINT UNSIGNED NULL,
		starts_at DATETIME(6) NOT NULL,
		ends_at DATETIME(6) NOT NULL,
		status ENUM('ONGOING','ENDED','CANCELLED') NOT NULL DEFAULT 'ONGOING',
		version BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at DATETIME(6) NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		CHECK (current_price >= start_price),
		INDEX idx_auctions_status_ends (status, ends_at),
		FOREIGN KEY (item_id) REFERENCES items(id),
		FOREIGN KEY (highest_bidder_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		auction_id BIGINT UNSIGNED NOT NULL,
		bidder_id BIGINT UNSIGNED NOT NULL,
		amount BIGINT NOT NULL,
		placed_at DATETIME(6) NOT NULL,
		INDEX idx_bids_auction (auction_id, id),
		INDEX idx_bids_bidder (bidder_id),
		FOREIGN KEY (auction_id) REFERENCES auctions(id),
		FOREIGN KEY (bidder_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		id CHAR(36) PRIMARY KEY,
		auction_id BIGINT UNSIGNED NOT NULL UNIQUE,
		payee_id BIGINT UNSIGNED NOT NULL,
		payment_date DATETIME(6) NOT NULL,
		expected_delivery_date DATETIME(6) NOT NULL,
		is_expedited BOOLEAN NOT NULL DEFAULT FALSE,
		FOREIGN KEY (auction_id) REFERENCES auctions(id),
		FOREIGN KEY (payee_id) REFERENCES users(id)
	)`,
}

// Migrate creates the tables the auction engine needs if they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

package database

import "fmt"

// Bootstrap DDL. The composite primary key on completions is the whole
// idempotence story: a second insert for the same (user_id, mission_id)
// fails with a duplicate-entry error instead of creating a second reward.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS users (
        telegram_id BIGINT NOT NULL,
        telegram_username VARCHAR(64) NOT NULL DEFAULT '',
        instagram_handle VARCHAR(64) NOT NULL DEFAULT '',
        points BIGINT NOT NULL DEFAULT 0,
        referral_token VARCHAR(36) NOT NULL DEFAULT '',
        registered_at DATETIME NOT NULL,
        PRIMARY KEY (telegram_id)
    )`,
	`CREATE TABLE IF NOT EXISTS missions (
        id BIGINT NOT NULL AUTO_INCREMENT,
        type VARCHAR(16) NOT NULL,
        target_ref VARCHAR(512) NOT NULL,
        active TINYINT(1) NOT NULL DEFAULT 1,
        created_at DATETIME NOT NULL,
        PRIMARY KEY (id)
    )`,
	`CREATE TABLE IF NOT EXISTS completions (
        user_id BIGINT NOT NULL,
        mission_id BIGINT NOT NULL,
        completed_at DATETIME NOT NULL,
        description VARCHAR(512) NOT NULL DEFAULT '',
        reward_code VARCHAR(64) NOT NULL DEFAULT '',
        PRIMARY KEY (user_id, mission_id)
    )`,
}

func (s *MySql) createTables() error {
	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

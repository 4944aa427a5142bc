package database

import (
	"database/sql"
	"fmt"
)

func (s *MySql) prepareStmt(name, query string) (*sql.Stmt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.statements[name]; ok {
		return stmt, nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement [%s]: %w", name, err)
	}

	s.statements[name] = stmt
	return stmt, nil
}

func (s *MySql) closeStmt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, stmt := range s.statements {
		_ = stmt.Close()
		delete(s.statements, name)
	}
}

func (s *MySql) stmtInsertUser() (*sql.Stmt, error) {
	query := `INSERT INTO users (telegram_id, telegram_username, registered_at)
                   VALUES (?, ?, ?)
                   ON DUPLICATE KEY UPDATE telegram_username = ?`
	return s.prepareStmt("insertUser", query)
}

func (s *MySql) stmtSelectUser() (*sql.Stmt, error) {
	query := `SELECT telegram_id, telegram_username, instagram_handle, points, referral_token, registered_at
                   FROM users WHERE telegram_id = ?`
	return s.prepareStmt("selectUser", query)
}

func (s *MySql) stmtUpdateHandle() (*sql.Stmt, error) {
	query := `UPDATE users SET instagram_handle = ? WHERE telegram_id = ?`
	return s.prepareStmt("updateHandle", query)
}

func (s *MySql) stmtSelectPoints() (*sql.Stmt, error) {
	query := `SELECT points FROM users WHERE telegram_id = ?`
	return s.prepareStmt("selectPoints", query)
}

func (s *MySql) stmtUpdateReferralToken() (*sql.Stmt, error) {
	query := `UPDATE users SET referral_token = ? WHERE telegram_id = ? AND referral_token = ''`
	return s.prepareStmt("updateReferralToken", query)
}

func (s *MySql) stmtInsertMission() (*sql.Stmt, error) {
	query := `INSERT INTO missions (type, target_ref, active, created_at) VALUES (?, ?, 1, ?)`
	return s.prepareStmt("insertMission", query)
}

func (s *MySql) stmtSelectMission() (*sql.Stmt, error) {
	query := `SELECT id, type, target_ref, active, created_at FROM missions WHERE id = ?`
	return s.prepareStmt("selectMission", query)
}

func (s *MySql) stmtUpdateMissionActive() (*sql.Stmt, error) {
	query := `UPDATE missions SET active = ? WHERE id = ?`
	return s.prepareStmt("updateMissionActive", query)
}

func (s *MySql) stmtSelectAllMissions() (*sql.Stmt, error) {
	query := `SELECT id, type, target_ref, active, created_at FROM missions ORDER BY id`
	return s.prepareStmt("selectAllMissions", query)
}

func (s *MySql) stmtSelectEligibleMissions() (*sql.Stmt, error) {
	query := `SELECT id, type, target_ref, active, created_at
                   FROM missions
                   WHERE active = 1
                     AND id NOT IN (SELECT mission_id FROM completions WHERE user_id = ?)
                     AND (? = '' OR type = ?)
                   ORDER BY id`
	return s.prepareStmt("selectEligibleMissions", query)
}

func (s *MySql) stmtUpdateRewardCode() (*sql.Stmt, error) {
	query := `UPDATE completions SET reward_code = ? WHERE user_id = ? AND mission_id = ?`
	return s.prepareStmt("updateRewardCode", query)
}

func (s *MySql) stmtSelectCompletion() (*sql.Stmt, error) {
	query := `SELECT user_id, mission_id, completed_at, description, reward_code
                   FROM completions WHERE user_id = ? AND mission_id = ?`
	return s.prepareStmt("selectCompletion", query)
}

func (s *MySql) stmtCountCompletions() (*sql.Stmt, error) {
	query := `SELECT COUNT(*) FROM completions WHERE mission_id = ?`
	return s.prepareStmt("countCompletions", query)
}

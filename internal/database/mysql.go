package database

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/toni86moon/telegram-bot/entity"
	"github.com/toni86moon/telegram-bot/internal/config"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the server error code for a unique key violation.
// RecordCompletion relies on it to turn a lost insert race into ErrAlreadyCompleted.
const mysqlDuplicateEntry = 1062

type MySql struct {
	db         *sql.DB
	statements map[string]*sql.Stmt
	mu         sync.Mutex
}

func NewSQLClient(conf *config.Config) (*MySql, error) {
	connectionURI := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		conf.MySql.UserName, conf.MySql.Password, conf.MySql.HostName, conf.MySql.Port, conf.MySql.Database)
	db, err := sql.Open("mysql", connectionURI)
	if err != nil {
		return nil, fmt.Errorf("sql connect: %w", err)
	}

	// try to ping three times with a 30-second interval; wait for a database to start
	for i := 0; i < 3; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		if i == 2 {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		time.Sleep(30 * time.Second)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &MySql{
		db:         db,
		statements: make(map[string]*sql.Stmt),
	}

	if err = sdb.createTables(); err != nil {
		return nil, err
	}

	return sdb, nil
}

func (s *MySql) Close() {
	s.closeStmt()
	_ = s.db.Close()
}

// RegisterUser creates the user on first contact; repeated calls only
// refresh the telegram username.
func (s *MySql) RegisterUser(telegramId int64, username string) error {
	stmt, err := s.stmtInsertUser()
	if err != nil {
		return err
	}
	_, err = stmt.Exec(telegramId, username, time.Now().UTC(), username)
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}
	return nil
}

func (s *MySql) GetUser(telegramId int64) (*entity.User, error) {
	stmt, err := s.stmtSelectUser()
	if err != nil {
		return nil, err
	}
	var user entity.User
	err = stmt.QueryRow(telegramId).Scan(
		&user.TelegramId,
		&user.TelegramUsername,
		&user.InstagramHandle,
		&user.Points,
		&user.ReferralToken,
		&user.RegisteredAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d", entity.ErrNotFound, telegramId)
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

func (s *MySql) SetInstagramHandle(telegramId int64, handle string) error {
	stmt, err := s.stmtUpdateHandle()
	if err != nil {
		return err
	}
	res, err := stmt.Exec(handle, telegramId)
	if err != nil {
		return fmt.Errorf("update handle: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// user may exist with the same handle already; confirm existence
		if _, err = s.GetUser(telegramId); err != nil {
			return err
		}
	}
	return nil
}

// GetPoints returns 0 for an unknown user: first-contact semantics.
func (s *MySql) GetPoints(telegramId int64) (int64, error) {
	stmt, err := s.stmtSelectPoints()
	if err != nil {
		return 0, err
	}
	var points int64
	err = stmt.QueryRow(telegramId).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select points: %w", err)
	}
	return points, nil
}

// EnsureReferralToken stores the candidate token only if the user has none
// yet and returns whichever token is on record afterwards. The conditional
// UPDATE keeps the token stable under concurrent calls.
func (s *MySql) EnsureReferralToken(telegramId int64, candidate string) (string, error) {
	stmt, err := s.stmtUpdateReferralToken()
	if err != nil {
		return "", err
	}
	if _, err = stmt.Exec(candidate, telegramId); err != nil {
		return "", fmt.Errorf("update referral token: %w", err)
	}
	user, err := s.GetUser(telegramId)
	if err != nil {
		return "", err
	}
	return user.ReferralToken, nil
}

func (s *MySql) CreateMission(m *entity.Mission) (*entity.Mission, error) {
	if !m.Type.IsValid() {
		return nil, fmt.Errorf("%w: action type %q", entity.ErrInvalidArgument, m.Type)
	}
	if m.TargetRef == "" {
		return nil, fmt.Errorf("%w: empty target reference", entity.ErrInvalidArgument)
	}
	stmt, err := s.stmtInsertMission()
	if err != nil {
		return nil, err
	}
	createdAt := time.Now().UTC()
	res, err := stmt.Exec(string(m.Type), m.TargetRef, createdAt)
	if err != nil {
		return nil, fmt.Errorf("insert mission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("mission insert id: %w", err)
	}
	return &entity.Mission{
		Id:        id,
		Type:      m.Type,
		TargetRef: m.TargetRef,
		Active:    true,
		CreatedAt: createdAt,
	}, nil
}

func (s *MySql) GetMission(id int64) (*entity.Mission, error) {
	stmt, err := s.stmtSelectMission()
	if err != nil {
		return nil, err
	}
	var m entity.Mission
	var actionType string
	err = stmt.QueryRow(id).Scan(&m.Id, &actionType, &m.TargetRef, &m.Active, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mission %d", entity.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select mission: %w", err)
	}
	m.Type = entity.ActionType(actionType)
	return &m, nil
}

// SetMissionActive toggles the soft-disable flag. Idempotent: setting the
// current value is not an error. Unknown id fails with ErrNotFound.
func (s *MySql) SetMissionActive(id int64, active bool) error {
	if _, err := s.GetMission(id); err != nil {
		return err
	}
	stmt, err := s.stmtUpdateMissionActive()
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(active, id); err != nil {
		return fmt.Errorf("update mission active: %w", err)
	}
	return nil
}

// ListMissions returns every mission regardless of state, ascending id.
func (s *MySql) ListMissions() ([]*entity.Mission, error) {
	stmt, err := s.stmtSelectAllMissions()
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, fmt.Errorf("select missions: %w", err)
	}
	defer rows.Close()
	return scanMissions(rows)
}

// ListEligibleMissions returns active missions the user has not completed,
// ascending id so "the next mission" is deterministic. An empty filter
// matches every action type.
func (s *MySql) ListEligibleMissions(userId int64, filter entity.ActionType) ([]*entity.Mission, error) {
	stmt, err := s.stmtSelectEligibleMissions()
	if err != nil {
		return nil, err
	}
	// filter == "" disables the type condition inside the query
	rows, err := stmt.Query(userId, string(filter), string(filter))
	if err != nil {
		return nil, fmt.Errorf("select eligible missions: %w", err)
	}
	defer rows.Close()
	return scanMissions(rows)
}

func scanMissions(rows *sql.Rows) ([]*entity.Mission, error) {
	var missions []*entity.Mission
	for rows.Next() {
		var m entity.Mission
		var actionType string
		if err := rows.Scan(&m.Id, &actionType, &m.TargetRef, &m.Active, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mission: %w", err)
		}
		m.Type = entity.ActionType(actionType)
		missions = append(missions, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return missions, nil
}

// RecordCompletion inserts the completion and awards points in a single
// transaction. The primary key on (user_id, mission_id) makes the insert a
// check-and-set: of all racing callers exactly one commits, the rest get
// ErrAlreadyCompleted and no point change.
func (s *MySql) RecordCompletion(userId, missionId int64, description string, points int64) (*entity.Completion, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	completedAt := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO completions (user_id, mission_id, completed_at, description) VALUES (?, ?, ?, ?)`,
		userId, missionId, completedAt, description,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return nil, fmt.Errorf("%w: user %d mission %d", entity.ErrAlreadyCompleted, userId, missionId)
		}
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE users SET points = points + ? WHERE telegram_id = ?`,
		points, userId,
	)
	if err != nil {
		return nil, fmt.Errorf("award points: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit completion: %w", err)
	}

	return &entity.Completion{
		UserId:      userId,
		MissionId:   missionId,
		CompletedAt: completedAt,
		Description: description,
	}, nil
}

// SetRewardCode records the issued code against the completion for audit.
func (s *MySql) SetRewardCode(userId, missionId int64, code string) error {
	stmt, err := s.stmtUpdateRewardCode()
	if err != nil {
		return err
	}
	if _, err = stmt.Exec(code, userId, missionId); err != nil {
		return fmt.Errorf("update reward code: %w", err)
	}
	return nil
}

func (s *MySql) GetCompletion(userId, missionId int64) (*entity.Completion, error) {
	stmt, err := s.stmtSelectCompletion()
	if err != nil {
		return nil, err
	}
	var c entity.Completion
	err = stmt.QueryRow(userId, missionId).Scan(
		&c.UserId,
		&c.MissionId,
		&c.CompletedAt,
		&c.Description,
		&c.RewardCode,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: completion %d/%d", entity.ErrNotFound, userId, missionId)
	}
	if err != nil {
		return nil, fmt.Errorf("select completion: %w", err)
	}
	return &c, nil
}

// CompletionCount reports how many users finished the given mission.
func (s *MySql) CompletionCount(missionId int64) (int64, error) {
	stmt, err := s.stmtCountCompletions()
	if err != nil {
		return 0, err
	}
	var count int64
	if err = stmt.QueryRow(missionId).Scan(&count); err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return count, nil
}

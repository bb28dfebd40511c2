// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/stillpoint/serenity/internal/app/domain/achievement"
	"github.com/stillpoint/serenity/internal/app/domain/assessment"
	"github.com/stillpoint/serenity/internal/app/domain/chat"
	"github.com/stillpoint/serenity/internal/app/domain/friendship"
	"github.com/stillpoint/serenity/internal/app/domain/meditation"
	"github.com/stillpoint/serenity/internal/app/domain/session"
	"github.com/stillpoint/serenity/internal/app/domain/user"
	"github.com/stillpoint/serenity/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MeditationStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)
var _ storage.AssessmentStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.ChatStore = (*Store)(nil)
var _ storage.FriendStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

func mapErr(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrDuplicate)
	}
	return err
}

func marshalList(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func unmarshalList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

// --- UserStore ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	friendsJSON, err := marshalList(u.Friends)
	if err != nil {
		return user.User{}, err
	}
	achievementsJSON, err := marshalList(u.Achievements)
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, display_name, bio, is_admin, friends, achievements, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Bio, u.IsAdmin, friendsJSON, achievementsJSON, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr("user", u.Username, err)
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	friendsJSON, err := marshalList(u.Friends)
	if err != nil {
		return user.User{}, err
	}
	achievementsJSON, err := marshalList(u.Achievements)
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, display_name = $5, bio = $6,
		    is_admin = $7, friends = $8, achievements = $9, updated_at = $10
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.DisplayName, u.Bio, u.IsAdmin, friendsJSON, achievementsJSON, u.UpdatedAt)
	if err != nil {
		return user.User{}, mapErr("user", u.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrNotFound)
	}
	return u, nil
}

const userColumns = `id, username, email, password_hash, display_name, bio, is_admin, friends, achievements, created_at, updated_at`

func (s *Store) scanUser(row interface{ Scan(...interface{}) error }) (user.User, error) {
	var (
		u               user.User
		friendsRaw      []byte
		achievementsRaw []byte
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.DisplayName, &u.Bio,
		&u.IsAdmin, &friendsRaw, &achievementsRaw, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if u.Friends, err = unmarshalList(friendsRaw); err != nil {
		return user.User{}, err
	}
	if u.Achievements, err = unmarshalList(achievementsRaw); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) getUserWhere(ctx context.Context, clause string, arg interface{}) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+clause, arg)
	u, err := s.scanUser(row)
	if err != nil {
		return user.User{}, mapErr("user", fmt.Sprintf("%v", arg), err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	return s.getUserWhere(ctx, `id = $1`, id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUserWhere(ctx, `lower(username) = lower($1)`, username)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUserWhere(ctx, `lower(email) = lower($1)`, email)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []user.User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- MeditationStore ---------------------------------------------------------

func (s *Store) CreateMeditation(ctx context.Context, m meditation.Meditation) (meditation.Meditation, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meditations (id, title, description, category, difficulty, duration_seconds, audio_url, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.Title, m.Description, m.Category, m.Difficulty, m.DurationSeconds, m.AudioURL, m.CreatedBy, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return meditation.Meditation{}, mapErr("meditation", m.ID, err)
	}
	return m, nil
}

func (s *Store) UpdateMeditation(ctx context.Context, m meditation.Meditation) (meditation.Meditation, error) {
	existing, err := s.GetMeditation(ctx, m.ID)
	if err != nil {
		return meditation.Meditation{}, err
	}
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE meditations
		SET title = $2, description = $3, category = $4, difficulty = $5,
		    duration_seconds = $6, audio_url = $7, updated_at = $8
		WHERE id = $1
	`, m.ID, m.Title, m.Description, m.Category, m.Difficulty, m.DurationSeconds, m.AudioURL, m.UpdatedAt)
	if err != nil {
		return meditation.Meditation{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return meditation.Meditation{}, fmt.Errorf("meditation %s: %w", m.ID, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetMeditation(ctx context.Context, id string) (meditation.Meditation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, category, difficulty, duration_seconds, audio_url, created_by, created_at, updated_at
		FROM meditations WHERE id = $1
	`, id)

	var m meditation.Meditation
	err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.Difficulty,
		&m.DurationSeconds, &m.AudioURL, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return meditation.Meditation{}, mapErr("meditation", id, err)
	}
	return m, nil
}

func (s *Store) ListMeditations(ctx context.Context, filter storage.MeditationFilter) ([]meditation.Meditation, error) {
	query := `
		SELECT id, title, description, category, difficulty, duration_seconds, audio_url, created_by, created_at, updated_at
		FROM meditations
		WHERE ($1 = '' OR category = $1) AND ($2 = '' OR difficulty = $2)
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, string(filter.Category), string(filter.Difficulty))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []meditation.Meditation
	for rows.Next() {
		var m meditation.Meditation
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.Category, &m.Difficulty,
			&m.DurationSeconds, &m.AudioURL, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) DeleteMeditation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM meditations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("meditation %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- SessionStore ------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	muscleJSON, err := marshalList(sess.MuscleGroups)
	if err != nil {
		return session.Session{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO practice_sessions (id, user_id, kind, meditation_id, status, started_at, ended_at,
			duration_seconds, notes, cycle_count, pattern, muscle_groups, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, sess.ID, sess.UserID, sess.Kind, sess.MeditationID, sess.Status, sess.StartedAt, sess.EndedAt,
		sess.DurationSeconds, sess.Notes, sess.CycleCount, sess.Pattern, muscleJSON, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return session.Session{}, mapErr("session", sess.ID, err)
	}
	return sess, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	existing, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		return session.Session{}, err
	}
	sess.CreatedAt = existing.CreatedAt
	sess.UpdatedAt = time.Now().UTC()

	muscleJSON, err := marshalList(sess.MuscleGroups)
	if err != nil {
		return session.Session{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE practice_sessions
		SET status = $2, started_at = $3, ended_at = $4, duration_seconds = $5, notes = $6,
		    cycle_count = $7, pattern = $8, muscle_groups = $9, updated_at = $10
		WHERE id = $1
	`, sess.ID, sess.Status, sess.StartedAt, sess.EndedAt, sess.DurationSeconds, sess.Notes,
		sess.CycleCount, sess.Pattern, muscleJSON, sess.UpdatedAt)
	if err != nil {
		return session.Session{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return session.Session{}, fmt.Errorf("session %s: %w", sess.ID, storage.ErrNotFound)
	}
	return sess, nil
}

const sessionColumns = `id, user_id, kind, meditation_id, status, started_at, ended_at, duration_seconds, notes, cycle_count, pattern, muscle_groups, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (session.Session, error) {
	var (
		sess      session.Session
		muscleRaw []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.Kind, &sess.MeditationID, &sess.Status,
		&sess.StartedAt, &sess.EndedAt, &sess.DurationSeconds, &sess.Notes,
		&sess.CycleCount, &sess.Pattern, &muscleRaw, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return session.Session{}, err
	}
	if sess.MuscleGroups, err = unmarshalList(muscleRaw); err != nil {
		return session.Session{}, err
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		return session.Session{}, mapErr("session", id, err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string, kind session.Kind) ([]session.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM practice_sessions
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR kind = $2)
		ORDER BY created_at DESC
	`, userID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM practice_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- AssessmentStore ---------------------------------------------------------

func (s *Store) CreateAssessment(ctx context.Context, a assessment.StressAssessment) (assessment.StressAssessment, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()

	symptomsJSON, err := marshalList(a.Symptoms)
	if err != nil {
		return assessment.StressAssessment{}, err
	}
	triggersJSON, err := marshalList(a.Triggers)
	if err != nil {
		return assessment.StressAssessment{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stress_assessments (id, user_id, stress_level, symptoms, triggers, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.UserID, a.StressLevel, symptomsJSON, triggersJSON, a.Notes, a.CreatedAt)
	if err != nil {
		return assessment.StressAssessment{}, mapErr("assessment", a.ID, err)
	}
	return a, nil
}

func scanAssessment(row interface{ Scan(...interface{}) error }) (assessment.StressAssessment, error) {
	var (
		a           assessment.StressAssessment
		symptomsRaw []byte
		triggersRaw []byte
	)
	err := row.Scan(&a.ID, &a.UserID, &a.StressLevel, &symptomsRaw, &triggersRaw, &a.Notes, &a.CreatedAt)
	if err != nil {
		return assessment.StressAssessment{}, err
	}
	if a.Symptoms, err = unmarshalList(symptomsRaw); err != nil {
		return assessment.StressAssessment{}, err
	}
	if a.Triggers, err = unmarshalList(triggersRaw); err != nil {
		return assessment.StressAssessment{}, err
	}
	a.Category = assessment.Categorize(a.StressLevel)
	return a, nil
}

func (s *Store) GetAssessment(ctx context.Context, id string) (assessment.StressAssessment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, stress_level, symptoms, triggers, notes, created_at
		FROM stress_assessments WHERE id = $1
	`, id)
	a, err := scanAssessment(row)
	if err != nil {
		return assessment.StressAssessment{}, mapErr("assessment", id, err)
	}
	return a, nil
}

func (s *Store) ListAssessments(ctx context.Context, userID string) ([]assessment.StressAssessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, stress_level, symptoms, triggers, notes, created_at
		FROM stress_assessments
		WHERE ($1 = '' OR user_id = $1)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []assessment.StressAssessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAssessment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM stress_assessments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("assessment %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// --- AchievementStore --------------------------------------------------------

func (s *Store) CreateDefinition(ctx context.Context, def achievement.Definition) (achievement.Definition, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	def.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievement_definitions (id, name, description, criteria, target, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, def.ID, def.Name, def.Description, def.Criteria, def.Target, def.CreatedAt)
	if err != nil {
		return achievement.Definition{}, mapErr("achievement", def.ID, err)
	}
	return def, nil
}

func (s *Store) GetDefinition(ctx context.Context, id string) (achievement.Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, criteria, target, created_at
		FROM achievement_definitions WHERE id = $1
	`, id)

	var def achievement.Definition
	err := row.Scan(&def.ID, &def.Name, &def.Description, &def.Criteria, &def.Target, &def.CreatedAt)
	if err != nil {
		return achievement.Definition{}, mapErr("achievement", id, err)
	}
	return def, nil
}

func (s *Store) ListDefinitions(ctx context.Context) ([]achievement.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, criteria, target, created_at
		FROM achievement_definitions ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []achievement.Definition
	for rows.Next() {
		var def achievement.Definition
		if err := rows.Scan(&def.ID, &def.Name, &def.Description, &def.Criteria, &def.Target, &def.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (s *Store) UpsertProgress(ctx context.Context, p achievement.Progress) (achievement.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievement_progress (id, user_id, achievement_id, current, target, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, achievement_id)
		DO UPDATE SET current = $4, target = $5, completed_at = $6, updated_at = $7
	`, p.ID, p.UserID, p.AchievementID, p.Current, p.Target, p.CompletedAt, p.UpdatedAt)
	if err != nil {
		return achievement.Progress{}, err
	}
	return p, nil
}

func (s *Store) GetProgress(ctx context.Context, userID, achievementID string) (achievement.Progress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, achievement_id, current, target, completed_at, updated_at
		FROM achievement_progress WHERE user_id = $1 AND achievement_id = $2
	`, userID, achievementID)

	var p achievement.Progress
	err := row.Scan(&p.ID, &p.UserID, &p.AchievementID, &p.Current, &p.Target, &p.CompletedAt, &p.UpdatedAt)
	if err != nil {
		return achievement.Progress{}, mapErr("progress", userID+"/"+achievementID, err)
	}
	return p, nil
}

func (s *Store) ListProgress(ctx context.Context, userID string) ([]achievement.Progress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, achievement_id, current, target, completed_at, updated_at
		FROM achievement_progress WHERE user_id = $1 ORDER BY achievement_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []achievement.Progress
	for rows.Next() {
		var p achievement.Progress
		if err := rows.Scan(&p.ID, &p.UserID, &p.AchievementID, &p.Current, &p.Target, &p.CompletedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- ChatStore ---------------------------------------------------------------

func (s *Store) CreateGroupSession(ctx context.Context, gs chat.GroupSession) (chat.GroupSession, error) {
	if gs.ID == "" {
		gs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	gs.CreatedAt = now
	gs.UpdatedAt = now

	participantsJSON, err := marshalList(gs.Participants)
	if err != nil {
		return chat.GroupSession{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO group_sessions (id, name, host_id, meditation_id, scheduled_at, participants, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, gs.ID, gs.Name, gs.HostID, gs.MeditationID, gs.ScheduledAt, participantsJSON, gs.CreatedAt, gs.UpdatedAt)
	if err != nil {
		return chat.GroupSession{}, mapErr("group session", gs.ID, err)
	}
	return gs, nil
}

func (s *Store) UpdateGroupSession(ctx context.Context, gs chat.GroupSession) (chat.GroupSession, error) {
	existing, err := s.GetGroupSession(ctx, gs.ID)
	if err != nil {
		return chat.GroupSession{}, err
	}
	gs.CreatedAt = existing.CreatedAt
	gs.UpdatedAt = time.Now().UTC()

	participantsJSON, err := marshalList(gs.Participants)
	if err != nil {
		return chat.GroupSession{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE group_sessions
		SET name = $2, meditation_id = $3, scheduled_at = $4, participants = $5, updated_at = $6
		WHERE id = $1
	`, gs.ID, gs.Name, gs.MeditationID, gs.ScheduledAt, participantsJSON, gs.UpdatedAt)
	if err != nil {
		return chat.GroupSession{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return chat.GroupSession{}, fmt.Errorf("group session %s: %w", gs.ID, storage.ErrNotFound)
	}
	return gs, nil
}

func (s *Store) GetGroupSession(ctx context.Context, id string) (chat.GroupSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, host_id, meditation_id, scheduled_at, participants, created_at, updated_at
		FROM group_sessions WHERE id = $1
	`, id)

	var (
		gs              chat.GroupSession
		participantsRaw []byte
	)
	err := row.Scan(&gs.ID, &gs.Name, &gs.HostID, &gs.MeditationID, &gs.ScheduledAt, &participantsRaw, &gs.CreatedAt, &gs.UpdatedAt)
	if err != nil {
		return chat.GroupSession{}, mapErr("group session", id, err)
	}
	if gs.Participants, err = unmarshalList(participantsRaw); err != nil {
		return chat.GroupSession{}, err
	}
	return gs, nil
}

func (s *Store) ListGroupSessions(ctx context.Context) ([]chat.GroupSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, host_id, meditation_id, scheduled_at, participants, created_at, updated_at
		FROM group_sessions ORDER BY scheduled_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.GroupSession
	for rows.Next() {
		var (
			gs              chat.GroupSession
			participantsRaw []byte
		)
		if err := rows.Scan(&gs.ID, &gs.Name, &gs.HostID, &gs.MeditationID, &gs.ScheduledAt, &participantsRaw, &gs.CreatedAt, &gs.UpdatedAt); err != nil {
			return nil, err
		}
		if gs.Participants, err = unmarshalList(participantsRaw); err != nil {
			return nil, err
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, msg chat.Message) (chat.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, sender_id, sender_name, type, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.SessionID, msg.SenderID, msg.SenderName, msg.Type, msg.Content, msg.CreatedAt)
	if err != nil {
		return chat.Message{}, mapErr("message", msg.ID, err)
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, limit, offset int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender_id, sender_name, type, content, created_at
		FROM chat_messages WHERE session_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var msg chat.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.SenderID, &msg.SenderName, &msg.Type, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// --- FriendStore -------------------------------------------------------------

func (s *Store) CreateFriendRequest(ctx context.Context, req friendship.Request) (friendship.Request, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.FromUserID, req.ToUserID, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return friendship.Request{}, mapErr("friend request", req.ID, err)
	}
	return req, nil
}

func (s *Store) UpdateFriendRequest(ctx context.Context, req friendship.Request) (friendship.Request, error) {
	req.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE friend_requests SET status = $2, updated_at = $3 WHERE id = $1
	`, req.ID, req.Status, req.UpdatedAt)
	if err != nil {
		return friendship.Request{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return friendship.Request{}, fmt.Errorf("friend request %s: %w", req.ID, storage.ErrNotFound)
	}
	return req, nil
}

func (s *Store) GetFriendRequest(ctx context.Context, id string) (friendship.Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM friend_requests WHERE id = $1
	`, id)

	var req friendship.Request
	err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return friendship.Request{}, mapErr("friend request", id, err)
	}
	return req, nil
}

func (s *Store) ListFriendRequests(ctx context.Context, userID string) ([]friendship.Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM friend_requests
		WHERE from_user_id = $1 OR to_user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []friendship.Request
	for rows.Next() {
		var req friendship.Request
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

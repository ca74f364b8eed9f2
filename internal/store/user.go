package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/heroverse/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

const userColumns = `id, username, password_hash, name, nickname, description, power, is_active, avatar, created_at, updated_at`

// UserRepository handles persistence for users in Postgres. Subscriber
// sets live in the subscriptions edge table so that adding or removing a
// subscriber is a single atomic statement.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Nickname     string    `db:"nickname"`
	Description  string    `db:"description"`
	Power        []byte    `db:"power"`
	IsActive     bool      `db:"is_active"`
	Avatar       string    `db:"avatar"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (row userRow) toUser() types.User {
	user := types.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Name:         row.Name,
		Nickname:     row.Nickname,
		Description:  row.Description,
		IsActive:     row.IsActive,
		Avatar:       row.Avatar,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	_ = json.Unmarshal(row.Power, &user.Power)
	return user
}

type subscriptionRow struct {
	UserID       string `db:"user_id"`
	SubscriberID string `db:"subscriber_id"`
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return types.User{}, ErrNotFound
	}

	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return r.withSubscribers(ctx, row.toUser())
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return r.withSubscribers(ctx, row.toUser())
}

// GetByIDs returns the users that exist among ids, in the order of ids.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []types.User{}, nil
	}

	const query = `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1::uuid[])`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(valid)); err != nil {
		return nil, err
	}
	users, err := r.attachSubscribers(ctx, rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]types.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	ordered := make([]types.User, 0, len(users))
	for _, id := range valid {
		if user, ok := byID[id]; ok {
			ordered = append(ordered, user)
		}
	}
	return ordered, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	const countQuery = `SELECT COUNT(1) FROM users`
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery); err != nil {
		return nil, 0, err
	}

	const listQuery = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id OFFSET $1 LIMIT $2`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, listQuery, offset, limit); err != nil {
		return nil, 0, err
	}
	users, err := r.attachSubscribers(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Find(ctx context.Context, filter types.ProfileFilter) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::text = '' OR nickname ILIKE '%' || $1::text || '%' ESCAPE '\')
		  AND ($2::text = '' OR EXISTS (
			SELECT 1 FROM jsonb_array_elements_text(power) AS p(tag)
			WHERE p.tag ILIKE '%' || $2::text || '%' ESCAPE '\'))
		ORDER BY created_at, id`
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, escapeLike(filter.Nickname), escapeLike(filter.Power)); err != nil {
		return nil, err
	}
	return r.attachSubscribers(ctx, rows)
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Subscribers = nil

	powerJSON, err := marshalPower(user.Power)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (id, username, password_hash, name, nickname, description, power, is_active, avatar, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Name,
		user.Nickname,
		user.Description,
		powerJSON,
		user.IsActive,
		user.Avatar,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		if pqCode(err) == pqUniqueViolation {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// Update writes the profile columns only. Subscribers are managed through
// AddSubscriber and RemoveSubscriber.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, err := uuid.Parse(user.ID); err != nil {
		return types.User{}, ErrNotFound
	}

	powerJSON, err := marshalPower(user.Power)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		UPDATE users
		SET name = $1,
			nickname = $2,
			description = $3,
			power = $4,
			is_active = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.Name,
		user.Nickname,
		user.Description,
		powerJSON,
		user.IsActive,
		time.Now().UTC(),
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.User{}, err
	}
	if affected == 0 {
		return types.User{}, ErrNotFound
	}
	return r.GetByID(ctx, user.ID)
}

// SetAvatar replaces the avatar column in a single statement and returns
// the value it replaced.
func (r *UserRepository) SetAvatar(ctx context.Context, userID, avatar string) (string, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return "", ErrNotFound
	}

	const query = `
		UPDATE users AS u
		SET avatar = $1,
			updated_at = $2
		FROM (SELECT id, avatar FROM users WHERE id = $3 FOR UPDATE) AS prev
		WHERE u.id = prev.id
		RETURNING prev.avatar`
	var previous string
	if err := r.db.GetContext(ctx, &previous, query, avatar, time.Now().UTC(), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return previous, nil
}

// Delete removes the user. Its subscription edges go with it through the
// ON DELETE CASCADE foreign keys.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `TRUNCATE users CASCADE`)
	return err
}

func (r *UserRepository) AddSubscriber(ctx context.Context, userID, subscriberID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return ErrNotFound
	}
	if _, err := uuid.Parse(subscriberID); err != nil {
		return ErrNotFound
	}

	const query = `
		INSERT INTO subscriptions (user_id, subscriber_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, subscriber_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, userID, subscriberID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return ErrNotFound
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (r *UserRepository) RemoveSubscriber(ctx context.Context, userID, subscriberID string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return ErrNotFound
	}
	if _, err := uuid.Parse(subscriberID); err != nil {
		_, err := r.GetByID(ctx, userID)
		return err
	}

	const query = `DELETE FROM subscriptions WHERE user_id = $1 AND subscriber_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, subscriberID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) withSubscribers(ctx context.Context, user types.User) (types.User, error) {
	const query = `SELECT subscriber_id FROM subscriptions WHERE user_id = $1 ORDER BY seq`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, user.ID); err != nil {
		return types.User{}, err
	}
	user.Subscribers = ids
	return user, nil
}

func (r *UserRepository) attachSubscribers(ctx context.Context, rows []userRow) ([]types.User, error) {
	users := make([]types.User, 0, len(rows))
	if len(rows) == 0 {
		return users, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	const query = `
		SELECT user_id, subscriber_id
		FROM subscriptions
		WHERE user_id = ANY($1::uuid[])
		ORDER BY seq`
	var edges []subscriptionRow
	if err := r.db.SelectContext(ctx, &edges, query, pq.Array(ids)); err != nil {
		return nil, err
	}

	subscribers := make(map[string][]string, len(rows))
	for _, edge := range edges {
		subscribers[edge.UserID] = append(subscribers[edge.UserID], edge.SubscriberID)
	}
	for _, row := range rows {
		user := row.toUser()
		user.Subscribers = subscribers[row.ID]
		users = append(users, user)
	}
	return users, nil
}

func marshalPower(power []string) (string, error) {
	if power == nil {
		power = []string{}
	}
	data, err := json.Marshal(power)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

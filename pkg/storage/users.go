package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ogulcanaydogan/campus-guardian/pkg/model"
)

func (s *SQLStore) UpsertUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	q := s.sb.Insert("users").
		Columns("id", "name", "email", "role", "department", "active").
		Values(user.ID, user.Name, user.Email, string(user.Role), user.Department, user.Active).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email,
			role = excluded.role, department = excluded.department, active = excluded.active`)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLStore) ListActiveUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.query(ctx, s.sb.
		Select("id", "name", "email", "role", "department", "active").
		From("users").
		Where(sq.Eq{"active": true}).
		OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		var role string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.Department, &u.Active); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLStore) CreateUserNotification(ctx context.Context, n *model.UserNotification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Data == "" {
		n.Data = "{}"
	}
	q := s.sb.Insert("user_notifications").
		Columns("id", "user_id", "type", "title", "message", "data", "read_at", "created_at").
		Values(n.ID, n.UserID, n.Type, n.Title, n.Message, n.Data, nullTime(n.ReadAt), n.CreatedAt)
	if _, err := s.exec(ctx, q); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *SQLStore) ListUserNotifications(ctx context.Context, userID string, limit int) ([]model.UserNotification, error) {
	q := s.sb.Select("id", "user_id", "type", "title", "message", "data", "read_at", "created_at").
		From("user_notifications").
		OrderBy("created_at DESC").
		Limit(limitOr(limit, 100))
	if userID != "" {
		q = q.Where(sq.Eq{"user_id": userID})
	}
	rows, err := s.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.UserNotification
	for rows.Next() {
		var n model.UserNotification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Data, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ReadAt = timePtr(readAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

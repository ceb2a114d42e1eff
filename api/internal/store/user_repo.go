package store

import (
	"context"
	"database/sql"
	"errors"
)

// Registration dialog states persisted per user.
const (
	StateIdle         = 0
	StateAwaitName    = 1
	StateAwaitPhone   = 2
	StateAwaitConfirm = 3
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Touch upserts the first/last-seen timestamps for a user.
func (r *UserRepo) Touch(ctx context.Context, userID int64) error {
	const q = `
insert into user_points (user_id, first_time, last_time)
values ($1, now(), now())
on conflict (user_id) do update set last_time = excluded.last_time`
	_, err := r.DB.ExecContext(ctx, q, userID)
	return err
}

// Points returns the user's balance, zero when unknown.
func (r *UserRepo) Points(ctx context.Context, userID int64) (int64, error) {
	var pts sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`select points from user_points where user_id = $1`, userID).Scan(&pts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pts.Int64, nil
}

// AddPoints credits n points, creating the row when needed.
func (r *UserRepo) AddPoints(ctx context.Context, userID, n int64) error {
	const q = `
insert into user_points (user_id, points) values ($1, $2)
on conflict (user_id) do update set points = coalesce(user_points.points, 0) + excluded.points`
	_, err := r.DB.ExecContext(ctx, q, userID, n)
	return err
}

// SubtractPoints debits n points in a single conditional statement, so
// concurrent debits for the same user cannot lose an update. Returns false
// when the balance is insufficient.
func (r *UserRepo) SubtractPoints(ctx context.Context, userID, n int64) (bool, error) {
	const q = `
update user_points set points = points - $2
where user_id = $1 and points >= $2`
	res, err := r.DB.ExecContext(ctx, q, userID, n)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}

// Language returns the user's chosen language code, "en" when unset.
func (r *UserRepo) Language(ctx context.Context, userID int64) string {
	var lang sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`select language from user_points where user_id = $1`, userID).Scan(&lang)
	if err != nil || !lang.Valid || lang.String == "" {
		return "en"
	}
	return lang.String
}

func (r *UserRepo) SetLanguage(ctx context.Context, userID int64, code string) error {
	const q = `
insert into user_points (user_id, language) values ($1, $2)
on conflict (user_id) do update set language = excluded.language`
	_, err := r.DB.ExecContext(ctx, q, userID, code)
	return err
}

func (r *UserRepo) State(ctx context.Context, userID int64) (int, error) {
	var st sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		`select user_state from user_points where user_id = $1`, userID).Scan(&st)
	if errors.Is(err, sql.ErrNoRows) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, err
	}
	return int(st.Int64), nil
}

func (r *UserRepo) SetState(ctx context.Context, userID int64, state int) error {
	const q = `
insert into user_points (user_id, user_state) values ($1, $2)
on conflict (user_id) do update set user_state = excluded.user_state`
	_, err := r.DB.ExecContext(ctx, q, userID, state)
	return err
}

func (r *UserRepo) SetName(ctx context.Context, userID int64, name string) error {
	_, err := r.DB.ExecContext(ctx,
		`update user_points set name = $2 where user_id = $1`, userID, name)
	return err
}

func (r *UserRepo) Name(ctx context.Context, userID int64) (string, error) {
	var name sql.NullString
	err := r.DB.QueryRowContext(ctx,
		`select name from user_points where user_id = $1`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name.String, nil
}

func (r *UserRepo) SetPhone(ctx context.Context, userID int64, phone string) error {
	_, err := r.DB.ExecContext(ctx,
		`update user_points set phone_number = $2 where user_id = $1`, userID, phone)
	return err
}

// Register credits the welcome points on completed registration.
func (r *UserRepo) Register(ctx context.Context, userID, welcomePoints int64) error {
	return r.AddPoints(ctx, userID, welcomePoints)
}

// Registered reports whether the user completed registration: name and
// phone present and no dialog in flight.
func (r *UserRepo) Registered(ctx context.Context, userID int64) (bool, error) {
	var (
		name  sql.NullString
		phone sql.NullString
		state sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		`select name, phone_number, user_state from user_points where user_id = $1`, userID).
		Scan(&name, &phone, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return name.Valid && name.String != "" &&
		phone.Valid && phone.String != "" &&
		state.Int64 == StateIdle, nil
}

// ClearProfile wipes the partially-entered name/phone on cancelled
// registration.
func (r *UserRepo) ClearProfile(ctx context.Context, userID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`update user_points set name = null, phone_number = null where user_id = $1`, userID)
	return err
}

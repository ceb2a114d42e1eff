package store

import (
	"context"
	"database/sql"
)

type SpecialistRepo struct{ DB *sql.DB }

func NewSpecialistRepo(db *sql.DB) *SpecialistRepo { return &SpecialistRepo{DB: db} }

// ListNames returns the full specialist catalog in insertion order. The
// catalog churns rarely, so it is re-fetched per request instead of cached.
func (r *SpecialistRepo) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `select name from specialists order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// IncrementRecommendation bumps the counter in a single statement; the
// increment is atomic under concurrent pipelines.
func (r *SpecialistRepo) IncrementRecommendation(ctx context.Context, name string) error {
	_, err := r.DB.ExecContext(ctx,
		`update specialists set rec_count = rec_count + 1 where name = $1`, name)
	return err
}

type Doctor struct {
	Name          string
	Position      string
	Phone         string
	MedicalCenter string
	Address       string
	Price         int
	Link          string
}

// DoctorsFor lists the doctors practicing the given specialty.
func (r *SpecialistRepo) DoctorsFor(ctx context.Context, specialist string) ([]Doctor, error) {
	const q = `
select d.name, d.position, d.phone,
       coalesce(d.medical_center, ''), coalesce(d.address, ''),
       coalesce(d.price, 0), coalesce(d.link, '')
from doctors d
inner join specialists s on d.specialist_id = s.id
where s.name = $1
order by d.id`
	rows, err := r.DB.QueryContext(ctx, q, specialist)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Doctor
	for rows.Next() {
		var (
			d     Doctor
			name  sql.NullString
			pos   sql.NullString
			phone sql.NullString
		)
		if err := rows.Scan(&name, &pos, &phone, &d.MedicalCenter, &d.Address, &d.Price, &d.Link); err != nil {
			return nil, err
		}
		d.Name, d.Position, d.Phone = name.String, pos.String, phone.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// Package store holds the Postgres repositories: user accounts/points,
// the specialist catalog with recommendation counters, doctors, and
// payment invoices.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaSQL = `
create table if not exists user_points (
    user_id      bigint primary key,
    points       bigint,
    name         varchar(255),
    phone_number varchar(255),
    language     varchar(10),
    first_time   timestamp default null,
    last_time    timestamp default null,
    user_state   bigint default 0
);

create table if not exists specialists (
    id        serial primary key,
    name      varchar(255) not null unique,
    rec_count int default 0
);

create table if not exists doctors (
    id             bigserial primary key,
    specialist_id  int references specialists(id),
    name           varchar(255),
    position       varchar(255),
    phone          varchar(20),
    medical_center varchar(255) default null,
    address        varchar(255) default null,
    price          int default null,
    link           varchar(512) default null
);

create table if not exists invoices (
    invoice_id bigint primary key,
    user_id    bigint references user_points(user_id) on delete cascade,
    product_id varchar(255),
    points     bigint,
    price      int,
    processed  boolean default false,
    time       timestamp default null
);
`

// InitSchema creates the tables if they do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

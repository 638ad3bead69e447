package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"k8s.io/klog/v2"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stats (
		stamp timestamp,
		addr int,
		"E-Total" double precision,
		"h-Total" double precision,
		"Pac" double precision,
		"Vac" double precision,
		"Fac" double precision,
		"Ipv" double precision,
		"Vpv" double precision,
		"Temperature" double precision)`,
	`CREATE TABLE IF NOT EXISTS comments (
		stamp timestamp,
		addr int,
		comment text)`,
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Storage = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		klog.V(2).InfoS("Failed to create connection pool", "err", err)
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		klog.V(2).InfoS("Failed to reach database", "err", err)
		pool.Close()
		return nil, err
	}
	for _, ddl := range schema {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) AppendStats(row *StatsRow) error {
	stamp, err := ParseStamp(row.Stamp)
	if err != nil {
		return err
	}
	sql, args := buildStatsInsert(stamp, row)
	if _, err := s.pool.Exec(context.Background(), sql, args...); err != nil {
		klog.V(2).InfoS("Failed to append stats row", "stamp", row.Stamp, "addr", row.Addr, "err", err)
		return ErrPersistence
	}
	return nil
}

// buildStatsInsert derives the column list from the row's present
// fields; absent channels stay NULL.
func buildStatsInsert(stamp time.Time, row *StatsRow) (string, []interface{}) {
	columns := []string{"stamp", "addr"}
	args := []interface{}{stamp, row.Addr}
	for _, name := range ChannelColumns {
		if v, ok := row.Values[name]; ok {
			columns = append(columns, fmt.Sprintf("%q", name))
			args = append(args, v)
		}
	}
	placeholders := make([]string, 0, len(args))
	for i := range args {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
	}
	sql := fmt.Sprintf("INSERT INTO stats (%s) VALUES (%s)",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "))
	return sql, args
}

func (s *PostgresStore) AppendComment(c *Comment) error {
	stamp, err := ParseStamp(c.Stamp)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(context.Background(),
		"INSERT INTO comments (stamp, addr, comment) VALUES ($1, $2, $3)", stamp, c.Addr, c.Text)
	if err != nil {
		klog.V(2).InfoS("Failed to append comment", "addr", c.Addr, "err", err)
		return ErrPersistence
	}
	return nil
}

func (s *PostgresStore) QueryStats(start, end time.Time) ([]*StatsRow, error) {
	quoted := make([]string, 0, len(ChannelColumns))
	for _, name := range ChannelColumns {
		quoted = append(quoted, fmt.Sprintf("%q", name))
	}
	sql := fmt.Sprintf("SELECT stamp, addr, %s FROM stats WHERE stamp >= $1 AND stamp <= $2 ORDER BY stamp",
		strings.Join(quoted, ", "))
	rows, err := s.pool.Query(context.Background(), sql, start, end)
	if err != nil {
		return nil, ErrPersistence
	}
	defer rows.Close()

	out := make([]*StatsRow, 0)
	for rows.Next() {
		var stamp time.Time
		var addr int
		vals := make([]pgtype.Float8, len(ChannelColumns))
		dest := []interface{}{&stamp, &addr}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, ErrPersistence
		}
		row := &StatsRow{
			Stamp:  FormatStamp(stamp),
			Addr:   addr,
			Values: make(map[string]float64),
		}
		for i, name := range ChannelColumns {
			if vals[i].Valid {
				row.Values[name] = vals[i].Float64
			}
		}
		out = append(out, row)
	}
	if rows.Err() != nil {
		return nil, ErrPersistence
	}
	return out, nil
}

func (s *PostgresStore) QueryComments(start, end time.Time) ([]*Comment, error) {
	rows, err := s.pool.Query(context.Background(),
		"SELECT stamp, addr, comment FROM comments WHERE stamp >= $1 AND stamp <= $2 ORDER BY stamp", start, end)
	if err != nil {
		return nil, ErrPersistence
	}
	defer rows.Close()

	out := make([]*Comment, 0)
	for rows.Next() {
		var stamp time.Time
		var addr int
		var text string
		if err := rows.Scan(&stamp, &addr, &text); err != nil {
			return nil, ErrPersistence
		}
		out = append(out, &Comment{Stamp: FormatStamp(stamp), Addr: addr, Text: text})
	}
	if rows.Err() != nil {
		return nil, ErrPersistence
	}
	return out, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

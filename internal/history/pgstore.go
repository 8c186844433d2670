// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore 表 autoback_jobs
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 连接并确保表结构存在
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("初始化 autoback_jobs 表失败: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, rec JobRecord) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO autoback_jobs (job_id, app_id, app_name, account_uid, nickname, output_path, status, bytes, checksum, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (job_id) DO UPDATE SET
    status = EXCLUDED.status, bytes = EXCLUDED.bytes, checksum = EXCLUDED.checksum,
    error = EXCLUDED.error, finished_at = EXCLUDED.finished_at`,
		rec.JobID, rec.AppID, rec.AppName, rec.AccountUID, rec.Nickname, rec.OutputPath,
		string(rec.Status), rec.Bytes, rec.Checksum, rec.Error, rec.StartedAt, rec.FinishedAt)
	return err
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]JobRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.AppID != "" {
		args = append(args, f.AppID)
		where = append(where, fmt.Sprintf("app_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT job_id, app_id, app_name, account_uid, nickname, output_path, status, bytes, checksum, error, started_at, finished_at FROM autoback_jobs`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY finished_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []JobRecord
	for rows.Next() {
		var rec JobRecord
		var status string
		if err := rows.Scan(&rec.JobID, &rec.AppID, &rec.AppName, &rec.AccountUID, &rec.Nickname, &rec.OutputPath,
			&status, &rec.Bytes, &rec.Checksum, &rec.Error, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

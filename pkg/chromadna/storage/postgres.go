package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const defaultQueryTimeout = 30 * time.Second

// PostgresStore keeps averaged signatures as pgvector columns. Descriptors are
// stored as float32, so round-tripped values lose precision past ~1e-7.
type PostgresStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore connects to connString, verifies the connection and creates
// the schema if needed.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool, timeout: defaultQueryTimeout}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS videos (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			path        TEXT NOT NULL DEFAULT '',
			frame_count INTEGER NOT NULL DEFAULT 0,
			fps         DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			youtube_id  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS signatures (
			video_name  TEXT NOT NULL,
			color_model TEXT NOT NULL,
			bins        INTEGER NOT NULL,
			start_frame INTEGER NOT NULL,
			end_frame   INTEGER NOT NULL,
			descriptor  vector NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (video_name, color_model)
		);
		CREATE INDEX IF NOT EXISTS idx_signatures_model ON signatures(color_model);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *PostgresStore) RegisterVideo(v models.Video) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var id string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO videos (id, name, path, frame_count, fps, duration_ms, youtube_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			path = EXCLUDED.path,
			frame_count = EXCLUDED.frame_count,
			fps = EXCLUDED.fps,
			duration_ms = EXCLUDED.duration_ms,
			youtube_id = COALESCE(NULLIF(EXCLUDED.youtube_id, ''), videos.youtube_id)
		RETURNING id`,
		utils.GenerateUUID(), v.Name, v.Path, v.FrameCount, v.FPS, v.DurationMs, v.YouTubeID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to register video %s: %w", v.Name, err)
	}
	return id, nil
}

func (s *PostgresStore) PutSignature(sig models.Signature) error {
	if len(sig.Average) == 0 {
		return fmt.Errorf("signature %s/%s has no averaged descriptor", sig.VideoID, sig.Model)
	}
	ctx, cancel := s.ctx()
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO signatures (video_name, color_model, bins, start_frame, end_frame, descriptor, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (video_name, color_model) DO UPDATE SET
			bins = EXCLUDED.bins,
			start_frame = EXCLUDED.start_frame,
			end_frame = EXCLUDED.end_frame,
			descriptor = EXCLUDED.descriptor,
			updated_at = now()`,
		sig.VideoID, string(sig.Model), sig.Bins, sig.Range.Start, sig.Range.End,
		pgvector.NewVector(toFloat32(sig.Average)))
	if err != nil {
		return fmt.Errorf("failed to store signature %s/%s: %w", sig.VideoID, sig.Model, err)
	}
	return nil
}

func (s *PostgresStore) GetSignatures(model models.ColorModel) (map[string]models.Signature, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT video_name, bins, start_frame, end_frame, descriptor
		FROM signatures WHERE color_model = $1`, string(model))
	if err != nil {
		return nil, fmt.Errorf("failed to query signatures: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.Signature)
	for rows.Next() {
		var (
			sig models.Signature
			vec pgvector.Vector
		)
		if err := rows.Scan(&sig.VideoID, &sig.Bins, &sig.Range.Start, &sig.Range.End, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		sig.Model = model
		sig.Average = toFloat64(vec.Slice())
		out[sig.VideoID] = sig
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListSignatures(videoName string) ([]models.SignatureInfo, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT color_model, bins, start_frame, end_frame, updated_at
		FROM signatures WHERE video_name = $1 ORDER BY color_model`, videoName)
	if err != nil {
		return nil, fmt.Errorf("failed to query signatures: %w", err)
	}
	defer rows.Close()

	var out []models.SignatureInfo
	for rows.Next() {
		info := models.SignatureInfo{VideoID: videoName}
		var model string
		if err := rows.Scan(&model, &info.Bins, &info.Range.Start, &info.Range.End, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		info.Model = models.ColorModel(model)
		out = append(out, info)
	}
	return out, rows.Err()
}

const videoColumns = "id, name, path, frame_count, fps, duration_ms, youtube_id, created_at"

func scanVideo(row pgx.Row) (models.Video, error) {
	var v models.Video
	err := row.Scan(&v.ID, &v.Name, &v.Path, &v.FrameCount, &v.FPS, &v.DurationMs, &v.YouTubeID, &v.CreatedAt)
	return v, err
}

func (s *PostgresStore) GetVideo(nameOrID string) (*models.Video, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	v, err := scanVideo(s.pool.QueryRow(ctx,
		"SELECT "+videoColumns+" FROM videos WHERE name = $1 OR id = $1", nameOrID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, nameOrID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query video: %w", err)
	}
	return &v, nil
}

func (s *PostgresStore) ListVideos() ([]models.Video, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	rows, err := s.pool.Query(ctx, "SELECT "+videoColumns+" FROM videos ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var out []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteVideo(name string) error {
	ctx, cancel := s.ctx()
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	vids, err := tx.Exec(ctx, "DELETE FROM videos WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	sigs, err := tx.Exec(ctx, "DELETE FROM signatures WHERE video_name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete signatures: %w", err)
	}
	if vids.RowsAffected() == 0 && sigs.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrVideoNotFound, name)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SignatureCount(model models.ColorModel) (int, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var n int
	var err error
	if model == "" {
		err = s.pool.QueryRow(ctx, "SELECT count(*) FROM signatures").Scan(&n)
	} else {
		err = s.pool.QueryRow(ctx, "SELECT count(*) FROM signatures WHERE color_model = $1", string(model)).Scan(&n)
	}
	return n, err
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func toFloat32(d models.Descriptor) []float32 {
	out := make([]float32, len(d))
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(v []float32) models.Descriptor {
	out := make(models.Descriptor, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

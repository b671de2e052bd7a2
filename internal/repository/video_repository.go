package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/video-service/internal/domain"
)

// VideoRepository defines persistence access for videos and watch history.
type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) error
	GetByID(ctx context.Context, id string) (*domain.Video, error)
	AddWatchEntry(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string, limit int) ([]domain.WatchHistoryEntry, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository returns a Postgres-backed implementation.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

func (r *videoRepository) Create(ctx context.Context, video *domain.Video) error {
	const query = `
        INSERT INTO videos (owner_id, title, description, video_file, thumbnail, duration, published)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		video.OwnerID,
		video.Title,
		video.Description,
		video.VideoFile,
		video.Thumbnail,
		video.Duration,
		video.Published,
	).Scan(&video.ID, &video.CreatedAt, &video.UpdatedAt)
}

func (r *videoRepository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	const query = `
        SELECT id, owner_id, title, description, video_file, thumbnail, duration, published, created_at, updated_at
        FROM videos WHERE id=$1`

	var video domain.Video
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&video.ID,
		&video.OwnerID,
		&video.Title,
		&video.Description,
		&video.VideoFile,
		&video.Thumbnail,
		&video.Duration,
		&video.Published,
		&video.CreatedAt,
		&video.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) AddWatchEntry(ctx context.Context, userID, videoID string) error {
	const query = `INSERT INTO watch_history (user_id, video_id) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, userID, videoID)
	return err
}

func (r *videoRepository) WatchHistory(ctx context.Context, userID string, limit int) ([]domain.WatchHistoryEntry, error) {
	const query = `
        SELECT v.id, v.owner_id, v.title, v.description, v.video_file, v.thumbnail, v.duration,
               v.published, v.created_at, v.updated_at,
               u.id, u.username, u.full_name, u.avatar,
               h.watched_at
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.watched_at DESC
        LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.WatchHistoryEntry
	for rows.Next() {
		var entry domain.WatchHistoryEntry
		if err := rows.Scan(
			&entry.Video.ID,
			&entry.Video.OwnerID,
			&entry.Video.Title,
			&entry.Video.Description,
			&entry.Video.VideoFile,
			&entry.Video.Thumbnail,
			&entry.Video.Duration,
			&entry.Video.Published,
			&entry.Video.CreatedAt,
			&entry.Video.UpdatedAt,
			&entry.Owner.ID,
			&entry.Owner.Username,
			&entry.Owner.FullName,
			&entry.Owner.Avatar,
			&entry.WatchedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionStats aggregates subscription counts for a channel, relative to
// a viewing user.
type SubscriptionStats struct {
	SubscriberCount   int64
	SubscribedToCount int64
	IsSubscribed      bool
}

// SubscriptionRepository manages channel subscriptions.
type SubscriptionRepository interface {
	Subscribe(ctx context.Context, subscriberID, channelID string) error
	Unsubscribe(ctx context.Context, subscriberID, channelID string) error
	Stats(ctx context.Context, channelID, viewerID string) (*SubscriptionStats, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository constructs repository.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	const query = `
        INSERT INTO subscriptions (subscriber_id, channel_id)
        VALUES ($1, $2)
        ON CONFLICT (subscriber_id, channel_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, subscriberID, channelID)
	return err
}

func (r *subscriptionRepository) Unsubscribe(ctx context.Context, subscriberID, channelID string) error {
	const query = `DELETE FROM subscriptions WHERE subscriber_id=$1 AND channel_id=$2`
	_, err := r.pool.Exec(ctx, query, subscriberID, channelID)
	return err
}

func (r *subscriptionRepository) Stats(ctx context.Context, channelID, viewerID string) (*SubscriptionStats, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM subscriptions WHERE channel_id=$1),
            (SELECT COUNT(*) FROM subscriptions WHERE subscriber_id=$1),
            EXISTS (SELECT 1 FROM subscriptions WHERE channel_id=$1 AND subscriber_id=$2)`

	var stats SubscriptionStats
	if err := r.pool.QueryRow(ctx, query, channelID, viewerID).Scan(
		&stats.SubscriberCount,
		&stats.SubscribedToCount,
		&stats.IsSubscribed,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ovenlight/bakeshop-api/internal/newsletter"
)

const subscribeSQL = `INSERT INTO newsletter_subscribers (email, source)
	VALUES (LOWER($1), $2)
	ON CONFLICT (email) DO NOTHING`

var _ newsletter.SubscriberStore = (*NewsletterRepository)(nil)

// NewsletterRepository persists newsletter signups. Emails are stored
// lowercase; re-subscribing is a silent no-op.
type NewsletterRepository struct {
	pool *pgxpool.Pool
}

// NewNewsletterRepository returns a NewsletterRepository that uses the given pool.
func NewNewsletterRepository(pool *pgxpool.Pool) *NewsletterRepository {
	return &NewsletterRepository{pool: pool}
}

// Subscribe records the email address. Already-subscribed addresses do not error.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email, source string) error {
	_, err := r.pool.Exec(ctx, subscribeSQL, email, source)
	if err != nil {
		return fmt.Errorf("subscribing %q: %w", email, err)
	}
	return nil
}

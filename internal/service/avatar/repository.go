package avatar

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/service/database"
	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS avatar_descriptions (
	id               BIGSERIAL PRIMARY KEY,
	person_id        TEXT NOT NULL UNIQUE,
	platform         TEXT NOT NULL,
	user_id          TEXT NOT NULL,
	head_description TEXT,
	analyzed_at      TIMESTAMPTZ,
	avatar_url       TEXT
);
CREATE INDEX IF NOT EXISTS idx_avatar_descriptions_platform ON avatar_descriptions (platform);
CREATE INDEX IF NOT EXISTS idx_avatar_descriptions_user_id ON avatar_descriptions (user_id);
`

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewRepository(postgres *database.PostgresService, logger *zap.Logger) *Repository {
	return &Repository{
		db:     postgres.GetDB(),
		logger: logger,
		now:    time.Now,
	}
}

// EnsureSchema creates the avatar_descriptions table and its indexes if missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return boterrors.NewStoreError("failed to create avatar_descriptions table", "schema", "", err)
	}
	r.logger.Info("avatar_descriptions table ready")
	return nil
}

func (r *Repository) Get(ctx context.Context, personID string) (string, bool, error) {
	record, err := r.FindByPersonID(ctx, personID)
	if err != nil {
		return "", false, err
	}
	if !record.HasDescription() {
		return "", false, nil
	}
	return record.Text(), true, nil
}

// FindByPersonID returns the full record, or nil when absent.
func (r *Repository) FindByPersonID(ctx context.Context, personID string) (*domain.AvatarDescription, error) {
	query := `
		SELECT person_id, platform, user_id, head_description, analyzed_at, avatar_url
		FROM avatar_descriptions
		WHERE person_id = $1
		LIMIT 1
	`

	var (
		record      domain.AvatarDescription
		description sql.NullString
		analyzedAt  sql.NullTime
		avatarURL   sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, personID).Scan(
		&record.PersonID, &record.Platform, &record.UserID,
		&description, &analyzedAt, &avatarURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, boterrors.NewStoreError("failed to query avatar description", "get", personID, err)
	}

	if description.Valid {
		record.Description = &description.String
	}
	if analyzedAt.Valid {
		record.AnalyzedAt = &analyzedAt.Time
	}
	if avatarURL.Valid {
		record.AvatarURL = &avatarURL.String
	}
	return &record, nil
}

func (r *Repository) Upsert(ctx context.Context, record domain.AvatarDescription) error {
	query := `
		INSERT INTO avatar_descriptions (person_id, platform, user_id, head_description, analyzed_at, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (person_id) DO UPDATE SET
			head_description = EXCLUDED.head_description,
			analyzed_at      = EXCLUDED.analyzed_at,
			avatar_url       = COALESCE(EXCLUDED.avatar_url, avatar_descriptions.avatar_url)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.PersonID,
		record.Platform,
		record.UserID,
		nullString(record.Description),
		r.now().UTC(),
		nullString(record.AvatarURL),
	)
	if err != nil {
		r.logger.Error("Failed to upsert avatar description",
			zap.String("person_id", record.PersonID),
			zap.Error(err),
		)
		return boterrors.NewStoreError("failed to upsert avatar description", "upsert", record.PersonID, err)
	}

	r.logger.Debug("Avatar description upserted", zap.String("person_id", record.PersonID))
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

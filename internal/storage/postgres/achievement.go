package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/merako/storefront/internal/domain/achievement"
)

// AchievementRepository implements achievement.Repository over the
// definitions table.
type AchievementRepository struct {
	db *DB
}

var _ achievement.Repository = (*AchievementRepository)(nil)

// NewAchievementRepository creates an achievement definitions repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

const selectAchievementSQL = `
SELECT id, condition_code, title, description, reward
FROM achievements`

func (r *AchievementRepository) FindByCode(ctx context.Context, code achievement.Code) (*achievement.Achievement, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectAchievementSQL+` WHERE condition_code = $1`, string(code))
	if err != nil {
		return nil, errors.Wrap(err, "query achievement")
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAchievement)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, achievement.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan achievement")
	}
	return &a, nil
}

func (r *AchievementRepository) List(ctx context.Context) ([]achievement.Achievement, error) {
	rows, err := r.db.q(ctx).Query(ctx, selectAchievementSQL+` ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query achievements")
	}
	return pgx.CollectRows(rows, scanAchievement)
}

// Upsert inserts a definition or refreshes its display metadata, keyed by
// condition code. Used by seeding.
func (r *AchievementRepository) Upsert(ctx context.Context, a *achievement.Achievement) error {
	err := r.db.q(ctx).QueryRow(ctx, `
		INSERT INTO achievements (condition_code, title, description, reward)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (condition_code)
		DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description, reward = EXCLUDED.reward
		RETURNING id`,
		string(a.ConditionCode), a.Title, a.Description, a.Reward,
	).Scan(&a.ID)
	return errors.Wrap(err, "upsert achievement")
}

func scanAchievement(row pgx.CollectableRow) (achievement.Achievement, error) {
	var a achievement.Achievement
	err := row.Scan(&a.ID, &a.ConditionCode, &a.Title, &a.Description, &a.Reward)
	return a, err
}

// UserAchievementRepository implements achievement.UserRepository. Every read
// joins the definitions table so the condition code travels with the unlock.
type UserAchievementRepository struct {
	db *DB
}

var _ achievement.UserRepository = (*UserAchievementRepository)(nil)

// NewUserAchievementRepository creates a per-user unlock repository.
func NewUserAchievementRepository(db *DB) *UserAchievementRepository {
	return &UserAchievementRepository{db: db}
}

const selectUserAchievementSQL = `
SELECT ua.user_id, ua.achievement_id, a.condition_code, ua.earned_at, ua.bonus_used
FROM user_achievements ua
JOIN achievements a ON a.id = ua.achievement_id`

func (r *UserAchievementRepository) ListByUser(ctx context.Context, userID int64) ([]achievement.UserAchievement, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		selectUserAchievementSQL+` WHERE ua.user_id = $1 ORDER BY ua.earned_at`, userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query user achievements")
	}
	return pgx.CollectRows(rows, scanUserAchievement)
}

func (r *UserAchievementRepository) Get(ctx context.Context, userID, achievementID int64) (*achievement.UserAchievement, error) {
	rows, err := r.db.q(ctx).Query(ctx,
		selectUserAchievementSQL+` WHERE ua.user_id = $1 AND ua.achievement_id = $2`,
		userID, achievementID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query user achievement")
	}

	ua, err := pgx.CollectExactlyOneRow(rows, scanUserAchievement)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, achievement.ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user achievement")
	}
	return &ua, nil
}

func (r *UserAchievementRepository) Exists(ctx context.Context, userID, achievementID int64) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_achievements WHERE user_id = $1 AND achievement_id = $2)`,
		userID, achievementID,
	).Scan(&exists)
	return exists, errors.Wrap(err, "check user achievement")
}

// Create records an unlock. Racing duplicate grants collapse into one row.
func (r *UserAchievementRepository) Create(ctx context.Context, ua *achievement.UserAchievement) error {
	_, err := r.db.q(ctx).Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at, bonus_used)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`,
		ua.UserID, ua.AchievementID, ua.EarnedAt, ua.BonusUsed,
	)
	return errors.Wrap(err, "insert user achievement")
}

func (r *UserAchievementRepository) Delete(ctx context.Context, userID, achievementID int64) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`DELETE FROM user_achievements WHERE user_id = $1 AND achievement_id = $2`,
		userID, achievementID,
	)
	return errors.Wrap(err, "delete user achievement")
}

func (r *UserAchievementRepository) ListUnusedBonuses(ctx context.Context, userID int64, codes []achievement.Code) ([]achievement.UserAchievement, error) {
	strs := make([]string, len(codes))
	for i, c := range codes {
		strs[i] = string(c)
	}

	rows, err := r.db.q(ctx).Query(ctx,
		selectUserAchievementSQL+` WHERE ua.user_id = $1 AND NOT ua.bonus_used AND a.condition_code = ANY($2)`,
		userID, strs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query unused bonuses")
	}
	return pgx.CollectRows(rows, scanUserAchievement)
}

func (r *UserAchievementRepository) MarkBonusUsed(ctx context.Context, userID, achievementID int64) error {
	tag, err := r.db.q(ctx).Exec(ctx,
		`UPDATE user_achievements SET bonus_used = TRUE WHERE user_id = $1 AND achievement_id = $2`,
		userID, achievementID,
	)
	if err != nil {
		return errors.Wrap(err, "mark bonus used")
	}
	if tag.RowsAffected() == 0 {
		return achievement.ErrUserNotFound
	}
	return nil
}

func scanUserAchievement(row pgx.CollectableRow) (achievement.UserAchievement, error) {
	var ua achievement.UserAchievement
	err := row.Scan(&ua.UserID, &ua.AchievementID, &ua.ConditionCode, &ua.EarnedAt, &ua.BonusUsed)
	return ua, err
}

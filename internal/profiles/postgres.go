package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/linkaday/internal/profiledoc"
)

const profileColumns = `
	id, email, contact_email, plan, is_active, onboarding_completed, telegram_chat_id,
	job_title, industry, seniority, tone, focus, stack_context, audience_target,
	directive_json, onboarding_json, personal_json, profile_json, created_at, updated_at`

// Repository is the owner-scoped PostgreSQL Store. Each call runs in a
// transaction with app.user_id set to the caller so the table's row-level
// security policy applies to every statement.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Get implements Store.
func (r *Repository) Get(ctx context.Context, id string) (*Profile, error) {
	var p *Profile
	err := r.asOwner(ctx, id, func(tx pgx.Tx) error {
		var err error
		p, err = scanOne(ctx, tx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
		return err
	})
	return p, err
}

// Create implements Store.
func (r *Repository) Create(ctx context.Context, p *Profile) error {
	plan := p.Plan
	if plan == "" {
		plan = PlanFree
	}
	q := `
		INSERT INTO profiles (id, email, plan, is_active, onboarding_completed,
			directive_json, onboarding_json, profile_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`
	return r.asOwner(ctx, p.ID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q,
			p.ID, p.Email, plan, p.IsActive, p.OnboardingCompleted,
			p.DirectiveJSON, p.OnboardingJSON, p.ProfileJSON,
		)
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
}

// FillMissingDocuments implements Store.
func (r *Repository) FillMissingDocuments(ctx context.Context, id string) error {
	q := `
		UPDATE profiles SET
			directive_json  = COALESCE(directive_json, '{}'::jsonb),
			onboarding_json = COALESCE(onboarding_json, '{}'::jsonb),
			profile_json    = COALESCE(profile_json, $2::jsonb)
		WHERE id = $1`
	return r.asOwner(ctx, id, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, id, profiledoc.Default())
		if err != nil {
			return fmt.Errorf("fill profile documents: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Update implements Store.
func (r *Repository) Update(ctx context.Context, id string, u *Update) error {
	sets, args := updateAssignments(u)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE profiles SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))

	return r.asOwner(ctx, id, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// asOwner authorizes ctx for id and runs fn in a transaction scoped to it.
func (r *Repository) asOwner(ctx context.Context, id string, fn func(pgx.Tx) error) error {
	if err := authorize(ctx, id); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, id); err != nil {
			return fmt.Errorf("scope transaction: %w", err)
		}
		return fn(tx)
	})
}

// PrivilegedRepository activates plans on behalf of the payment webhook,
// which has no session. The transaction scopes itself to the target row, so
// it works both for a BYPASSRLS role and for the table owner under FORCE RLS.
type PrivilegedRepository struct {
	db *pgxpool.Pool
}

// NewPrivilegedRepository creates a new PrivilegedRepository.
func NewPrivilegedRepository(db *pgxpool.Pool) *PrivilegedRepository {
	return &PrivilegedRepository{db: db}
}

// ActivatePlan implements PlanActivator.
func (r *PrivilegedRepository) ActivatePlan(ctx context.Context, id string) (bool, error) {
	var found bool
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, id); err != nil {
			return fmt.Errorf("scope transaction: %w", err)
		}
		tag, err := tx.Exec(ctx, `UPDATE profiles SET plan = 'pro', is_active = true WHERE id = $1`, id)
		if err != nil {
			return err
		}
		found = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("activate plan: %w", err)
	}
	return found, nil
}

// updateAssignments builds the SET list and positional args for u.
func updateAssignments(u *Update) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.ContactEmail != nil {
		add("contact_email", *u.ContactEmail)
	}
	if u.JobTitle != nil {
		add("job_title", *u.JobTitle)
	}
	if u.Industry != nil {
		add("industry", *u.Industry)
	}
	if u.Seniority != nil {
		add("seniority", *u.Seniority)
	}
	if u.Tone != nil {
		add("tone", *u.Tone)
	}
	if u.Focus != nil {
		add("focus", u.Focus)
	}
	if u.StackContext != nil {
		add("stack_context", u.StackContext)
	}
	if u.AudienceTarget != nil {
		add("audience_target", u.AudienceTarget)
	}
	if u.DirectiveJSON != nil {
		add("directive_json", u.DirectiveJSON)
	}
	if u.OnboardingJSON != nil {
		add("onboarding_json", u.OnboardingJSON)
	}
	if u.PersonalJSON != nil {
		add("personal_json", u.PersonalJSON)
	}
	if u.ProfileJSON != nil {
		add("profile_json", u.ProfileJSON)
	}
	if u.OnboardingCompleted != nil {
		add("onboarding_completed", *u.OnboardingCompleted)
	}
	if len(sets) > 0 {
		add("updated_at", time.Now().UTC())
	}
	return sets, args
}

// scanOne executes a single-row query and scans the result into a Profile.
// Column order matches profileColumns.
func scanOne(ctx context.Context, q pgx.Tx, sql string, args ...any) (*Profile, error) {
	var p Profile
	var plan string
	err := q.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.Email, &p.ContactEmail, &plan, &p.IsActive, &p.OnboardingCompleted, &p.TelegramChatID,
		&p.JobTitle, &p.Industry, &p.Seniority, &p.Tone, &p.Focus, &p.StackContext, &p.AudienceTarget,
		&p.DirectiveJSON, &p.OnboardingJSON, &p.PersonalJSON, &p.ProfileJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Plan = Plan(plan)
	return &p, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"quizarena-backend/internal/models"
)

type QuestionRepo struct {
	db DBTX
}

func NewQuestionRepo(db DBTX) *QuestionRepo {
	return &QuestionRepo{db: db}
}

const questionColumns = `id, category, difficulty, question_text, option_a, option_b, option_c, option_d,
	correct_option, admin_created, created_at`

func scanQuestion(row pgx.Row) (*models.Question, error) {
	q := &models.Question{}
	err := row.Scan(&q.ID, &q.Category, &q.Difficulty, &q.QuestionText,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectOption, &q.AdminCreated, &q.CreatedAt)
	if err != nil {
		return nil, notFoundIfNoRows(err)
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]models.Question, error) {
	defer rows.Close()
	var out []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// whereClause renders the filter as SQL conditions with positional args.
// A numeric search string matches by exact id only.
func whereClause(f models.QuestionFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Difficulty != "" {
		add("difficulty = $%d", f.Difficulty)
	}
	if f.AdminCreated != nil {
		add("admin_created = $%d", *f.AdminCreated)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			add("id = $%d", id)
		} else {
			args = append(args, "%"+escapeLike(s)+"%")
			n := len(args)
			conds = append(conds, fmt.Sprintf(
				"(category ILIKE $%[1]d OR difficulty ILIKE $%[1]d OR question_text ILIKE $%[1]d)", n))
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *QuestionRepo) List(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	where, args := whereClause(f)
	query := `SELECT ` + questionColumns + ` FROM questions` + where + ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// Sample returns up to n questions chosen uniformly at random from the filtered set.
func (r *QuestionRepo) Sample(ctx context.Context, f models.QuestionFilter, n int) ([]models.Question, error) {
	where, args := whereClause(f)
	args = append(args, n)
	query := `SELECT ` + questionColumns + ` FROM questions` + where +
		fmt.Sprintf(` ORDER BY random() LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func (r *QuestionRepo) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	return scanQuestion(r.db.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// GetByIDs loads the questions with the given ids; unknown ids are ignored.
func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []int64) ([]models.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

func (r *QuestionRepo) Create(ctx context.Context, q *models.Question) error {
	query := `
		INSERT INTO questions (category, difficulty, question_text, option_a, option_b, option_c, option_d,
			correct_option, admin_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		q.Category, q.Difficulty, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, q.AdminCreated,
	).Scan(&q.ID, &q.CreatedAt)
}

func (r *QuestionRepo) Update(ctx context.Context, q *models.Question) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE questions SET category = $1, difficulty = $2, question_text = $3,
			option_a = $4, option_b = $5, option_c = $6, option_d = $7, correct_option = $8
		WHERE id = $9`,
		q.Category, q.Difficulty, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, q.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the question's attempts first, then the question, in one transaction.
// It returns the number of attempts removed.
func (r *QuestionRepo) Delete(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, "DELETE FROM quiz_attempts WHERE question_id = $1", id)
		if err != nil {
			return fmt.Errorf("delete attempts: %w", err)
		}
		removed = tag.RowsAffected()

		tag, err = tx.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// InsertBatch stores an imported batch in one transaction. A question whose
// (category, question_text) already exists is not inserted again, so re-running an
// import only ever adds rows. It returns how many rows were inserted.
func (r *QuestionRepo) InsertBatch(ctx context.Context, questions []models.Question) (int, error) {
	inserted := 0
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for i := range questions {
			q := &questions[i]
			err := tx.QueryRow(ctx, `
				INSERT INTO questions (category, difficulty, question_text, option_a, option_b, option_c, option_d,
					correct_option, admin_created)
				SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
				WHERE NOT EXISTS (
					SELECT 1 FROM questions WHERE category = $1 AND question_text = $3
				)
				RETURNING id, created_at`,
				q.Category, q.Difficulty, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
				q.CorrectOption, q.AdminCreated,
			).Scan(&q.ID, &q.CreatedAt)
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("insert question %d of batch: %w", i, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *QuestionRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM questions").Scan(&n)
	return n, err
}

func (r *QuestionRepo) Facets(ctx context.Context) (models.Facets, error) {
	var f models.Facets
	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT array_agg(DISTINCT category ORDER BY category) FROM questions), '{}'),
			COALESCE((SELECT array_agg(DISTINCT difficulty ORDER BY difficulty) FROM questions), '{}')
	`).Scan(&f.Categories, &f.Difficulties)
	return f, err
}

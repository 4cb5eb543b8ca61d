package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"quizarena-backend/internal/models"
)

type BatchInserter interface {
	InsertBatch(ctx context.Context, questions []models.Question) (int, error)
}

type FacetInvalidator interface {
	InvalidateFacets(ctx context.Context)
}

const importLockKey = "lock:question-import"

// ErrImportRunning is wrapped by the ConflictError returned when another import
// holds the lock.
var ErrImportRunning = errors.New("an import is already running")

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Importer struct {
	store   BatchInserter
	facets  FacetInvalidator
	redis   *redis.Client
	lockTTL time.Duration
	shuffle func(opts []string)
	logger  *slog.Logger
}

func NewImporter(store BatchInserter, facets FacetInvalidator, redisClient *redis.Client, lockTTL time.Duration, logger *slog.Logger) *Importer {
	return &Importer{
		store:   store,
		facets:  facets,
		redis:   redisClient,
		lockTTL: lockTTL,
		shuffle: shuffleOptions,
		logger:  logger,
	}
}

func shuffleOptions(opts []string) {
	rand.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
}

// Run imports every source in order, holding the import lock for the duration.
// A failing source is reported and skipped; it never aborts the others.
func (im *Importer) Run(ctx context.Context, sources []Source) ([]models.ImportReport, error) {
	token := uuid.NewString()
	acquired, err := im.redis.SetNX(ctx, importLockKey, token, im.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire import lock: %w", err)
	}
	if !acquired {
		return nil, &ConflictError{Message: ErrImportRunning.Error()}
	}
	defer func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), im.redis, []string{importLockKey}, token).Err(); err != nil {
			im.logger.Warn("release import lock failed", "error", err)
		}
	}()

	reports := make([]models.ImportReport, 0, len(sources))
	added := 0
	for _, src := range sources {
		report := im.importSource(ctx, src)
		added += report.Imported
		reports = append(reports, report)
	}

	if added > 0 && im.facets != nil {
		im.facets.InvalidateFacets(ctx)
	}
	return reports, nil
}

func (im *Importer) importSource(ctx context.Context, src Source) models.ImportReport {
	report := models.ImportReport{Source: src.Name()}
	log := im.logger.With("source", src.Name())

	raw, err := src.Fetch(ctx)
	if err != nil {
		report.Err = err.Error()
		log.Warn("import source failed", "error", err)
		return report
	}
	report.Fetched = len(raw)

	batch := make([]models.Question, 0, len(raw))
	for _, r := range raw {
		q, ok := im.normalize(r)
		if !ok {
			continue
		}
		batch = append(batch, q)
	}

	inserted := 0
	if len(batch) > 0 {
		inserted, err = im.store.InsertBatch(ctx, batch)
		if err != nil {
			report.Err = err.Error()
			report.Skipped = report.Fetched
			log.Error("import batch insert failed", "error", err)
			return report
		}
	}

	report.Imported = inserted
	report.Skipped = report.Fetched - inserted
	log.Info("import source done", "fetched", report.Fetched, "imported", report.Imported, "skipped", report.Skipped)
	return report
}

// normalize turns a raw record into a bank question. Records that do not yield
// exactly four distinct non-empty options, or carry an unknown difficulty, are dropped.
func (im *Importer) normalize(r RawQuestion) (models.Question, bool) {
	text := strings.TrimSpace(r.Question)
	category := strings.TrimSpace(r.Category)
	difficulty := strings.ToLower(strings.TrimSpace(r.Difficulty))
	correct := strings.TrimSpace(r.CorrectAnswer)
	if text == "" || category == "" || correct == "" || !models.ValidDifficulty(difficulty) {
		return models.Question{}, false
	}
	if len(r.IncorrectAnswers) != 3 {
		return models.Question{}, false
	}

	opts := []string{correct}
	seen := map[string]bool{correct: true}
	for _, a := range r.IncorrectAnswers {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			return models.Question{}, false
		}
		seen[a] = true
		opts = append(opts, a)
	}
	im.shuffle(opts)

	q := models.Question{
		Category:      category,
		Difficulty:    difficulty,
		QuestionText:  text,
		CorrectOption: correct,
		AdminCreated:  false,
	}
	q.SetOptions([4]string{opts[0], opts[1], opts[2], opts[3]})
	return q, true
}

// Totals folds per-source reports into job counters.
func Totals(reports []models.ImportReport) (imported, skipped, failedSources int) {
	for _, r := range reports {
		imported += r.Imported
		skipped += r.Skipped
		if r.Err != "" {
			failedSources++
		}
	}
	return imported, skipped, failedSources
}

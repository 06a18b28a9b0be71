package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"FilingsScanner/internal/domain"
	"FilingsScanner/internal/ports"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// timestamps are stored as fixed-width UTC text so they sort lexically on both dialects.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

const (
	documentsTable = "market_documents"
	postsTable     = "posts"
)

var documentColumns = []string{
	"id", "external_id", "status", "ticker", "category", "fund_description", "trading_name",
	"file_extension", "tldr", "summary", "content", "notified_at", "created_at", "updated_at",
}

var postColumns = []string{
	"id", "document_id", "document_external_id", "file_extension", "ticker", "content",
	"published_at", "type", "metrics",
}

// SQLRepository persists documents and posts in Postgres or SQLite.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var (
	_ ports.DocumentRepository = (*SQLRepository)(nil)
	_ ports.PostRepository     = (*SQLRepository)(nil)
)

// Open connects to the configured database and bootstraps the schema.
func Open(ctx context.Context, driver, dsn string) (*SQLRepository, error) {
	dialect := Dialect(driver)
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
	case DialectSQLite:
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// one writer keeps sqlite free of SQLITE_BUSY under parallel stages
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	repo := NewSQLRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLRepository wires an open sql.DB.
func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if dialect == DialectPostgres {
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		builder: builder,
		now:     time.Now,
	}
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Migrate creates tables and indexes when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	statements := schema()
	if r.dialect == DialectSQLite {
		statements = append([]string{"PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"}, statements...)
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Create inserts a new document; a repeated external id yields domain.ErrDuplicate.
func (r *SQLRepository) Create(ctx context.Context, doc domain.MarketDocument) error {
	if !doc.Status.Initial() {
		return fmt.Errorf("%w: cannot create document in %s", domain.ErrIllegalTransition, doc.Status)
	}
	now := r.now()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	query, args, err := r.builder.Insert(documentsTable).
		Columns(documentColumns...).
		Values(
			doc.ID, doc.ExternalID, string(doc.Status), doc.Ticker, string(doc.Category),
			doc.FundDescription, doc.TradingName, doc.FileExtension, doc.TLDR, doc.Summary,
			doc.Content, nullableTime(doc.NotifiedAt), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert document: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: document %s", domain.ErrDuplicate, doc.ExternalID)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// FindByID loads a single document.
func (r *SQLRepository) FindByID(ctx context.Context, id string) (domain.MarketDocument, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// FindByExternalID loads the document created for an upstream filing.
func (r *SQLRepository) FindByExternalID(ctx context.Context, externalID string) (domain.MarketDocument, error) {
	return r.findOne(ctx, sq.Eq{"external_id": externalID})
}

func (r *SQLRepository) findOne(ctx context.Context, where sq.Eq) (domain.MarketDocument, error) {
	query, args, err := r.builder.Select(documentColumns...).From(documentsTable).Where(where).ToSql()
	if err != nil {
		return domain.MarketDocument{}, fmt.Errorf("build select document: %w", err)
	}

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketDocument{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.MarketDocument{}, fmt.Errorf("select document: %w", err)
	}
	return doc, nil
}

// ListByStatus returns documents in a status, oldest filing first.
func (r *SQLRepository) ListByStatus(ctx context.Context, status domain.Status) ([]domain.MarketDocument, error) {
	query, args, err := r.builder.Select(documentColumns...).
		From(documentsTable).
		Where(sq.Eq{"status": string(status)}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list documents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := make([]domain.MarketDocument, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		result = append(result, doc)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return result, nil
}

// Transition moves a document along the status graph, writing the patch in the same statement.
// The update only applies while the row is still in from.
func (r *SQLRepository) Transition(ctx context.Context, id string, from, to domain.Status, patch domain.DocumentPatch) error {
	if err := domain.ValidateTransition(from, to, patch); err != nil {
		return err
	}

	update := r.builder.Update(documentsTable).
		Set("status", string(to)).
		Set("updated_at", formatTime(r.now()))
	if patch.FileExtension != "" {
		update = update.Set("file_extension", patch.FileExtension)
	}
	if patch.TLDR != "" {
		update = update.Set("tldr", patch.TLDR)
	}
	if patch.Summary != "" {
		update = update.Set("summary", patch.Summary)
	}
	if patch.Content != "" {
		update = update.Set("content", patch.Content)
	}

	query, args, err := update.Where(sq.Eq{"id": id, "status": string(from)}).ToSql()
	if err != nil {
		return fmt.Errorf("build transition: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, expected %s", domain.ErrStaleStatus, id, current.Status, from)
}

// MarkNotified records that the watchlist notification for a document was delivered.
// It does not touch the status.
func (r *SQLRepository) MarkNotified(ctx context.Context, id string) error {
	now := formatTime(r.now())
	query, args, err := r.builder.Update(documentsTable).
		Set("notified_at", now).
		Set("updated_at", now).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark notified: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountDocuments returns the number of documents per status.
func (r *SQLRepository) CountDocuments(ctx context.Context) (map[domain.Status]int, error) {
	query, args, err := r.builder.Select("status", "COUNT(*)").
		From(documentsTable).
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int, len(domain.AllStatuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[domain.Status(status)] = n
	}
	return counts, rows.Err()
}

// CreatePost stores a post; a second post for the same document yields domain.ErrDuplicate.
func (r *SQLRepository) CreatePost(ctx context.Context, post domain.Post) error {
	metrics := "{}"
	if len(post.Metrics) > 0 {
		raw, err := json.Marshal(post.Metrics)
		if err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
		metrics = string(raw)
	}

	query, args, err := r.builder.Insert(postsTable).
		Columns(postColumns...).
		Values(
			post.ID, post.DocumentID, post.DocumentExternalID, post.FileExtension, post.Ticker,
			post.Content, formatTime(post.PublishedAt), string(post.Type), metrics,
		).ToSql()
	if err != nil {
		return fmt.Errorf("build insert post: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: post for document %s", domain.ErrDuplicate, post.DocumentID)
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// FindPostByDocumentID loads the post published for a document.
func (r *SQLRepository) FindPostByDocumentID(ctx context.Context, documentID string) (domain.Post, error) {
	query, args, err := r.builder.Select(postColumns...).
		From(postsTable).
		Where(sq.Eq{"document_id": documentID}).
		ToSql()
	if err != nil {
		return domain.Post{}, fmt.Errorf("build select post: %w", err)
	}

	var (
		post        domain.Post
		publishedAt string
		postType    string
		metrics     string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&post.ID, &post.DocumentID, &post.DocumentExternalID, &post.FileExtension, &post.Ticker,
		&post.Content, &publishedAt, &postType, &metrics,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Post{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Post{}, fmt.Errorf("select post: %w", err)
	}

	post.Type = domain.PostType(postType)
	if post.PublishedAt, err = parseTime(publishedAt); err != nil {
		return domain.Post{}, err
	}
	if metrics != "" {
		if err := json.Unmarshal([]byte(metrics), &post.Metrics); err != nil {
			return domain.Post{}, fmt.Errorf("decode metrics: %w", err)
		}
	}
	return post, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.MarketDocument, error) {
	var (
		doc                  domain.MarketDocument
		status, category     string
		createdAt, updatedAt string
		notifiedAt           sql.NullString
	)
	if err := row.Scan(
		&doc.ID, &doc.ExternalID, &status, &doc.Ticker, &category, &doc.FundDescription,
		&doc.TradingName, &doc.FileExtension, &doc.TLDR, &doc.Summary, &doc.Content,
		&notifiedAt, &createdAt, &updatedAt,
	); err != nil {
		return domain.MarketDocument{}, err
	}

	doc.Status = domain.Status(status)
	doc.Category = domain.Category(category)

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.MarketDocument{}, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.MarketDocument{}, err
	}
	if notifiedAt.Valid {
		if doc.NotifiedAt, err = parseTime(notifiedAt.String); err != nil {
			return domain.MarketDocument{}, err
		}
	}
	return doc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullableTime stores the zero time as NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

const schemaMigrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationFilenameRe matches migration files such as 0001_create_receipts.sql.
var migrationFilenameRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is one versioned DDL file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// EmbeddedMigrations returns the migrations shipped with the binary, rendered for ds.
func EmbeddedMigrations(ds Dataset) ([]Migration, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("EmbeddedMigrations: %w", err)
	}
	return LoadMigrations(sub, ds)
}

// LoadMigrations reads the migration files at the root of fsys in version
// order. {{PROJECT_ID}} and {{DATASET_ID}} are replaced from ds; the checksum
// is taken before replacement so it does not depend on the target dataset.
// Files that do not match the naming pattern are skipped.
func LoadMigrations(fsys fs.FS, ds Dataset) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("LoadMigrations: reading directory: %w", err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := migrationFilenameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if prev, ok := seen[version]; ok {
			return nil, fmt.Errorf("LoadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("LoadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.ProjectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     m[2],
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// PendingMigrations returns the migrations whose version is not in applied, in
// order. A checksum that differs from the applied one is reported in changed.
func PendingMigrations(all []Migration, applied []AppliedMigration) (pending []Migration, changed []Migration) {
	byVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		byVersion[am.Version] = am
	}
	for _, m := range all {
		am, ok := byVersion[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			changed = append(changed, m)
		}
	}
	return pending, changed
}

// ApplyMigrationsWithClient creates the schema_migrations table if needed and
// runs every pending migration in order. It returns the number applied.
func ApplyMigrationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, migrations []Migration, appliedBy string, log zerolog.Logger) (int, error) {
	if err := runStatement(ctx, client, `
		CREATE TABLE IF NOT EXISTS `+ds.table(schemaMigrationsTable)+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, nil); err != nil {
		return 0, fmt.Errorf("ApplyMigrations: ensuring %s: %w", schemaMigrationsTable, err)
	}

	applied, err := AppliedMigrationsWithClient(ctx, client, ds)
	if err != nil {
		return 0, err
	}

	pending, changed := PendingMigrations(migrations, applied)
	for _, m := range changed {
		log.Warn().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration has changed since it ran")
	}

	for i, m := range pending {
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")

		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			return i, fmt.Errorf("ApplyMigrations: %s: %w", m.Filename, err)
		}

		if err := runStatement(ctx, client, `
			INSERT INTO `+ds.table(schemaMigrationsTable)+`
			(version, name, applied_at, checksum, applied_by)
			VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
		`, []bigquery.QueryParameter{
			{Name: "version", Value: m.Version},
			{Name: "name", Value: m.Name},
			{Name: "checksum", Value: m.Checksum},
			{Name: "applied_by", Value: appliedBy},
		}); err != nil {
			return i, fmt.Errorf("ApplyMigrations: recording %s: %w", m.Filename, err)
		}
	}
	return len(pending), nil
}

// AppliedMigrationsWithClient lists the rows of schema_migrations in version order.
func AppliedMigrationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]AppliedMigration, error) {
	q := client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + ds.table(schemaMigrationsTable) + `
		ORDER BY version ASC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: reading: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("AppliedMigrations: iterating results: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func runStatement(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	q := client.Query(sql)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

package repositories

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// ReadingRepository persists the curated reading list and its tags.
type ReadingRepository struct {
	db *sqlx.DB
}

// NewReadingRepository creates a new ReadingRepository with the given database connection
func NewReadingRepository(db *sqlx.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// ReadingID derives a material's identifier from its title and author.
func ReadingID(title, author string) string {
	return shared.CompositeID(title, author)
}

// Upsert inserts the material or refreshes its description, links, page count and reading time,
// then attaches its tags. Title, author, difficulty and section are fixed at creation.
// Existing tag associations are never removed.
func (r *ReadingRepository) Upsert(ctx context.Context, material models.ReadingMaterial) (*models.ReadingMaterial, error) {
	material.Title = strings.TrimSpace(material.Title)
	material.Author = strings.TrimSpace(material.Author)
	if material.Title == "" {
		return nil, fmt.Errorf("%w: reading material title is required", shared.ErrInvalidInput)
	}
	if material.ID == "" {
		material.ID = ReadingID(material.Title, material.Author)
	}
	if material.Difficulty == "" {
		material.Difficulty = models.DifficultyBeginner
	}
	material.Section = sectionOrDefault(material.Section)
	material.Tags = normalizeTags(material.Tags)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageError("begin reading upsert", err)
	}
	defer tx.Rollback()

	query := tx.Rebind(`
		INSERT INTO reading_materials (
			id, title, author, description, difficulty, section,
			cover_url, pdf_url, audio_url, external_url, publication_year, pages, reading_time
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			description = excluded.description,
			cover_url = excluded.cover_url,
			pdf_url = excluded.pdf_url,
			audio_url = excluded.audio_url,
			external_url = excluded.external_url,
			pages = excluded.pages,
			reading_time = excluded.reading_time
	`)

	_, err = tx.ExecContext(ctx, query,
		material.ID,
		material.Title,
		material.Author,
		material.Description,
		material.Difficulty,
		material.Section,
		material.CoverURL,
		material.PDFURL,
		material.AudioURL,
		material.ExternalURL,
		material.PublicationYear,
		material.Pages,
		material.ReadingTime,
	)
	if err != nil {
		return nil, storageError("upsert reading material "+material.ID, err)
	}

	for _, name := range material.Tags {
		if err := attachTag(ctx, tx, material.ID, name); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit reading upsert", err)
	}
	return &material, nil
}

// attachTag links the material to the tag called name, creating the tag when missing.
// Tags are looked up by name; a new tag whose normalized id is already held by another
// name gets a generated id.
func attachTag(ctx context.Context, tx *sqlx.Tx, materialID, name string) error {
	tagID, err := resolveTag(ctx, tx, name)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		tx.Rebind(`INSERT INTO material_tags (material_id, tag_id) VALUES (?, ?) ON CONFLICT DO NOTHING`),
		materialID, tagID,
	); err != nil {
		return storageError("tag material "+materialID, err)
	}
	return nil
}

func resolveTag(ctx context.Context, tx *sqlx.Tx, name string) (string, error) {
	var id string
	err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM tags WHERE name = ?`), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", storageError("find tag "+name, err)
	}

	id = shared.NormalizeID(name)
	var taken int
	if err := tx.GetContext(ctx, &taken, tx.Rebind(`SELECT COUNT(*) FROM tags WHERE id = ?`), id); err != nil {
		return "", storageError("find tag "+id, err)
	}
	if taken > 0 {
		id = shared.GenerateID()
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO tags (id, name) VALUES (?, ?)`), id, name); err != nil {
		return "", storageError("insert tag "+name, err)
	}
	return id, nil
}

// normalizeTags trims and lowercases tag names, dropping blanks and duplicates.
func normalizeTags(tags []string) []string {
	cleaned := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		return tag, tag != ""
	})
	return lo.Uniq(cleaned)
}

// Get retrieves a reading material by id, with its tags.
func (r *ReadingRepository) Get(ctx context.Context, id string) (*models.ReadingMaterial, error) {
	var material models.ReadingMaterial
	query := r.db.Rebind(`
		SELECT id, title, author, description, difficulty, section,
			cover_url, pdf_url, audio_url, external_url, publication_year, pages, reading_time
		FROM reading_materials
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &material, query, id); err != nil {
		return nil, getError("reading material", id, err)
	}

	tags, err := r.TagsFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	material.Tags = tags[id]
	if material.Tags == nil {
		material.Tags = []string{}
	}
	return &material, nil
}

// List retrieves materials matching criteria ("section", "difficulty"), ordered by id, with tags.
func (r *ReadingRepository) List(ctx context.Context, criteria map[string]any) ([]models.ReadingMaterial, error) {
	query, args := sectionCriteria(`
		SELECT id, title, author, description, difficulty, section,
			cover_url, pdf_url, audio_url, external_url, publication_year, pages, reading_time
		FROM reading_materials
		WHERE 1 = 1`, nil, criteria)
	if difficulty, ok := criteria["difficulty"].(string); ok && difficulty != "" {
		query += " AND difficulty = ?"
		args = append(args, difficulty)
	}
	query += " ORDER BY id ASC"

	materials := []models.ReadingMaterial{}
	if err := r.db.SelectContext(ctx, &materials, r.db.Rebind(query), args...); err != nil {
		return nil, storageError("list reading materials", err)
	}

	tags, err := r.TagsFor(ctx, lo.Map(materials, func(m models.ReadingMaterial, _ int) string { return m.ID }))
	if err != nil {
		return nil, err
	}
	for i := range materials {
		materials[i].Tags = tags[materials[i].ID]
		if materials[i].Tags == nil {
			materials[i].Tags = []string{}
		}
	}
	return materials, nil
}

// TagsFor loads the tag names of the given materials in a single query, sorted by name.
func (r *ReadingRepository) TagsFor(ctx context.Context, ids []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	query, args, err := sqlx.In(`
		SELECT mt.material_id, t.name
		FROM material_tags mt
		JOIN tags t ON t.id = mt.tag_id
		WHERE mt.material_id IN (?)
		ORDER BY mt.material_id, t.name
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: build tag query: %v", shared.ErrStorage, err)
	}

	var rows []struct {
		MaterialID string `db:"material_id"`
		Name       string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, storageError("load tags", err)
	}

	for _, row := range rows {
		tags[row.MaterialID] = append(tags[row.MaterialID], row.Name)
	}
	return tags, nil
}

// Tags lists every tag ordered by name.
func (r *ReadingRepository) Tags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := r.db.SelectContext(ctx, &tags, "SELECT id, name FROM tags ORDER BY name"); err != nil {
		return nil, storageError("list tags", err)
	}
	return tags, nil
}

// Count returns the number of stored reading materials.
func (r *ReadingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM reading_materials"); err != nil {
		return 0, storageError("count reading materials", err)
	}
	return n, nil
}

// ImportCSV upserts every row of a reading list CSV and returns how many rows were stored.
//
// The header names the columns: title, author, description, difficulty, section, cover_url,
// pdf_url, audio_url, external_url, publication_year, pages, reading_time and tags
// (comma separated). Only title is required; rows without one are skipped. Author defaults
// to "Unknown", and non-numeric pages or reading_time become 0.
func (r *ReadingRepository) ImportCSV(ctx context.Context, in io.Reader) (int, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read csv header: %v", shared.ErrInvalidInput, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["title"]; !ok {
		return 0, fmt.Errorf("%w: csv is missing a title column", shared.ErrInvalidInput)
	}

	imported := 0
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("%w: csv line %d: %v", shared.ErrInvalidInput, line, err)
		}

		field := func(name string) string {
			if i, ok := columns[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		if field("title") == "" {
			continue
		}

		author := field("author")
		if author == "" {
			author = "Unknown"
		}

		material := models.ReadingMaterial{
			Title:           field("title"),
			Author:          author,
			Description:     field("description"),
			Difficulty:      field("difficulty"),
			Section:         field("section"),
			CoverURL:        field("cover_url"),
			PDFURL:          field("pdf_url"),
			AudioURL:        field("audio_url"),
			ExternalURL:     field("external_url"),
			PublicationYear: field("publication_year"),
			Pages:           atoiOrZero(field("pages")),
			ReadingTime:     atoiOrZero(field("reading_time")),
			Tags:            strings.Split(field("tags"), ","),
		}

		if _, err := r.Upsert(ctx, material); err != nil {
			return imported, fmt.Errorf("csv line %d: %w", line, err)
		}
		imported++
	}

	return imported, nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Classics is the starter reading list loaded by [ReadingRepository.SeedClassics].
var Classics = []models.ReadingMaterial{
	{
		Title:           "The Communist Manifesto",
		Author:          "Karl Marx & Friedrich Engels",
		Description:     "A foundational text that outlines the theory of historical materialism and class struggle.",
		Difficulty:      models.DifficultyBeginner,
		Section:         "theory",
		PublicationYear: "1848",
		Pages:           48,
		ReadingTime:     90,
		Tags:            []string{"marxism", "communism", "history", "philosophy", "politics"},
	},
	{
		Title:           "Socialism: Utopian and Scientific",
		Author:          "Friedrich Engels",
		Description:     "A short work explaining the differences between utopian socialism and scientific socialism.",
		Difficulty:      models.DifficultyIntermediate,
		Section:         "theory",
		PublicationYear: "1880",
		Pages:           86,
		ReadingTime:     180,
		Tags:            []string{"marxism", "socialism", "philosophy", "history"},
	},
	{
		Title:           "State and Revolution",
		Author:          "Vladimir Lenin",
		Description:     "An analysis of the state, violent revolution, and the dictatorship of the proletariat.",
		Difficulty:      models.DifficultyIntermediate,
		Section:         "theory",
		PublicationYear: "1917",
		Pages:           116,
		ReadingTime:     240,
		Tags:            []string{"leninism", "state", "revolution", "politics"},
	},
	{
		Title:           "The Transitional Program",
		Author:          "Leon Trotsky",
		Description:     "A political platform adopted by the 1938 founding congress of the Fourth International.",
		Difficulty:      models.DifficultyIntermediate,
		Section:         "strategy",
		PublicationYear: "1938",
		Pages:           347,
		ReadingTime:     160,
		Tags:            []string{"marxism", "trotskyism", "revolution", "strategy"},
	},
}

// SeedClassics upserts the [Classics] starter list and returns how many materials were stored.
func (r *ReadingRepository) SeedClassics(ctx context.Context) (int, error) {
	for i, material := range Classics {
		if _, err := r.Upsert(ctx, material); err != nil {
			return i, err
		}
	}
	return len(Classics), nil
}

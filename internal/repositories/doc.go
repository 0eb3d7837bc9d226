// Package repositories implements sqlx-backed persistence for containers and items.
//
// Item writes are upserts: a single INSERT ... ON CONFLICT (id) DO UPDATE statement that refreshes
// only the fields a provider may legitimately change, so applying the same item twice is
// indistinguishable from applying it once. Container creation is insert-if-absent and returns the
// stored row.
//
// Key Implementations:
//   - [ChannelRepository], [FeedRepository], [AccountRepository] : containers, exposed to the
//     sync loop as [models.Source] values and stamped with last_synced_at via Touch
//   - [VideoRepository], [ArticleRepository], [PostRepository] : synced items
//   - [ReadingRepository] : curated reading list with tags, CSV import and a starter list
//
// Queries are written with ? placeholders and rebound per driver, so the same code runs on
// sqlite3, the pure Go sqlite driver and postgres. Uniqueness violations surface as
// [shared.ErrIdentityConflict]; other driver failures as [shared.ErrStorage].
package repositories

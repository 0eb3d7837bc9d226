// Package models defines the entities stored and served by the aggregator.
//
// The package contains three categories of types:
//
// 1. Containers: sources that own items and carry sync state
//   - [Channel] : YouTube channel with its uploads playlist
//   - [Feed] : RSS/Atom feed
//   - [Account] : social account on a platform
//
// 2. Items: ingested content, upserted by identifier
//   - [Video], [Article], [Post]
//   - [ReadingMaterial] and its [Tag]s, loaded from curated lists rather than synced
//
// 3. Views: items joined with their container for listing
//   - [VideoView], [ArticleView], [PostView]
//
// [Source] is the sync loop's view of any container, and [Family] names a content family.
package models

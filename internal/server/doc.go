// Package server exposes listings and source management over HTTP.
//
// # Routes
//
//	GET  /api/health                     liveness
//	GET  /api/status                     scheduler jobs
//	GET  /api/{family}                   one page of videos, articles, posts or reading
//	GET  /api/channels|feeds|accounts    containers, optionally ?section=
//	POST /api/channels|feeds|accounts    add a container and queue its first sync
//	POST /api/{family}/{id}/refresh      queue a sync of one container
//	GET  /api/tasks/{id}                 status of a queued sync
//
// Family names accept the aliases understood by [models.ParseFamily], so /api/rss,
// /api/social and /api/reading-list work as well.
//
// # Listing parameters
//
// section, difficulty and platform are exact-match filters; section=all disables the
// section filter. cursor is the nextCursor of the previous page and limit defaults to 10
// with a maximum of 100. Responses have the shape {"items": [...], "nextCursor": "..."}
// with nextCursor omitted on the last page.
//
// # Errors
//
// Errors are JSON objects {"error": "..."} with the status derived from the wrapped
// sentinel error in internal/shared: not found 404, invalid input 400, identity conflict
// 409, missing credentials 422, full or stopped task queue 503, provider failures 502 and
// storage failures 500.
package server

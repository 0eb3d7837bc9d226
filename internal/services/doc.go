// Package services implements the source adapters that fetch content from remote providers.
//
// # Adapter Interface
//
// Every provider implements [Adapter] for its item type, returning one [Page] per call.
// A page carries the items, the token of the next page (empty when exhausted) and, when the
// provider reports it, container metadata such as a feed's title.
//
// # YouTube
//
// [YouTubeService] pages a channel's uploads playlist through the YouTube Data API v3 using an
// API key. [YouTubeService.ChannelInfo] resolves a channel's title and uploads playlist id.
//
// # RSS/Atom
//
// [RSSService] parses a whole feed with gofeed in a single page. Images are taken from
// enclosures or media extensions, falling back to the first <img> in the entry HTML (goquery).
//
// # Social
//
// [SocialService] dispatches on an account's platform to a registered [SocialProvider].
// [MastodonProvider] reads public statuses and optionally authenticates with a static
// [oauth2] bearer token. Unsupported platforms return [shared.ErrNoProvider].
//
// # Error Handling
//
// Adapters wrap sentinel errors from the shared package:
//   - [shared.ErrMissingConfig] : API key or container handle missing
//   - [shared.ErrNotFound] : provider returned 404 or an empty lookup
//   - [shared.ErrServiceUnavailable] : 5xx or rate limited
//   - [shared.ErrAPIRequest] : transport failure or other non-2xx status
//   - [shared.ErrMalformedPayload] : body could not be decoded
package services

// Package services implements the remote collaborators consumed by the gallery engine.
//
// # Interfaces
//
//   - [ItemStore] : cursor-paginated, eventually consistent list of persisted items
//   - [Producer] : starts generation jobs and reports their progress; a start may already be terminal
//   - [PromptBackend] : backend copy of saved prompts and chat history
//
// # HTTP Implementation
//
// [APIService] wraps an [http.Client] and decodes JSON bodies. Credentials are sent as a bearer
// token through an oauth2 static token source (see [NewAuthenticatedClient]).
//
// [GalleryService] implements ItemStore and PromptBackend; [GeneratorService] implements Producer.
// Provider-specific adapters (image and video models) live behind the backend, so the client
// only speaks the normalized job contract.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : 401/403 from the backend
//   - [shared.ErrServiceUnavailable] : 503 or an uninitialized client
//   - [shared.ErrAPIRequest] : transport failures, other non-2xx statuses and undecodable bodies
//
// Callers in the engine log these and keep their optimistic local state.
package services

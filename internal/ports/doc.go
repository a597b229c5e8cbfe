// Package ports defines the interfaces that connect the recorder core to
// the browser and the rest of the outside world.
//
// # Port Interfaces
//
//   - [Document]: the page being recorded, its metadata and its DOM events
//   - [Notifier]: non-blocking user-visible notices on the page
//   - [StateObserver]: recording state changes, for the facade's event handler
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with chromedp, zerolog and
// so on; tests implement them with in-memory fakes.
package ports

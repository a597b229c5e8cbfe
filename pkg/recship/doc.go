// Package recship provides an embeddable browser interaction recorder.
//
// Recship launches a browser, watches every page it loads and records the
// user's clicks, inputs and scrolls as replayable actions with stable CSS
// selectors. Finished sessions are shipped over a WebSocket to a
// test-generation consumer and kept in a local store so nothing is lost
// when the consumer is unreachable.
//
// # Basic Usage
//
//	cfg := recship.DefaultConfig()
//	cfg.StartURL = "https://app.example.com"
//	cfg.StateDir = "/tmp/recship"
//
//	rec, err := recship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := rec.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	<-rec.Done()
//	_ = rec.Stop()
//
// Recording is toggled with Ctrl+Shift+R (Cmd+Shift+R on macOS) inside the
// page, by the consumer over the channel, or by a collaborator through
// [Recship.Handle] and the optional control relay on Config.ControlAddr.
//
// # Event Handling
//
// Implement [EventHandler] (or embed [BaseEventHandler]) and pass it via
// [WithEventHandler] to be told about lifecycle transitions, page loads and
// recording changes. Handlers run synchronously on recorder goroutines.
//
// # Dependency Injection
//
// Tests swap out the browser, the store, the WebSocket dialer and the clock:
//
//	rec, err := recship.New(cfg,
//	    recship.WithHost(fakeBrowser),
//	    recship.WithRepository(state.NewMemoryRepository()),
//	    recship.WithClock(clock.NewMock(time.Now())),
//	)
//
// # Lifecycle States
//
// A Recship instance is in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping] or [StateCrashed]. Use
// [Recship.Status] to query it.
//
// # Plugins
//
//	import "github.com/bft-labs/recship/plugins/configwatcher"
//
//	rec, err := recship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
package recship

// Package channel is the resilient link between the recorder and the test
// generator.
//
// A [Channel] holds one WebSocket connection and moves through three states:
//
//	Disconnected -> Connecting -> Connected
//
// Any close or dial failure returns it to Disconnected. While the retry
// counter is below the configured maximum it schedules a reconnect after
// BaseDelay x attempt. The counter resets only when a connection is
// established. Once the maximum is reached the channel gives up for good
// and calls the give-up hook; from then on only the local fallback receives
// data.
//
// # Protocol
//
// Every message is one JSON object in one text frame, discriminated by its
// "type" field. Outbound: status, recording_started, recording_stopped,
// test_generated and pong. Inbound: start_recording, stop_recording,
// connected, ping, pong, error, warning and info. Unknown types are logged
// and ignored.
//
// # Delivery
//
// [Channel.Send] never blocks on reconnection. If the channel is not
// connected, or the write fails, a test_generated message is handed to the
// [Fallback]; every other message is dropped.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package channel

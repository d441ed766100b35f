package itemstore

import "go.uber.org/zap"

// newNopLogger returns a logger that discards everything, so a Store never
// requires a logging dependency at construction time — logging is opt-in,
// grounded on iamNilotpal-ignite's Config.Logger field, which every
// subsystem constructor takes but which defaults to a no-op elsewhere in
// that codebase's test helpers.
func newNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

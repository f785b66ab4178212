// Package config loads, normalizes, and validates conduit-dj configuration.
//
// Settings come from a TOML file decoded over Default(), followed by
// environment overrides for credentials and deployment values such as
// SPOTIFY_CLIENT_ID and PORT. Validation runs at load time so the engine
// never sees a malformed tolerance, energy or curve.
//
// The engine packages take plain value types; BeatMatch, Queue and Session
// convert the loaded file into them.
package config

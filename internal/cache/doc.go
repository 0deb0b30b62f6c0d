// Package cache provides a content-addressed persistent store for
// synthesized audio artifacts. Entries map a (text, voice) digest to an
// audio file on disk, tracked by a JSON index that is rewritten atomically
// on every mutation. Capacity and age invariants are enforced after every
// store.
package cache

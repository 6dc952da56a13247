// Package editor is the facade a user interface drives: it owns the live
// scene, the storyboard registry and the playback controller, and serializes
// every operation through one lock.
//
// Model imports finish asynchronously. An import started before a load is
// dropped when it completes, because its registry no longer exists.
package editor

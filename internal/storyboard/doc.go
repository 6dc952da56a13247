// Package storyboard implements the board-indexed keyframe model behind the
// scene editor.
//
// A Registry owns the timeline (one frame number per board) and every
// targeted animation: the pairing of an animatable Target with one of its
// Channels. Targets come in two kinds. A TransformTarget wraps an engine
// object with position, rotation and scaling channels; a NestedTarget wraps a
// pre-authored clip and animates its playhead. Every channel holds exactly one
// key per board, and every mutation of the timeline appends a key to every
// live channel in the same step.
//
// The registry does not own object lifetime. Engine objects are reached only
// through the Transform and Clip interfaces so the package can be exercised
// against the in-memory engine or test fakes.
package storyboard

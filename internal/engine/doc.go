// Package engine is an in-memory scene graph: transform nodes carrying
// keyframe tracks, pre-authored clips with a playhead, tag lookup, primitive
// meshes, a sky environment and a YAML scene serializer.
//
// It stands in for a rendering engine. Nothing here draws.
package engine

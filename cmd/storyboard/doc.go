// Command storyboard creates, inspects, plays and previews storyboard
// archives.
package main

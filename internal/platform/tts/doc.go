// Package tts converts summary text into MP3 audio by running the edge-tts
// command line tool.
package tts

package model

import "time"

// AudioMetadata holds the subset of ffprobe output the pipeline cares
// about: enough to validate an extraction or a final mux output.
type AudioMetadata struct {
	Duration   time.Duration
	SampleRate int
	Channels   int
	Bitrate    int
	Codec      string
	Format     string
	Size       int64
}

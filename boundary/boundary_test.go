package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karaokeforge/pipeline/domain/model"
)

func TestProcessRequest_ToOptions_RequiresURL(t *testing.T) {
	_, _, err := ProcessRequest{}.ToOptions()
	assert.Error(t, err)
}

func TestProcessRequest_ToOptions_RejectsBadPosition(t *testing.T) {
	_, _, err := ProcessRequest{URL: "https://x", SubtitlePosition: "middle"}.ToOptions()
	assert.Error(t, err)
}

func TestProcessRequest_ToOptions_RejectsBadFontSize(t *testing.T) {
	_, _, err := ProcessRequest{URL: "https://x", FinalSubtitleSize: 99}.ToOptions()
	assert.Error(t, err)
}

func TestProcessRequest_ToOptions_RejectsOutOfRangePitch(t *testing.T) {
	_, _, err := ProcessRequest{URL: "https://x", GlobalPitch: 13}.ToOptions()
	assert.Error(t, err)
}

func TestProcessRequest_ToOptions_DefaultsLanguageToAuto(t *testing.T) {
	source, opts, err := ProcessRequest{URL: "https://x", GenerateSubtitles: true}.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindURL, source.Kind)

	job := &model.Job{}
	for _, opt := range opts {
		opt(job)
	}
	assert.Equal(t, "auto", job.Language)
	assert.True(t, job.Subtitles.Generate)
}

func TestProcessLocalFileRequest_ToOptions_RequiresPath(t *testing.T) {
	_, _, err := ProcessLocalFileRequest{}.ToOptions()
	assert.Error(t, err)
}

func TestProcessLocalFileRequest_ToOptions_SetsLocalFileSource(t *testing.T) {
	source, _, err := ProcessLocalFileRequest{Path: "/tmp/song.mp3"}.ToOptions()
	require.NoError(t, err)
	assert.Equal(t, model.SourceKindLocalFile, source.Kind)
	assert.Equal(t, "/tmp/song.mp3", source.Path)
}

func TestFromResult_CopiesFields(t *testing.T) {
	bpm := 120.0
	payload := FromResult(model.Result{VideoID: "abc", Title: "Song", BPM: &bpm})
	assert.Equal(t, "abc", payload.VideoID)
	require.NotNil(t, payload.BPM)
	assert.Equal(t, 120.0, *payload.BPM)
}

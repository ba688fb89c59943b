// Package boundary defines the request/response DTOs a future HTTP/WS
// transport layer would marshal, plus the pure translation functions from
// a ProcessRequest into the orchestrator's own types. No net/http,
// gorilla/websocket, routing, CORS, or rate-limiting code lives here —
// wiring an actual transport is outside this module's scope.
package boundary

import (
	"fmt"

	"github.com/karaokeforge/pipeline/domain/model"
	"github.com/karaokeforge/pipeline/domain/ports"
)

// ProcessRequest is the JSON body of POST /api/process.
type ProcessRequest struct {
	URL               string  `json:"url"`
	Language          string  `json:"language"`
	SubtitlePosition  string  `json:"subtitle_position"`
	GenerateSubtitles bool    `json:"generate_subtitles"`
	CustomLyrics      string  `json:"custom_lyrics,omitempty"`
	GlobalPitch       float64 `json:"global_pitch,omitempty"`
	FinalSubtitleSize int     `json:"final_subtitle_size"`
}

// ProcessLocalFileRequest mirrors ProcessRequest for the multipart upload
// path; Path is populated by the transport layer after streaming the
// upload to disk and validating its extension/size/filename.
type ProcessLocalFileRequest struct {
	Path              string  `json:"-"`
	Language          string  `json:"language"`
	SubtitlePosition  string  `json:"subtitle_position"`
	GenerateSubtitles bool    `json:"generate_subtitles"`
	CustomLyrics      string  `json:"custom_lyrics,omitempty"`
	GlobalPitch       float64 `json:"global_pitch,omitempty"`
	FinalSubtitleSize int     `json:"final_subtitle_size"`
}

// SuggestionItem is the JSON shape of one GET /api/suggestions hit.
type SuggestionItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Thumbnail  string `json:"thumbnail"`
	URL        string `json:"url"`
	Uploader   string `json:"uploader"`
	UploaderID string `json:"uploader_id"`
}

// LyricCandidate is the JSON shape of one GET /api/genius_candidates hit.
type LyricCandidate struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	URL    string  `json:"url"`
	Score  float64 `json:"score"`
}

// ProcessResponse is returned 202 Accepted from both process endpoints.
type ProcessResponse struct {
	JobID string `json:"job_id"`
}

// ProgressResponse is one streamed WebSocket/poll frame.
type ProgressResponse struct {
	JobID   string         `json:"job_id"`
	Stage   string         `json:"stage"`
	Percent float64        `json:"progress"`
	Message string         `json:"message"`
	Error   bool           `json:"error,omitempty"`
	Result  *ResultPayload `json:"result,omitempty"`
}

// ResultPayload is the terminal result embedded in a ProgressResponse.
type ResultPayload struct {
	VideoID       string   `json:"video_id"`
	ProcessedPath string   `json:"processed_path"`
	Title         string   `json:"title"`
	StemsBasePath string   `json:"stems_base_path,omitempty"`
	BPM           *float64 `json:"bpm,omitempty"`
	Key           *string  `json:"key,omitempty"`
	KeyConfidence *float64 `json:"key_confidence,omitempty"`
}

// CancelResponse is returned from POST/GET /api/cancel_job.
type CancelResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// ToOptions validates r and translates it into orchestrator Options plus
// the Source the caller should pass to Orchestrator.Submit.
func (r ProcessRequest) ToOptions() (model.Source, []ports.Option, error) {
	if r.URL == "" {
		return model.Source{}, nil, fmt.Errorf("url is required")
	}
	opts, err := subtitleOptionsFrom(r.SubtitlePosition, r.GenerateSubtitles, r.FinalSubtitleSize)
	if err != nil {
		return model.Source{}, nil, err
	}
	if r.GlobalPitch < -12 || r.GlobalPitch > 12 {
		return model.Source{}, nil, fmt.Errorf("global_pitch must be within [-12,12]")
	}

	language := r.Language
	if language == "" {
		language = "auto"
	}

	source := model.Source{Kind: model.SourceKindURL, URL: r.URL}
	options := []ports.Option{
		ports.WithLanguage(language),
		ports.WithSubtitles(opts),
		ports.WithGlobalPitch(r.GlobalPitch),
	}
	if r.CustomLyrics != "" {
		options = append(options, ports.WithCustomLyrics(r.CustomLyrics))
	}
	return source, options, nil
}

// ToOptions validates r and translates it the same way ProcessRequest does,
// for the local-file upload path.
func (r ProcessLocalFileRequest) ToOptions() (model.Source, []ports.Option, error) {
	if r.Path == "" {
		return model.Source{}, nil, fmt.Errorf("path is required")
	}
	opts, err := subtitleOptionsFrom(r.SubtitlePosition, r.GenerateSubtitles, r.FinalSubtitleSize)
	if err != nil {
		return model.Source{}, nil, err
	}
	if r.GlobalPitch < -12 || r.GlobalPitch > 12 {
		return model.Source{}, nil, fmt.Errorf("global_pitch must be within [-12,12]")
	}

	language := r.Language
	if language == "" {
		language = "auto"
	}

	source := model.Source{Kind: model.SourceKindLocalFile, Path: r.Path}
	options := []ports.Option{
		ports.WithLanguage(language),
		ports.WithSubtitles(opts),
		ports.WithGlobalPitch(r.GlobalPitch),
	}
	if r.CustomLyrics != "" {
		options = append(options, ports.WithCustomLyrics(r.CustomLyrics))
	}
	return source, options, nil
}

func subtitleOptionsFrom(position string, generate bool, fontSize int) (model.SubtitleOptions, error) {
	opts := model.DefaultSubtitleOptions()
	opts.Generate = generate

	if position != "" {
		switch model.SubtitlePosition(position) {
		case model.SubtitlePositionTop, model.SubtitlePositionBottom:
			opts.Position = model.SubtitlePosition(position)
		default:
			return model.SubtitleOptions{}, fmt.Errorf("subtitle_position must be %q or %q", model.SubtitlePositionTop, model.SubtitlePositionBottom)
		}
	}

	if fontSize != 0 {
		valid := false
		for _, size := range model.SubtitleFontSizes {
			if size == fontSize {
				valid = true
				break
			}
		}
		if !valid {
			return model.SubtitleOptions{}, fmt.Errorf("final_subtitle_size must be one of %v", model.SubtitleFontSizes)
		}
		opts.FontSize = fontSize
	}

	return opts, nil
}

// FromResult translates a domain Result into its wire payload.
func FromResult(r model.Result) ResultPayload {
	return ResultPayload{
		VideoID:       r.VideoID,
		ProcessedPath: r.ProcessedPath,
		Title:         r.Title,
		StemsBasePath: r.StemsBasePath,
		BPM:           r.BPM,
		Key:           r.Key,
		KeyConfidence: r.KeyConfidence,
	}
}

// FromSuggestion translates a ports.SuggestionItem into its wire shape.
func FromSuggestion(s ports.SuggestionItem) SuggestionItem {
	return SuggestionItem{
		ID: s.ID, Title: s.Title, Thumbnail: s.Thumbnail, URL: s.URL,
		Uploader: s.Uploader, UploaderID: s.UploaderID,
	}
}

// FromLyricCandidate translates a ports.LyricCandidate into its wire shape.
func FromLyricCandidate(c ports.LyricCandidate) LyricCandidate {
	return LyricCandidate{ID: c.ID, Title: c.Title, Artist: c.Artist, URL: c.URL, Score: c.Score}
}

package spotify

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyImage struct {
	URL string `json:"url"`
}

// spotifyTrack is the track object shared by the tracks, search and
// recommendations endpoints.
type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	DurationMs int             `json:"duration_ms"`
	Artists    []spotifyArtist `json:"artists"`
	Album      struct {
		Name   string         `json:"name"`
		Images []spotifyImage `json:"images"`
	} `json:"album"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

// spotifyAudioFeatures mirrors the audio-features object. Key is -1 when
// Spotify could not detect one.
type spotifyAudioFeatures struct {
	ID           string  `json:"id"`
	Danceability float64 `json:"danceability"`
	Energy       float64 `json:"energy"`
	Valence      float64 `json:"valence"`
	Tempo        float64 `json:"tempo"`
	Key          int     `json:"key"`
	Mode         int     `json:"mode"`
}

type searchResponse struct {
	Tracks struct {
		Items []spotifyTrack `json:"items"`
	} `json:"tracks"`
}

type recommendationsResponse struct {
	Tracks []spotifyTrack `json:"tracks"`
}

type audioFeaturesResponse struct {
	AudioFeatures []*spotifyAudioFeatures `json:"audio_features"`
}

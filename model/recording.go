package model

// Recording is a persisted meeting recording together with its derived
// artifacts. The record and the file behind AudioURI are lifecycle-paired:
// deleting the record deletes the file.
type Recording struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	AudioURI         string            `json:"audioUri"`
	AudioDuration    int64             `json:"audioDuration"` // milliseconds, immutable once recorded
	CreatedAt        string            `json:"createdAt"`     // RFC3339, set once at creation
	Transcription    *Transcription    `json:"transcription,omitempty"`
	ActionablePoints []ActionablePoint `json:"actionablePoints,omitempty"`
}

// Transcription is the stored shape derived from the transcription service
// response. It is set at most once per recording and overwritten wholesale
// on a re-save.
type Transcription struct {
	FullText string         `json:"fullText"`
	Words    []Word         `json:"words"`
	Bullets  []string       `json:"bullets"`
	Summary  Summary        `json:"summary"`
	Topics   []TopicSegment `json:"topics"`
}

// Word is a single recognized word with its time span in seconds.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Summary holds the summarized bullet points.
type Summary struct {
	Bullets []string `json:"bullets"`
}

// TopicSegment is a contiguous span of the transcript tagged with topics.
type TopicSegment struct {
	StartTime float64    `json:"start_time"`
	EndTime   float64    `json:"end_time"`
	Text      string     `json:"text"`
	Topics    []TopicTag `json:"topics"`
}

// TopicTag names one topic of a segment.
type TopicTag struct {
	Topic string `json:"topic"`
}

package schemas

import (
	"errors"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Media describes an audio or video file reachable at ContentURL.
type Media struct {
	ContentURL     string         `json:"content_url"`
	EncodingFormat string         `json:"encoding_format,omitempty"`
	Duration       *float64       `json:"duration,omitempty"`
	Transcript     *Transcript    `json:"transcript,omitempty"`
	NLP            map[string]any `json:"nlp,omitempty"`
}

func (Media) TypeName() string {
	return MediaType
}

func (m Media) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.ContentURL, validation.Required, validation.By(httpURL)),
		validation.Field(&m.Duration, validation.Min(0.0)),
		validation.Field(&m.Transcript),
	)
}

// Transcript is the output of a speech recognition job.
type Transcript struct {
	Text  string           `json:"text"`
	Parts []TranscriptPart `json:"parts,omitempty"`
}

func (t Transcript) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Parts),
	)
}

type TranscriptPart struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

func (p TranscriptPart) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.End, validation.Min(p.Start)),
		validation.Field(&p.Conf, validation.Min(0.0), validation.Max(1.0)),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http or https URL")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

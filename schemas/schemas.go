package schemas

// Type tags used as identifier namespaces.
const (
	MediaType string = "media"
)

// Job type tags used as keys of a record's job settings.
const (
	JobASR string = "asr"
)

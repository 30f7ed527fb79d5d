package domain

const (
	RequestIDCtxKey = "mediadb-requestId"
	IsAdminCtxKey   = "mediadb-isAdmin"
)

const (
	IfMatchHeader  = "If-Match"
	RevisionHeader = "X-Record-Revision"
)

type RecordEventType string

const (
	RecordEventCreated RecordEventType = "created"
	RecordEventUpdated RecordEventType = "updated"
	RecordEventPatched RecordEventType = "patched"
)

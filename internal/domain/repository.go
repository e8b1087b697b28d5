package domain

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	Category string
	Status   VideoStatus
}

// VideoRepository defines the persistence contract for download jobs.
// All writes are atomic at single-record granularity.
type VideoRepository interface {
	// Create persists a new video record and assigns its identifier.
	Create(video *Video) error

	// FindByID finds a video by ID.
	FindByID(id uint) (*Video, error)

	// List returns matching records, newest creation first.
	List(filter ListFilter) ([]*Video, error)

	// UpdateFields applies a partial update restricted to the mutable
	// column allow-list. Unknown fields are dropped; an update that
	// resolves to no recognized fields is a no-op.
	UpdateFields(id uint, fields map[string]interface{}) error

	// Delete removes a record.
	Delete(id uint) error

	// FindDoneByYouTubeID returns the most recent done record for a
	// native video ID, or nil. Advisory dedup helper, not enforced.
	FindDoneByYouTubeID(youtubeID string) (*Video, error)

	// FindDoneByTitle returns the most recent done record with the
	// given title, or nil. Advisory dedup helper, not enforced.
	FindDoneByTitle(title string) (*Video, error)
}

package infrastructure

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/yt-dwn/internal/domain"
)

// Mutable column allow-list. Updates carrying other keys are filtered;
// an update with no recognized keys is a no-op. created_at is immutable.
var allowedUpdateColumns = map[string]bool{
	"title":         true,
	"channel":       true,
	"youtube_id":    true,
	"file_path":     true,
	"thumbnail":     true,
	"duration":      true,
	"status":        true,
	"error_msg":     true,
	"downloaded_at": true,
}

// SQLiteVideoRepository implements domain.VideoRepository using SQLite
type SQLiteVideoRepository struct {
	db *gorm.DB
}

// NewSQLiteVideoRepository opens (or creates) the database at dbPath and
// migrates the schema. AutoMigrate is additive and idempotent: new
// optional columns are default-filled on existing rows, no data loss.
func NewSQLiteVideoRepository(dbPath string) (*SQLiteVideoRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}

	if err := db.AutoMigrate(&domain.Video{}); err != nil {
		return nil, &domain.StoreError{Op: "migrate", Err: err}
	}

	return &SQLiteVideoRepository{db: db}, nil
}

// Create persists a new video and assigns its identifier
func (r *SQLiteVideoRepository) Create(video *domain.Video) error {
	if err := r.db.Create(video).Error; err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}
	return nil
}

// FindByID finds a video by ID
func (r *SQLiteVideoRepository) FindByID(id uint) (*domain.Video, error) {
	var video domain.Video
	err := r.db.First(&video, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, &domain.StoreError{Op: "find", Err: err}
	}
	return &video, nil
}

// List returns matching videos, newest creation first
func (r *SQLiteVideoRepository) List(filter domain.ListFilter) ([]*domain.Video, error) {
	var videos []*domain.Video
	query := r.db
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	err := query.Order("created_at DESC, id DESC").Find(&videos).Error
	if err != nil {
		return nil, &domain.StoreError{Op: "list", Err: err}
	}
	return videos, nil
}

// UpdateFields applies a partial update restricted to the allow-list
func (r *SQLiteVideoRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		if allowedUpdateColumns[key] {
			updates[key] = value
		}
	}
	if len(updates) == 0 {
		return nil
	}
	if err := r.db.Model(&domain.Video{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return &domain.StoreError{Op: "update", Err: err}
	}
	return nil
}

// Delete removes a video record
func (r *SQLiteVideoRepository) Delete(id uint) error {
	if err := r.db.Delete(&domain.Video{}, "id = ?", id).Error; err != nil {
		return &domain.StoreError{Op: "delete", Err: err}
	}
	return nil
}

// FindDoneByYouTubeID returns the most recent done record for a native ID
func (r *SQLiteVideoRepository) FindDoneByYouTubeID(youtubeID string) (*domain.Video, error) {
	return r.findDone("youtube_id = ?", youtubeID)
}

// FindDoneByTitle returns the most recent done record with the given title
func (r *SQLiteVideoRepository) FindDoneByTitle(title string) (*domain.Video, error) {
	return r.findDone("title = ?", title)
}

func (r *SQLiteVideoRepository) findDone(cond string, arg interface{}) (*domain.Video, error) {
	var video domain.Video
	err := r.db.Where(cond, arg).
		Where("status = ?", domain.StatusDone).
		Order("created_at DESC, id DESC").
		First(&video).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &domain.StoreError{Op: "find", Err: err}
	}
	return &video, nil
}

// Close closes the database connection
func (r *SQLiteVideoRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/ChromaDNA/pkg/models"
	"github.com/himanishpuri/ChromaDNA/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "chromadna.sqlite3"
const errDBClientNil = "db client is nil"

// ErrVideoNotFound is returned when no video with the requested name or id exists.
var ErrVideoNotFound = errors.New("video not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Video struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)"`
	Name       string  `gorm:"uniqueIndex:idx_video_name" json:"name"`
	Path       string  `json:"path"`
	FrameCount int     `json:"frame_count"`
	FPS        float64 `json:"fps"`
	DurationMs int     `json:"duration_ms"`
	YouTubeID  string  `gorm:"index:idx_youtube_id" json:"youtube_id"`
	CreatedAt  time.Time
}

// Signature is one averaged descriptor. (VideoName, ColorModel) is unique so a
// re-index overwrites the previous row.
type Signature struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	VideoName  string    `gorm:"uniqueIndex:idx_signature_key,priority:1;not null" json:"video_name"`
	ColorModel string    `gorm:"uniqueIndex:idx_signature_key,priority:2;index:idx_color_model;not null" json:"color_model"`
	Bins       int       `json:"bins"`
	StartFrame int       `json:"start_frame"`
	EndFrame   int       `json:"end_frame"`
	Descriptor []float64 `gorm:"serializer:json" json:"descriptor"`
	UpdatedAt  time.Time
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("CHROMA_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serializes writers; one connection keeps concurrent indexers from racing on locks
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Video{}, &Signature{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// RegisterVideo creates the video row for name, or refreshes its metadata if it
// already exists, and returns the video id.
func (c *DBClient) RegisterVideo(v models.Video) (string, error) {
	if c == nil || c.DB == nil {
		return "", errors.New(errDBClientNil)
	}

	var row Video
	err := c.DB.Where("name = ?", v.Name).First(&row).Error
	if err == nil {
		updates := map[string]interface{}{
			"path":        v.Path,
			"frame_count": v.FrameCount,
			"fps":         v.FPS,
			"duration_ms": v.DurationMs,
		}
		if v.YouTubeID != "" {
			updates["you_tube_id"] = v.YouTubeID
		}
		if err := c.DB.Model(&row).Updates(updates).Error; err != nil {
			return "", fmt.Errorf("updating video %s: %w", v.Name, err)
		}
		return row.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing video: %w", err)
	}

	row = Video{
		ID:         utils.GenerateUUID(),
		Name:       v.Name,
		Path:       v.Path,
		FrameCount: v.FrameCount,
		FPS:        v.FPS,
		DurationMs: v.DurationMs,
		YouTubeID:  v.YouTubeID,
	}
	if err := c.DB.Create(&row).Error; err != nil {
		return "", fmt.Errorf("creating video: %w", err)
	}
	return row.ID, nil
}

// PutSignature upserts the averaged signature for (VideoID, Model) in one transaction.
func (c *DBClient) PutSignature(sig models.Signature) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	if len(sig.Average) == 0 {
		return fmt.Errorf("signature %s/%s has no averaged descriptor", sig.VideoID, sig.Model)
	}

	row := Signature{
		VideoName:  sig.VideoID,
		ColorModel: string(sig.Model),
		Bins:       sig.Bins,
		StartFrame: sig.Range.Start,
		EndFrame:   sig.Range.End,
		Descriptor: sig.Average,
	}

	return c.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_name"}, {Name: "color_model"}},
			DoUpdates: clause.AssignmentColumns([]string{"bins", "start_frame", "end_frame", "descriptor", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upserting signature %s/%s: %w", sig.VideoID, sig.Model, err)
		}
		return nil
	})
}

// GetSignatures returns every stored signature for model keyed by video name.
// An empty store yields an empty, non-nil map.
func (c *DBClient) GetSignatures(model models.ColorModel) (map[string]models.Signature, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var rows []Signature
	if err := c.DB.Where("color_model = ?", string(model)).Order("video_name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}

	out := make(map[string]models.Signature, len(rows))
	for _, r := range rows {
		out[r.VideoName] = models.Signature{
			VideoID: r.VideoName,
			Model:   models.ColorModel(r.ColorModel),
			Bins:    r.Bins,
			Range:   models.FrameRange{Start: r.StartFrame, End: r.EndFrame},
			Average: models.Descriptor(r.Descriptor),
		}
	}
	return out, nil
}

// ListSignatures describes the stored signatures of one video.
func (c *DBClient) ListSignatures(videoName string) ([]models.SignatureInfo, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Signature
	if err := c.DB.Where("video_name = ?", videoName).Order("color_model").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying signatures: %w", err)
	}
	out := make([]models.SignatureInfo, len(rows))
	for i, r := range rows {
		out[i] = models.SignatureInfo{
			VideoID:   r.VideoName,
			Model:     models.ColorModel(r.ColorModel),
			Bins:      r.Bins,
			Range:     models.FrameRange{Start: r.StartFrame, End: r.EndFrame},
			UpdatedAt: r.UpdatedAt,
		}
	}
	return out, nil
}

// GetVideo looks a video up by name or id.
func (c *DBClient) GetVideo(nameOrID string) (*models.Video, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Video
	err := c.DB.Where("name = ? OR id = ?", nameOrID, nameOrID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, nameOrID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying video: %w", err)
	}
	v := toModel(row)
	return &v, nil
}

func (c *DBClient) ListVideos() ([]models.Video, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Video
	if err := c.DB.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing videos: %w", err)
	}
	out := make([]models.Video, len(rows))
	for i, r := range rows {
		out[i] = toModel(r)
	}
	return out, nil
}

// DeleteVideo removes the video and all of its signatures.
func (c *DBClient) DeleteVideo(name string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ?", name).Delete(&Video{})
		if res.Error != nil {
			return res.Error
		}
		sigs := tx.Where("video_name = ?", name).Delete(&Signature{})
		if sigs.Error != nil {
			return sigs.Error
		}
		if res.RowsAffected == 0 && sigs.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrVideoNotFound, name)
		}
		return nil
	})
}

// SignatureCount is the number of signatures stored for model; an empty model counts all.
func (c *DBClient) SignatureCount(model models.ColorModel) (int, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	q := c.DB.Model(&Signature{})
	if model != "" {
		q = q.Where("color_model = ?", string(model))
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func toModel(r Video) models.Video {
	return models.Video{
		ID:         r.ID,
		Name:       r.Name,
		Path:       r.Path,
		FrameCount: r.FrameCount,
		FPS:        r.FPS,
		DurationMs: r.DurationMs,
		YouTubeID:  r.YouTubeID,
		CreatedAt:  r.CreatedAt,
	}
}

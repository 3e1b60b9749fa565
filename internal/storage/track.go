package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"

	"github.com/makeasinger/studio/internal/model"
)

// Track is one rendered clip of a completed generation job.
type Track struct {
	ID        string    `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	JobID          string `gorm:"index;not null;default:''" json:"jobId"`
	ProviderTaskID string `gorm:"not null;default:''" json:"providerTaskId,omitempty"`
	ProviderClipID string `gorm:"index;not null;default:''" json:"providerClipId,omitempty"`

	Title    string `gorm:"not null;default:''" json:"title"`
	Style    string `gorm:"not null;default:''" json:"style,omitempty"`
	Lyrics   string `gorm:"type:text" json:"lyrics,omitempty"`
	Language string `gorm:"not null;default:''" json:"language,omitempty"`
	Vocals   string `gorm:"not null;default:''" json:"vocals,omitempty"`

	AudioURL  string  `gorm:"not null;default:''" json:"audioUrl"`
	StreamURL string  `gorm:"not null;default:''" json:"streamUrl,omitempty"`
	ImageURL  string  `gorm:"not null;default:''" json:"imageUrl,omitempty"`
	CoverKey  string  `gorm:"not null;default:''" json:"-"`
	Duration  float64 `gorm:"not null;default:0" json:"duration,omitempty"`

	AlignedWords []model.AlignedWord `gorm:"serializer:json" json:"alignedWords,omitempty"`
}

// NewTrackID returns a sortable unique track id.
func NewTrackID() string {
	return ulid.Make().String()
}

func (s *Store) GetTrack(ctx context.Context, id string) (*Track, error) {
	var v Track
	if err := s.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Track %s: %w", id, err)
	}
	return &v, nil
}

func (s *Store) SetTrack(ctx context.Context, v *Track) error {
	if v.ID == "" {
		v.ID = NewTrackID()
	}
	if err := s.db.WithContext(ctx).Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Track %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Track{ID: id}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("storage: failed to delete Track %s: %w", id, err)
	}
	return nil
}

// ListTracks returns a page of tracks, newest first unless orderBy is given.
func (s *Store) ListTracks(ctx context.Context, page, size int, orderBy string, filter ...Filter) ([]*Track, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	offset := (page - 1) * size
	vs := []*Track{}

	q := s.db.WithContext(ctx).Offset(offset).Limit(size)
	for _, f := range filter {
		q = q.Where(f.Query, f.Args...)
	}
	if orderBy == "" {
		orderBy = "id desc"
	}
	q = q.Order(orderBy)
	if err := q.Find(&vs).Error; err != nil {
		return nil, fmt.Errorf("storage: failed to list Tracks: %w", err)
	}
	return vs, nil
}

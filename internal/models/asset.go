package models

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

type AssetStatus string

const (
	AssetActive  AssetStatus = "active"
	AssetSpare   AssetStatus = "spare"
	AssetRetired AssetStatus = "retired"
	AssetMissing AssetStatus = "missing"
)

// ParseAssetStatus matches s case-insensitively; anything unrecognised
// becomes active.
func ParseAssetStatus(s string) AssetStatus {
	switch st := AssetStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AssetActive, AssetSpare, AssetRetired, AssetMissing:
		return st
	}
	return AssetActive
}

// Attachment is the metadata of an uploaded file. The bytes live
// elsewhere.
type Attachment struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) { return jsonValue(a, len(a) == 0) }

func (a *Attachments) Scan(src any) error { return jsonScan(src, a) }

// Asset is a piece of equipment placed at a site or area.
type Asset struct {
	ID          int64       `json:"id"`
	ClientID    int64       `json:"client_id"`
	LocationID  int64       `json:"location_id"`
	Name        string      `json:"name"`
	Tag         string      `json:"tag"`
	Category    string      `json:"category,omitempty"`
	Model       string      `json:"model,omitempty"`
	Serial      string      `json:"serial,omitempty"`
	Status      AssetStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	BOM         BOM         `json:"bom"`
	Attachments Attachments `json:"attachments"`
	MainPhoto   string      `json:"main_photo,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

var ErrAttachmentNotFound = errors.New("Attachment not found on asset")

// SetMainPhoto marks one of the asset's attachments as its main photo.
func (a *Asset) SetMainPhoto(filename string) error {
	for _, att := range a.Attachments {
		if att.Filename == filename {
			a.MainPhoto = filename
			return nil
		}
	}
	return ErrAttachmentNotFound
}

// RemoveAttachment drops the named attachment and clears MainPhoto when
// it pointed at it.
func (a *Asset) RemoveAttachment(filename string) bool {
	for i, att := range a.Attachments {
		if att.Filename != filename {
			continue
		}
		a.Attachments = append(a.Attachments[:i:i], a.Attachments[i+1:]...)
		if a.MainPhoto == filename {
			a.MainPhoto = ""
		}
		return true
	}
	return false
}

// CreateAssetRequest is the body of POST /assets.
type CreateAssetRequest struct {
	ClientID   int64  `json:"client_id" validate:"required"`
	LocationID int64  `json:"location_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=255"`
	Tag        string `json:"tag"`
	Category   string `json:"category"`
	Model      string `json:"model"`
	Serial     string `json:"serial"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
	BOM        BOM    `json:"bom"`
}

type MoveAssetRequest struct {
	LocationID int64 `json:"location_id" validate:"required"`
}

type MainPhotoRequest struct {
	Filename string `json:"filename" validate:"required"`
}

// AddAttachmentRequest records an uploaded file's metadata on an asset.
type AddAttachmentRequest struct {
	Filename     string `json:"filename" validate:"required,max=255"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size" validate:"gte=0"`
	MimeType     string `json:"mime_type"`
}

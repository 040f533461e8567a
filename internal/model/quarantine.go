package model

import "time"

// QuarantineDocument holds an upload whose filename failed validation.
type QuarantineDocument struct {
	ID           string    `json:"id"`
	Filename     string    `json:"file_name"`
	StoragePath  string    `json:"storage_path"`
	Size         int64     `json:"file_size"`
	ContentType  string    `json:"file_type"`
	ErrorMessage string    `json:"error_message"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

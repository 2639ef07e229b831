package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID       string         `json:"documentId"`
	Title            string         `json:"title"`
	ParentFolderID   string         `json:"parentFolderId,omitempty"`
	MimeType         string         `json:"mimeType"`
	SizeBytes        int64          `json:"sizeBytes"`
	StoragePath      string         `json:"storagePath,omitempty"`
	CurrentVersionID string         `json:"currentVersionId,omitempty"`
	Kind             Kind           `json:"kind"`
	AnalysisStatus   AnalysisStatus `json:"analysisStatus"`
	Metadata         Metadata       `json:"metadata"`
	UploadedAt       time.Time      `json:"uploadedAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// ToResponse converts a document for API output.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:       doc.ID,
		Title:            doc.Title,
		ParentFolderID:   doc.ParentFolderID,
		MimeType:         doc.MimeType,
		SizeBytes:        doc.SizeBytes,
		StoragePath:      doc.StoragePath,
		CurrentVersionID: doc.CurrentVersionID,
		Kind:             doc.Kind,
		AnalysisStatus:   doc.AnalysisStatus,
		Metadata:         doc.Metadata,
		UploadedAt:       doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

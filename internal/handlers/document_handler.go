package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medrescue-api/internal/services"
)

// multipartOverhead leaves room for boundaries and headers around the file part.
const multipartOverhead = 1 << 20

type appointmentParams struct {
	caller, appointment primitive.ObjectID
}

func (h *Handler) appointmentParams(c *gin.Context) (appointmentParams, bool) {
	caller, ok := callerID(c)
	if !ok {
		return appointmentParams{}, false
	}
	appt, ok := parseObjectID(c, c.Param("id"), "appointment id")
	if !ok {
		return appointmentParams{}, false
	}
	return appointmentParams{caller: caller, appointment: appt}, true
}

// readUpload pulls the multipart "file" field. The returned cleanup closes it.
func (h *Handler) readUpload(c *gin.Context) (services.UploadedFile, func(), bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, http.StatusRequestEntityTooLarge, "File exceeds the maximum upload size")
		case errors.Is(err, http.ErrMissingFile):
			respondError(c, http.StatusBadRequest, "No file uploaded")
		default:
			respondError(c, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		}
		return services.UploadedFile{}, nil, false
	}

	file, err := header.Open()
	if err != nil {
		h.respondServiceError(c, err)
		return services.UploadedFile{}, nil, false
	}
	upload := services.UploadedFile{Filename: header.Filename, Size: header.Size, Content: file}
	return upload, func() { _ = file.Close() }, true
}

func (h *Handler) UploadDocument(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	upload, done, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer done()

	doc, err := h.Documents.Upload(c.Request.Context(), p.caller, p.appointment, upload)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, "Document uploaded successfully", doc)
}

func (h *Handler) ListDocuments(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	docs, err := h.Documents.List(c.Request.Context(), p.caller, p.appointment)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Documents retrieved successfully", docs)
}

func (h *Handler) DownloadDocument(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	docID, ok := parseObjectID(c, c.Param("docId"), "document id")
	if !ok {
		return
	}

	doc, rc, size, err := h.Documents.Open(c.Request.Context(), p.caller, p.appointment, docID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename})
	c.DataFromReader(http.StatusOK, size, doc.MimeType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *Handler) ReplaceDocument(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	docID, ok := parseObjectID(c, c.Param("docId"), "document id")
	if !ok {
		return
	}
	upload, done, ok := h.readUpload(c)
	if !ok {
		return
	}
	defer done()

	doc, err := h.Documents.Replace(c.Request.Context(), p.caller, p.appointment, docID, upload)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Document replaced successfully", doc)
}

func (h *Handler) AddDocumentComment(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	docID, ok := parseObjectID(c, c.Param("docId"), "document id")
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !bindJSON(c, &req) {
		return
	}

	comment, err := h.Documents.AddComment(c.Request.Context(), p.caller, p.appointment, docID, req.Text)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondCreated(c, "Comment added successfully", comment)
}

func (h *Handler) UpdateAppointmentNotes(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := h.Documents.UpdateNotes(c.Request.Context(), p.caller, p.appointment, req.Notes); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Notes updated successfully", nil)
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	p, ok := h.appointmentParams(c)
	if !ok {
		return
	}
	docID, ok := parseObjectID(c, c.Param("docId"), "document id")
	if !ok {
		return
	}
	if err := h.Documents.Delete(c.Request.Context(), p.caller, p.appointment, docID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	respondOK(c, "Document deleted successfully", nil)
}

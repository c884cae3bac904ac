package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fenafar_admin/internal/audit"
	"fenafar_admin/internal/logger"
	"fenafar_admin/internal/models"
	"fenafar_admin/internal/rbac"
	"fenafar_admin/internal/storage"
)

const signedURLTTL = 10 * time.Minute

var allowedDocumentTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"text/plain",
	"text/csv",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
}

func loadDocument(c *gin.Context, db *gorm.DB, u models.User) (*models.Documento, bool) {
	var d models.Documento
	q := tenant(db.Model(&models.Documento{}), u, "sindicato_id")
	if err := q.First(&d, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "documento")
		} else {
			fail(c, err)
		}
		return nil, false
	}
	return &d, true
}

func ListDocuments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		page, size := pageParams(c)
		q := tenant(db.Model(&models.Documento{}), u, "sindicato_id")
		if sid := c.Query("sindicatoId"); sid != "" {
			q = q.Where("sindicato_id = ?", sid)
		}
		if typ := strings.ToUpper(c.Query("type")); typ != "" {
			q = q.Where("type = ?", typ)
		}
		if mid := c.Query("memberId"); mid != "" {
			q = q.Where("member_id = ?", mid)
		}
		if term := strings.TrimSpace(c.Query("q")); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			q = q.Where("(lower(title) LIKE ? OR lower(file_name) LIKE ?)", like, like)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			fail(c, err)
			return
		}
		var docs []models.Documento
		if err := paginate(q.Preload("Sindicato").Preload("Member").Order("created_at DESC"), page, size).Find(&docs).Error; err != nil {
			fail(c, err)
			return
		}
		listJSON(c, docs, total, page, size)
	}
}

func GetDocument(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		d, ok := loadDocument(c, db, u)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"document": d})
	}
}

// UploadDocument stores a multipart file and records it. The object is
// removed again when the row cannot be written.
func UploadDocument(db *gorm.DB, store storage.Store, maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+1<<20)

		fh, err := c.FormFile("file")
		if err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "arquivo excede o limite"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "arquivo é obrigatório"})
			return
		}
		if fh.Size > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("arquivo excede o limite de %d MB", maxBytes>>20)})
			return
		}

		title := strings.TrimSpace(c.PostForm("title"))
		if title == "" {
			title = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
		}
		typ := models.DocumentoTipo(strings.ToUpper(strings.TrimSpace(c.PostForm("type"))))
		if typ == "" {
			typ = models.DocumentoOutro
		}
		if !typ.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo de documento inválido"})
			return
		}

		sid := strings.TrimSpace(c.PostForm("sindicatoId"))
		if scope, confined := rbac.TenantScope(u); confined {
			if sid != "" && sid != scope {
				forbidden(c)
				return
			}
			sid = scope
		}
		var sind models.Sindicato
		if sid == "" || db.First(&sind, "id = ?", sid).Error != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sindicato inválido"})
			return
		}

		var memberID *string
		if mid := strings.TrimSpace(c.PostForm("memberId")); mid != "" {
			var member models.User
			if err := db.First(&member, "id = ?", mid).Error; err != nil || !member.BelongsTo(sind.ID) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "membro inválido"})
				return
			}
			memberID = &member.ID
		}

		f, err := fh.Open()
		if err != nil {
			fail(c, err)
			return
		}
		defer f.Close()

		mtype, err := mimetype.DetectReader(f)
		if err != nil {
			fail(c, err)
			return
		}
		if !mimetype.EqualsAny(mtype.String(), allowedDocumentTypes...) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "tipo de arquivo não permitido", "mimeType": mtype.String()})
			return
		}
		if _, err := f.Seek(0, 0); err != nil {
			fail(c, err)
			return
		}

		contentType := strings.SplitN(mtype.String(), ";", 2)[0]
		key := storage.DocumentKey(sind.ID, fh.Filename)
		if err := store.Put(ctx, key, f, fh.Size, contentType); err != nil {
			logger.FromContext(ctx).Error("Upload failed", "sindicato_id", sind.ID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "falha ao armazenar o arquivo"})
			return
		}

		doc := models.Documento{
			Title:        title,
			Description:  strings.TrimSpace(c.PostForm("description")),
			Type:         typ,
			FilePath:     key,
			FileName:     fh.Filename,
			MimeType:     contentType,
			Size:         fh.Size,
			SindicatoID:  sind.ID,
			MemberID:     memberID,
			UploadedByID: u.ID,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&doc).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &sind.ID,
				Action:       "documento.upload",
				ResourceType: "documento",
				ResourceID:   doc.ID,
				Metadata:     map[string]any{"title": doc.Title, "fileName": doc.FileName, "size": doc.Size},
			})
		})
		if err != nil {
			if delErr := store.Delete(ctx, key); delErr != nil {
				logger.FromContext(ctx).Warn("Failed to remove orphan upload", "key", key, "error", delErr)
			}
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"document": doc})
	}
}

// DownloadDocument redirects to a signed URL when the store issues one and
// streams the object otherwise.
func DownloadDocument(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		d, ok := loadDocument(c, db, u)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		url, err := store.SignedURL(ctx, d.FilePath, signedURLTTL)
		switch {
		case err == nil:
			c.Redirect(http.StatusFound, url)
			return
		case !errors.Is(err, storage.ErrNoSignedURL):
			logger.FromContext(ctx).Warn("Signed url failed, streaming instead", "document_id", d.ID, "error", err)
		}

		rc, err := store.Open(ctx, d.FilePath)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				notFound(c, "arquivo")
				return
			}
			fail(c, err)
			return
		}
		defer rc.Close()

		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName})
		c.DataFromReader(http.StatusOK, d.Size, d.MimeType, rc, map[string]string{
			"Content-Disposition": disposition,
		})
	}
}

// DeleteDocument drops the row, then the stored object on a best-effort basis.
func DeleteDocument(db *gorm.DB, store storage.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := me(c)
		if !ok {
			return
		}
		d, ok := loadDocument(c, db, u)
		if !ok {
			return
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Documento{}, "id = ?", d.ID).Error; err != nil {
				return err
			}
			return audit.Record(tx, audit.Entry{
				Meta:         audit.MetaFrom(c),
				Actor:        &u,
				SindicatoID:  &d.SindicatoID,
				Action:       "documento.delete",
				ResourceType: "documento",
				ResourceID:   d.ID,
				Metadata:     map[string]any{"title": d.Title, "filePath": d.FilePath},
			})
		})
		if err != nil {
			fail(c, err)
			return
		}
		if err := store.Delete(c.Request.Context(), d.FilePath); err != nil {
			logger.FromContext(c.Request.Context()).Warn("Failed to delete stored file", "document_id", d.ID, "key", d.FilePath, "error", err)
		}
		c.Status(http.StatusNoContent)
	}
}

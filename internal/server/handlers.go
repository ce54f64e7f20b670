package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/validate"
)

// Metadata headers sent with every encoded image.
const (
	headerOriginalSize     = "X-Original-Size"
	headerCompressedSize   = "X-Compressed-Size"
	headerCompressionRatio = "X-Compression-Ratio"
	headerOriginalWidth    = "X-Original-Width"
	headerOriginalHeight   = "X-Original-Height"
	headerSessionID        = "X-Session-Id"
	headerJobID            = "X-Job-Id"
)

var exposedHeaders = []string{
	headerOriginalSize,
	headerCompressedSize,
	headerCompressionRatio,
	headerOriginalWidth,
	headerOriginalHeight,
	headerSessionID,
	headerJobID,
	"Content-Disposition",
	"ETag",
}

func (s *Server) handleHealth(c *gin.Context) {
	formats := []codec.Format{}
	if s.formats != nil {
		formats = s.formats.Formats()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"message":          "Image compression API is running",
		"supportedFormats": formats,
		"maxFileSize":      validate.FormatBytes(s.limits.MaxBytes),
		"maxFileSizeBytes": s.limits.MaxBytes,
		"maxFiles":         s.limits.MaxImages,
		"workers":          s.orch.Workers(),
	})
}

// handleCompress transcodes one image synchronously and answers with the
// encoded bytes.
func (s *Server) handleCompress(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, errs.CodeMissingInput, "no file provided")
		return
	}
	p, err := parseProfile(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	in, err := readUpload(fh, "", s.limits.MaxBytes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	limits := s.limits
	limits.MaxImages = 1
	sess, err := s.orch.Submit(c.Request.Context(), []codec.ImageInput{in}, p, limits)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer func() { _ = s.orch.Discard(sess.ID) }()

	if err := sess.Wait(c.Request.Context()); err != nil {
		respondWithError(c, err)
		return
	}
	job := sess.Jobs()[0]
	if job.Status != batch.StatusCompleted {
		respondWithError(c, &errs.Error{Code: job.ErrorCode, Message: job.Error})
		return
	}
	_, data, err := sess.Output(job.ID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	writeImage(c, job, data)
}

func (s *Server) handleSubmit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, errs.CodeMissingInput, "send images as multipart/form-data")
		return
	}
	defer form.RemoveAll()

	files := formFiles(form)
	p, err := parseProfile(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if err := validate.BatchSize(len(files), s.limits); err != nil {
		respondWithError(c, err)
		return
	}

	ids := form.Value["ids[]"]
	images := make([]codec.ImageInput, len(files))
	for i, fh := range files {
		var id string
		if len(ids) == len(files) {
			id = ids[i]
		}
		if images[i], err = readUpload(fh, id, s.limits.MaxBytes); err != nil {
			respondWithError(c, err)
			return
		}
	}

	sess, err := s.orch.Submit(c.Request.Context(), images, p, s.limits)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header("Location", "/api/batches/"+sess.ID)
	c.JSON(http.StatusAccepted, sess.Snapshot())
}

func (s *Server) session(c *gin.Context) (*batch.Session, bool) {
	sess, err := s.orch.Session(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSession(c *gin.Context) {
	if sess, ok := s.session(c); ok {
		c.JSON(http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) handleStats(c *gin.Context) {
	if sess, ok := s.session(c); ok {
		c.JSON(http.StatusOK, sess.Stats())
	}
}

func (s *Server) handleJob(c *gin.Context) {
	job, err := s.orch.JobStatus(c.Param("id"), c.Param("jobId"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleDownload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	job, data, err := sess.Output(c.Param("jobId"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.Header(headerSessionID, sess.ID)
	writeImage(c, job, data)

	if release, _ := strconv.ParseBool(c.Query("release")); release {
		if err := sess.Release(job.ID); err != nil {
			s.logger.Warn("release after download", "session_id", sess.ID, "job_id", job.ID, "err", err)
		}
	}
}

func (s *Server) handleRelease(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Release(c.Param("jobId")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCancel(c *gin.Context) {
	n, err := s.orch.Cancel(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": n, "stats": sess.Stats()})
}

func (s *Server) handleDiscard(c *gin.Context) {
	if err := s.orch.Discard(c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeImage sends encoded bytes with the metadata headers clients read
// savings from.
func writeImage(c *gin.Context, job batch.Job, data []byte) {
	name := strings.ReplaceAll(job.OutputFilename, `"`, "_")
	c.Header(headerOriginalSize, strconv.FormatInt(job.OriginalSize, 10))
	c.Header(headerCompressedSize, strconv.FormatInt(job.CompressedSize, 10))
	c.Header(headerCompressionRatio, strconv.FormatFloat(job.CompressionRatio, 'f', 1, 64))
	c.Header(headerOriginalWidth, strconv.Itoa(job.OriginalWidth))
	c.Header(headerOriginalHeight, strconv.Itoa(job.OriginalHeight))
	c.Header(headerJobID, job.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", name, url.PathEscape(name)))
	c.Header("Cache-Control", "no-store")
	if job.Digest != "" {
		c.Header("ETag", `"`+job.Digest+`"`)
	}
	c.Data(http.StatusOK, job.OutputMIMEType, data)
}

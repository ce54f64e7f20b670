package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/source"
)

// parseProfile reads the codec profile from form fields. Missing fields take
// the defaults of codec.DefaultProfile.
func parseProfile(c *gin.Context) (codec.Profile, error) {
	p := codec.DefaultProfile()

	if v := strings.TrimSpace(c.PostForm("quality")); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return p, errs.New(errs.CodeInvalidProfile, "quality must be an integer, got %q", v)
		}
		p.Quality = q
	}
	if v := strings.TrimSpace(c.PostForm("format")); v != "" {
		f, err := codec.ParseFormat(v)
		if err != nil {
			return p, errs.Wrap(errs.CodeInvalidProfile, err, "format")
		}
		p.Format = f
	}

	var err error
	if p.Width, err = optionalInt(c, "width"); err != nil {
		return p, err
	}
	if p.Height, err = optionalInt(c, "height"); err != nil {
		return p, err
	}
	if v := strings.TrimSpace(c.PostForm("maintainAspectRatio")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, errs.New(errs.CodeInvalidProfile, "maintainAspectRatio must be true or false, got %q", v)
		}
		p.PreserveAspectRatio = b
	}
	return p, nil
}

func optionalInt(c *gin.Context, field string) (int, error) {
	v := strings.TrimSpace(c.PostForm(field))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.New(errs.CodeInvalidProfile, "%s must be an integer, got %q", field, v)
	}
	return n, nil
}

// formFiles returns uploads under files[], files or file, in that order of
// preference.
func formFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	for _, key := range []string{"files[]", "files", "file"} {
		if files := form.File[key]; len(files) > 0 {
			return files
		}
	}
	return nil
}

// readUpload buffers one upload, reading at most maxBytes+1 bytes so an
// oversized file is still recognized as too large by the validator.
func readUpload(fh *multipart.FileHeader, id string, maxBytes int64) (codec.ImageInput, error) {
	f, err := fh.Open()
	if err != nil {
		return codec.ImageInput{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return codec.ImageInput{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return codec.ImageInput{
		ID:       id,
		Data:     data,
		MIMEType: source.DetectMIME(data, fh.Header.Get("Content-Type")),
		Filename: fh.Filename,
	}, nil
}

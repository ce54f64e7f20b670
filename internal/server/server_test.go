package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chirag127/TinyImage/internal/batch"
	"github.com/chirag127/TinyImage/internal/errs"
	"github.com/chirag127/TinyImage/internal/testimg"
	"github.com/chirag127/TinyImage/internal/transcode"
	"github.com/chirag127/TinyImage/internal/validate"
)

func newTestRouter(t *testing.T, limits validate.Limits) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := transcode.New(transcode.Options{})
	orch := batch.New(engine, batch.Options{Workers: 2})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	srv := New(orch, Options{Limits: limits, Formats: engine, AllowedOrigins: []string{"http://localhost:3000"}})
	return srv.Router()
}

type upload struct {
	field, name, mime string
	data              []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, f.field, f.name))
		if f.mime != "" {
			h.Set("Content-Type", f.mime)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func do(t *testing.T, router http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", rec.Body.String())
	}
	if body.Error == "" {
		t.Fatalf("error body without message: %s", rec.Body.String())
	}
	return body.Code
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, validate.DefaultLimits())
	for _, path := range []string{"/health", "/api/compress"} {
		rec := do(t, router, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var body struct {
			Status           string   `json:"status"`
			SupportedFormats []string `json:"supportedFormats"`
			MaxFileSize      string   `json:"maxFileSize"`
			MaxFiles         int      `json:"maxFiles"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if body.Status != "ok" || body.MaxFileSize != "10MB" || body.MaxFiles != 10 {
			t.Fatalf("%s: body %+v", path, body)
		}
		if len(body.SupportedFormats) < 2 || body.SupportedFormats[0] != "jpeg" || body.SupportedFormats[1] != "png" {
			t.Fatalf("%s: formats %v", path, body.SupportedFormats)
		}
	}
}

func TestCompress(t *testing.T) {
	router := newTestRouter(t, validate.DefaultLimits())
	src := testimg.PNG(testimg.Photo(200, 100))
	body, ct := multipartBody(t, map[string]string{"quality": "70", "width": "100"},
		upload{field: "file", name: "banner.png", mime: "image/png", data: src})

	rec := do(t, router, http.MethodPost, "/api/compress", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("content type %q", ct)
	}
	if got := rec.Header().Get("X-Original-Size"); got != fmt.Sprint(len(src)) {
		t.Fatalf("X-Original-Size %s, want %d", got, len(src))
	}
	if got := rec.Header().Get("X-Compressed-Size"); got != fmt.Sprint(rec.Body.Len()) {
		t.Fatalf("X-Compressed-Size %s, body %d", got, rec.Body.Len())
	}
	if rec.Header().Get("X-Original-Width") != "200" || rec.Header().Get("X-Original-Height") != "100" {
		t.Fatalf("original dims %s x %s", rec.Header().Get("X-Original-Width"), rec.Header().Get("X-Original-Height"))
	}
	if ratio := rec.Header().Get("X-Compression-Ratio"); !regexp.MustCompile(`^-?\d+\.\d$`).MatchString(ratio) {
		t.Fatalf("ratio %q not rendered with one decimal", ratio)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="compressed_banner.jpeg"`) {
		t.Fatalf("content disposition %q", cd)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("body is not a JPEG: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("encoded %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestCompressErrors(t *testing.T) {
	limits := validate.Limits{MaxBytes: 4 << 10}
	router := newTestRouter(t, limits)

	small := testimg.PNG(testimg.Gradient(16, 16))
	big := testimg.PNG(testimg.Photo(128, 128))
	if len(big) <= 4<<10 {
		t.Fatalf("fixture too small: %d bytes", len(big))
	}

	tests := []struct {
		name   string
		fields map[string]string
		file   *upload
		status int
		code   errs.Code
	}{
		{"no file", nil, nil, http.StatusBadRequest, errs.CodeMissingInput},
		{"quality zero", map[string]string{"quality": "0"}, &upload{"file", "a.png", "image/png", small}, http.StatusBadRequest, errs.CodeInvalidProfile},
		{"quality text", map[string]string{"quality": "high"}, &upload{"file", "a.png", "image/png", small}, http.StatusBadRequest, errs.CodeInvalidProfile},
		{"bad format", map[string]string{"format": "avif"}, &upload{"file", "a.png", "image/png", small}, http.StatusBadRequest, errs.CodeInvalidProfile},
		{"gif", nil, &upload{"file", "a.gif", "image/gif", []byte("GIF89a....")}, http.StatusUnsupportedMediaType, errs.CodeUnsupportedType},
		{"too large", nil, &upload{"file", "big.png", "image/png", big}, http.StatusRequestEntityTooLarge, errs.CodeTooLarge},
		{"corrupt", nil, &upload{"file", "broken.png", "image/png", testimg.Corrupt(small)}, http.StatusUnprocessableEntity, errs.CodeDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var files []upload
			if tt.file != nil {
				files = append(files, *tt.file)
			}
			body, ct := multipartBody(t, tt.fields, files...)
			rec := do(t, router, http.MethodPost, "/api/compress", body, ct)
			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if code := decodeError(t, rec); code != string(tt.code) {
				t.Fatalf("code %s, want %s", code, tt.code)
			}
		})
	}
}

func waitForBatch(t *testing.T, router http.Handler, id string) batch.Snapshot {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		rec := do(t, router, http.MethodGet, "/api/batches/"+id, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("get batch: %d %s", rec.Code, rec.Body.String())
		}
		var snap batch.Snapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		if snap.Done {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch %s not done: %+v", id, snap.Stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBatchLifecycle(t *testing.T) {
	router := newTestRouter(t, validate.DefaultLimits())
	body, ct := multipartBody(t, map[string]string{"format": "png", "quality": "60"},
		upload{field: "files[]", name: "one.jpg", data: testimg.JPEG(testimg.Photo(64, 48), 90)},
		upload{field: "files[]", name: "two.gif", mime: "image/gif", data: []byte("GIF89a")},
	)

	rec := do(t, router, http.MethodPost, "/api/batches", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var submitted batch.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(submitted.Jobs) != 2 || submitted.Profile.Quality != 60 {
		t.Fatalf("submitted %+v", submitted)
	}

	snap := waitForBatch(t, router, submitted.ID)
	if snap.Stats.Completed != 1 || snap.Stats.Failed != 1 {
		t.Fatalf("stats %+v", snap.Stats)
	}
	good, bad := snap.Jobs[0], snap.Jobs[1]
	if good.OutputMIMEType != "image/png" || !good.Palette || bad.ErrorCode != errs.CodeUnsupportedType {
		t.Fatalf("jobs %+v / %+v", good, bad)
	}

	base := "/api/batches/" + submitted.ID
	rec = do(t, router, http.MethodGet, base+"/stats", nil, "")
	var stats batch.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil || stats != snap.Stats {
		t.Fatalf("stats endpoint %s (%v)", rec.Body.String(), err)
	}

	rec = do(t, router, http.MethodGet, base+"/jobs/"+bad.ID+"/download", nil, "")
	if rec.Code != http.StatusConflict || decodeError(t, rec) != string(errs.CodeNotReady) {
		t.Fatalf("download failed job: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, base+"/jobs/"+good.ID+"/download?release=true", nil, "")
	if rec.Code != http.StatusOK || rec.Body.Len() != int(good.CompressedSize) {
		t.Fatalf("download: %d, %d bytes, want %d", rec.Code, rec.Body.Len(), good.CompressedSize)
	}
	if rec.Header().Get("ETag") != `"`+good.Digest+`"` {
		t.Fatalf("etag %q", rec.Header().Get("ETag"))
	}
	rec = do(t, router, http.MethodGet, base+"/jobs/"+good.ID+"/download", nil, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("download after release: %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, base+"/jobs/"+good.ID, nil, "")
	var job batch.Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil || !job.Released {
		t.Fatalf("job after release: %s", rec.Body.String())
	}

	if rec = do(t, router, http.MethodPost, base+"/cancel", nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("cancel finished batch: %d", rec.Code)
	}
	if rec = do(t, router, http.MethodDelete, base, nil, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("discard: %d", rec.Code)
	}
	if rec = do(t, router, http.MethodGet, base, nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get discarded batch: %d", rec.Code)
	}
}

func TestBatchErrors(t *testing.T) {
	router := newTestRouter(t, validate.DefaultLimits())

	body, ct := multipartBody(t, nil)
	rec := do(t, router, http.MethodPost, "/api/batches", body, ct)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != string(errs.CodeEmptyBatch) {
		t.Fatalf("empty batch: %d %s", rec.Code, rec.Body.String())
	}

	png := testimg.PNG(testimg.Gradient(4, 4))
	var files []upload
	for i := 0; i < 11; i++ {
		files = append(files, upload{field: "files[]", name: fmt.Sprintf("%d.png", i), mime: "image/png", data: png})
	}
	body, ct = multipartBody(t, nil, files...)
	rec = do(t, router, http.MethodPost, "/api/batches", body, ct)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec) != string(errs.CodeTooManyImages) {
		t.Fatalf("too many: %d %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/api/batches/nope", "/api/batches/nope/stats", "/api/batches/nope/jobs/x"} {
		rec = do(t, router, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: %d", path, rec.Code)
		}
	}
	if rec = do(t, router, http.MethodDelete, "/api/batches/nope/jobs/x/output", nil, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("release unknown: %d", rec.Code)
	}
}

func TestCORSExposesMetadataHeaders(t *testing.T) {
	router := newTestRouter(t, validate.DefaultLimits())
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("allow origin %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if exposed := rec.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(exposed, "X-Compression-Ratio") {
		t.Fatalf("exposed headers %q", exposed)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[errs.Code]int{
		errs.CodeTooLarge:          http.StatusRequestEntityTooLarge,
		errs.CodeUnsupportedType:   http.StatusUnsupportedMediaType,
		errs.CodeNotReady:          http.StatusConflict,
		errs.CodeUnknownSession:    http.StatusNotFound,
		errs.CodeUnknownJobID:      http.StatusNotFound,
		errs.CodeDecode:            http.StatusUnprocessableEntity,
		errs.CodeEncode:            http.StatusInternalServerError,
		errs.CodeCancelled:         http.StatusRequestTimeout,
		errs.CodeInvalidProfile:    http.StatusBadRequest,
		errs.CodeUnsupportedFormat: http.StatusBadRequest,
		errs.CodeDuplicateJobID:    http.StatusBadRequest,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

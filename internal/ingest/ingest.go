package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/travelog-app/server/internal/apperr"
	"github.com/travelog-app/server/internal/storage"
)

const (
	fileField      = "image"
	credentialKey  = "apiKey"
	maxTextBytes   = 64 * 1024
	imageMimeClass = "image/"
)

var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

var errFileTooLarge = errors.New("file exceeds size limit")

// StoredFile describes an accepted image attachment already written to
// storage under a generated name.
type StoredFile struct {
	OriginalName string
	ContentType  string
	Size         int64
	StorageName  string
	PublicPath   string
}

// Submission is the normalized result of reading a request body. The
// credential travels on its own field and never enters Fields, so it
// cannot leak into validation or the stored record.
type Submission struct {
	Fields map[string]string
	File   *StoredFile
	APIKey string
}

type Ingestor struct {
	storage  storage.Storage
	maxBytes int64
	urlBase  string
	log      *logrus.Entry
}

func New(logger *logrus.Logger, store storage.Storage, maxBytes int64, urlBase string) *Ingestor {
	if !strings.HasSuffix(urlBase, "/") {
		urlBase += "/"
	}
	return &Ingestor{
		storage:  store,
		maxBytes: maxBytes,
		urlBase:  urlBase,
		log:      logger.WithField("component", "ingestor"),
	}
}

// Read parses a JSON or multipart submission into a normalized field
// map plus, for multipart bodies, at most one stored image file. On any
// failure a partially stored file has already been deleted.
func (ing *Ingestor) Read(ctx context.Context, r *http.Request) (*Submission, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil && contentType != "" {
		return nil, apperr.Upload(fmt.Sprintf("unparseable content type %q", contentType))
	}

	switch {
	case mediaType == "multipart/form-data":
		return ing.readMultipart(ctx, r)
	case mediaType == "application/json" || mediaType == "":
		return ing.readJSON(r)
	default:
		return nil, apperr.Upload(fmt.Sprintf("unsupported content type %q", mediaType))
	}
}

// Discard removes the stored file of a submission whose pipeline failed
// downstream of ingestion.
func (ing *Ingestor) Discard(ctx context.Context, sub *Submission) {
	if sub == nil || sub.File == nil {
		return
	}
	if err := ing.storage.Delete(ctx, sub.File.StorageName); err != nil {
		ing.log.WithFields(logrus.Fields{
			"file":  sub.File.StorageName,
			"error": err,
		}).Warn("Failed to delete discarded upload")
	}
	sub.File = nil
}

func (ing *Ingestor) readJSON(r *http.Request) (*Submission, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxTextBytes))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Upload("request body is not a valid JSON object")
	}

	sub := &Submission{Fields: make(map[string]string, len(raw))}
	for key, value := range raw {
		var text string
		switch v := value.(type) {
		case string:
			text = v
		case json.Number:
			text = v.String()
		case bool:
			text = fmt.Sprint(v)
		case nil:
			continue
		default:
			return nil, apperr.Validation(key, fmt.Sprintf("field %q must be a string or number", key))
		}
		if key == credentialKey {
			sub.APIKey = text
			continue
		}
		sub.Fields[key] = text
	}
	return sub, nil
}

func (ing *Ingestor) readMultipart(ctx context.Context, r *http.Request) (*Submission, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apperr.Upload("malformed multipart body")
	}

	sub := &Submission{Fields: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			ing.Discard(ctx, sub)
			return nil, apperr.Upload("malformed multipart body")
		}

		if part.FileName() == "" {
			value, err := io.ReadAll(io.LimitReader(part, maxTextBytes))
			part.Close()
			if err != nil {
				ing.Discard(ctx, sub)
				return nil, apperr.Upload("malformed multipart body")
			}
			if name := part.FormName(); name == credentialKey {
				sub.APIKey = string(value)
			} else if name != "" {
				sub.Fields[name] = string(value)
			}
			continue
		}

		if part.FormName() != fileField {
			part.Close()
			ing.Discard(ctx, sub)
			return nil, apperr.Upload(fmt.Sprintf("unexpected file field %q", part.FormName()))
		}
		if sub.File != nil {
			part.Close()
			ing.Discard(ctx, sub)
			return nil, apperr.Upload("only one image attachment is allowed")
		}

		file, err := ing.saveFile(ctx, part)
		part.Close()
		if err != nil {
			ing.Discard(ctx, sub)
			return nil, err
		}
		sub.File = file
	}

	return sub, nil
}

// saveFile streams one file part to storage, enforcing the declared MIME
// class before reading any bytes and the size ceiling while copying.
// The storage backend removes its partial object when the reader fails,
// so an oversized upload leaves nothing behind.
func (ing *Ingestor) saveFile(ctx context.Context, part *multipart.Part) (*StoredFile, error) {
	fileName := part.FileName()
	contentType := part.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, imageMimeClass) {
		return nil, apperr.Upload(fmt.Sprintf("attachment %q is %q, only image/* is accepted", fileName, contentType))
	}

	name := generateName(fileName)
	counter := &limitedCounter{reader: part, remaining: ing.maxBytes}

	if err := ing.storage.Save(ctx, name, contentType, counter); err != nil {
		if errors.Is(err, errFileTooLarge) {
			return nil, apperr.Upload(fmt.Sprintf("attachment %q exceeds the %d byte limit", fileName, ing.maxBytes))
		}
		return nil, apperr.Upload("failed to store attachment")
	}

	size := ing.maxBytes - counter.remaining
	ing.log.WithFields(logrus.Fields{
		"file": name,
		"size": size,
	}).Info("Stored uploaded image")

	return &StoredFile{
		OriginalName: fileName,
		ContentType:  contentType,
		Size:         size,
		StorageName:  name,
		PublicPath:   ing.urlBase + name,
	}, nil
}

// limitedCounter fails the copy as soon as the ceiling is crossed, so
// oversized uploads are rejected mid-stream instead of buffered whole.
type limitedCounter struct {
	reader    io.Reader
	remaining int64
}

func (lc *limitedCounter) Read(p []byte) (int, error) {
	if lc.remaining < 0 {
		return 0, errFileTooLarge
	}
	// Allow one byte past the ceiling so an exactly-at-limit file still
	// reads a clean EOF while the first excess byte trips the error.
	if int64(len(p)) > lc.remaining+1 {
		p = p[:lc.remaining+1]
	}
	n, err := lc.reader.Read(p)
	lc.remaining -= int64(n)
	if lc.remaining < 0 {
		return n, errFileTooLarge
	}
	return n, err
}

// generateName builds a collision-resistant storage name: nanosecond
// timestamp plus a random suffix, keeping the original extension when it
// looks safe.
func generateName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if !safeExtension.MatchString(ext) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), ext)
}

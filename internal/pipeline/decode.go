package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaenvelope/internal/casing"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
)

// maxDecodeBodySize is the largest request body that is buffered for key
// decoding. Larger bodies are passed through unchanged.
const maxDecodeBodySize = 10 << 20 // 10MB

var errBodyTooLarge = errors.New("request body too large for key decoding")

// DecodeRequestKeys returns a middleware that rewrites the object keys of
// JSON request bodies from the external convention to the internal one, so
// that handlers bind the names they also return.
func (p *Pipeline) DecodeRequestKeys() gin.HandlerFunc {
	cv := casing.NewConverter(p.normalizer.Convention().Inverse())

	return func(c *gin.Context) {
		if cv.Convention() == casing.None || !isJSONContent(c.ContentType()) {
			c.Next()
			return
		}

		start := time.Now()
		if err := decodeBody(c, cv); err != nil {
			p.logger.WithContext(c.Request.Context()).Debug("request key decoding skipped",
				observability.String("path", c.Request.URL.Path),
				observability.Error(err),
			)
			p.metrics.RecordStage(StageDecode, "error", time.Since(start))
		} else {
			p.metrics.RecordStage(StageDecode, "success", time.Since(start))
		}

		c.Next()
	}
}

// decodeBody replaces the request body with its key-converted form. On any
// error the original body is restored.
func decodeBody(c *gin.Context, cv *casing.Converter) error {
	r := c.Request
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	orig := r.Body
	body, err := io.ReadAll(io.LimitReader(orig, maxDecodeBodySize+1))
	if err != nil || len(body) > maxDecodeBodySize {
		r.Body = replayBody{Reader: io.MultiReader(bytes.NewReader(body), orig), Closer: orig}
		if err == nil {
			err = errBodyTooLarge
		}
		return err
	}
	_ = orig.Close()

	var data any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		return err
	}

	converted, err := json.Marshal(cv.MapKeys(data))
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		return err
	}

	r.Body = io.NopCloser(bytes.NewReader(converted))
	r.ContentLength = int64(len(converted))
	r.Header.Set("Content-Length", strconv.Itoa(len(converted)))

	return nil
}

// replayBody serves already consumed bytes before the rest of the original
// body.
type replayBody struct {
	io.Reader
	io.Closer
}

func isJSONContent(contentType string) bool {
	return contentType == "application/json" || strings.HasSuffix(contentType, "+json")
}

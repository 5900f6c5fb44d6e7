package api

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/vidpipe/errors"
	"github.com/kbukum/vidpipe/server"
	"github.com/kbukum/vidpipe/storage/local"
)

// MediaVerifier checks locally signed URLs. *local.Signer implements it.
type MediaVerifier interface {
	Verify(key, expires, signature string) error
	Path(key string) (string, error)
}

var _ MediaVerifier = (*local.Signer)(nil)

// RegisterMedia serves signed local files at /media/*key.
func RegisterMedia(r gin.IRouter, v MediaVerifier) {
	r.GET("/media/*key", func(c *gin.Context) {
		key := strings.TrimPrefix(c.Param("key"), "/")
		err := v.Verify(key, c.Query(local.ParamExpires), c.Query(local.ParamSignature))
		switch {
		case stderrors.Is(err, local.ErrExpired):
			server.RespondWithError(c, errors.Forbidden("Signed URL has expired."))
			return
		case err != nil:
			server.RespondWithError(c, errors.Forbidden("Invalid URL signature."))
			return
		}
		path, err := v.Path(key)
		if err != nil {
			server.RespondWithError(c, errors.InvalidInput("key", err.Error()))
			return
		}
		if _, err := os.Stat(path); err != nil {
			server.RespondWithError(c, errors.NotFound("media", key))
			return
		}
		c.File(path)
	})
}

// internal/app/features/media/upload.go
package media

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/hearthsocial/hearth/internal/app/features/errors"
	"github.com/hearthsocial/hearth/internal/app/system/apperr"
	"github.com/hearthsocial/hearth/internal/app/system/authz"
	"github.com/hearthsocial/hearth/internal/app/system/mediastore"
	"github.com/hearthsocial/hearth/internal/app/system/respond"
	"github.com/hearthsocial/hearth/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// formOverhead is slack for multipart framing on top of the largest file.
const formOverhead = 1 << 20

// memoryLimit is how much of a form is buffered before spilling to disk.
const memoryLimit = 32 << 20

// HandleUpload handles POST /media with the file in the "file" field.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := authz.UserID(r)
	if !ok {
		uierrors.Unauthenticated(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, mediastore.MaxVideoBytes+formOverhead)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.ErrLog.Write(w, r, "media.upload", apperr.ErrMediaTooLarge)
			return
		}
		h.ErrLog.Write(w, r, "media.upload", apperr.Invalid("Expected a multipart form.").Wrap(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.ErrLog.Write(w, r, "media.upload", apperr.Invalid("A file is required in the \"file\" field."))
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	up, err := mediastore.Save(ctx, h.Store, file, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		h.ErrLog.Write(w, r, "media.upload", err)
		return
	}
	h.Log.Info("media uploaded",
		zap.String("user_id", caller.Hex()),
		zap.String("key", up.Key),
		zap.Int64("size", up.Size))
	respond.Created(w, up)
}

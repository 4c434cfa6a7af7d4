package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/deprov/internal/core"
	"github.com/JonMunkholm/deprov/internal/tabular"
)

// IdentityField is the form field carrying the account name. Files use the
// source kind as field name ("dl", "sm", "mg", "entra", "device").
const IdentityField = "identity"

// multipartMemory is how much of a form ParseMultipartForm keeps in memory
// before spilling files to disk.
const multipartMemory = 32 << 20

var (
	errInvalidForm  = errors.New("invalid form")
	errInvalidFile  = errors.New("invalid file")
	errFileTooLarge = errors.New("file too large")
)

// parseUpload reads the identity and every provided export from a
// multipart request. Exports that were not sent stay zero tables.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (string, core.Sources, error) {
	var src core.Sources

	maxFile := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxFile*int64(len(core.SourceKinds))+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", src, fmt.Errorf("request body too large: %w", err)
		}
		return "", src, fmt.Errorf("%w: %w", errInvalidForm, err)
	}
	defer r.MultipartForm.RemoveAll()

	for _, kind := range core.SourceKinds {
		file, header, err := r.FormFile(string(kind))
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return "", src, fmt.Errorf("%w: %s: %w", errInvalidForm, kind.Label(), err)
		}
		if header.Size > maxFile {
			file.Close()
			return "", src, fmt.Errorf("%s: %w (%d bytes, limit %d)", header.Filename, errFileTooLarge, header.Size, maxFile)
		}

		t, err := readSource(header.Filename, file)
		if err != nil {
			return "", src, fmt.Errorf("%w: %s: %w", errInvalidFile, kind.Label(), err)
		}
		src.Set(kind, t)
	}

	return r.FormValue(IdentityField), src, nil
}

func readSource(name string, file multipart.File) (tabular.Table, error) {
	defer file.Close()
	return tabular.Read(name, file)
}

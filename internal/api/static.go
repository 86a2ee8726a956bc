package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// mimeTypes is the fixed extension table of the static contract; anything
// else is served as an opaque octet stream.
var mimeTypes = map[string]string{
	".htm":  "text/html",
	".html": "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "text/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpe":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".svg":  "image/svg+xml",
	".svgz": "image/svg+xml",
	".mp3":  "audio/mpeg",
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeTypes[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}

// handleStatic serves files under the document root. It backs the
// router's NotFound handler, so it sees everything outside /api.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		s.writeError(w, http.StatusMethodNotAllowed, codeInvalidMethod, "Invalid method")
		return
	}

	relPath := r.URL.Path
	if relPath == "/" {
		relPath = "/index.html"
	}

	if strings.Contains(relPath, "..") {
		s.writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid path")
		return
	}

	fullPath := filepath.Join(s.wwwRoot, filepath.FromSlash(strings.TrimPrefix(relPath, "/")))

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		s.writeError(w, http.StatusNotFound, codeFileNotFound, "File not found")
		return
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, codeInternalError, "File reading error")
		return
	}

	w.Header().Set("Content-Type", mimeTypeFor(fullPath))
	w.Header().Set("Cache-Control", "max-age=3600")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(content)
	}
}

package devserver

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// clientTag is injected into every HTML page served from the project root
const clientTag = `<script type="module" src="` + clientPath + `"></script>`

// contentTypes covers the files a demo gallery serves
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".htm":   "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".mjs":   "application/javascript; charset=utf-8",
	".ts":    "application/javascript; charset=utf-8",
	".vue":   "application/javascript; charset=utf-8",
	".json":  "application/json; charset=utf-8",
	".txt":   "text/plain; charset=utf-8",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
	".mp4":   "video/mp4",
	".mp3":   "audio/mpeg",
}

// detectContentType detects the content type from file extension
func detectContentType(filePath string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(filePath))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// fileServer serves the project root. HTML documents get the gallery client
// injected; nothing is cached.
func fileServer(root string, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Clean against "/" so the result cannot leave root
		filePath := filepath.Join(root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))

		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if info.IsDir() {
			indexPath := filepath.Join(filePath, "index.html")
			indexInfo, err := os.Stat(indexPath)
			if err != nil || indexInfo.IsDir() {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			filePath = indexPath
			info = indexInfo
		}

		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", detectContentType(filePath))
		w.Header().Set("Last-Modified", info.ModTime().UTC().Format(http.TimeFormat))

		if !strings.HasPrefix(detectContentType(filePath), "text/html") {
			serveFile(w, r, filePath, info.ModTime())
			return
		}

		data, err := os.ReadFile(filePath)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		page := injectClient(data)
		w.Header().Set("Content-Length", fmt.Sprint(len(page)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodGet {
			return
		}
		if _, err := w.Write(page); err != nil {
			logger.Warn("failed to write page", zap.String("path", filePath), zap.Error(err))
		}
	})
}

func serveFile(w http.ResponseWriter, r *http.Request, filePath string, modTime time.Time) {
	f, err := os.Open(filePath)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, filepath.Base(filePath), modTime, f)
}

// injectClient places the client tag before </head>, or before </body>, or
// at the end of the document
func injectClient(page []byte) []byte {
	lower := asciiLower(page)
	for _, marker := range []string{"</head>", "</body>"} {
		if i := bytes.Index(lower, []byte(marker)); i >= 0 {
			out := make([]byte, 0, len(page)+len(clientTag))
			out = append(out, page[:i]...)
			out = append(out, clientTag...)
			out = append(out, page[i:]...)
			return out
		}
	}
	return append(append([]byte(nil), page...), clientTag...)
}

// asciiLower lowercases A-Z only, keeping byte offsets aligned with page
func asciiLower(page []byte) []byte {
	out := make([]byte, len(page))
	for i, b := range page {
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out[i] = b
	}
	return out
}

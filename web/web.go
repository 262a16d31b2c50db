// Package web serves the static site and the embedded admin console page.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed console/*
var console embed.FS

const indexFile = "index.html"

// Handler serves the built site in fsys. Paths without a file extension
// that match nothing fall back to index.html for client-side routing.
// Files ending in .config are JSON documents.
func Handler(fsys fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := cleanPath(r.URL.Path)
		if !ok {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		serveFile(w, r, fsys, name)
	})
}

// Console serves the embedded admin console page and its script.
func Console() (http.Handler, error) {
	fsys, err := fs.Sub(console, "console")
	if err != nil {
		return nil, fmt.Errorf("loading embedded console assets: %w", err)
	}
	if _, err := fs.Stat(fsys, indexFile); err != nil {
		return nil, fmt.Errorf("reading embedded console index: %w", err)
	}
	return Handler(fsys), nil
}

// cleanPath maps a URL path to an fs.FS name. Any ".." segment, backslash
// or NUL byte is refused rather than cleaned away.
func cleanPath(urlPath string) (string, bool) {
	if strings.ContainsAny(urlPath, "\\\x00") {
		return "", false
	}
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", false
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	return name, fs.ValidPath(name)
}

func serveFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	info, err := fs.Stat(fsys, name)
	switch {
	case err == nil && info.IsDir():
		index := path.Join(name, indexFile)
		if _, err := fs.Stat(fsys, index); err != nil {
			serveIndex(w, r, fsys)
			return
		}
		writeFile(w, r, fsys, index)
	case err == nil:
		writeFile(w, r, fsys, name)
	case errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "":
		serveIndex(w, r, fsys)
	default:
		http.NotFound(w, r)
	}
}

func serveIndex(w http.ResponseWriter, r *http.Request, fsys fs.FS) {
	if _, err := fs.Stat(fsys, indexFile); err != nil {
		http.NotFound(w, r)
		return
	}
	writeFile(w, r, fsys, indexFile)
}

func writeFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	f, err := fsys.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "reading file", http.StatusInternalServerError)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.Error(w, "reading file", http.StatusInternalServerError)
			return
		}
		rs = bytes.NewReader(data)
	}

	switch path.Ext(name) {
	case ".config":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	http.ServeContent(w, r, path.Base(name), info.ModTime(), rs)
}
